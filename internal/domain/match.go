package domain

// MatchResult is a ranked job for a candidate. It is derived on every
// request and never persisted.
type MatchResult struct {
	Job     Job      `json:"job"`
	Score   float64  `json:"score"`
	Reasons []string `json:"match_reasons"`
}

// Match modes reported to API callers.
const (
	MatchModeSemantic = "semantic"
	MatchModeFallback = "fallback"
)
