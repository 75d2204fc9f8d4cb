package domain

// Candidate is a job seeker profile. Embedding is computed lazily by the
// matcher and persisted together with the fingerprint of the text it was
// derived from.
type Candidate struct {
	ID         string            `json:"id"         db:"id"`
	Name       string            `json:"name"       db:"name"`
	Email      string            `json:"email"      db:"email"`
	Education  string            `json:"education"  db:"education"`
	Location   string            `json:"location"   db:"location"`
	Skills     []string          `json:"skills"     db:"skills"`
	Experience string            `json:"experience" db:"experience"`
	Answers    map[string]string `json:"answers"    db:"answers"` // question id -> answer

	Embedding            []float32 `json:"-" db:"embedding"`
	EmbeddingFingerprint string    `json:"-" db:"embedding_fingerprint"`
}

// HasEmbedding reports whether a vector has been computed for the candidate.
func (c *Candidate) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// Clone returns a deep copy of the candidate.
func (c *Candidate) Clone() *Candidate {
	out := *c
	out.Skills = append([]string(nil), c.Skills...)
	out.Answers = cloneStringMap(c.Answers)
	out.Embedding = cloneVector(c.Embedding)
	return &out
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	return append([]float32(nil), v...)
}
