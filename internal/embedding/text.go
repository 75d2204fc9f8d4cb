package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/arturoeanton/launchpad-match/internal/domain"
)

// DescriptionLimit is the number of description runes that contribute to a
// job's embedding text.
const DescriptionLimit = 500

// JobText builds the text a job is embedded from: title, truncated
// description, responsibilities, category and location, followed by the
// requirement pairs in key order.
func JobText(j *domain.Job) string {
	parts := []string{
		j.Title,
		truncateRunes(j.Description, DescriptionLimit),
		j.Responsibilities,
		j.Category,
		j.Location,
	}
	if len(j.Requirements) > 0 {
		parts = append(parts, pairs(j.Requirements))
	}
	return strings.Join(parts, " ")
}

// CandidateText builds the text a candidate is embedded from.
func CandidateText(c *domain.Candidate) string {
	parts := []string{
		c.Name,
		c.Education,
		c.Location,
		c.Experience,
	}
	if len(c.Skills) > 0 {
		parts = append(parts, strings.Join(c.Skills, " "))
	}
	if len(c.Answers) > 0 {
		parts = append(parts, pairs(c.Answers))
	}
	return strings.Join(parts, " ")
}

// Fingerprint identifies an embedding input: hex SHA-256 of text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// CandidateFingerprint is Fingerprint(CandidateText(c)).
func CandidateFingerprint(c *domain.Candidate) string {
	return Fingerprint(CandidateText(c))
}

func pairs(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+m[k])
	}
	return strings.Join(out, " ")
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
