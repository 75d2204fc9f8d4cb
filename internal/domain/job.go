package domain

import (
	"strings"
	"time"
)

// Job is a job posting. A job is available while its application window is
// open: ApplicationEndDate is nil or not before the reference date.
type Job struct {
	ID                 string            `json:"id"                             db:"id"`
	Title              string            `json:"title"                          db:"title"`
	Description        string            `json:"description"                    db:"description"`
	Responsibilities   string            `json:"responsibilities,omitempty"     db:"responsibilities"`
	Requirements       map[string]string `json:"requirements"                   db:"requirements"`
	Salary             *float64          `json:"salary,omitempty"               db:"salary"`
	ApplicationEndDate *Date             `json:"application_end_date,omitempty" db:"application_end_date"`
	Company            string            `json:"company,omitempty"              db:"company"`
	Category           string            `json:"category,omitempty"             db:"category"`
	Location           string            `json:"location,omitempty"             db:"location"`

	Embedding []float32 `json:"-" db:"embedding"`
}

// IsAvailable reports whether applications are still accepted on the
// calendar day of asOf.
func (j *Job) IsAvailable(asOf time.Time) bool {
	if j.ApplicationEndDate == nil {
		return true
	}
	return !j.ApplicationEndDate.Before(DateOf(asOf))
}

// HasEmbedding reports whether a vector has been computed for the job.
func (j *Job) HasEmbedding() bool {
	return len(j.Embedding) > 0
}

// Requirement returns the trimmed value stored under key, or "".
func (j *Job) Requirement(key RequirementKey) string {
	if j.Requirements == nil {
		return ""
	}
	return strings.TrimSpace(j.Requirements[string(key)])
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	out := *j
	out.Requirements = cloneStringMap(j.Requirements)
	out.Embedding = cloneVector(j.Embedding)
	if j.Salary != nil {
		s := *j.Salary
		out.Salary = &s
	}
	if j.ApplicationEndDate != nil {
		d := *j.ApplicationEndDate
		out.ApplicationEndDate = &d
	}
	return &out
}
