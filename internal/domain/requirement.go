package domain

// RequirementKey names a job requirement entry. Only known keys are accepted
// at ingestion so a misspelled key cannot silently disable a scoring rule.
type RequirementKey string

// Known requirement keys.
const (
	RequirementEducation     RequirementKey = "education"
	RequirementExperience    RequirementKey = "experience"
	RequirementWorkType      RequirementKey = "work_type"
	RequirementLanguage      RequirementKey = "language"
	RequirementCertification RequirementKey = "certification"
	RequirementSkills        RequirementKey = "skills"
)

var knownRequirementKeys = map[RequirementKey]bool{
	RequirementEducation:     true,
	RequirementExperience:    true,
	RequirementWorkType:      true,
	RequirementLanguage:      true,
	RequirementCertification: true,
	RequirementSkills:        true,
}

// IsKnownRequirementKey reports whether key is one of the supported keys.
func IsKnownRequirementKey(key string) bool {
	return knownRequirementKeys[RequirementKey(key)]
}

// Question types for configurable requirements.
const (
	QuestionTypeText           = "text"
	QuestionTypeSingleChoice   = "single_choice"
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeNumber         = "number"
	QuestionTypeBoolean        = "boolean"
)

// Requirement is a configurable question used to collect candidate answers.
// It owns its choices: deleting a requirement deletes them too.
type Requirement struct {
	ID        string            `json:"id"                   db:"id"`
	Text      string            `json:"text"                 db:"text"`
	Type      string            `json:"type"                 db:"type"`
	Choices   []Choice          `json:"choices"              db:"-"`
	DependsOn map[string]string `json:"depends_on,omitempty" db:"depends_on"` // requirement id -> answer that activates this one
	Order     int               `json:"order"                db:"sort_order"`
}

// Choice is one selectable answer of a Requirement.
type Choice struct {
	ID    string `json:"id"    db:"id"`
	Text  string `json:"text"  db:"text"`
	Value string `json:"value" db:"value"`
}

// Clone returns a deep copy of the requirement.
func (r *Requirement) Clone() *Requirement {
	out := *r
	out.Choices = append([]Choice(nil), r.Choices...)
	out.DependsOn = cloneStringMap(r.DependsOn)
	return &out
}
