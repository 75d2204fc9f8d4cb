package service

import (
	"strings"

	"github.com/arturoeanton/launchpad-match/internal/domain"
)

// CandidateInput is the payload for creating a candidate.
type CandidateInput struct {
	ID         string            `json:"id,omitempty"         validate:"omitempty,max=64"`
	Name       string            `json:"name"                 validate:"max=255"`
	Email      string            `json:"email"                validate:"omitempty,email"`
	Education  string            `json:"education"            validate:"max=255"`
	Location   string            `json:"location"             validate:"max=255"`
	Skills     []string          `json:"skills"               validate:"dive,required,max=100"`
	Experience string            `json:"experience"           validate:"max=2000"`
	Answers    map[string]string `json:"answers"              validate:"dive,keys,required,endkeys"`
}

func (in CandidateInput) toDomain() *domain.Candidate {
	return &domain.Candidate{
		ID:         in.ID,
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.TrimSpace(in.Email),
		Education:  strings.TrimSpace(in.Education),
		Location:   strings.TrimSpace(in.Location),
		Skills:     trimAll(in.Skills),
		Experience: strings.TrimSpace(in.Experience),
		Answers:    in.Answers,
	}
}

// CandidatePatch changes only the fields that are set.
type CandidatePatch struct {
	Name       *string            `json:"name"       validate:"omitempty,max=255"`
	Email      *string            `json:"email"      validate:"omitempty,email"`
	Education  *string            `json:"education"  validate:"omitempty,max=255"`
	Location   *string            `json:"location"   validate:"omitempty,max=255"`
	Skills     *[]string          `json:"skills"     validate:"omitempty,dive,required,max=100"`
	Experience *string            `json:"experience" validate:"omitempty,max=2000"`
	Answers    *map[string]string `json:"answers"    validate:"omitempty,dive,keys,required,endkeys"`
}

func (p CandidatePatch) apply(c *domain.Candidate) {
	setTrimmed(&c.Name, p.Name)
	setTrimmed(&c.Email, p.Email)
	setTrimmed(&c.Education, p.Education)
	setTrimmed(&c.Location, p.Location)
	setTrimmed(&c.Experience, p.Experience)
	if p.Skills != nil {
		c.Skills = trimAll(*p.Skills)
	}
	if p.Answers != nil {
		c.Answers = *p.Answers
	}
}

// JobInput is the payload for creating a job.
type JobInput struct {
	ID                 string            `json:"id,omitempty"                   validate:"omitempty,max=64"`
	Title              string            `json:"title"                          validate:"required,max=255"`
	Description        string            `json:"description"                    validate:"max=20000"`
	Responsibilities   string            `json:"responsibilities"               validate:"max=20000"`
	Requirements       map[string]string `json:"requirements"                   validate:"dive,keys,requirement_key,endkeys"`
	Salary             *float64          `json:"salary,omitempty"               validate:"omitempty,gte=0"`
	ApplicationEndDate *domain.Date      `json:"application_end_date,omitempty"`
	Company            string            `json:"company"                        validate:"max=255"`
	Category           string            `json:"category"                       validate:"max=255"`
	Location           string            `json:"location"                       validate:"max=255"`
}

func (in JobInput) toDomain() *domain.Job {
	return &domain.Job{
		ID:                 in.ID,
		Title:              strings.TrimSpace(in.Title),
		Description:        in.Description,
		Responsibilities:   in.Responsibilities,
		Requirements:       in.Requirements,
		Salary:             in.Salary,
		ApplicationEndDate: optionalDate(in.ApplicationEndDate),
		Company:            strings.TrimSpace(in.Company),
		Category:           strings.TrimSpace(in.Category),
		Location:           strings.TrimSpace(in.Location),
	}
}

// JobPatch changes only the fields that are set.
type JobPatch struct {
	Title              *string            `json:"title"                validate:"omitempty,required,max=255"`
	Description        *string            `json:"description"          validate:"omitempty,max=20000"`
	Responsibilities   *string            `json:"responsibilities"     validate:"omitempty,max=20000"`
	Requirements       *map[string]string `json:"requirements"         validate:"omitempty,dive,keys,requirement_key,endkeys"`
	Salary             *float64           `json:"salary"               validate:"omitempty,gte=0"`
	ApplicationEndDate *domain.Date       `json:"application_end_date"`
	Company            *string            `json:"company"              validate:"omitempty,max=255"`
	Category           *string            `json:"category"             validate:"omitempty,max=255"`
	Location           *string            `json:"location"             validate:"omitempty,max=255"`
}

func (p JobPatch) apply(j *domain.Job) {
	setTrimmed(&j.Title, p.Title)
	if p.Description != nil {
		j.Description = *p.Description
	}
	if p.Responsibilities != nil {
		j.Responsibilities = *p.Responsibilities
	}
	if p.Requirements != nil {
		j.Requirements = *p.Requirements
	}
	if p.Salary != nil {
		j.Salary = p.Salary
	}
	if p.ApplicationEndDate != nil {
		// "" clears the end date.
		j.ApplicationEndDate = optionalDate(p.ApplicationEndDate)
	}
	setTrimmed(&j.Company, p.Company)
	setTrimmed(&j.Category, p.Category)
	setTrimmed(&j.Location, p.Location)
}

// ChoiceInput is one choice of a requirement payload.
type ChoiceInput struct {
	ID    string `json:"id,omitempty" validate:"omitempty,max=64"`
	Text  string `json:"text"         validate:"required,max=255"`
	Value string `json:"value"        validate:"required,max=255"`
}

// RequirementInput is the payload for creating a requirement.
type RequirementInput struct {
	ID        string            `json:"id,omitempty" validate:"omitempty,max=64"`
	Text      string            `json:"text"         validate:"required,max=1000"`
	Type      string            `json:"type"         validate:"omitempty,oneof=text single_choice multiple_choice number boolean"`
	Choices   []ChoiceInput     `json:"choices"      validate:"dive"`
	DependsOn map[string]string `json:"depends_on"   validate:"dive,keys,required,endkeys"`
	Order     int               `json:"order"        validate:"gte=0"`
}

func (in RequirementInput) toDomain() *domain.Requirement {
	typ := in.Type
	if typ == "" {
		typ = domain.QuestionTypeText
	}
	return &domain.Requirement{
		ID:        in.ID,
		Text:      strings.TrimSpace(in.Text),
		Type:      typ,
		Choices:   toChoices(in.Choices),
		DependsOn: in.DependsOn,
		Order:     in.Order,
	}
}

// RequirementPatch changes only the fields that are set. Choices, when set,
// replace the whole list.
type RequirementPatch struct {
	Text      *string            `json:"text"       validate:"omitempty,required,max=1000"`
	Type      *string            `json:"type"       validate:"omitempty,oneof=text single_choice multiple_choice number boolean"`
	Choices   *[]ChoiceInput     `json:"choices"    validate:"omitempty,dive"`
	DependsOn *map[string]string `json:"depends_on" validate:"omitempty,dive,keys,required,endkeys"`
	Order     *int               `json:"order"      validate:"omitempty,gte=0"`
}

func (p RequirementPatch) apply(r *domain.Requirement) {
	setTrimmed(&r.Text, p.Text)
	if p.Type != nil {
		r.Type = *p.Type
	}
	if p.Choices != nil {
		r.Choices = toChoices(*p.Choices)
	}
	if p.DependsOn != nil {
		r.DependsOn = *p.DependsOn
	}
	if p.Order != nil {
		r.Order = *p.Order
	}
}

func toChoices(in []ChoiceInput) []domain.Choice {
	out := make([]domain.Choice, 0, len(in))
	for _, c := range in {
		out = append(out, domain.Choice{ID: c.ID, Text: strings.TrimSpace(c.Text), Value: c.Value})
	}
	return out
}

// optionalDate maps the zero date, which "" decodes to, to no date.
func optionalDate(d *domain.Date) *domain.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	v := *d
	return &v
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
