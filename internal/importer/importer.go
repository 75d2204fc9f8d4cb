// Package importer loads job postings from YAML or JSON files.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/logger"
	"github.com/arturoeanton/launchpad-match/internal/service"
)

// Field limits applied before validation.
const (
	MaxTitle            = 255
	MaxDescription      = 2000
	MaxResponsibilities = 1000
	MaxShortField       = 255
	MaxCategory         = 100
)

// Record is one job posting as it appears in an import file.
type Record struct {
	ID                 string            `yaml:"id"`
	Title              string            `yaml:"title"`
	Description        string            `yaml:"description"`
	Responsibilities   string            `yaml:"responsibilities"`
	Requirements       map[string]string `yaml:"requirements"`
	Salary             *float64          `yaml:"salary"`
	Company            string            `yaml:"company"`
	Category           string            `yaml:"category"`
	Location           string            `yaml:"location"`
	ApplicationEndDate string            `yaml:"application_end_date"`
}

// Decode reads either a top-level list of records or a document with a
// "jobs" list. JSON input works as well.
func Decode(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var list []Record
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var doc struct {
		Jobs []Record `yaml:"jobs"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode job file: %w", err)
	}
	return doc.Jobs, nil
}

// Normalize turns a record into a job payload. defaultWindow > 0 sets a
// missing end date to today plus that many days.
func Normalize(rec Record, today time.Time, defaultWindow int) (service.JobInput, error) {
	title := truncate(strings.TrimSpace(rec.Title), MaxTitle)
	if title == "" {
		return service.JobInput{}, errors.New("missing title")
	}

	description := truncate(strings.TrimSpace(rec.Description), MaxDescription)
	if description == "" {
		description = "Position: " + title
	}

	category := truncate(strings.TrimSpace(rec.Category), MaxCategory)
	if category == "" {
		category = "General"
	}
	location := truncate(strings.TrimSpace(rec.Location), MaxShortField)
	if location == "" {
		location = "Remote"
	}

	in := service.JobInput{
		ID:               strings.TrimSpace(rec.ID),
		Title:            title,
		Description:      description,
		Responsibilities: truncate(strings.TrimSpace(rec.Responsibilities), MaxResponsibilities),
		Salary:           rec.Salary,
		Company:          truncate(strings.TrimSpace(rec.Company), MaxShortField),
		Category:         category,
		Location:         location,
	}

	for k, v := range rec.Requirements {
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		if in.Requirements == nil {
			in.Requirements = make(map[string]string)
		}
		in.Requirements[strings.TrimSpace(k)] = v
	}

	switch end := strings.TrimSpace(rec.ApplicationEndDate); {
	case end != "":
		d, err := domain.ParseDate(end)
		if err != nil {
			return service.JobInput{}, err
		}
		in.ApplicationEndDate = &d
	case defaultWindow > 0:
		d := domain.DateOf(today).AddDays(defaultWindow)
		in.ApplicationEndDate = &d
	}
	return in, nil
}

// JobCreator stores a job.
type JobCreator interface {
	Create(ctx context.Context, in service.JobInput) (*domain.Job, error)
}

// Options tunes an import.
type Options struct {
	DefaultWindow int // days; 0 leaves missing end dates empty
	Limit         int // 0 = all records
	Now           func() time.Time
	Logger        *zap.Logger
}

// Result counts the outcome of an import.
type Result struct {
	Created  int      `json:"created"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Problems []string `json:"problems,omitempty"`
}

// Import normalizes and creates every record. Records repeating an earlier
// id are skipped; bad records are counted and reported, not fatal.
func Import(ctx context.Context, jobs JobCreator, records []Record, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}

	res := &Result{}
	seen := make(map[string]bool)
	today := opts.Now()

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if id := strings.TrimSpace(rec.ID); id != "" {
			if seen[id] {
				res.Skipped++
				continue
			}
			seen[id] = true
		}

		in, err := Normalize(rec, today, opts.DefaultWindow)
		if err == nil {
			_, err = jobs.Create(ctx, in)
		}
		if err != nil {
			res.Failed++
			res.Problems = append(res.Problems, fmt.Sprintf("record %d (%q): %v", i+1, logger.Truncate(rec.Title, 60), err))
			continue
		}
		res.Created++

		if (i+1)%10 == 0 {
			opts.Logger.Info("import progress",
				zap.Int("processed", i+1), zap.Int("total", len(records)),
				zap.Int("created", res.Created), zap.Int("failed", res.Failed))
		}
	}
	return res, nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit]))
}
