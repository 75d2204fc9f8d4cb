package importer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/arturoeanton/launchpad-match/internal/adapter/store"
	"github.com/arturoeanton/launchpad-match/internal/domain"
	"github.com/arturoeanton/launchpad-match/internal/service"
	"github.com/arturoeanton/launchpad-match/internal/validation"
)

var today = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestDecodeFormats(t *testing.T) {
	tests := []struct {
		name, input string
		want        int
	}{
		{"yaml list", "- title: A\n- title: B\n", 2},
		{"yaml document", "jobs:\n  - title: A\n", 1},
		{"json list", `[{"title":"A","salary":10.5}]`, 1},
		{"json document", `{"jobs":[{"title":"A"},{"title":"B"},{"title":"C"}]}`, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := Decode(strings.NewReader(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			if len(recs) != tt.want {
				t.Fatalf("got %d records, want %d", len(recs), tt.want)
			}
		})
	}

	if _, err := Decode(strings.NewReader("jobs: [unclosed")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNormalize(t *testing.T) {
	long := strings.Repeat("x", 300)
	in, err := Normalize(Record{
		Title:        long,
		Requirements: map[string]string{"experience": "Mid-Senior", "work_type": "  "},
	}, today, 30)
	if err != nil {
		t.Fatal(err)
	}
	if len([]rune(in.Title)) != MaxTitle {
		t.Fatalf("title not truncated: %d", len(in.Title))
	}
	if !strings.HasPrefix(in.Description, "Position: ") {
		t.Fatalf("description default missing: %q", in.Description)
	}
	if in.Category != "General" || in.Location != "Remote" {
		t.Fatalf("defaults not applied: %+v", in)
	}
	if _, ok := in.Requirements["work_type"]; ok || in.Requirements["experience"] != "Mid-Senior" {
		t.Fatalf("requirements not cleaned: %v", in.Requirements)
	}
	if in.ApplicationEndDate == nil || in.ApplicationEndDate.String() != "2026-03-31" {
		t.Fatalf("default window not applied: %v", in.ApplicationEndDate)
	}

	in, err = Normalize(Record{Title: "A", ApplicationEndDate: "2026-06-01"}, today, 30)
	if err != nil || in.ApplicationEndDate.String() != "2026-06-01" {
		t.Fatalf("explicit date: %v %v", err, in.ApplicationEndDate)
	}

	in, _ = Normalize(Record{Title: "A"}, today, 0)
	if in.ApplicationEndDate != nil {
		t.Fatal("no window should leave the end date empty")
	}

	if _, err := Normalize(Record{Title: "  "}, today, 0); err == nil {
		t.Fatal("expected missing title error")
	}
	if _, err := Normalize(Record{Title: "A", ApplicationEndDate: "01/06/2026"}, today, 0); err == nil {
		t.Fatal("expected bad date error")
	}
}

type failingCreator struct{}

func (failingCreator) Create(context.Context, service.JobInput) (*domain.Job, error) {
	return nil, errors.New("db down")
}

func TestImport(t *testing.T) {
	s := store.NewMemoryStore()
	jobs := service.NewJobService(s, nil, validation.New(), nil)
	records := []Record{
		{ID: "1", Title: "Go Dev", Requirements: map[string]string{"experience": "Senior"}},
		{ID: "1", Title: "Go Dev again"},
		{Title: ""},
		{Title: "Typo", Requirements: map[string]string{"educaton": "BSc"}},
		{Title: "Data Analyst"},
		{Title: "Over the limit"},
	}

	res, err := Import(context.Background(), jobs, records, Options{Limit: 5, Now: func() time.Time { return today }})
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 2 || res.Skipped != 1 || res.Failed != 2 || len(res.Problems) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}

	all, _ := s.ListAllJobs(context.Background())
	if len(all) != 2 {
		t.Fatalf("stored %d jobs", len(all))
	}

	res, _ = Import(context.Background(), failingCreator{}, []Record{{Title: "A"}}, Options{})
	if res.Failed != 1 || !strings.Contains(res.Problems[0], "db down") {
		t.Fatalf("creator error not reported: %+v", res)
	}
}
