package export

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/arturoeanton/launchpad-match/internal/domain"
)

func sampleMatches() (*domain.Candidate, []domain.MatchResult) {
	end, _ := domain.ParseDate("2026-12-31")
	c := &domain.Candidate{ID: "c1", Name: "Ada", Location: "Boston", Skills: []string{"Go", "SQL"}}
	return c, []domain.MatchResult{
		{
			Job:     domain.Job{ID: "j1", Title: "Go Dev", Company: "Acme", ApplicationEndDate: &end},
			Score:   69.9,
			Reasons: []string{"📍 Location match: Boston", "💡 Matching skills: Go"},
		},
		{Job: domain.Job{ID: "j2", Title: "DBA"}, Score: 41},
	}
}

func TestMatchesToExcel(t *testing.T) {
	c, matches := sampleMatches()
	path, err := MatchesToExcel(c, matches, domain.MatchModeSemantic, filepath.Join(t.TempDir(), "report"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, "report.xlsx") {
		t.Fatalf("suffix not enforced: %s", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != summarySheet || got[1] != rankedSheet {
		t.Fatalf("unexpected sheets: %v", got)
	}

	name, _ := f.GetCellValue(summarySheet, "B3")
	if name != "Ada" {
		t.Fatalf("candidate name cell = %q", name)
	}

	rows, err := f.GetRows(rankedSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	first := rows[1]
	if first[0] != "1" || first[1] != "69.9" || first[2] != "Go Dev" || first[6] != "2026-12-31" {
		t.Fatalf("unexpected first row: %v", first)
	}
	if !strings.Contains(first[7], "Matching skills: Go") {
		t.Fatalf("reasons missing: %q", first[7])
	}
}

func TestWorkbookEmptyMatches(t *testing.T) {
	f, err := Workbook(&domain.Candidate{ID: "c1"}, nil, domain.MatchModeFallback)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, _ := f.GetRows(rankedSheet)
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
	mode, _ := f.GetCellValue(summarySheet, "B8")
	if mode != domain.MatchModeFallback {
		t.Fatalf("mode cell = %q", mode)
	}
}
