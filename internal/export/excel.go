// Package export writes match results to Excel workbooks.
package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/arturoeanton/launchpad-match/internal/domain"
)

// ContentType is the MIME type of an .xlsx workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	summarySheet = "Summary"
	rankedSheet  = "Ranked Jobs"
)

// MatchesToExcel writes the candidate's ranked matches to outputPath and
// returns the path actually written (".xlsx" is appended when missing).
func MatchesToExcel(c *domain.Candidate, matches []domain.MatchResult, mode, outputPath string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath += ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	f, err := Workbook(c, matches, mode)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("save %s: %w", outputPath, err)
	}
	return outputPath, nil
}

// Workbook builds the Summary and Ranked Jobs sheets in memory.
func Workbook(c *domain.Candidate, matches []domain.MatchResult, mode string) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(rankedSheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeSummary(f, c, matches, mode); err != nil {
		f.Close()
		return nil, fmt.Errorf("summary sheet: %w", err)
	}
	if err := writeRanked(f, matches); err != nil {
		f.Close()
		return nil, fmt.Errorf("ranked jobs sheet: %w", err)
	}
	return f, nil
}

func writeSummary(f *excelize.File, c *domain.Candidate, matches []domain.MatchResult, mode string) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 60); err != nil {
		return err
	}

	if err := f.SetCellValue(summarySheet, "A1", "Job Match Report"); err != nil {
		return err
	}
	if err := f.MergeCell(summarySheet, "A1", "B1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", headerStyle); err != nil {
		return err
	}

	var top float64
	if len(matches) > 0 {
		top = matches[0].Score
	}
	rows := [][2]any{
		{"Candidate", c.Name},
		{"Candidate ID", c.ID},
		{"Location", c.Location},
		{"Education", c.Education},
		{"Skills", strings.Join(c.Skills, ", ")},
		{"Mode", mode},
		{"Matches", len(matches)},
		{"Top score", top},
		{"Generated", time.Now().Format("2006-01-02 15:04:05")},
	}
	for i, r := range rows {
		row := i + 3
		label := fmt.Sprintf("A%d", row)
		if err := f.SetCellValue(summarySheet, label, r[0]); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, label, label, labelStyle); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), r[1]); err != nil {
			return err
		}
	}
	return nil
}

var rankedHeader = []any{"Rank", "Score", "Title", "Company", "Location", "Category", "Application end", "Reasons"}

func writeRanked(f *excelize.File, matches []domain.MatchResult) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(rankedSheet, "A1", &rankedHeader); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(rankedHeader), 1)
	if err := f.SetCellStyle(rankedSheet, "A1", last, headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(rankedSheet, "C", "C", 36); err != nil {
		return err
	}
	if err := f.SetColWidth(rankedSheet, "H", "H", 80); err != nil {
		return err
	}

	for i, m := range matches {
		end := ""
		if m.Job.ApplicationEndDate != nil {
			end = m.Job.ApplicationEndDate.String()
		}
		row := []any{
			i + 1,
			m.Score,
			m.Job.Title,
			m.Job.Company,
			m.Job.Location,
			m.Job.Category,
			end,
			strings.Join(m.Reasons, "\n"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(rankedSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
