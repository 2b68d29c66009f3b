// Package export produces the XLSX manifest describing a finished paper.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/paperforge/paperforge/internal/corpus"
	"github.com/paperforge/paperforge/internal/generate"
	"github.com/paperforge/paperforge/internal/job"
)

// Service is a tiny façade that turns a finished job into XLSX bytes.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ManifestXLSX returns a workbook with one sheet per concern: the paper
// contents, the sources that fed it and the job's stage timings.
func (s *Service) ManifestXLSX(snap job.Snapshot, items []generate.Item, c *corpus.Corpus) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	if err := s.writePaperSheet(f, items); err != nil {
		return nil, err
	}
	if err := s.writeSourcesSheet(f, c); err != nil {
		return nil, err
	}
	if err := s.writeJobSheet(f, snap); err != nil {
		return nil, err
	}
	// drop the default sheet excelize creates
	_ = f.DeleteSheet("Sheet1")
	if idx, _ := f.GetSheetIndex("Paper"); idx >= 0 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.manifest.ok",
		"job_id", snap.ID.String(),
		"questions", len(items),
		"sources", len(c.Units),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writePaperSheet(f *excelize.File, items []generate.Item) error {
	const sheet = "Paper"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Position", "Type", "Difficulty", "Regenerated", "Question", "Model Answer", "Marking Points"}
	writeHeaders(f, sheet, headers)

	for i, item := range items {
		row := i + 2
		write(f, sheet, 1, row, item.Slot.Position)
		write(f, sheet, 2, row, string(item.Slot.Type))
		write(f, sheet, 3, row, string(item.Slot.Difficulty))
		write(f, sheet, 4, row, item.Regenerated)
		write(f, sheet, 5, row, truncate(item.Question.Prompt, 500))
		write(f, sheet, 6, row, truncate(item.Answer.Solution, 500))
		write(f, sheet, 7, row, len(item.Answer.MarkingPoints))
	}

	_ = f.SetColWidth(sheet, "A", "D", 12)
	_ = f.SetColWidth(sheet, "E", "F", 60)
	_ = f.SetColWidth(sheet, "G", "G", 14)
	return nil
}

func (s *Service) writeSourcesSheet(f *excelize.File, c *corpus.Corpus) error {
	const sheet = "Sources"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"File", "Format", "Pages", "Characters", "Math Dense", "Fingerprint"}
	writeHeaders(f, sheet, headers)

	row := 2
	for _, u := range c.Units {
		write(f, sheet, 1, row, u.FileName)
		write(f, sheet, 2, row, string(u.Format))
		write(f, sheet, 3, row, u.Pages)
		write(f, sheet, 4, row, len(u.Text))
		write(f, sheet, 5, row, u.MathDense)
		write(f, sheet, 6, row, u.Fingerprint[:16])
		row++
	}
	for _, w := range c.Warnings {
		write(f, sheet, 1, row, w.File)
		write(f, sheet, 2, row, fmt.Sprintf("skipped: %s", w.Kind))
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 36)
	_ = f.SetColWidth(sheet, "B", "B", 18)
	_ = f.SetColWidth(sheet, "F", "F", 22)
	return nil
}

func (s *Service) writeJobSheet(f *excelize.File, snap job.Snapshot) error {
	const sheet = "Job"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][2]any{
		{"Job ID", snap.ID.String()},
		{"Title", snap.Title},
		{"Status", string(snap.Status)},
		{"Files", snap.FileCount},
		{"Questions", snap.QuestionCount},
		{"Created", snap.CreatedAt.Format(time.RFC3339)},
		{"Finished", snap.UpdatedAt.Format(time.RFC3339)},
	}
	r := 1
	for _, kv := range rows {
		write(f, sheet, 1, r, kv[0])
		write(f, sheet, 2, r, kv[1])
		r++
	}
	for stage, d := range snap.Timings {
		write(f, sheet, 1, r, fmt.Sprintf("Stage %s", stage))
		write(f, sheet, 2, r, d.Round(time.Millisecond).String())
		r++
	}

	_ = f.SetColWidth(sheet, "A", "A", 20)
	_ = f.SetColWidth(sheet, "B", "B", 40)
	return nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

func write(f *excelize.File, sheet string, col, row int, v any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = f.SetCellValue(sheet, cell, v)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
