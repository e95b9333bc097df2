// Package export renders dashboard content as spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/gosimple/slug"
	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-admin/internal/content"
)

const (
	quizSheet    = "Quizzes"
	subjectSheet = "Subjects"
)

var (
	quizHeader    = []any{"ID", "Title", "Subject", "Chapter", "Duration (min)", "Questions", "Active", "Created", "Date"}
	subjectHeader = []any{"ID", "Subject", "Chapter ID", "Chapter", "Description"}
)

// FileName returns the download name for a quiz export filtered by subject.
func FileName(subject string) string {
	if subject == "" || subject == content.AllSubjects {
		return "quizzes.xlsx"
	}
	return fmt.Sprintf("quizzes-%s.xlsx", slug.Make(subject))
}

// WriteQuizzes writes a workbook with the quizzes of snap, filtered by subject
// name, and a second sheet listing every subject and chapter.
func WriteQuizzes(w io.Writer, snap content.Snapshot, subject string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", quizSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if err := writeRow(f, quizSheet, 1, quizHeader); err != nil {
		return err
	}
	views := content.FilterQuizzes(content.ResolveQuizzes(snap), subject)
	for i, q := range views {
		row := []any{q.ID, q.Title, q.SubjectName, q.ChapterName, q.Duration, q.Questions, q.IsActive, q.CreatedAt, q.Date}
		if err := writeRow(f, quizSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(subjectSheet); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}
	if err := writeRow(f, subjectSheet, 1, subjectHeader); err != nil {
		return err
	}
	row := 2
	for _, sub := range snap.Subjects {
		if len(sub.Chapters) == 0 {
			if err := writeRow(f, subjectSheet, row, []any{sub.ID, sub.Name, "", "", sub.Description}); err != nil {
				return err
			}
			row++
			continue
		}
		for _, ch := range sub.Chapters {
			if err := writeRow(f, subjectSheet, row, []any{sub.ID, sub.Name, ch.ID, ch.Name, ch.Description}); err != nil {
				return err
			}
			row++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}
