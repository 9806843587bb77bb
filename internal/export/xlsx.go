// Package export writes courses to spreadsheets and reads questions back.
package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"

	"github.com/p-n-ai/pai-study/internal/course"
)

// ContentType is the MIME type of the workbooks produced by WriteCourse.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CourseSheet holds the course details in every exported workbook.
const CourseSheet = "Course"

const maxSheetName = 31

var questionHeader = []any{"Question", "Correct Answer", "Wrong Answer 1", "Wrong Answer 2", "Wrong Answer 3"}

// WriteCourse writes the course as a workbook: a details sheet followed by one
// sheet per question set, in order.
func WriteCourse(w io.Writer, c course.Course) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", CourseSheet); err != nil {
		return fmt.Errorf("name course sheet: %w", err)
	}
	details := [][]any{
		{"ID", c.ID},
		{"Name", c.Name},
		{"Color", c.Color},
		{"Description", c.Description},
		{"Question Sets", len(c.QuestionSets)},
	}
	if err := writeRows(f, CourseSheet, details); err != nil {
		return err
	}

	used := map[string]bool{SheetKey(CourseSheet): true}
	for _, set := range c.QuestionSets {
		name := SheetName(set.Name, used)
		used[SheetKey(name)] = true
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}

		rows := make([][]any, 0, len(set.Questions)+1)
		rows = append(rows, questionHeader)
		for _, q := range set.Questions {
			row := []any{q.Text, q.CorrectAnswer}
			for _, wrong := range q.WrongAnswers {
				row = append(row, wrong)
			}
			rows = append(rows, row)
		}
		if err := writeRows(f, name, rows); err != nil {
			return err
		}
		if err := f.SetColWidth(name, "A", "A", 60); err != nil {
			return fmt.Errorf("size sheet %q: %w", name, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write sheet %q row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// SheetName turns a set name into a valid, unused worksheet name: forbidden
// characters are replaced, the result is cut to 31 characters and numbered
// when it collides with a name in used. Keys of used come from SheetKey.
func SheetName(setName string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(setName))
	base = strings.Trim(base, "'")
	if base == "" {
		base = "Set"
	}

	name := truncate(base, maxSheetName)
	for n := 2; used[SheetKey(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	return name
}

// SheetKey is the case-folded form under which worksheet names collide.
func SheetKey(name string) string {
	return cases.Fold().String(name)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// ReadQuestions reads questions from a sheet laid out like WriteCourse's set
// sheets. An empty sheet name reads the first sheet that is not the course
// details. The header row and rows without question text are skipped.
func ReadQuestions(r io.Reader, sheet string) ([]course.Question, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		for _, name := range f.GetSheetList() {
			if name != CourseSheet {
				sheet = name
				break
			}
		}
	}
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no question sheet", course.ErrValidation)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	questions := []course.Question{}
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == questionHeader[0] {
			continue
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		q := course.Question{Text: strings.TrimSpace(row[0]), WrongAnswers: []string{}}
		if len(row) > 1 {
			q.CorrectAnswer = strings.TrimSpace(row[1])
		}
		for _, cell := range row[min(len(row), 2):] {
			if cell = strings.TrimSpace(cell); cell != "" {
				q.WrongAnswers = append(q.WrongAnswers, cell)
			}
		}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("sheet %q row %d: %w", sheet, i+1, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}
