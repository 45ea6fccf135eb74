// Package answers resolves a mark grid into per-question selections.
//
// Each grid row is cut into consecutive groups of optionsPerQuestion marks and
// every group becomes one question. Question numbers run continuously across
// rows, starting at 1.
package answers

import (
	"strconv"

	"github.com/ironsheep/omr-tools-mcp/internal/layout"
)

// DefaultOptionsPerQuestion is the number of marks per question when the
// caller does not specify one.
const DefaultOptionsPerQuestion = 5

// Multiple is recorded for a question with two or more filled marks.
const Multiple = "MULTIPLE"

// StudentAnswers maps 1-based question numbers to the selected option token:
// the 1-based option index as a string, or Multiple. A question with no entry
// was left unanswered.
type StudentAnswers map[int]string

// Map converts a grid into StudentAnswers.
//
// Rows are folded left to right through MapRow, each row starting at the
// question number the previous row ended on. optionsPerQuestion <= 0 falls
// back to DefaultOptionsPerQuestion.
//
// The number of questions visited equals the sum over rows of
// ceil(len(row) / optionsPerQuestion); only answered questions appear in the
// result.
func Map(grid layout.Grid, optionsPerQuestion int) StudentAnswers {
	result := make(StudentAnswers)
	next := 1
	for _, row := range grid {
		var rowAnswers StudentAnswers
		rowAnswers, next = MapRow(row, optionsPerQuestion, next)
		for q, a := range rowAnswers {
			result[q] = a
		}
	}
	return result
}

// MapRow maps a single row whose first group is question number first. It
// returns the row's answers and the question number following the row's last
// group.
//
// A trailing group shorter than optionsPerQuestion is still resolved from the
// marks it has.
func MapRow(row layout.Row, optionsPerQuestion, first int) (StudentAnswers, int) {
	if optionsPerQuestion <= 0 {
		optionsPerQuestion = DefaultOptionsPerQuestion
	}

	result := make(StudentAnswers)
	q := first
	for start := 0; start < len(row); start += optionsPerQuestion {
		end := start + optionsPerQuestion
		if end > len(row) {
			end = len(row)
		}
		if answer, ok := resolve(row[start:end]); ok {
			result[q] = answer
		}
		q++
	}
	return result, q
}

// resolve picks the answer for one question group. ok is false when no mark
// is filled.
func resolve(group layout.Row) (answer string, ok bool) {
	selected := -1
	for i, c := range group {
		if !c.Filled {
			continue
		}
		if selected >= 0 {
			return Multiple, true
		}
		selected = i
	}
	if selected < 0 {
		return "", false
	}
	return strconv.Itoa(selected + 1), true
}

// QuestionCount returns how many questions Map visits for grid.
func QuestionCount(grid layout.Grid, optionsPerQuestion int) int {
	if optionsPerQuestion <= 0 {
		optionsPerQuestion = DefaultOptionsPerQuestion
	}
	n := 0
	for _, row := range grid {
		n += (len(row) + optionsPerQuestion - 1) / optionsPerQuestion
	}
	return n
}
