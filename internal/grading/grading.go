// Package grading scores mapped student answers against an answer key.
//
// Grade handles a single sheet; GradeBatch grades many sheets against the
// same key, isolates malformed sheets and summarizes the successful ones.
package grading

import (
	"fmt"
	"math"
	"sort"

	"github.com/ironsheep/omr-tools-mcp/internal/answers"
)

// MultipleLabel is shown as the student answer of a multiply marked question.
const MultipleLabel = "Multiple marking"

// AnswerKey maps 1-based question numbers to the correct option token.
type AnswerKey map[int]string

// InvalidGradingInputError rejects grading requests that cannot produce a
// meaningful result: a non-positive question count, an empty key or an empty
// batch.
type InvalidGradingInputError struct {
	Reason string
}

func (e *InvalidGradingInputError) Error() string {
	return "invalid grading input: " + e.Reason
}

// QuestionDetail records the outcome of one question.
//
// StudentAnswer is nil when the question was unanswered. CorrectAnswer is nil
// when the key has no entry for the question.
type QuestionDetail struct {
	QuestionNumber int     `json:"questionNumber"`
	StudentAnswer  *string `json:"studentAnswer"`
	CorrectAnswer  *string `json:"correctAnswer"`
	IsCorrect      bool    `json:"isCorrect"`
}

// GradingResult is the graded outcome of one sheet.
type GradingResult struct {
	FileName        string                 `json:"fileName"`
	StudentAnswers  answers.StudentAnswers `json:"studentAnswers"`
	CorrectAnswers  AnswerKey              `json:"correctAnswers"`
	Score           int                    `json:"score"`
	TotalQuestions  int                    `json:"totalQuestions"`
	CorrectCount    int                    `json:"correctCount"`
	WrongCount      int                    `json:"wrongCount"`
	UnansweredCount int                    `json:"unansweredCount"`
	Details         []QuestionDetail       `json:"details"`

	// MissingKeyQuestions lists questions in 1..TotalQuestions the key does
	// not cover. Answered ones count as wrong, unanswered ones as unanswered.
	MissingKeyQuestions []int `json:"missingKeyQuestions,omitempty"`
}

// Score converts a correct count into a percentage rounded half away from
// zero (math.Round): 1/3 -> 33, 2/3 -> 67, 1/8 -> 13.
func Score(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// Grade scores one sheet over questions 1..totalQuestions.
//
// # Per-question rules
//
//   - no entry in studentAnswers: unanswered
//   - answers.Multiple: wrong, displayed as MultipleLabel, even when one of
//     the filled options matches the key
//   - equal to the key: correct
//   - otherwise: wrong
//
// Entries outside 1..totalQuestions are kept in StudentAnswers but not graded.
func Grade(fileName string, studentAnswers answers.StudentAnswers, key AnswerKey, totalQuestions int) (*GradingResult, error) {
	if err := ValidateInputs(key, totalQuestions); err != nil {
		return nil, err
	}
	if studentAnswers == nil {
		studentAnswers = answers.StudentAnswers{}
	}

	result := &GradingResult{
		FileName:       fileName,
		StudentAnswers: studentAnswers,
		CorrectAnswers: key,
		TotalQuestions: totalQuestions,
		Details:        make([]QuestionDetail, 0, totalQuestions),
	}

	for q := 1; q <= totalQuestions; q++ {
		detail := QuestionDetail{QuestionNumber: q}

		correct, hasKey := key[q]
		if hasKey {
			detail.CorrectAnswer = stringPtr(correct)
		} else {
			result.MissingKeyQuestions = append(result.MissingKeyQuestions, q)
		}

		given, answered := studentAnswers[q]
		switch {
		case !answered:
			result.UnansweredCount++
		case given == answers.Multiple:
			detail.StudentAnswer = stringPtr(MultipleLabel)
			result.WrongCount++
		case hasKey && given == correct:
			detail.StudentAnswer = stringPtr(given)
			detail.IsCorrect = true
			result.CorrectCount++
		default:
			detail.StudentAnswer = stringPtr(given)
			result.WrongCount++
		}

		result.Details = append(result.Details, detail)
	}

	result.Score = Score(result.CorrectCount, totalQuestions)
	return result, nil
}

// Sheet is one processed sheet awaiting grading.
type Sheet struct {
	FileName string                 `json:"fileName"`
	Answers  answers.StudentAnswers `json:"answers"`
}

// SheetError reports a sheet that could not be graded.
type SheetError struct {
	FileName string `json:"fileName"`
	Error    string `json:"error"`
}

// BatchResult is the outcome of grading a batch of sheets.
type BatchResult struct {
	Results []*GradingResult `json:"results"`
	Errors  []SheetError     `json:"errors"`
	Summary Summary          `json:"summary"`
}

// GradeBatch grades every sheet against key.
//
// The whole batch is rejected with *InvalidGradingInputError when sheets is
// empty, key is empty or totalQuestions <= 0. Otherwise a malformed sheet
// (a question number below 1) is recorded in Errors and the remaining sheets
// are still graded. Results keep the input order. The summary covers the
// successful sheets only.
func GradeBatch(sheets []Sheet, key AnswerKey, totalQuestions int) (*BatchResult, error) {
	if len(sheets) == 0 {
		return nil, &InvalidGradingInputError{Reason: "no sheets to grade"}
	}
	if err := ValidateInputs(key, totalQuestions); err != nil {
		return nil, err
	}

	batch := &BatchResult{
		Results: make([]*GradingResult, 0, len(sheets)),
		Errors:  make([]SheetError, 0),
	}

	for _, sheet := range sheets {
		if err := validateSheet(sheet); err != nil {
			batch.Errors = append(batch.Errors, SheetError{FileName: sheet.FileName, Error: err.Error()})
			continue
		}
		result, err := Grade(sheet.FileName, sheet.Answers, key, totalQuestions)
		if err != nil {
			batch.Errors = append(batch.Errors, SheetError{FileName: sheet.FileName, Error: err.Error()})
			continue
		}
		batch.Results = append(batch.Results, result)
	}

	batch.Summary = Summarize(batch.Results)
	return batch, nil
}

// ValidateInputs rejects a non-positive question count or an empty key with
// *InvalidGradingInputError.
func ValidateInputs(key AnswerKey, totalQuestions int) error {
	if totalQuestions <= 0 {
		return &InvalidGradingInputError{Reason: fmt.Sprintf("totalQuestions must be positive, got %d", totalQuestions)}
	}
	if len(key) == 0 {
		return &InvalidGradingInputError{Reason: "answer key is missing or empty"}
	}
	return nil
}

func validateSheet(sheet Sheet) error {
	bad := make([]int, 0)
	for q := range sheet.Answers {
		if q < 1 {
			bad = append(bad, q)
		}
	}
	if len(bad) > 0 {
		sort.Ints(bad)
		return fmt.Errorf("invalid question numbers %v", bad)
	}
	return nil
}

func stringPtr(s string) *string {
	return &s
}
