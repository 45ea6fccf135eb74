package grading

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the scores of a graded batch.
type Summary struct {
	TotalStudents int     `json:"totalStudents"`
	AverageScore  float64 `json:"averageScore"` // rounded to 2 decimals
	HighestScore  int     `json:"highestScore"`
	LowestScore   int     `json:"lowestScore"`
}

// Summarize computes batch statistics from per-sheet scores. An empty slice
// yields a zero Summary.
func Summarize(results []*GradingResult) Summary {
	if len(results) == 0 {
		return Summary{}
	}

	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = float64(r.Score)
	}

	return Summary{
		TotalStudents: len(results),
		AverageScore:  math.Round(stat.Mean(scores, nil)*100) / 100,
		HighestScore:  int(floats.Max(scores)),
		LowestScore:   int(floats.Min(scores)),
	}
}
