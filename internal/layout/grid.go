// Package layout organizes detected marks into the logical row/column grid of
// an answer sheet.
package layout

import (
	"fmt"
	"sort"

	"github.com/ironsheep/omr-tools-mcp/internal/detection"
)

// Row is one logical row of marks, ordered left to right.
type Row []detection.Circle

// Grid is the logical arrangement of all marks on a sheet.
//
// Rows are ordered top to bottom and each row is ordered by ascending X.
// Marks in the same row were reached from one another by vertical gaps no
// larger than the grid tolerance; consecutive rows are separated by a larger
// gap.
type Grid []Row

// Len returns the total number of marks in the grid.
func (g Grid) Len() int {
	n := 0
	for _, row := range g {
		n += len(row)
	}
	return n
}

// Organize clusters circles into rows and orders each row by X.
//
// # Algorithm
//
//  1. Sort a copy of circles by Y (stable, so equal Y keep input order).
//  2. Walk the sorted list and start a new row whenever the gap to the
//     previous circle's Y exceeds tolerance.
//  3. Sort each row by X (stable).
//
// This is a single forward pass. A physical row whose marks drift vertically
// by more than tolerance between neighbours in Y order is split into two
// logical rows, which shifts question numbering for the rest of the sheet.
//
// An empty input yields an empty grid. The input slice is not modified.
func Organize(circles []detection.Circle, tolerance int) Grid {
	if len(circles) == 0 {
		return Grid{}
	}

	sorted := make([]detection.Circle, len(circles))
	copy(sorted, circles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y < sorted[j].Y
	})

	grid := make(Grid, 0)
	current := Row{sorted[0]}
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Y-sorted[i-1].Y > tolerance {
			grid = append(grid, current)
			current = Row{}
		}
		current = append(current, sorted[i])
	}
	grid = append(grid, current)

	for _, row := range grid {
		r := row
		sort.SliceStable(r, func(i, j int) bool {
			return r[i].X < r[j].X
		})
	}

	return grid
}

// Warning is an advisory finding about a grid that does not stop grading.
type Warning struct {
	Row     int    `json:"row"` // 1-based row index
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// Validate reports rows whose mark count is not a multiple of
// optionsPerQuestion. Such rows are still mapped; their trailing short group
// is graded with whatever marks remain.
func Validate(grid Grid, optionsPerQuestion int) []Warning {
	warnings := make([]Warning, 0)
	if optionsPerQuestion <= 0 {
		return warnings
	}
	for i, row := range grid {
		if len(row)%optionsPerQuestion == 0 {
			continue
		}
		warnings = append(warnings, Warning{
			Row:   i + 1,
			Count: len(row),
			Message: fmt.Sprintf("row %d has %d marks, not a multiple of %d options per question",
				i+1, len(row), optionsPerQuestion),
		})
	}
	return warnings
}
