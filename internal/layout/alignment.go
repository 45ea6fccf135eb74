package layout

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RowAlignment describes the vertical spread of one row's mark centers.
type RowAlignment struct {
	Row      int     `json:"row"` // 1-based row index
	AverageY float64 `json:"averageY"`
	StdDevY  float64 `json:"stdDevY"`
	SpreadY  int     `json:"spreadY"` // max Y - min Y
}

// Alignment measures every row of the grid.
func Alignment(grid Grid) []RowAlignment {
	out := make([]RowAlignment, 0, len(grid))
	for i, row := range grid {
		ys := make([]float64, len(row))
		for j, c := range row {
			ys[j] = float64(c.Y)
		}
		a := RowAlignment{Row: i + 1}
		if len(ys) > 0 {
			mean, std := stat.PopMeanStdDev(ys, nil)
			a.AverageY = math.Round(mean*100) / 100
			a.StdDevY = math.Round(std*100) / 100
			a.SpreadY = int(floats.Max(ys) - floats.Min(ys))
		}
		out = append(out, a)
	}
	return out
}

// CheckAlignment warns about rows whose marks span more than tolerance
// pixels vertically. Such a row was only held together by small steps
// between neighbours, which usually means the sheet was photographed at an
// angle. Question numbering may be affected further down the sheet.
func CheckAlignment(grid Grid, tolerance int) []Warning {
	warnings := make([]Warning, 0)
	for _, a := range Alignment(grid) {
		if a.SpreadY <= tolerance {
			continue
		}
		warnings = append(warnings, Warning{
			Row:   a.Row,
			Count: len(grid[a.Row-1]),
			Message: fmt.Sprintf("row %d spans %d px vertically, more than the %d px tolerance; the sheet may be skewed",
				a.Row, a.SpreadY, tolerance),
		})
	}
	return warnings
}

// Bounds returns the rectangle enclosing every mark of row, including the
// mark radii, grown by margin on each side.
func (r Row) Bounds(margin int) image.Rectangle {
	if len(r) == 0 {
		return image.Rectangle{}
	}
	rect := image.Rect(r[0].X-r[0].Radius, r[0].Y-r[0].Radius, r[0].X+r[0].Radius, r[0].Y+r[0].Radius)
	for _, c := range r[1:] {
		rect = rect.Union(image.Rect(c.X-c.Radius, c.Y-c.Radius, c.X+c.Radius, c.Y+c.Radius))
	}
	return rect.Inset(-margin)
}
