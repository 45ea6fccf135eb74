package detection

import (
	"math"

	"github.com/ironsheep/omr-tools-mcp/internal/imaging"
)

// Scan parameters of the sliding-window mark detector.
const (
	// MaxScanStep caps the window stride in pixels. The stride itself comes
	// from ImageProcessingConfig.ScanStep.
	MaxScanStep = 5

	// CircleSamples is the number of points tested around a candidate center.
	CircleSamples = 16

	// CircularityCutoff is the dark-sample fraction a candidate must exceed.
	CircularityCutoff = 0.6

	// DarkCutoff is the per-pixel intensity below which a pixel counts as ink.
	// It is independent of FillThreshold.
	DarkCutoff = 128
)

// Circle is a detected candidate mark.
//
// X and Y are the pixel-space center, Radius the radius used by the tests
// that accepted it. Filled is the fill-ratio verdict. Circles carry no
// behavior and are never modified after detection.
type Circle struct {
	X      int  `json:"x"`
	Y      int  `json:"y"`
	Radius int  `json:"radius"`
	Filled bool `json:"filled"`
}

// DetectMarks scans a binarized buffer for circular marks.
//
// # Algorithm
//
//  1. Slide a window over the buffer with stride cfg.ScanStep(), row by row.
//  2. At each position run IsCircular at the test radius (midpoint of the
//     configured radius range).
//  3. For accepted positions measure FillRatio over the bounding box and mark
//     the circle filled when it exceeds cfg.FillThreshold.
//  4. After an acceptance skip one diameter horizontally. This only bounds
//     work; adjacent rows of windows can still hit the same mark.
//  5. Merge detections closer than cfg.MinCircleRadius with
//     RemoveDuplicateCircles.
//
// The result is in scan order (top-to-bottom, left-to-right by window
// position). Finding nothing is not an error; an empty slice is returned.
func DetectMarks(buf *imaging.PixelBuffer, cfg ImageProcessingConfig) []Circle {
	if buf == nil || buf.Width == 0 || buf.Height == 0 {
		return []Circle{}
	}

	radius := cfg.TestRadius()
	if radius <= 0 {
		return []Circle{}
	}
	diameter := 2 * radius
	step := cfg.ScanStep()

	found := make([]Circle, 0)
	for y := 0; y < buf.Height; y += step {
		for x := 0; x < buf.Width; {
			if !IsCircular(buf, x, y, radius) {
				x += step
				continue
			}
			found = append(found, Circle{
				X:      x,
				Y:      y,
				Radius: radius,
				Filled: FillRatio(buf, x, y, radius) > cfg.FillThreshold,
			})
			x += diameter
		}
	}

	return RemoveDuplicateCircles(found, float64(cfg.MinCircleRadius))
}

// IsCircular reports whether the ring of radius r around (cx, cy) is mostly
// ink: more than CircularityCutoff of CircleSamples evenly spaced points must
// be dark. Points outside the buffer count as background.
func IsCircular(buf *imaging.PixelBuffer, cx, cy, r int) bool {
	dark := 0
	for i := 0; i < CircleSamples; i++ {
		angle := 2 * math.Pi * float64(i) / CircleSamples
		px := cx + int(math.Round(float64(r)*math.Cos(angle)))
		py := cy + int(math.Round(float64(r)*math.Sin(angle)))
		if buf.At(px, py) < DarkCutoff {
			dark++
		}
	}
	return float64(dark)/CircleSamples > CircularityCutoff
}

// FillRatio returns the fraction of dark pixels in the square of half-side r
// centered on (cx, cy). The square is clipped to the buffer; an empty
// intersection yields 0.
func FillRatio(buf *imaging.PixelBuffer, cx, cy, r int) float64 {
	x1, y1 := maxInt(cx-r, 0), maxInt(cy-r, 0)
	x2, y2 := minInt(cx+r, buf.Width-1), minInt(cy+r, buf.Height-1)
	if x1 > x2 || y1 > y2 {
		return 0
	}

	dark, total := 0, 0
	for y := y1; y <= y2; y++ {
		row := buf.Pix[y*buf.Width : (y+1)*buf.Width]
		for x := x1; x <= x2; x++ {
			if row[x] < DarkCutoff {
				dark++
			}
			total++
		}
	}
	return float64(dark) / float64(total)
}

// RemoveDuplicateCircles merges circles whose centers are closer than
// minDistance.
//
// Circles are visited in input order and each is compared with the circles
// kept so far. The first circle of a near-duplicate group survives, except
// that a later filled circle replaces an unfilled survivor. The group's
// position is that of the surviving circle, so a replacement also absorbs any
// other kept circle within minDistance of its new position. No two returned
// circles are closer than minDistance. Given the same input order the result
// is always the same.
func RemoveDuplicateCircles(circles []Circle, minDistance float64) []Circle {
	kept := make([]Circle, 0, len(circles))
	for _, c := range circles {
		dup := -1
		for i, k := range kept {
			if distance(c, k) < minDistance {
				dup = i
				break
			}
		}
		switch {
		case dup < 0:
			kept = append(kept, c)
		case c.Filled && !kept[dup].Filled:
			kept[dup] = c
			kept = absorb(kept, dup, minDistance)
		}
	}
	return kept
}

// absorb drops every circle other than kept[keep] that lies closer than
// minDistance to it, preserving the order of the rest.
func absorb(kept []Circle, keep int, minDistance float64) []Circle {
	survivor := kept[keep]
	out := kept[:0]
	for i, k := range kept {
		if i != keep && distance(k, survivor) < minDistance {
			continue
		}
		out = append(out, k)
	}
	return out
}

func distance(a, b Circle) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
