package detection

import (
	"testing"

	"github.com/ironsheep/omr-tools-mcp/internal/imaging"
)

// newBlankBuffer creates an all-white binarized buffer
func newBlankBuffer(width, height int) *imaging.PixelBuffer {
	pix := make([]uint8, width*height)
	for i := range pix {
		pix[i] = 255
	}
	return &imaging.PixelBuffer{Width: width, Height: height, Pix: pix}
}

// drawDisc paints a solid black disc
func drawDisc(buf *imaging.PixelBuffer, cx, cy, radius int) {
	drawRing(buf, cx, cy, -1, radius)
}

// drawRing paints black pixels whose distance from the center lies in (inner, outer]
func drawRing(buf *imaging.PixelBuffer, cx, cy, inner, outer int) {
	for y := cy - outer; y <= cy+outer; y++ {
		for x := cx - outer; x <= cx+outer; x++ {
			if x < 0 || y < 0 || x >= buf.Width || y >= buf.Height {
				continue
			}
			dx, dy := x-cx, y-cy
			d2 := dx*dx + dy*dy
			if d2 <= outer*outer && d2 > inner*inner {
				buf.Pix[y*buf.Width+x] = 0
			}
		}
	}
}

func TestDefaultImageProcessingConfig(t *testing.T) {
	cfg := DefaultImageProcessingConfig()
	if cfg.Threshold != 128 {
		t.Errorf("Threshold: got %d, want 128", cfg.Threshold)
	}
	if cfg.MinCircleRadius != 10 || cfg.MaxCircleRadius != 20 {
		t.Errorf("radius range: got %d-%d, want 10-20", cfg.MinCircleRadius, cfg.MaxCircleRadius)
	}
	if cfg.GridTolerance != 20 {
		t.Errorf("GridTolerance: got %d, want 20", cfg.GridTolerance)
	}
	if cfg.FillThreshold != 0.5 {
		t.Errorf("FillThreshold: got %v, want 0.5", cfg.FillThreshold)
	}
	if cfg.TestRadius() != 15 {
		t.Errorf("TestRadius: got %d, want 15", cfg.TestRadius())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestImageProcessingConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*ImageProcessingConfig)
	}{
		{"zero threshold", func(c *ImageProcessingConfig) { c.Threshold = 0 }},
		{"threshold above 255", func(c *ImageProcessingConfig) { c.Threshold = 300 }},
		{"zero min radius", func(c *ImageProcessingConfig) { c.MinCircleRadius = 0 }},
		{"max below min", func(c *ImageProcessingConfig) { c.MaxCircleRadius = 5 }},
		{"negative tolerance", func(c *ImageProcessingConfig) { c.GridTolerance = -1 }},
		{"fill threshold one", func(c *ImageProcessingConfig) { c.FillThreshold = 1 }},
		{"fill threshold zero", func(c *ImageProcessingConfig) { c.FillThreshold = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultImageProcessingConfig()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestIsCircular(t *testing.T) {
	buf := newBlankBuffer(100, 100)
	drawRing(buf, 50, 50, 13, 17)

	if !IsCircular(buf, 50, 50, 15) {
		t.Error("ring centered at (50,50) should be circular")
	}
	if IsCircular(buf, 60, 50, 15) {
		t.Error("position offset by 10px should not be circular")
	}
	if IsCircular(newBlankBuffer(100, 100), 50, 50, 15) {
		t.Error("blank buffer should not contain a circle")
	}
}

func TestIsCircular_NearEdge(t *testing.T) {
	buf := newBlankBuffer(40, 40)
	drawDisc(buf, 0, 0, 17)

	// Three quarters of the ring falls outside the buffer and reads as paper
	if IsCircular(buf, 0, 0, 15) {
		t.Error("mark clipped by the sheet edge should not pass the circularity test")
	}
}

func TestFillRatio(t *testing.T) {
	blank := newBlankBuffer(100, 100)
	if got := FillRatio(blank, 50, 50, 15); got != 0 {
		t.Errorf("blank buffer: got %v, want 0", got)
	}

	disc := newBlankBuffer(100, 100)
	drawDisc(disc, 50, 50, 17)
	if got := FillRatio(disc, 50, 50, 15); got <= 0.5 {
		t.Errorf("filled disc: got %v, want > 0.5", got)
	}

	ring := newBlankBuffer(100, 100)
	drawRing(ring, 50, 50, 13, 17)
	if got := FillRatio(ring, 50, 50, 15); got >= 0.5 {
		t.Errorf("hollow ring: got %v, want < 0.5", got)
	}
}

func TestFillRatio_OutsideBuffer(t *testing.T) {
	buf := newBlankBuffer(10, 10)
	if got := FillRatio(buf, 100, 100, 5); got != 0 {
		t.Errorf("box outside buffer: got %v, want 0", got)
	}
}

func TestRemoveDuplicateCircles_Close(t *testing.T) {
	circles := []Circle{
		{X: 100, Y: 100, Radius: 15},
		{X: 103, Y: 100, Radius: 15},
	}

	got := RemoveDuplicateCircles(circles, 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 circle, got %d", len(got))
	}
	if got[0].X != 100 {
		t.Errorf("first circle in scan order should survive, got X=%d", got[0].X)
	}
}

func TestRemoveDuplicateCircles_FilledWins(t *testing.T) {
	circles := []Circle{
		{X: 100, Y: 100, Radius: 15, Filled: false},
		{X: 100, Y: 105, Radius: 15, Filled: true},
		{X: 104, Y: 104, Radius: 15, Filled: false},
	}

	got := RemoveDuplicateCircles(circles, 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 circle, got %d", len(got))
	}
	if !got[0].Filled || got[0].Y != 105 {
		t.Errorf("filled candidate should survive, got %+v", got[0])
	}
}

func TestRemoveDuplicateCircles_ReplacementAbsorbsNeighbors(t *testing.T) {
	circles := []Circle{
		{X: 0, Y: 0},
		{X: 12, Y: 0},
		{X: 6, Y: 0, Filled: true}, // near both survivors
		{X: 40, Y: 0},
	}

	got := RemoveDuplicateCircles(circles, 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 circles, got %d: %+v", len(got), got)
	}
	if got[0] != (Circle{X: 6, Y: 0, Filled: true}) {
		t.Errorf("filled replacement should survive first, got %+v", got[0])
	}
	if got[1].X != 40 {
		t.Errorf("distant circle should be kept, got %+v", got[1])
	}
	for i := range got {
		for j := i + 1; j < len(got); j++ {
			if distance(got[i], got[j]) < 10 {
				t.Errorf("circles %+v and %+v closer than minDistance", got[i], got[j])
			}
		}
	}
}

func TestRemoveDuplicateCircles_Distinct(t *testing.T) {
	circles := []Circle{
		{X: 0, Y: 0},
		{X: 10, Y: 0}, // exactly minDistance apart: not a duplicate
		{X: 50, Y: 50},
	}

	got := RemoveDuplicateCircles(circles, 10)
	if len(got) != 3 {
		t.Errorf("expected 3 circles, got %d", len(got))
	}
}

func TestRemoveDuplicateCircles_Empty(t *testing.T) {
	got := RemoveDuplicateCircles(nil, 10)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestDetectMarks_EmptyBuffer(t *testing.T) {
	got := DetectMarks(newBlankBuffer(200, 200), DefaultImageProcessingConfig())
	if len(got) != 0 {
		t.Errorf("expected no marks on blank sheet, got %d", len(got))
	}

	if got := DetectMarks(nil, DefaultImageProcessingConfig()); len(got) != 0 {
		t.Errorf("expected no marks for nil buffer, got %d", len(got))
	}
}

func TestDetectMarks_Row(t *testing.T) {
	buf := newBlankBuffer(300, 100)
	drawDisc(buf, 50, 50, 17)
	drawRing(buf, 100, 50, 13, 17)
	drawRing(buf, 150, 50, 13, 17)
	drawDisc(buf, 200, 50, 17)
	drawRing(buf, 250, 50, 13, 17)

	got := DetectMarks(buf, DefaultImageProcessingConfig())
	if len(got) != 5 {
		t.Fatalf("expected 5 marks, got %d: %+v", len(got), got)
	}

	wantFilled := map[int]bool{50: true, 100: false, 150: false, 200: true, 250: false}
	for _, c := range got {
		if c.Y < 40 || c.Y > 60 {
			t.Errorf("mark Y out of range: %+v", c)
		}
		nearest := ((c.X + 25) / 50) * 50
		want, ok := wantFilled[nearest]
		if !ok {
			t.Errorf("unexpected mark position: %+v", c)
			continue
		}
		if c.Filled != want {
			t.Errorf("mark near x=%d: filled=%v, want %v", nearest, c.Filled, want)
		}
		if c.Radius != 15 {
			t.Errorf("mark radius: got %d, want 15", c.Radius)
		}
	}
}

func TestDetectMarks_OffLattice(t *testing.T) {
	offsets := []struct{ dx, dy int }{
		{0, 0}, {1, 1}, {2, 2}, {2, 3}, {3, 1}, {4, 4},
	}

	for _, off := range offsets {
		buf := newBlankBuffer(320, 120)
		drawRing(buf, 50+off.dx, 50+off.dy, 13, 17)
		drawDisc(buf, 100+off.dx, 50+off.dy, 17)
		drawRing(buf, 150+off.dx, 50+off.dy, 13, 17)
		drawRing(buf, 200+off.dx, 50+off.dy, 13, 17)
		drawRing(buf, 250+off.dx, 50+off.dy, 13, 17)

		got := DetectMarks(buf, DefaultImageProcessingConfig())
		if len(got) != 5 {
			t.Errorf("offset (%d,%d): expected 5 marks, got %d: %+v", off.dx, off.dy, len(got), got)
			continue
		}
		for _, c := range got {
			nearest := ((c.X - off.dx + 25) / 50) * 50
			if c.Filled != (nearest == 100) {
				t.Errorf("offset (%d,%d): mark near x=%d filled=%v", off.dx, off.dy, nearest, c.Filled)
			}
		}
	}
}

func TestImageProcessingConfig_ScanStep(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		want     int
	}{
		{"default range", 10, 20, 2},
		{"equal radii", 10, 10, 1},
		{"narrow range", 10, 13, 1},
		{"wide range capped", 5, 60, MaxScanStep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultImageProcessingConfig()
			cfg.MinCircleRadius, cfg.MaxCircleRadius = tt.min, tt.max
			if got := cfg.ScanStep(); got != tt.want {
				t.Errorf("ScanStep: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDetectMarks_Deterministic(t *testing.T) {
	buf := newBlankBuffer(200, 200)
	drawDisc(buf, 50, 50, 17)
	drawRing(buf, 150, 50, 13, 17)
	drawDisc(buf, 50, 150, 17)

	cfg := DefaultImageProcessingConfig()
	first := DetectMarks(buf, cfg)
	second := DetectMarks(buf, cfg)

	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("run mismatch at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}
