package imaging

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/png"
	"testing"
)

func TestRenderOverlay(t *testing.T) {
	buf := Binarize(createTestImage(120, 80, color.White), 128)
	marks := []MarkOutline{
		{X: 30, Y: 40, Radius: 15, Kind: MarkFilled, Question: 1},
		{X: 80, Y: 40, Radius: 15, Kind: MarkUnfilled},
	}

	result, err := RenderOverlay(buf, marks, OverlayColors{})
	if err != nil {
		t.Fatalf("RenderOverlay failed: %v", err)
	}

	if result.Width != 120 || result.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 120x80", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}
	if result.Marks != 2 {
		t.Errorf("Marks: got %d, want 2", result.Marks)
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}

	// Rightmost point of the filled mark's ring carries the filled color
	r, g, b, _ := img.At(45, 40).RGBA()
	want := parseColor(DefaultOverlayColors.Filled, DefaultOverlayColors.Filled)
	if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B {
		t.Errorf("ring color: got (%d,%d,%d), want %v", r>>8, g>>8, b>>8, want)
	}

	// Center stays paper white
	r, _, _, _ = img.At(80, 40).RGBA()
	if r>>8 != 255 {
		t.Errorf("mark center should be untouched, got %d", r>>8)
	}
}

func TestRenderOverlay_Empty(t *testing.T) {
	if _, err := RenderOverlay(nil, nil, OverlayColors{}); err == nil {
		t.Error("expected error for nil buffer")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  color.RGBA
	}{
		{"red", "#FF0000", color.RGBA{255, 0, 0, 255}},
		{"lowercase", "#00ff00", color.RGBA{0, 255, 0, 255}},
		{"invalid falls back", "not-a-color", color.RGBA{0, 0, 255, 255}},
		{"empty falls back", "", color.RGBA{0, 0, 255, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseColor(tt.input, "#0000FF"); got != tt.want {
				t.Errorf("parseColor(%q): got %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
