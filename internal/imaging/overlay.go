package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// MarkKind selects the overlay color of an outlined mark.
type MarkKind int

const (
	MarkUnfilled MarkKind = iota
	MarkFilled
	MarkMultiple
)

// MarkOutline is one mark to draw on a review overlay.
type MarkOutline struct {
	X, Y, Radius int
	Kind         MarkKind
	Question     int // 1-based; 0 draws no label
}

// OverlayColors holds hex colors per mark kind.
type OverlayColors struct {
	Unfilled string
	Filled   string
	Multiple string
}

// DefaultOverlayColors are used for empty or unparsable entries.
var DefaultOverlayColors = OverlayColors{
	Unfilled: "#9E9E9E",
	Filled:   "#2E7D32",
	Multiple: "#D32F2F",
}

// OverlayResult contains the annotated sheet as base64 PNG.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Marks       int    `json:"marks"`
}

// RenderOverlay draws each mark as a two-pixel ring over the binarized sheet,
// with the question number written above the first option of every question.
// The sheet itself is faded towards white so the annotations stand out.
func RenderOverlay(buf *PixelBuffer, marks []MarkOutline, colors OverlayColors) (*OverlayResult, error) {
	if buf == nil || buf.Width == 0 || buf.Height == 0 {
		return nil, fmt.Errorf("overlay requires a non-empty sheet")
	}

	palette := map[MarkKind]color.RGBA{
		MarkUnfilled: parseColor(colors.Unfilled, DefaultOverlayColors.Unfilled),
		MarkFilled:   parseColor(colors.Filled, DefaultOverlayColors.Filled),
		MarkMultiple: parseColor(colors.Multiple, DefaultOverlayColors.Multiple),
	}

	bounds := image.Rect(0, 0, buf.Width, buf.Height)
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, fadeSheet(buf), image.Point{}, draw.Src)

	labelColor := color.RGBA{255, 255, 255, 255}
	for _, m := range marks {
		c := palette[m.Kind]
		drawRing(result, m.X, m.Y, m.Radius, c)
		if m.Question > 0 {
			drawLabel(result, m.X-m.Radius, m.Y-m.Radius-9, strconv.Itoa(m.Question), labelColor, c)
		}
	}

	var out bytes.Buffer
	if err := png.Encode(&out, result); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}

	return &OverlayResult{
		Width:       buf.Width,
		Height:      buf.Height,
		ImageBase64: base64.StdEncoding.EncodeToString(out.Bytes()),
		MimeType:    "image/png",
		Marks:       len(marks),
	}, nil
}

// fadeSheet renders ink as light gray so colored rings remain visible over
// filled marks.
func fadeSheet(buf *PixelBuffer) *image.Gray {
	img := buf.Image()
	for i, v := range img.Pix {
		if v < 128 {
			img.Pix[i] = 170
		}
	}
	return img
}

// parseColor parses a "#RRGGBB" color with go-colorful, falling back to the
// given default.
func parseColor(hex, fallback string) color.RGBA {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(fallback)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// drawRing draws a two-pixel wide circle outline clipped to the image.
func drawRing(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	bounds := img.Bounds()
	outer := float64(radius) + 1
	inner := float64(radius) - 1
	for y := cy - radius - 2; y <= cy+radius+2; y++ {
		for x := cx - radius - 2; x <= cx+radius+2; x++ {
			if !(image.Point{X: x, Y: y}).In(bounds) {
				continue
			}
			d := math.Hypot(float64(x-cx), float64(y-cy))
			if d >= inner && d <= outer {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// drawLabel draws a number with a 3x5 pixel font on a filled background.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			if p := (image.Point{X: x + dx, Y: y + dy}); p.In(bounds) {
				img.SetRGBA(p.X, p.Y, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel != '1' {
					continue
				}
				if p := (image.Point{X: cx + col, Y: y + row}); p.In(bounds) {
					img.SetRGBA(p.X, p.Y, fg)
				}
			}
		}
		cx += charWidth
	}
}
