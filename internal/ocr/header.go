package ocr

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is used when no Tesseract language code is given.
const DefaultLanguage = "eng"

// Region is a rectangle in sheet pixel coordinates. X2 and Y2 are exclusive.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Rect converts the region to an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Validate rejects empty regions and regions that extend past bounds.
func (r Region) Validate(bounds image.Rectangle) error {
	if r.X2 <= r.X1 || r.Y2 <= r.Y1 {
		return fmt.Errorf("region (%d,%d)-(%d,%d) is empty", r.X1, r.Y1, r.X2, r.Y2)
	}
	if !r.Rect().In(bounds) {
		return fmt.Errorf("region (%d,%d)-(%d,%d) is outside the %dx%d sheet",
			r.X1, r.Y1, r.X2, r.Y2, bounds.Dx(), bounds.Dy())
	}
	return nil
}

// Word is one recognized word of a header.
type Word struct {
	Text string `json:"text"`

	// Confidence is Tesseract's recognition confidence (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds are in sheet coordinates, not relative to the header region.
	Bounds Region `json:"bounds"`
}

// HeaderResult is the printed text found in a header region.
type HeaderResult struct {
	// Text is the recognized text with surrounding whitespace trimmed.
	Text   string `json:"text"`
	Words  []Word `json:"words"`
	Region Region `json:"region"`
}

// ReadHeader reads the printed label in one region of a sheet, such as the
// exam code or candidate number a sheet generator prints above the bubbles.
//
// The region is validated against the image bounds before Tesseract is
// started. The crop is written to a temporary PNG because gosseract reads
// from a path; the file is removed before returning.
//
// Word bounds are shifted back to sheet coordinates. If word boxes cannot be
// extracted the result still carries the full text with no words.
func ReadHeader(img image.Image, region Region, language string) (*HeaderResult, error) {
	if img == nil {
		return nil, fmt.Errorf("no image to read")
	}
	if err := region.Validate(img.Bounds()); err != nil {
		return nil, err
	}
	if language == "" {
		language = DefaultLanguage
	}

	cropped := imaging.Crop(img, region.Rect())

	tmpFile, err := os.CreateTemp("", "omr-header-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if err := png.Encode(tmpFile, cropped); err != nil {
		tmpFile.Close()
		return nil, fmt.Errorf("failed to encode header crop: %w", err)
	}
	tmpFile.Close()

	text, words, err := recognize(tmpPath, language)
	if err != nil {
		return nil, err
	}

	for i := range words {
		words[i].Bounds.X1 += region.X1
		words[i].Bounds.Y1 += region.Y1
		words[i].Bounds.X2 += region.X1
		words[i].Bounds.Y2 += region.Y1
	}

	return &HeaderResult{
		Text:   strings.TrimSpace(text),
		Words:  words,
		Region: region,
	}, nil
}

func recognize(imagePath, language string) (string, []Word, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return "", nil, fmt.Errorf("failed to set language: %w", err)
	}
	// Headers are a single printed line.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		return "", nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return text, []Word{}, nil
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		words = append(words, Word{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Region{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}
	return text, words, nil
}

// Version returns the linked Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}
