package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// CropResult contains the cropped image data
type CropResult struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// CropReview extracts part of a binarized sheet for manual review of a row of
// marks. The rectangle is clipped to the sheet; a rectangle that misses the
// sheet entirely is an error. Scale 0 means 1.0.
func CropReview(buf *PixelBuffer, rect image.Rectangle, scale float64) (*CropResult, error) {
	if buf == nil || buf.Width == 0 || buf.Height == 0 {
		return nil, fmt.Errorf("review crop requires a non-empty sheet")
	}
	if scale < 0 {
		return nil, fmt.Errorf("scale must be positive, got %g", scale)
	}
	if scale == 0 {
		scale = 1.0
	}

	bounds := image.Rect(0, 0, buf.Width, buf.Height)
	clipped := rect.Canon().Intersect(bounds)
	if clipped.Empty() {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside sheet bounds %dx%d",
			rect.Min.X, rect.Min.Y, rect.Max.X, rect.Max.Y, buf.Width, buf.Height)
	}

	cropped := imaging.Crop(buf.Image(), clipped)

	if scale != 1.0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth < 1 || newHeight < 1 {
			return nil, fmt.Errorf("scale %g reduces the crop to nothing", scale)
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	var out bytes.Buffer
	if err := png.Encode(&out, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		X:           clipped.Min.X,
		Y:           clipped.Min.Y,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(out.Bytes()),
		MimeType:    "image/png",
	}, nil
}
