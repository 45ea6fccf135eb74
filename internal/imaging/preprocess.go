package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Preprocessing defaults.
const (
	DefaultMaxWidth  = 1200
	DefaultThreshold = 128
)

// ImageDecodeError reports sheet data that could not be decoded as an image.
//
// The batch orchestrator treats this error as a per-file failure: the file is
// recorded in the error list and sibling files continue processing.
type ImageDecodeError struct {
	Cause error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("failed to decode image: %v", e.Cause)
}

func (e *ImageDecodeError) Unwrap() error {
	return e.Cause
}

// PreprocessOptions controls sheet normalization.
type PreprocessOptions struct {
	// MaxWidth bounds the output width. Wider images are downscaled with their
	// aspect ratio preserved. Zero means DefaultMaxWidth.
	MaxWidth int

	// Threshold is the binarization cutoff (0-255). Pixels with luminance at or
	// above it become white (255), all others black (0). Zero means
	// DefaultThreshold.
	Threshold uint8
}

func (o PreprocessOptions) withDefaults() PreprocessOptions {
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	return o
}

// PixelBuffer is a single-channel binarized sheet image.
//
// Pix holds Width*Height intensity values in row-major order. The buffer is
// never modified after Preprocess returns it.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// At returns the intensity at (x, y). Coordinates outside the buffer read as
// white background so that samples near the sheet edge never count as ink.
func (b *PixelBuffer) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return 255
	}
	return b.Pix[y*b.Width+x]
}

// Image returns the buffer as an *image.Gray sharing no memory with b.
func (b *PixelBuffer) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, b.Width, b.Height))
	copy(img.Pix, b.Pix)
	return img
}

// Decode decodes raw sheet bytes, applies EXIF orientation and bounds the
// width to maxWidth. It is the first half of Preprocess and is exposed for
// callers that need the color image (header OCR, overlays).
func Decode(data []byte, maxWidth int) (image.Image, error) {
	if len(data) == 0 {
		return nil, &ImageDecodeError{Cause: fmt.Errorf("empty image data")}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ImageDecodeError{Cause: err}
	}

	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}
	return img, nil
}

// Preprocess turns an encoded sheet image into a binarized PixelBuffer ready
// for mark detection.
//
// # Steps
//
//  1. Decode (PNG, JPEG, GIF, BMP, TIFF, WebP) with EXIF orientation applied.
//     Only orientation metadata is honoured; arbitrary skew is left as is.
//  2. Downscale to opts.MaxWidth when the source is wider, keeping the aspect
//     ratio. Narrower images pass through untouched.
//  3. Convert to luminance and binarize at opts.Threshold.
//
// # Errors
//
// Unreadable or corrupt data yields *ImageDecodeError.
func Preprocess(data []byte, opts PreprocessOptions) (*PixelBuffer, error) {
	opts = opts.withDefaults()

	img, err := Decode(data, opts.MaxWidth)
	if err != nil {
		return nil, err
	}
	return Binarize(img, opts.Threshold), nil
}

// Binarize converts img to a black/white PixelBuffer at the given luminance
// cutoff.
func Binarize(img image.Image, threshold uint8) *PixelBuffer {
	gray := segment.Threshold(img, threshold)

	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	pix := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+width]
		copy(pix[y*width:], row)
	}

	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    pix,
	}
}
