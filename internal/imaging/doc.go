// Package imaging normalizes answer-sheet images for mark detection.
//
// This package turns encoded sheet bytes into a binarized PixelBuffer,
// caches sheet files read from disk and renders annotated review overlays.
// All operations use a coordinate system where (0,0) is at the top-left
// corner, X increases rightward, and Y increases downward.
//
// # Preprocessing
//
// Preprocess applies three steps:
//   - Decode with EXIF orientation correction (disintegration/imaging)
//   - Downscale to at most MaxWidth pixels wide, preserving aspect ratio
//   - Binarize at Threshold (anthonynsimon/bild segment.Threshold)
//
// Ink becomes 0 and paper 255. Orientation metadata is the only rotation
// applied; photographs taken at an angle are not deskewed.
//
// # Thread Safety
//
// The SheetCache type is safe for concurrent use. Preprocess and
// RenderOverlay are stateless and can be called concurrently. A PixelBuffer is
// never modified after creation and may be shared between goroutines.
//
// # Error Handling
//
// Undecodable input yields *ImageDecodeError so batch callers can record the
// failure against the file and continue with the rest of the batch.
//
// # Performance Considerations
//
// Mark detection is O(width x height); bounding the width at 1200 pixels
// keeps a full-page scan fast. SheetCache holds raw file bytes until Evict()
// or Clear() is called.
package imaging
