// Package ocr reads printed header labels on answer sheets using Tesseract.
//
// Sheet generators print an exam code or candidate number above the bubble
// grid. ReadHeader crops that region and runs Tesseract (via gosseract/v2) in
// single-line mode. Handwriting is not supported.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// The default language is English ("eng").
//
// # Temporary Files
//
// ReadHeader writes the cropped region to a temporary PNG for Tesseract and
// deletes it after OCR completes.
package ocr
