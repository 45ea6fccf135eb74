// Package detection finds answer-sheet marks (bubbles) in a binarized sheet
// image.
//
// # Pipeline Position
//
// Detection runs after imaging.Preprocess and before layout.Organize. Its
// input is an imaging.PixelBuffer where ink is black (0) and paper is white
// (255); its output is an unordered set of Circle values.
//
// # Two Independent Measurements
//
// Each candidate is judged twice:
//
//   - IsCircular decides whether a mark exists: points sampled on a ring at
//     the test radius must be mostly dark.
//   - FillRatio decides whether the mark was selected: the dark fraction of
//     the mark's bounding box is compared with FillThreshold.
//
// A ring can be found yet unfilled, and a blotch can be filled yet a poor
// circle; both are recorded. Whether a mark belongs to a question is decided
// later by the layout and answers packages.
//
// # Determinism
//
// DetectMarks is a pure function of its buffer and config. Near-duplicate
// detections are merged in scan order with a filled-wins rule, so repeated
// runs on the same input yield identical output.
//
// # Limitations
//
// Only circular marks are supported. Sheets photographed at an angle are not
// deskewed; rows that drift by more than the grid tolerance are split later.
package detection
