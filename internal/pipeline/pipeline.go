// Package pipeline runs the OMR stages for single sheets and batches.
//
// One sheet flows through imaging.Preprocess, detection.DetectMarks,
// layout.Organize and answers.Map. Every stage is a pure function of its
// input and config, so sheets of a batch are processed concurrently with no
// shared mutable state. Grading runs after all sheets are mapped.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ironsheep/omr-tools-mcp/internal/answers"
	"github.com/ironsheep/omr-tools-mcp/internal/detection"
	"github.com/ironsheep/omr-tools-mcp/internal/grading"
	"github.com/ironsheep/omr-tools-mcp/internal/imaging"
	"github.com/ironsheep/omr-tools-mcp/internal/layout"
)

// MaxFileSize is the largest accepted sheet image in bytes.
const MaxFileSize = 10 * 1024 * 1024

// Options configures a pipeline run.
type Options struct {
	Config             detection.ImageProcessingConfig
	OptionsPerQuestion int
	MaxWidth           int

	// Workers bounds batch concurrency. Zero means runtime.NumCPU().
	Workers int

	// Debug enables per-file log lines.
	Debug bool
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Config:             detection.DefaultImageProcessingConfig(),
		OptionsPerQuestion: answers.DefaultOptionsPerQuestion,
		MaxWidth:           imaging.DefaultMaxWidth,
	}
}

// ProcessResult is the outcome of mapping one sheet.
type ProcessResult struct {
	Answers       answers.StudentAnswers `json:"answers"`
	TotalDetected int                    `json:"totalDetected"`
	Rows          int                    `json:"rows"`
	Questions     int                    `json:"questions"`
	Warnings      []string               `json:"warnings"`

	// Circles are the deduplicated marks, in scan order.
	Circles []detection.Circle `json:"-"`
	// Grid is the row arrangement the answers were mapped from.
	Grid layout.Grid `json:"-"`
	// OptionsPerQuestion is the group size the answers were mapped with.
	OptionsPerQuestion int `json:"-"`
	// Buffer is the binarized sheet the marks were detected on.
	Buffer *imaging.PixelBuffer `json:"-"`
}

// Process maps one encoded sheet image to student answers.
//
// The context is checked before decoding; the CPU-bound scanning and
// clustering stages run to completion once started.
//
// # Errors
//
//   - invalid config or options: *InputError
//   - corrupt or unsupported image: *imaging.ImageDecodeError
//
// Finding no marks is not an error. The result carries a warning instead so
// grading can still proceed and report every question unanswered.
func Process(ctx context.Context, image []byte, opts Options) (*ProcessResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, &InputError{Reason: err.Error()}
	}
	if opts.OptionsPerQuestion <= 0 {
		opts.OptionsPerQuestion = answers.DefaultOptionsPerQuestion
	}

	buf, err := imaging.Preprocess(image, imaging.PreprocessOptions{
		MaxWidth:  opts.MaxWidth,
		Threshold: uint8(opts.Config.Threshold),
	})
	if err != nil {
		return nil, err
	}

	circles := detection.DetectMarks(buf, opts.Config)
	grid := layout.Organize(circles, opts.Config.GridTolerance)

	warnings := make([]string, 0)
	if len(circles) == 0 {
		warnings = append(warnings, "no marks detected")
	}
	for _, w := range layout.Validate(grid, opts.OptionsPerQuestion) {
		warnings = append(warnings, w.Message)
	}
	for _, w := range layout.CheckAlignment(grid, opts.Config.GridTolerance) {
		warnings = append(warnings, w.Message)
	}

	return &ProcessResult{
		Answers:       answers.Map(grid, opts.OptionsPerQuestion),
		TotalDetected: len(circles),
		Rows:          len(grid),
		Questions:     answers.QuestionCount(grid, opts.OptionsPerQuestion),
		Warnings:      warnings,
		Circles:       circles,
		Grid:          grid,
		Buffer:        buf,

		OptionsPerQuestion: opts.OptionsPerQuestion,
	}, nil
}

// Outlines labels every mark of a processed sheet for imaging.RenderOverlay.
// The first option of each question carries the question number; marks of a
// multiply answered question are flagged as such.
func (r *ProcessResult) Outlines() []imaging.MarkOutline {
	outlines := make([]imaging.MarkOutline, 0, r.TotalDetected)
	per := r.OptionsPerQuestion
	if per <= 0 {
		per = answers.DefaultOptionsPerQuestion
	}

	q := 1
	for _, row := range r.Grid {
		for i, c := range row {
			question := q + i/per
			kind := imaging.MarkUnfilled
			switch {
			case c.Filled && r.Answers[question] == answers.Multiple:
				kind = imaging.MarkMultiple
			case c.Filled:
				kind = imaging.MarkFilled
			}
			outline := imaging.MarkOutline{X: c.X, Y: c.Y, Radius: c.Radius, Kind: kind}
			if i%per == 0 {
				outline.Question = question
			}
			outlines = append(outlines, outline)
		}
		q += (len(row) + per - 1) / per
	}
	return outlines
}

// Upload is one sheet submitted for batch processing.
type Upload struct {
	FileName    string
	ContentType string // optional; sniffed from Data when empty
	Data        []byte
}

// ValidateUpload rejects empty, oversized and non-image uploads.
func ValidateUpload(u Upload) error {
	if len(u.Data) == 0 {
		return &InputError{FileName: u.FileName, Reason: "file is empty"}
	}
	if len(u.Data) > MaxFileSize {
		return &InputError{
			FileName: u.FileName,
			Reason:   fmt.Sprintf("file size %d bytes exceeds the %d byte limit", len(u.Data), MaxFileSize),
		}
	}

	contentType := u.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(u.Data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return &InputError{
			FileName: u.FileName,
			Reason:   fmt.Sprintf("unsupported content type %q, only images are accepted", contentType),
		}
	}
	return nil
}

// SheetResult is a successfully processed batch file.
type SheetResult struct {
	FileName string `json:"fileName"`
	*ProcessResult
}

// BatchOutput collects the per-file outcomes of ProcessBatch.
type BatchOutput struct {
	BatchID string        `json:"batchId"`
	Results []SheetResult `json:"results"`
	Errors  []FileError   `json:"errors"`
}

// ProcessBatch runs Process for every upload on a bounded worker pool.
//
// A failing file is recorded in Errors and never stops its siblings. Results
// and Errors keep the input order. When ctx is canceled, files not yet
// started are reported with ErrorCanceled.
func ProcessBatch(ctx context.Context, uploads []Upload, opts Options) *BatchOutput {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(uploads) {
		workers = len(uploads)
	}

	type outcome struct {
		result *ProcessResult
		err    error
	}
	outcomes := make([]outcome, len(uploads))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := processUpload(ctx, uploads[i], opts)
				outcomes[i] = outcome{result: res, err: err}
			}
		}()
	}

	for i := range uploads {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	out := &BatchOutput{
		BatchID: uuid.NewString(),
		Results: make([]SheetResult, 0, len(uploads)),
		Errors:  make([]FileError, 0),
	}
	for i, o := range outcomes {
		name := uploads[i].FileName
		if o.err != nil {
			if opts.Debug {
				log.Printf("batch %s: %s failed: %v", out.BatchID, name, o.err)
			}
			out.Errors = append(out.Errors, FileError{FileName: name, Code: classify(o.err), Error: o.err.Error()})
			continue
		}
		out.Results = append(out.Results, SheetResult{FileName: name, ProcessResult: o.result})
	}

	if opts.Debug {
		log.Printf("batch %s: %d processed, %d failed", out.BatchID, len(out.Results), len(out.Errors))
	}
	return out
}

// processUpload isolates one file: validation, cancellation and panics in the
// scanning stages all become errors for that file alone.
func processUpload(ctx context.Context, u Upload, opts Options) (res *ProcessResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, errors.Errorf("processing panicked: %v", r)
		}
	}()

	if ctx.Err() != nil {
		return nil, errors.Wrap(errCanceled, ctx.Err().Error())
	}
	if err := ValidateUpload(u); err != nil {
		return nil, err
	}
	res, err = Process(ctx, u.Data, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "process %s", u.FileName)
	}
	return res, nil
}

// Grade grades processed sheets against key.
func Grade(processed []grading.Sheet, key grading.AnswerKey, totalQuestions int) (*grading.BatchResult, error) {
	return grading.GradeBatch(processed, key, totalQuestions)
}

// GradedBatch is the combined outcome of ProcessAndGrade.
type GradedBatch struct {
	BatchID string                   `json:"batchId"`
	Results []*grading.GradingResult `json:"results"`
	Errors  []FileError              `json:"errors"`
	Summary grading.Summary          `json:"summary"`
}

// ProcessAndGrade processes uploads and grades the successful sheets.
//
// The grading inputs are checked first so an invalid key or question count
// fails fast without decoding any image. Processing and grading failures are
// merged into one error list in input order. When no sheet survives processing, the result
// has no grading results and a zero summary.
func ProcessAndGrade(ctx context.Context, uploads []Upload, key grading.AnswerKey, totalQuestions int, opts Options) (*GradedBatch, error) {
	if len(uploads) == 0 {
		return nil, &grading.InvalidGradingInputError{Reason: "no sheets to grade"}
	}
	if err := grading.ValidateInputs(key, totalQuestions); err != nil {
		return nil, err
	}

	processed := ProcessBatch(ctx, uploads, opts)
	out := &GradedBatch{
		BatchID: processed.BatchID,
		Results: make([]*grading.GradingResult, 0, len(processed.Results)),
		Errors:  processed.Errors,
	}
	if len(processed.Results) == 0 {
		return out, nil
	}

	sheets := make([]grading.Sheet, len(processed.Results))
	for i, r := range processed.Results {
		sheets[i] = grading.Sheet{FileName: r.FileName, Answers: r.Answers}
	}

	graded, err := Grade(sheets, key, totalQuestions)
	if err != nil {
		return nil, err
	}
	out.Results = graded.Results
	out.Summary = graded.Summary
	for _, e := range graded.Errors {
		out.Errors = append(out.Errors, FileError{FileName: e.FileName, Code: ErrorGradingFailed, Error: e.Error})
	}
	names := make([]string, len(uploads))
	for i, u := range uploads {
		names[i] = u.FileName
	}
	SortByInput(out.Errors, names)
	return out, nil
}
