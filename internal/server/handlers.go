package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"

	"github.com/ironsheep/omr-tools-mcp/internal/answers"
	"github.com/ironsheep/omr-tools-mcp/internal/grading"
	"github.com/ironsheep/omr-tools-mcp/internal/imaging"
	"github.com/ironsheep/omr-tools-mcp/internal/ocr"
	"github.com/ironsheep/omr-tools-mcp/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "omr_process", "omr_grade").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if s.cfg.Debug() {
			log.Printf("tool %s failed: %v", params.Name, err)
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Sheet Processing
	case "omr_process":
		return s.handleProcess(ctx, args)
	case "omr_process_batch":
		return s.handleProcessBatch(ctx, args)

	// Grading
	case "omr_grade":
		return s.handleGrade(args)
	case "omr_grade_batch":
		return s.handleGradeBatch(ctx, args)

	// Review
	case "omr_overlay":
		return s.handleOverlay(ctx, args)
	case "omr_review_row":
		return s.handleReviewRow(ctx, args)
	case "omr_read_header":
		return s.handleReadHeader(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// processingArgs are the per-call overrides shared by every tool that runs
// the pipeline. Zero values keep the configured setting.
type processingArgs struct {
	Threshold          int     `json:"threshold"`
	MinCircleRadius    int     `json:"min_circle_radius"`
	MaxCircleRadius    int     `json:"max_circle_radius"`
	GridTolerance      int     `json:"grid_tolerance"`
	FillThreshold      float64 `json:"fill_threshold"`
	OptionsPerQuestion int     `json:"options_per_question"`
}

// options merges call overrides into the configured pipeline options.
func (s *Server) options(a processingArgs) pipeline.Options {
	opts := s.cfg.PipelineOptions()
	if a.Threshold != 0 {
		opts.Config.Threshold = a.Threshold
	}
	if a.MinCircleRadius != 0 {
		opts.Config.MinCircleRadius = a.MinCircleRadius
	}
	if a.MaxCircleRadius != 0 {
		opts.Config.MaxCircleRadius = a.MaxCircleRadius
	}
	if a.GridTolerance != 0 {
		opts.Config.GridTolerance = a.GridTolerance
	}
	if a.FillThreshold != 0 {
		opts.Config.FillThreshold = a.FillThreshold
	}
	if a.OptionsPerQuestion != 0 {
		opts.OptionsPerQuestion = a.OptionsPerQuestion
	}
	return opts
}

// processPath loads and processes a single sheet. A sheet that fails
// validation or processing is evicted so rejected files do not stay cached.
func (s *Server) processPath(ctx context.Context, path string, a processingArgs) (*pipeline.ProcessResult, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	data, err := s.cache.Load(path)
	if err != nil {
		return nil, err
	}
	if err := pipeline.ValidateUpload(pipeline.Upload{FileName: filepath.Base(path), Data: data}); err != nil {
		s.cache.Evict(path)
		return nil, err
	}
	res, err := pipeline.Process(ctx, data, s.options(a))
	if err != nil {
		s.cache.Evict(path)
		return nil, err
	}
	return res, nil
}

// loadUploads reads every path through the cache. Unreadable files become
// INVALID_INPUT errors so the rest of the batch still runs.
func (s *Server) loadUploads(paths []string) ([]pipeline.Upload, []pipeline.FileError) {
	uploads := make([]pipeline.Upload, 0, len(paths))
	failed := make([]pipeline.FileError, 0)
	for _, p := range paths {
		data, err := s.cache.Load(p)
		if err != nil {
			failed = append(failed, pipeline.FileError{FileName: p, Code: pipeline.ErrorInvalidInput, Error: err.Error()})
			continue
		}
		uploads = append(uploads, pipeline.Upload{FileName: p, Data: data})
	}
	return uploads, failed
}

// evict drops batch sheets from the cache; they are rarely requested twice.
func (s *Server) evict(paths []string) {
	for _, p := range paths {
		s.cache.Evict(p)
	}
}

// === Sheet Processing Handlers ===

type processArgs struct {
	Path string `json:"path"`
	processingArgs
}

func (s *Server) handleProcess(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a processArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	res, err := s.processPath(ctx, a.Path, a.processingArgs)
	if err != nil {
		return nil, err
	}
	return pipeline.SheetResult{FileName: a.Path, ProcessResult: res}, nil
}

type processBatchArgs struct {
	Paths []string `json:"paths"`
	processingArgs
}

func (s *Server) handleProcessBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a processBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, fmt.Errorf("paths must list at least one sheet")
	}
	defer s.evict(a.Paths)

	uploads, failed := s.loadUploads(a.Paths)
	out := pipeline.ProcessBatch(ctx, uploads, s.options(a.processingArgs))
	out.Errors = append(out.Errors, failed...)
	pipeline.SortByInput(out.Errors, a.Paths)
	return out, nil
}

// === Grading Handlers ===

type gradeArgs struct {
	FileName       string                 `json:"file_name"`
	Answers        answers.StudentAnswers `json:"answers"`
	AnswerKey      grading.AnswerKey      `json:"answer_key"`
	TotalQuestions int                    `json:"total_questions"`
}

func (s *Server) handleGrade(args json.RawMessage) (interface{}, error) {
	var a gradeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return grading.Grade(a.FileName, a.Answers, a.AnswerKey, a.TotalQuestions)
}

type gradeBatchArgs struct {
	Paths          []string          `json:"paths"`
	AnswerKey      grading.AnswerKey `json:"answer_key"`
	TotalQuestions int               `json:"total_questions"`
	processingArgs
}

func (s *Server) handleGradeBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a gradeBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, &grading.InvalidGradingInputError{Reason: "no sheets to grade"}
	}
	if err := grading.ValidateInputs(a.AnswerKey, a.TotalQuestions); err != nil {
		return nil, err
	}
	defer s.evict(a.Paths)

	uploads, failed := s.loadUploads(a.Paths)
	if len(uploads) == 0 {
		return &pipeline.GradedBatch{
			Results: []*grading.GradingResult{},
			Errors:  failed,
		}, nil
	}

	out, err := pipeline.ProcessAndGrade(ctx, uploads, a.AnswerKey, a.TotalQuestions, s.options(a.processingArgs))
	if err != nil {
		return nil, err
	}
	out.Errors = append(out.Errors, failed...)
	pipeline.SortByInput(out.Errors, a.Paths)
	return out, nil
}

// === Review Handlers ===

type overlayArgs struct {
	Path          string `json:"path"`
	FilledColor   string `json:"filled_color"`
	UnfilledColor string `json:"unfilled_color"`
	MultipleColor string `json:"multiple_color"`
	processingArgs
}

func (s *Server) handleOverlay(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	res, err := s.processPath(ctx, a.Path, a.processingArgs)
	if err != nil {
		return nil, err
	}
	return imaging.RenderOverlay(res.Buffer, res.Outlines(), imaging.OverlayColors{
		Unfilled: a.UnfilledColor,
		Filled:   a.FilledColor,
		Multiple: a.MultipleColor,
	})
}

type reviewRowArgs struct {
	Path   string  `json:"path"`
	Row    int     `json:"row"`
	Margin int     `json:"margin"`
	Scale  float64 `json:"scale"`
	processingArgs
}

// reviewRowResult is one grid row cropped for manual review.
type reviewRowResult struct {
	Row   int                 `json:"row"`
	Marks int                 `json:"marks"`
	Crop  *imaging.CropResult `json:"crop"`
}

func (s *Server) handleReviewRow(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a reviewRowArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Margin == 0 {
		a.Margin = 10
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	res, err := s.processPath(ctx, a.Path, a.processingArgs)
	if err != nil {
		return nil, err
	}
	if a.Row < 1 || a.Row > len(res.Grid) {
		return nil, fmt.Errorf("row %d out of range: sheet has %d rows", a.Row, len(res.Grid))
	}

	row := res.Grid[a.Row-1]
	crop, err := imaging.CropReview(res.Buffer, row.Bounds(a.Margin), a.Scale)
	if err != nil {
		return nil, err
	}
	return &reviewRowResult{Row: a.Row, Marks: len(row), Crop: crop}, nil
}

type readHeaderArgs struct {
	Path     string `json:"path"`
	X1       int    `json:"x1"`
	Y1       int    `json:"y1"`
	X2       int    `json:"x2"`
	Y2       int    `json:"y2"`
	Language string `json:"language"`
}

func (s *Server) handleReadHeader(args json.RawMessage) (interface{}, error) {
	var a readHeaderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if a.Language == "" {
		a.Language = s.cfg.OCRLanguage
	}

	data, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	// Same scaling as the pipeline so header coordinates match mark coordinates
	img, err := imaging.Decode(data, s.cfg.MaxWidth)
	if err != nil {
		return nil, err
	}
	return ocr.ReadHeader(img, ocr.Region{X1: a.X1, Y1: a.Y1, X2: a.X2, Y2: a.Y2}, a.Language)
}
