package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// processingProperties are the optional detection overrides accepted by every
// tool that runs the pipeline.
func processingProperties() map[string]interface{} {
	return map[string]interface{}{
		"threshold": map[string]interface{}{
			"type":        "integer",
			"description": "Binarization threshold (1-255). Default from server config, normally 128",
		},
		"min_circle_radius": map[string]interface{}{
			"type":        "integer",
			"description": "Smallest bubble radius in pixels after scaling. Default 10",
		},
		"max_circle_radius": map[string]interface{}{
			"type":        "integer",
			"description": "Largest bubble radius in pixels after scaling. Default 20",
		},
		"grid_tolerance": map[string]interface{}{
			"type":        "integer",
			"description": "Largest vertical gap in pixels between marks of one row. Default 20",
		},
		"fill_threshold": map[string]interface{}{
			"type":        "number",
			"description": "Dark pixel fraction above which a bubble is filled (0-1, exclusive). Default 0.5",
		},
		"options_per_question": map[string]interface{}{
			"type":        "integer",
			"description": "Consecutive bubbles in a row that form one question; options are numbered 1..N. Default 5",
		},
	}
}

// withProcessing merges the detection overrides into a tool's own properties.
func withProcessing(props map[string]interface{}) map[string]interface{} {
	for k, v := range processingProperties() {
		props[k] = v
	}
	return props
}

func answerKeyProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"description":          "Correct 1-based option per question number, e.g. {\"1\": \"1\", \"2\": \"3\"}",
		"additionalProperties": map[string]interface{}{"type": "string"},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Sheet Processing
		{
			Name:        "omr_process",
			Description: "Detect the bubbles on one answer sheet image and map the filled ones to answers per question. Returns answers, mark and row counts and layout warnings.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProcessing(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the sheet image (PNG, JPEG, GIF, BMP, TIFF or WebP)",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "omr_process_batch",
			Description: "Process many answer sheets concurrently. A failing sheet is reported in errors and never stops the others.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProcessing(map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths to the sheet images",
					},
				}),
				"required": []string{"paths"},
			},
		},

		// Grading
		{
			Name:        "omr_grade",
			Description: "Grade already mapped answers against an answer key. Multiply marked questions are wrong; missing ones are unanswered.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"file_name": map[string]interface{}{
						"type":        "string",
						"description": "Optional label echoed in the result",
					},
					"answers": map[string]interface{}{
						"type":                 "object",
						"description":          "Student answer per question number, as returned by omr_process",
						"additionalProperties": map[string]interface{}{"type": "string"},
					},
					"answer_key": answerKeyProperty(),
					"total_questions": map[string]interface{}{
						"type":        "integer",
						"description": "Number of questions on the exam; questions 1..N are graded",
					},
				},
				"required": []string{"answers", "answer_key", "total_questions"},
			},
		},
		{
			Name:        "omr_grade_batch",
			Description: "Process and grade many answer sheets against one key. Returns per-sheet results, per-file errors and a class summary (average, highest and lowest score).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProcessing(map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths to the sheet images",
					},
					"answer_key": answerKeyProperty(),
					"total_questions": map[string]interface{}{
						"type":        "integer",
						"description": "Number of questions on the exam",
					},
				}),
				"required": []string{"paths", "answer_key", "total_questions"},
			},
		},

		// Review
		{
			Name:        "omr_overlay",
			Description: "Render the binarized sheet with every detected bubble outlined (filled, unfilled, multiply marked) and question numbers labeled. Returns base64 PNG for manual review.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProcessing(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the sheet image",
					},
					"filled_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color for filled bubbles. Default #2E7D32",
						"default":     "#2E7D32",
					},
					"unfilled_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color for unfilled bubbles. Default #9E9E9E",
						"default":     "#9E9E9E",
					},
					"multiple_color": map[string]interface{}{
						"type":        "string",
						"description": "Hex color for bubbles of multiply marked questions. Default #D32F2F",
						"default":     "#D32F2F",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "omr_review_row",
			Description: "Crop one detected row of bubbles from the binarized sheet, to check a questionable answer by eye.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProcessing(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the sheet image",
					},
					"row": map[string]interface{}{
						"type":        "integer",
						"description": "1-based row index, top to bottom",
					},
					"margin": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels added around the row's bubbles. Default 10",
						"default":     10,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
				}),
				"required": []string{"path", "row"},
			},
		},
		{
			Name:        "omr_read_header",
			Description: "Read a printed label (exam code, candidate number) from a region of the sheet with OCR. Coordinates are those of the scaled sheet used for bubble detection. Handwriting is not supported.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the sheet image",
					},
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X coordinate (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y coordinate (exclusive)",
					},
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code. Default from server config, normally eng",
					},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
