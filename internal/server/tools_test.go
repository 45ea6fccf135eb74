package server

import (
	"context"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"omr_process",
		"omr_process_batch",
		"omr_grade",
		"omr_grade_batch",
		"omr_overlay",
		"omr_review_row",
		"omr_read_header",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("expected %d tools, got %d", len(expectedTools), len(tools))
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		toolMap[tool.Name] = tool
	}
	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok || len(props) == 0 {
				t.Fatal("InputSchema properties missing or empty")
			}

			// Every required parameter must be declared
			required, _ := tool.InputSchema["required"].([]string)
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required parameter %q not in properties", r)
				}
			}
		})
	}
}

func TestToolDefinitions_ProcessingOverrides(t *testing.T) {
	pipelineTools := []string{"omr_process", "omr_process_batch", "omr_grade_batch", "omr_overlay", "omr_review_row"}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for _, name := range pipelineTools {
		props := toolMap[name].InputSchema["properties"].(map[string]interface{})
		for key := range processingProperties() {
			if _, ok := props[key]; !ok {
				t.Errorf("%s: missing override %q", name, key)
			}
		}
	}

	// Grading mapped answers never runs detection
	gradeProps := toolMap["omr_grade"].InputSchema["properties"].(map[string]interface{})
	if _, ok := gradeProps["threshold"]; ok {
		t.Error("omr_grade should not accept detection overrides")
	}
}

func TestHandleToolsList(t *testing.T) {
	s := New(nil)
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: "list-1"})

	if resp.ID != "list-1" {
		t.Errorf("ID: got %v, want list-1", resp.ID)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	if _, ok := result["tools"].([]Tool); !ok {
		t.Error("tools should be a slice of Tool")
	}
}

func TestExecuteTool_AllToolsDispatch(t *testing.T) {
	s := New(nil)

	// Every declared tool must be known to executeTool; with empty
	// arguments each fails on validation, never as an unknown tool
	for _, tool := range GetToolDefinitions() {
		_, err := s.executeTool(context.Background(), tool.Name, []byte(`{}`))
		if err != nil && err.Error() == "unknown tool: "+tool.Name {
			t.Errorf("tool %s is declared but not dispatched", tool.Name)
		}
	}
}
