package server

import (
	"encoding/json"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"image_load",
		"perception_scan_ball",
		"perception_project",
		"perception_horizon",
		"perception_pixel_radius",
		"perception_fit_ellipse",
		"perception_calibration",
		"perception_overlay",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(tools), len(expectedTools))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want object", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema should have properties")
			}

			// Every required field must be a declared property.
			if required, ok := tool.InputSchema["required"].([]string); ok {
				for _, r := range required {
					if _, ok := props[r]; !ok {
						t.Errorf("required field %s is not a property", r)
					}
				}
			}

			if _, err := json.Marshal(tool); err != nil {
				t.Errorf("tool does not marshal: %v", err)
			}
		})
	}
}

func TestToolDefinitions_PoseArguments(t *testing.T) {
	posed := map[string]bool{
		"perception_scan_ball":    true,
		"perception_project":      true,
		"perception_horizon":      true,
		"perception_pixel_radius": true,
		"perception_fit_ellipse":  true,
		"perception_overlay":      true,
	}

	for _, tool := range GetToolDefinitions() {
		props := tool.InputSchema["properties"].(map[string]interface{})
		_, hasCamera := props["camera"]
		_, hasLegacy := props["legacy"]
		if posed[tool.Name] != (hasCamera && hasLegacy) {
			t.Errorf("%s: pose arguments present=%v, want %v", tool.Name, hasCamera && hasLegacy, posed[tool.Name])
		}
	}
}
