package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// poseProperties describes the camera pose arguments shared by the
// perception tools.
func poseProperties() map[string]interface{} {
	number := func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "number", "description": desc}
	}
	return map[string]interface{}{
		"camera": map[string]interface{}{
			"type":        "string",
			"description": "Camera that took the frame: upper or lower. Default upper",
			"enum":        []string{"upper", "lower"},
		},
		"legacy": map[string]interface{}{
			"type":        "boolean",
			"description": "Use the pitch/roll/height pose stored by older recordings instead of joint angles",
		},
		"pitch":      number("Legacy pose: camera pitch in radians, positive looks down"),
		"roll":       number("Legacy pose: camera roll in radians"),
		"height":     number("Legacy pose: camera height in meters. Defaults to the tuned legacy height"),
		"leg_height": number("Hip height above the sole in meters"),
		"body_yaw":   number("Torso yaw in radians"),
		"body_pitch": number("Torso pitch in radians"),
		"body_roll":  number("Torso roll in radians"),
		"head_yaw":   number("Head yaw in radians"),
		"head_pitch": number("Head pitch in radians"),
	}
}

// withPose merges the pose arguments into extra.
func withPose(extra map[string]interface{}) map[string]interface{} {
	props := poseProperties()
	for k, v := range extra {
		props[k] = v
	}
	return props
}

var pointSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"x": map[string]interface{}{"type": "number"},
		"y": map[string]interface{}{"type": "number"},
	},
	"required": []string{"x", "y"},
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Frames
		{
			Name:        "image_load",
			Description: "Load a recorded camera frame and return its dimensions, file format and in-memory color model. The frame stays cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the frame file",
					},
				},
				"required": []string{"path"},
			},
		},

		// Ball
		{
			Name:        "perception_scan_ball",
			Description: "Run the integral ball scorer on a frame. Returns ball hypotheses best first with their ground position, distance and a plausibility check against the camera model.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withPose(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the frame file",
					},
					"plausible_only": map[string]interface{}{
						"type":        "boolean",
						"description": "Drop hypotheses whose size disagrees with the camera model",
					},
					"patches": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the base64 PNG classifier patch of every hypothesis",
					},
				}),
				"required": []string{"path"},
			},
		},

		// Geometry
		{
			Name:        "perception_project",
			Description: "Project image pixels onto the ground plane, or onto a plane at the given height. Pixels above the horizon report ok=false.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withPose(map[string]interface{}{
					"pixels": map[string]interface{}{
						"type":        "array",
						"description": "Pixels to project",
						"items":       pointSchema,
					},
					"plane_height": map[string]interface{}{
						"type":        "number",
						"description": "Height of the target plane in meters. Default 0",
					},
				}),
				"required": []string{"pixels"},
			},
		},
		{
			Name:        "perception_horizon",
			Description: "Compute the horizon line for a camera pose. Returns ok=false when the camera looks straight up or down.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": poseProperties(),
			},
		},
		{
			Name:        "perception_pixel_radius",
			Description: "Expected pixel radius of a sphere, either at a given distance or resting on the ground at a given robot-relative position.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withPose(map[string]interface{}{
					"distance": map[string]interface{}{
						"type":        "number",
						"description": "Distance from the camera in meters",
					},
					"ground": map[string]interface{}{
						"description": "Robot-relative ground position in meters; used when distance is omitted",
						"type":        pointSchema["type"],
						"properties":  pointSchema["properties"],
					},
					"radius": map[string]interface{}{
						"type":        "number",
						"description": "Sphere radius in meters. Defaults to the ball radius",
					},
				}),
			},
		},
		{
			Name:        "perception_fit_ellipse",
			Description: "Fit an ellipse to image points. With center_circle=true the ellipse is also projected to the ground and checked against the center circle size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withPose(map[string]interface{}{
					"points": map[string]interface{}{
						"type":        "array",
						"description": "At least 6 distinct image points",
						"items":       pointSchema,
					},
					"center_circle": map[string]interface{}{
						"type":        "boolean",
						"description": "Project the ellipse and run the center circle check",
					},
				}),
				"required": []string{"points"},
			},
		},

		// Calibration
		{
			Name:        "perception_calibration",
			Description: "Show the calibration offsets, or set some of them. Setting writes the calibration file atomically.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"action": map[string]interface{}{
						"type":        "string",
						"description": "show or set. Default show",
						"enum":        []string{"show", "set"},
					},
					"head_pitch":     map[string]interface{}{"type": "number"},
					"head_roll":      map[string]interface{}{"type": "number"},
					"body_pitch":     map[string]interface{}{"type": "number"},
					"body_roll":      map[string]interface{}{"type": "number"},
					"pixel_offset_x": map[string]interface{}{"type": "integer"},
					"pixel_offset_y": map[string]interface{}{"type": "integer"},
				},
			},
		},

		// Debugging
		{
			Name:        "perception_overlay",
			Description: "Render a frame with the horizon, optional ball hypotheses, an optional fitted ellipse and an optional coordinate grid. Returns a base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withPose(map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the frame file",
					},
					"scan": map[string]interface{}{
						"type":        "boolean",
						"description": "Run the ball scorer and draw its hypotheses",
					},
					"ellipse_points": map[string]interface{}{
						"type":        "array",
						"description": "Image points to fit and draw as an ellipse",
						"items":       pointSchema,
					},
					"grid_spacing": map[string]interface{}{
						"type":        "integer",
						"description": "Grid spacing in pixels; 0 disables the grid",
					},
				}),
				"required": []string{"path"},
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
