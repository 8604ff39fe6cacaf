package server

import (
	"encoding/json"
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/ironsheep/soccer-vision/internal/calibration"
	"github.com/ironsheep/soccer-vision/internal/camera"
	"github.com/ironsheep/soccer-vision/internal/detection"
	"github.com/ironsheep/soccer-vision/internal/ellipse"
	"github.com/ironsheep/soccer-vision/internal/geometry"
	"github.com/ironsheep/soccer-vision/internal/imaging"
	"github.com/ironsheep/soccer-vision/internal/integral"
	"github.com/ironsheep/soccer-vision/internal/projection"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "perception_horizon").
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
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Debugw("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "perception_scan_ball":
		return s.handleScanBall(args)
	case "perception_project":
		return s.handleProject(args)
	case "perception_horizon":
		return s.handleHorizon(args)
	case "perception_pixel_radius":
		return s.handlePixelRadius(args)
	case "perception_fit_ellipse":
		return s.handleFitEllipse(args)
	case "perception_calibration":
		return s.handleCalibration(args)
	case "perception_overlay":
		return s.handleOverlay(args)
	default:
		return nil, errors.Errorf("unknown tool: %s", name)
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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// point is the wire form of an image or ground position.
type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p point) r2() r2.Point { return r2.Point{X: p.X, Y: p.Y} }

func fromR2(p r2.Point) point { return point{X: p.X, Y: p.Y} }

func toR2(pts []point) []r2.Point {
	return lo.Map(pts, func(p point, _ int) r2.Point { return p.r2() })
}

// poseArgs describes the camera pose a frame was taken with.
type poseArgs struct {
	Camera string `json:"camera"`

	Legacy bool     `json:"legacy"`
	Pitch  float64  `json:"pitch"`
	Roll   float64  `json:"roll"`
	Height *float64 `json:"height"`

	LegHeight float64 `json:"leg_height"`
	BodyYaw   float64 `json:"body_yaw"`
	BodyPitch float64 `json:"body_pitch"`
	BodyRoll  float64 `json:"body_roll"`
	HeadYaw   float64 `json:"head_yaw"`
	HeadPitch float64 `json:"head_pitch"`
}

// pose builds the camera pose, using the current calibration for kinematic
// poses.
func (s *Server) pose(a poseArgs) (camera.CameraPose, error) {
	if a.Legacy {
		h := s.tuning.GetLegacyCameraHeight()
		if a.Height != nil {
			h = *a.Height
		}
		if h <= 0 {
			return camera.CameraPose{}, errors.Errorf("camera height must be positive, got %g", h)
		}
		return camera.NewLegacyPose(geometry.PitchRoll{Pitch: a.Pitch, Roll: a.Roll}, h), nil
	}

	cam, err := camera.ParseCamera(a.Camera)
	if err != nil {
		return camera.CameraPose{}, err
	}
	if a.LegHeight <= 0 {
		return camera.CameraPose{}, errors.Errorf("leg_height must be positive, got %g", a.LegHeight)
	}
	return s.model.Pose(camera.KinematicState{
		LegHeight: a.LegHeight,
		Body:      geometry.YawPitchRoll{Yaw: a.BodyYaw, Pitch: a.BodyPitch, Roll: a.BodyRoll},
		Head:      geometry.YawPitch{Yaw: a.HeadYaw, Pitch: a.HeadPitch},
		Camera:    cam,
	}), nil
}

// === Frame Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadFrameInfo(s.cache, a.Path)
}

// === Ball Handlers ===

type scanBallArgs struct {
	poseArgs
	Path          string `json:"path"`
	PlausibleOnly bool   `json:"plausible_only"`
	Patches       bool   `json:"patches"`
}

type scanBallResult struct {
	Balls   []detection.Ball       `json:"balls"`
	Count   int                    `json:"count"`
	Patches []imaging.EncodedImage `json:"patches,omitempty"`
}

func (s *Server) handleScanBall(args json.RawMessage) (interface{}, error) {
	var a scanBallArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	balls, err := s.scan(img, a.poseArgs)
	if err != nil {
		return nil, err
	}
	if a.PlausibleOnly {
		balls = lo.Filter(balls, func(b detection.Ball, _ int) bool { return b.Plausible })
	}

	result := &scanBallResult{Balls: balls, Count: len(balls)}
	if a.Patches {
		for _, b := range balls {
			patch, err := s.ball.Patch(img, b)
			if err != nil {
				return nil, err
			}
			enc, err := imaging.EncodePNG(patch)
			if err != nil {
				return nil, err
			}
			result.Patches = append(result.Patches, *enc)
		}
	}
	return result, nil
}

// scan runs the ball detector and copies its result, which the detector
// reuses on the next frame.
func (s *Server) scan(img image.Image, pa poseArgs) ([]detection.Ball, error) {
	pose, err := s.pose(pa)
	if err != nil {
		return nil, err
	}
	balls, err := s.ball.Detect(img, pose)
	if err != nil {
		return nil, err
	}
	return append([]detection.Ball{}, balls...), nil
}

// === Geometry Handlers ===

type projectArgs struct {
	poseArgs
	Pixels      []point `json:"pixels"`
	PlaneHeight float64 `json:"plane_height"`
}

type projectedPixel struct {
	Pixel        point `json:"pixel"`
	Ground       point `json:"ground"`
	OK           bool  `json:"ok"`
	BelowHorizon bool  `json:"below_horizon"`
}

func (s *Server) handleProject(args json.RawMessage) (interface{}, error) {
	var a projectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Pixels) == 0 {
		return nil, errors.New("no pixels to project")
	}
	pose, err := s.pose(a.poseArgs)
	if err != nil {
		return nil, err
	}
	horizon, hasHorizon := s.engine.Horizon(pose)
	return lo.Map(a.Pixels, func(p point, _ int) projectedPixel {
		res := projectedPixel{
			Pixel:        p,
			BelowHorizon: hasHorizon && projection.BelowHorizon(p.r2(), horizon),
		}
		if g, ok := s.engine.ProjectAtHeight(pose, p.r2(), a.PlaneHeight); ok {
			res.Ground = fromR2(g)
			res.OK = true
		}
		return res
	}), nil
}

type horizonResult struct {
	Start point `json:"start"`
	End   point `json:"end"`
	OK    bool  `json:"ok"`
}

func (s *Server) handleHorizon(args json.RawMessage) (interface{}, error) {
	var a poseArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	pose, err := s.pose(a)
	if err != nil {
		return nil, err
	}
	line, ok := s.engine.Horizon(pose)
	if !ok {
		return horizonResult{}, nil
	}
	return horizonResult{Start: fromR2(line.Start), End: fromR2(line.End), OK: true}, nil
}

type pixelRadiusArgs struct {
	poseArgs
	Distance *float64 `json:"distance"`
	Ground   *point   `json:"ground"`
	Radius   *float64 `json:"radius"`
}

type pixelRadiusResult struct {
	Distance    float64 `json:"distance"`
	PixelRadius float64 `json:"pixel_radius"`
}

func (s *Server) handlePixelRadius(args json.RawMessage) (interface{}, error) {
	var a pixelRadiusArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	radius := s.tuning.GetBallRadius()
	if a.Radius != nil {
		radius = *a.Radius
	}
	if radius <= 0 {
		return nil, errors.Errorf("radius must be positive, got %g", radius)
	}

	var dist float64
	switch {
	case a.Distance != nil:
		dist = *a.Distance
	case a.Ground != nil:
		pose, err := s.pose(a.poseArgs)
		if err != nil {
			return nil, err
		}
		dist = s.engine.ObjectDistance(pose, a.Ground.r2(), radius)
	default:
		return nil, errors.New("either distance or ground is required")
	}
	if dist <= 0 {
		return nil, errors.Errorf("distance must be positive, got %g", dist)
	}
	return pixelRadiusResult{Distance: dist, PixelRadius: s.engine.PixelRadius(dist, radius)}, nil
}

type fitEllipseArgs struct {
	poseArgs
	Points       []point `json:"points"`
	CenterCircle bool    `json:"center_circle"`
}

type fitEllipseResult struct {
	Conic        ellipse.Conic           `json:"conic"`
	Ellipse      ellipse.Ellipse         `json:"ellipse"`
	CenterCircle *detection.CenterCircle `json:"center_circle,omitempty"`
}

func (s *Server) handleFitEllipse(args json.RawMessage) (interface{}, error) {
	var a fitEllipseArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	pts := toR2(a.Points)

	if a.CenterCircle {
		pose, err := s.pose(a.poseArgs)
		if err != nil {
			return nil, err
		}
		cc, err := s.circle.Detect(pose, pts)
		if err != nil {
			return nil, err
		}
		return fitEllipseResult{Conic: cc.Conic, Ellipse: cc.Ellipse, CenterCircle: &cc}, nil
	}

	conic, err := s.fitter.Fit(pts)
	if err != nil {
		return nil, err
	}
	el, err := conic.Params()
	if err != nil {
		return nil, err
	}
	return fitEllipseResult{Conic: conic, Ellipse: el}, nil
}

// === Calibration Handlers ===

type calibrationArgs struct {
	Action       string   `json:"action"`
	HeadPitch    *float64 `json:"head_pitch"`
	HeadRoll     *float64 `json:"head_roll"`
	BodyPitch    *float64 `json:"body_pitch"`
	BodyRoll     *float64 `json:"body_roll"`
	PixelOffsetX *int     `json:"pixel_offset_x"`
	PixelOffsetY *int     `json:"pixel_offset_y"`
}

type calibrationResult struct {
	calibration.Offsets
	Path      string `json:"path,omitempty"`
	Persisted bool   `json:"persisted"`
}

func (s *Server) handleCalibration(args json.RawMessage) (interface{}, error) {
	var a calibrationArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	switch a.Action {
	case "", "show":
	case "set":
		o := s.store.Current()
		setIf(&o.HeadPitch, a.HeadPitch)
		setIf(&o.HeadRoll, a.HeadRoll)
		setIf(&o.BodyPitch, a.BodyPitch)
		setIf(&o.BodyRoll, a.BodyRoll)
		setIf(&o.PixelOffsetX, a.PixelOffsetX)
		setIf(&o.PixelOffsetY, a.PixelOffsetY)
		if err := s.store.Update(o); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unknown calibration action %q", a.Action)
	}
	return calibrationResult{
		Offsets:   s.store.Current(),
		Path:      s.store.Path(),
		Persisted: s.store.Path() != "",
	}, nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// === Debugging Handlers ===

type overlayArgs struct {
	poseArgs
	Path          string  `json:"path"`
	Scan          bool    `json:"scan"`
	EllipsePoints []point `json:"ellipse_points"`
	GridSpacing   int     `json:"grid_spacing"`
}

func (s *Server) handleOverlay(args json.RawMessage) (interface{}, error) {
	var a overlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.GridSpacing < 0 {
		return nil, errors.Errorf("grid_spacing must not be negative, got %d", a.GridSpacing)
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	pose, err := s.pose(a.poseArgs)
	if err != nil {
		return nil, err
	}

	o := imaging.Overlay{GridSpacing: a.GridSpacing}
	if line, ok := s.engine.Horizon(pose); ok {
		o.Horizon = &line
	}
	if a.Scan {
		balls, err := s.scan(img, a.poseArgs)
		if err != nil {
			return nil, err
		}
		o.Hypotheses = lo.Map(balls, func(b detection.Ball, _ int) integral.Hypothesis { return b.Hypothesis })
	}
	if len(a.EllipsePoints) > 0 {
		conic, err := s.fitter.Fit(toR2(a.EllipsePoints))
		if err != nil {
			return nil, err
		}
		el, err := conic.Params()
		if err != nil {
			return nil, err
		}
		o.Ellipses = []ellipse.Ellipse{el}
	}
	return imaging.RenderOverlay(img, o)
}
