package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/soccer-vision/internal/calibration"
	"github.com/ironsheep/soccer-vision/internal/camera"
	"github.com/ironsheep/soccer-vision/internal/config"
	"github.com/ironsheep/soccer-vision/internal/detection"
	"github.com/ironsheep/soccer-vision/internal/ellipse"
	"github.com/ironsheep/soccer-vision/internal/imaging"
	"github.com/ironsheep/soccer-vision/internal/logging"
	"github.com/ironsheep/soccer-vision/internal/projection"
)

// JSON-RPC error codes.
const (
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeToolFailed     = -32000
)

// Server handles MCP protocol communication
type Server struct {
	version string
	logger  *zap.SugaredLogger

	cache  *imaging.FrameCache
	tuning *config.Tuning
	store  *calibration.Store
	model  *camera.Model
	engine *projection.Engine
	ball   *detection.BallDetector
	circle *detection.CenterCircleDetector
	fitter *ellipse.Fitter
}

// Options configures a Server.
type Options struct {
	// Tuning holds the perception parameters. Nil means defaults.
	Tuning *config.Tuning

	// Store serves calibration offsets. Nil means zero offsets that cannot
	// be persisted.
	Store *calibration.Store

	Logger  *zap.SugaredLogger
	Version string
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a server with detectors sized for the tuned frame size.
func New(opts Options) (*Server, error) {
	tuning := opts.Tuning
	if tuning == nil {
		tuning = &config.Tuning{}
	}
	if err := tuning.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid tuning")
	}
	store := opts.Store
	if store == nil {
		store = calibration.NewStaticStore(calibration.Offsets{})
	}
	logger := logging.OrNop(opts.Logger)

	engine := projection.NewEngine(tuning.Intrinsics())
	ballCfg, err := tuning.BallConfig()
	if err != nil {
		return nil, err
	}
	ball, err := detection.NewBallDetector(engine, ballCfg, logger.Named("ball"))
	if err != nil {
		return nil, err
	}
	circle, err := detection.NewCenterCircleDetector(engine, tuning.CenterCircleConfig(), logger.Named("center_circle"))
	if err != nil {
		return nil, err
	}

	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Server{
		version: version,
		logger:  logger,
		cache:   imaging.NewFrameCache(),
		tuning:  tuning,
		store:   store,
		model:   camera.NewModel(store),
		engine:  engine,
		ball:    ball,
		circle:  circle,
		fitter:  ellipse.NewFitter(),
	}, nil
}

// Run reads requests from in, one per line, and writes responses to out until
// in is exhausted or ctx is canceled.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warnw("failed to parse request", "error", err)
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Errorw("failed to encode response", "error", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "scanner error")
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	s.logger.Debugw("request", "method", req.Method, "id", req.ID)
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    codeMethodNotFound,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "soccer-vision",
				"version": s.version,
			},
		},
	}
}
