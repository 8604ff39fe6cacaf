package detection

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/soccer-vision/internal/camera"
	"github.com/ironsheep/soccer-vision/internal/ellipse"
	"github.com/ironsheep/soccer-vision/internal/logging"
	"github.com/ironsheep/soccer-vision/internal/projection"
)

// ErrNoCircle is returned when the fitted ellipse does not project to a circle
// of the expected size.
var ErrNoCircle = errors.New("no center circle")

// CenterCircleConfig configures a CenterCircleDetector.
type CenterCircleConfig struct {
	// Radius is the center circle radius in meters.
	Radius float64

	// Samples is the number of ellipse points projected onto the ground.
	Samples int

	// MaxError is the largest accepted radius difference in meters.
	MaxError float64
}

// DefaultCenterCircleConfig returns the settings for a standard field.
func DefaultCenterCircleConfig() CenterCircleConfig {
	return CenterCircleConfig{Radius: 0.75, Samples: 32, MaxError: 0.25}
}

// CenterCircle is an accepted center circle observation.
type CenterCircle struct {
	// Center in robot coordinates.
	Center r2.Point `json:"center"`
	Radius float64  `json:"radius"`
	Spread float64  `json:"spread"`

	Conic   ellipse.Conic   `json:"conic"`
	Ellipse ellipse.Ellipse `json:"ellipse"`
}

// CenterCircleDetector recognizes the center circle from image edge points.
type CenterCircleDetector struct {
	cfg    CenterCircleConfig
	engine *projection.Engine
	fitter *ellipse.Fitter
	logger *zap.SugaredLogger
}

// NewCenterCircleDetector returns a detector using engine for projection.
func NewCenterCircleDetector(engine *projection.Engine, cfg CenterCircleConfig, logger *zap.SugaredLogger) (*CenterCircleDetector, error) {
	if cfg.Radius <= 0 || cfg.MaxError <= 0 {
		return nil, errors.Errorf("invalid center circle radius %.2f or max error %.2f", cfg.Radius, cfg.MaxError)
	}
	if cfg.Samples < 5 {
		return nil, errors.Errorf("center circle needs at least 5 samples, got %d", cfg.Samples)
	}
	return &CenterCircleDetector{
		cfg:    cfg,
		engine: engine,
		fitter: ellipse.NewFitter(),
		logger: logging.OrNop(logger),
	}, nil
}

// Detect fits points and checks the result against the known circle.
//
// Errors wrap ellipse.ErrInsufficientData, ellipse.ErrNumericalDegeneracy or
// ellipse.ErrNotEllipse when the fit fails, projection.ErrGeometricDegeneracy
// when the ellipse does not reach the ground, and ErrNoCircle when the ground
// circle has the wrong size.
func (d *CenterCircleDetector) Detect(pose camera.CameraPose, points []r2.Point) (CenterCircle, error) {
	conic, err := d.fitter.Fit(points)
	if err != nil {
		return CenterCircle{}, errors.Wrap(err, "center circle fit failed")
	}
	el, err := conic.Params()
	if err != nil {
		return CenterCircle{}, errors.Wrap(err, "center circle fit failed")
	}
	ground, err := d.engine.ProjectConic(pose, el, d.cfg.Samples)
	if err != nil {
		return CenterCircle{}, errors.Wrap(err, "center circle projection failed")
	}

	if diff := math.Abs(ground.Radius - d.cfg.Radius); diff > d.cfg.MaxError {
		d.logger.Debugw("center circle rejected",
			"radius", ground.Radius, "expected", d.cfg.Radius, "points", len(points))
		return CenterCircle{}, errors.Wrapf(ErrNoCircle, "ground radius %.3f m, expected %.3f m", ground.Radius, d.cfg.Radius)
	}

	d.logger.Debugw("center circle", "center", ground.Center, "radius", ground.Radius, "spread", ground.Spread)
	return CenterCircle{
		Center:  ground.Center,
		Radius:  ground.Radius,
		Spread:  ground.Spread,
		Conic:   conic,
		Ellipse: el,
	}, nil
}
