package detection

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ironsheep/soccer-vision/internal/camera"
	"github.com/ironsheep/soccer-vision/internal/imaging"
	"github.com/ironsheep/soccer-vision/internal/integral"
	"github.com/ironsheep/soccer-vision/internal/logging"
	"github.com/ironsheep/soccer-vision/internal/projection"
)

// BallConfig configures a BallDetector.
type BallConfig struct {
	Scorer integral.Config

	// BlurSigma pre-smooths frames before scanning. Zero disables it.
	BlurSigma float64

	// RadiusTolerance is the largest accepted ratio between the scorer's
	// radius and the expected radius, in either direction.
	RadiusTolerance float64

	// PatchSize is the edge length of classifier patches in pixels.
	PatchSize int
}

// DefaultBallConfig returns the settings used on the robot.
func DefaultBallConfig() BallConfig {
	return BallConfig{
		Scorer:          integral.DefaultConfig(),
		RadiusTolerance: 1.6,
		PatchSize:       32,
	}
}

// Ball is a scorer hypothesis placed on the field.
type Ball struct {
	integral.Hypothesis

	// Ground is the ball center in robot coordinates. Only valid when
	// OnGround is set.
	Ground   r2.Point `json:"ground"`
	OnGround bool     `json:"on_ground"`

	// Distance from the camera to the ball center in meters.
	Distance float64 `json:"distance"`

	// ExpectedRadius is the pixel radius a ball at Ground would have.
	ExpectedRadius float64 `json:"expected_radius"`

	Plausible bool `json:"plausible"`
}

// BallDetector finds ball candidates in frames of one camera.
type BallDetector struct {
	cfg    BallConfig
	engine *projection.Engine
	scorer *integral.Scorer
	logger *zap.SugaredLogger
	balls  []Ball
}

// NewBallDetector allocates a detector for frames of the engine's size.
func NewBallDetector(engine *projection.Engine, cfg BallConfig, logger *zap.SugaredLogger) (*BallDetector, error) {
	if cfg.RadiusTolerance < 1 {
		return nil, errors.Errorf("radius tolerance %.2f must be at least 1", cfg.RadiusTolerance)
	}
	if cfg.PatchSize <= 0 {
		return nil, errors.Errorf("invalid patch size %d", cfg.PatchSize)
	}
	intr := engine.Intrinsics()
	scorer, err := integral.NewScorer(cfg.Scorer, intr.Width, intr.Height)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create ball scorer")
	}
	return &BallDetector{
		cfg:    cfg,
		engine: engine,
		scorer: scorer,
		logger: logging.OrNop(logger),
		balls:  make([]Ball, 0, cfg.Scorer.MaxHypotheses),
	}, nil
}

// Scorer exposes the underlying scorer, e.g. for its block ratings.
func (d *BallDetector) Scorer() *integral.Scorer { return d.scorer }

// Detect scans img taken with pose. The returned slice is reused by the next
// call.
func (d *BallDetector) Detect(img image.Image, pose camera.CameraPose) ([]Ball, error) {
	frame := imaging.Blur(img, d.cfg.BlurSigma)
	params := integral.ScanParams{
		CameraHeight: pose.Translation().Z,
		CameraPitch:  pose.EffectivePitchRoll().Pitch,
	}
	hyps, err := d.scorer.Scan(frame, params)
	if err != nil {
		return nil, err
	}

	d.balls = d.balls[:0]
	for _, h := range hyps {
		b := d.locate(pose, h)
		d.logger.Debugw("ball hypothesis",
			"camera", pose.Camera(),
			"center", h.Center,
			"radius", h.Radius,
			"score", h.Score,
			"ground", b.Ground,
			"expected_radius", b.ExpectedRadius,
			"plausible", b.Plausible)
		d.balls = append(d.balls, b)
	}
	return d.balls, nil
}

// locate projects a hypothesis onto the plane at ball-radius height.
func (d *BallDetector) locate(pose camera.CameraPose, h integral.Hypothesis) Ball {
	b := Ball{Hypothesis: h}
	radius := d.cfg.Scorer.BallRadius
	px := r2.Point{X: float64(h.Center.X), Y: float64(h.Center.Y)}

	ground, ok := d.engine.ProjectAtHeight(pose, px, radius)
	if !ok {
		return b
	}
	b.Ground = ground
	b.OnGround = true
	b.Distance = d.engine.ObjectDistance(pose, ground, radius)
	b.ExpectedRadius = d.engine.PixelRadius(b.Distance, radius)

	if h.Radius > 0 && b.ExpectedRadius > 0 && !math.IsInf(b.ExpectedRadius, 1) {
		ratio := h.Radius / b.ExpectedRadius
		if ratio < 1 {
			ratio = 1 / ratio
		}
		b.Plausible = ratio <= d.cfg.RadiusTolerance
	}
	return b
}

// Patch cuts the classifier patch for b out of img.
func (d *BallDetector) Patch(img image.Image, b Ball) (*image.NRGBA, error) {
	return imaging.CropPatch(img, b.Center, b.Radius, d.cfg.PatchSize)
}
