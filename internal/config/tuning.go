// Package config loads the perception tuning file.
//
// The file is JSON. Every field is optional; the Get* accessors supply the
// defaults for anything left out, so an empty object is a valid configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ironsheep/soccer-vision/internal/detection"
	"github.com/ironsheep/soccer-vision/internal/geometry"
	"github.com/ironsheep/soccer-vision/internal/integral"
	"github.com/ironsheep/soccer-vision/internal/projection"
)

// maxFileSize bounds the tuning file.
const maxFileSize = 1 << 20

// Tuning holds the perception parameters.
type Tuning struct {
	// Camera
	ImageWidth     *int     `json:"image_width,omitempty"`
	ImageHeight    *int     `json:"image_height,omitempty"`
	FieldOfViewDeg *float64 `json:"field_of_view_deg,omitempty"`
	MinPixelRadius *float64 `json:"min_pixel_radius,omitempty"`
	BallRadius     *float64 `json:"ball_radius,omitempty"`

	// Ball scorer
	SubSample     *int      `json:"sub_sample,omitempty"`
	BlockSize     *int      `json:"block_size,omitempty"`
	Channel       *string   `json:"channel,omitempty"`
	RingFactors   []float64 `json:"ring_factors,omitempty"` // inner, ball, outer
	MinScore      *float64  `json:"min_score,omitempty"`
	MaxHypotheses *int      `json:"max_hypotheses,omitempty"`
	MinRadius     *float64  `json:"min_radius,omitempty"`
	MaxBlockMean  *float64  `json:"max_block_mean,omitempty"`

	// Detectors
	PreBlurSigma         *float64 `json:"pre_blur_sigma,omitempty"`
	RadiusTolerance      *float64 `json:"radius_tolerance,omitempty"`
	PatchSize            *int     `json:"patch_size,omitempty"`
	CenterCircleRadius   *float64 `json:"center_circle_radius,omitempty"`
	CenterCircleSamples  *int     `json:"center_circle_samples,omitempty"`
	CenterCircleMaxError *float64 `json:"center_circle_max_error,omitempty"`

	// Replay of recordings that only store a camera pitch/roll pair.
	LegacyCameraHeight *float64 `json:"legacy_camera_height,omitempty"`

	CalibrationFile *string `json:"calibration_file,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }

// Load reads and validates a tuning file.
func Load(path string) (*Tuning, error) {
	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ".json" {
		return nil, errors.Errorf("config file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(clean)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat config file")
	}
	if info.Size() > maxFileSize {
		return nil, errors.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	t := &Tuning{}
	if err := json.Unmarshal(data, t); err != nil {
		return nil, errors.Wrap(err, "failed to parse config JSON")
	}
	if err := t.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return t, nil
}

// Validate checks the effective values and reports every problem found.
func (t *Tuning) Validate() error {
	var err error
	if w, h := t.GetImageWidth(), t.GetImageHeight(); w <= 0 || h <= 0 {
		err = multierr.Append(err, errors.Errorf("image size must be positive, got %dx%d", w, h))
	}
	if r := t.GetMinPixelRadius(); r < 0 {
		err = multierr.Append(err, errors.Errorf("min_pixel_radius must not be negative, got %g", r))
	}
	if t.RingFactors != nil && len(t.RingFactors) != 3 {
		err = multierr.Append(err, errors.Errorf("ring_factors needs exactly 3 values, got %d", len(t.RingFactors)))
	}
	if _, cerr := integral.ParseChannel(t.GetChannel()); cerr != nil {
		err = multierr.Append(err, cerr)
	} else if len(t.RingFactors) == 0 || len(t.RingFactors) == 3 {
		sc, _ := t.ScorerConfig()
		err = multierr.Append(err, sc.Validate())
	}
	if s := t.GetPreBlurSigma(); s < 0 {
		err = multierr.Append(err, errors.Errorf("pre_blur_sigma must not be negative, got %g", s))
	}
	if r := t.GetRadiusTolerance(); r < 1 {
		err = multierr.Append(err, errors.Errorf("radius_tolerance is a ratio and must be at least 1, got %g", r))
	}
	if p := t.GetPatchSize(); p < 8 {
		err = multierr.Append(err, errors.Errorf("patch_size must be at least 8, got %d", p))
	}
	if r := t.GetCenterCircleRadius(); r <= 0 {
		err = multierr.Append(err, errors.Errorf("center_circle_radius must be positive, got %g", r))
	}
	if n := t.GetCenterCircleSamples(); n < 8 {
		err = multierr.Append(err, errors.Errorf("center_circle_samples must be at least 8, got %d", n))
	}
	if e := t.GetCenterCircleMaxError(); e <= 0 {
		err = multierr.Append(err, errors.Errorf("center_circle_max_error must be positive, got %g", e))
	}
	if h := t.GetLegacyCameraHeight(); h <= 0 {
		err = multierr.Append(err, errors.Errorf("legacy_camera_height must be positive, got %g", h))
	}
	return err
}

// GetImageWidth returns the image_width value or the default.
func (t *Tuning) GetImageWidth() int {
	if t.ImageWidth == nil {
		return 640
	}
	return *t.ImageWidth
}

// GetImageHeight returns the image_height value or the default.
func (t *Tuning) GetImageHeight() int {
	if t.ImageHeight == nil {
		return 480
	}
	return *t.ImageHeight
}

// GetFieldOfView returns the horizontal field of view in radians.
func (t *Tuning) GetFieldOfView() float64 {
	if t.FieldOfViewDeg == nil {
		return geometry.Deg(60.97)
	}
	return geometry.Deg(*t.FieldOfViewDeg)
}

// GetMinPixelRadius returns the min_pixel_radius value or the default.
func (t *Tuning) GetMinPixelRadius() float64 {
	if t.MinPixelRadius == nil {
		return 4
	}
	return *t.MinPixelRadius
}

// GetBallRadius returns the ball_radius value or the default.
func (t *Tuning) GetBallRadius() float64 {
	if t.BallRadius == nil {
		return 0.05
	}
	return *t.BallRadius
}

// GetChannel returns the channel value or the default.
func (t *Tuning) GetChannel() string {
	if t.Channel == nil {
		return integral.Luma.String()
	}
	return *t.Channel
}

// GetPreBlurSigma returns the pre_blur_sigma value or the default. Zero
// disables blurring.
func (t *Tuning) GetPreBlurSigma() float64 {
	if t.PreBlurSigma == nil {
		return 0
	}
	return *t.PreBlurSigma
}

// GetRadiusTolerance returns the largest accepted ratio between the scorer's
// radius and the radius the camera model predicts at the projected position.
func (t *Tuning) GetRadiusTolerance() float64 {
	if t.RadiusTolerance == nil {
		return 1.6
	}
	return *t.RadiusTolerance
}

// GetPatchSize returns the classifier patch edge in pixels.
func (t *Tuning) GetPatchSize() int {
	if t.PatchSize == nil {
		return 32
	}
	return *t.PatchSize
}

// GetCenterCircleRadius returns the field's center circle radius in meters.
func (t *Tuning) GetCenterCircleRadius() float64 {
	if t.CenterCircleRadius == nil {
		return 0.75
	}
	return *t.CenterCircleRadius
}

// GetCenterCircleSamples returns how many ellipse points are projected to
// estimate the ground circle.
func (t *Tuning) GetCenterCircleSamples() int {
	if t.CenterCircleSamples == nil {
		return 32
	}
	return *t.CenterCircleSamples
}

// GetCenterCircleMaxError returns the largest accepted difference in meters
// between the projected and the known center circle radius.
func (t *Tuning) GetCenterCircleMaxError() float64 {
	if t.CenterCircleMaxError == nil {
		return 0.25
	}
	return *t.CenterCircleMaxError
}

// GetLegacyCameraHeight returns the camera height assumed for legacy poses.
func (t *Tuning) GetLegacyCameraHeight() float64 {
	if t.LegacyCameraHeight == nil {
		return 0.5
	}
	return *t.LegacyCameraHeight
}

// GetCalibrationFile returns the calibration file path or the default.
func (t *Tuning) GetCalibrationFile() string {
	if t.CalibrationFile == nil || *t.CalibrationFile == "" {
		return "calibration.toml"
	}
	return *t.CalibrationFile
}

// Intrinsics returns the camera description for the projection engine.
func (t *Tuning) Intrinsics() projection.Intrinsics {
	return projection.Intrinsics{
		Width:          t.GetImageWidth(),
		Height:         t.GetImageHeight(),
		FieldOfView:    t.GetFieldOfView(),
		MinPixelRadius: t.GetMinPixelRadius(),
	}
}

// ScorerConfig returns the ball scorer settings.
func (t *Tuning) ScorerConfig() (integral.Config, error) {
	cfg := integral.DefaultConfig()
	ch, err := integral.ParseChannel(t.GetChannel())
	if err != nil {
		return cfg, err
	}
	cfg.Channel = ch
	cfg.FieldOfView = t.GetFieldOfView()
	cfg.BallRadius = t.GetBallRadius()
	if t.SubSample != nil {
		cfg.SubSample = *t.SubSample
	}
	if t.BlockSize != nil {
		cfg.BlockSize = *t.BlockSize
	}
	if len(t.RingFactors) == 3 {
		copy(cfg.RingFactors[:], t.RingFactors)
	}
	if t.MinScore != nil {
		cfg.MinScore = *t.MinScore
	}
	if t.MaxHypotheses != nil {
		cfg.MaxHypotheses = *t.MaxHypotheses
	}
	if t.MinRadius != nil {
		cfg.MinRadius = *t.MinRadius
	}
	if t.MaxBlockMean != nil {
		cfg.MaxBlockMean = *t.MaxBlockMean
	}
	return cfg, nil
}

// BallConfig returns the ball detector settings.
func (t *Tuning) BallConfig() (detection.BallConfig, error) {
	scorer, err := t.ScorerConfig()
	if err != nil {
		return detection.BallConfig{}, err
	}
	return detection.BallConfig{
		Scorer:          scorer,
		BlurSigma:       t.GetPreBlurSigma(),
		RadiusTolerance: t.GetRadiusTolerance(),
		PatchSize:       t.GetPatchSize(),
	}, nil
}

// CenterCircleConfig returns the center circle detector settings.
func (t *Tuning) CenterCircleConfig() detection.CenterCircleConfig {
	return detection.CenterCircleConfig{
		Radius:   t.GetCenterCircleRadius(),
		Samples:  t.GetCenterCircleSamples(),
		MaxError: t.GetCenterCircleMaxError(),
	}
}
