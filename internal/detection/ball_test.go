package detection

import (
	"image"
	"image/color"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ironsheep/soccer-vision/internal/camera"
	"github.com/ironsheep/soccer-vision/internal/geometry"
	"github.com/ironsheep/soccer-vision/internal/integral"
	"github.com/ironsheep/soccer-vision/internal/projection"
)

// fieldFrame draws a dark disc on a uniform bright 640x480 field.
func fieldFrame(center r2.Point, radius float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 640, 480))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	if radius <= 0 {
		return img
	}
	for y := int(center.Y - radius - 2); y < int(center.Y+radius+2); y++ {
		for x := int(center.X - radius - 2); x < int(center.X+radius+2); x++ {
			dx, dy := float64(x)+0.5-center.X, float64(y)+0.5-center.Y
			if dx*dx+dy*dy <= radius*radius {
				img.SetGray(x, y, color.Gray{Y: 40})
			}
		}
	}
	return img
}

func newBallDetector(t *testing.T) (*BallDetector, *projection.Engine) {
	t.Helper()
	engine := projection.NewEngine(projection.DefaultIntrinsics())
	d, err := NewBallDetector(engine, DefaultBallConfig(), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return d, engine
}

var standing = camera.NewLegacyPose(geometry.PitchRoll{Pitch: 0.4}, 0.5)

func TestBallDetectorFindsBall(t *testing.T) {
	d, engine := newBallDetector(t)
	const ballRadius = 0.05

	ground := r2.Point{X: 1.2, Y: -0.2}
	px, ok := engine.RelToImage(standing, geometry.Lift(ground, ballRadius))
	require.True(t, ok)
	radius := engine.PixelRadiusAt(standing, ground, ballRadius)

	balls, err := d.Detect(fieldFrame(px, radius), standing)
	require.NoError(t, err)
	require.Len(t, balls, 1)

	b := balls[0]
	assert.InDelta(t, px.X, float64(b.Center.X), 4)
	assert.InDelta(t, px.Y, float64(b.Center.Y), 4)
	require.True(t, b.OnGround)
	assert.InDelta(t, ground.X, b.Ground.X, 0.1)
	assert.InDelta(t, ground.Y, b.Ground.Y, 0.1)
	assert.InDelta(t, geometry.Lift(ground, ballRadius).Sub(standing.Translation()).Norm(), b.Distance, 0.1)
	assert.InDelta(t, radius, b.ExpectedRadius, 2)
	assert.True(t, b.Plausible)

	patch, err := d.Patch(fieldFrame(px, radius), b)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 32), patch.Bounds())
}

func TestBallDetectorEmptyField(t *testing.T) {
	d, _ := newBallDetector(t)

	balls, err := d.Detect(fieldFrame(r2.Point{}, 0), standing)
	require.NoError(t, err)
	assert.Empty(t, balls)
}

func TestBallDetectorWithBlur(t *testing.T) {
	engine := projection.NewEngine(projection.DefaultIntrinsics())
	cfg := DefaultBallConfig()
	cfg.BlurSigma = 1
	d, err := NewBallDetector(engine, cfg, nil)
	require.NoError(t, err)

	ground := r2.Point{X: 1.0, Y: 0.1}
	px, ok := engine.RelToImage(standing, geometry.Lift(ground, 0.05))
	require.True(t, ok)

	balls, err := d.Detect(fieldFrame(px, engine.PixelRadiusAt(standing, ground, 0.05)), standing)
	require.NoError(t, err)
	require.NotEmpty(t, balls)
	assert.InDelta(t, px.X, float64(balls[0].Center.X), 4)
	assert.InDelta(t, px.Y, float64(balls[0].Center.Y), 4)
}

func TestBallDetectorWrongFrameSize(t *testing.T) {
	d, _ := newBallDetector(t)

	_, err := d.Detect(image.NewGray(image.Rect(0, 0, 320, 240)), standing)
	assert.Error(t, err)
}

func TestLocatePlausibility(t *testing.T) {
	d, engine := newBallDetector(t)

	center := image.Pt(320, 300)
	ground, ok := engine.ProjectAtHeight(standing, r2.Point{X: 320, Y: 300}, 0.05)
	require.True(t, ok)
	expected := engine.PixelRadiusAt(standing, ground, 0.05)

	tests := []struct {
		name      string
		radius    float64
		plausible bool
	}{
		{"matching", expected, true},
		{"slightly large", expected * 1.4, true},
		{"slightly small", expected / 1.4, true},
		{"far too large", expected * 3, false},
		{"far too small", expected / 3, false},
		{"zero", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := d.locate(standing, integral.Hypothesis{Center: center, Radius: tt.radius, Score: 100})
			assert.True(t, b.OnGround)
			assert.InDelta(t, expected, b.ExpectedRadius, 1e-9)
			assert.Equal(t, tt.plausible, b.Plausible)
		})
	}
}

func TestLocateAboveHorizon(t *testing.T) {
	d, _ := newBallDetector(t)
	level := camera.NewLegacyPose(geometry.PitchRoll{}, 0.5)

	b := d.locate(level, integral.Hypothesis{Center: image.Pt(320, 100), Radius: 10, Score: 100})
	assert.False(t, b.OnGround)
	assert.False(t, b.Plausible)
	assert.Zero(t, b.Distance)
}

func TestNewBallDetectorRejectsBadConfig(t *testing.T) {
	engine := projection.NewEngine(projection.DefaultIntrinsics())

	cfg := DefaultBallConfig()
	cfg.RadiusTolerance = 0.5
	_, err := NewBallDetector(engine, cfg, nil)
	assert.Error(t, err)

	cfg = DefaultBallConfig()
	cfg.PatchSize = 0
	_, err = NewBallDetector(engine, cfg, nil)
	assert.Error(t, err)

	cfg = DefaultBallConfig()
	cfg.Scorer.SubSample = 3
	_, err = NewBallDetector(engine, cfg, nil)
	assert.Error(t, err)
}
