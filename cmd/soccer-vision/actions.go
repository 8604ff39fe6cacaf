package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ironsheep/soccer-vision/internal/calibration"
	"github.com/ironsheep/soccer-vision/internal/camera"
	"github.com/ironsheep/soccer-vision/internal/config"
	"github.com/ironsheep/soccer-vision/internal/detection"
	"github.com/ironsheep/soccer-vision/internal/ellipse"
	"github.com/ironsheep/soccer-vision/internal/geometry"
	"github.com/ironsheep/soccer-vision/internal/imaging"
	"github.com/ironsheep/soccer-vision/internal/logging"
	"github.com/ironsheep/soccer-vision/internal/projection"
	"github.com/ironsheep/soccer-vision/internal/server"
)

// env is what every command needs: tuning, calibration and a logger.
type env struct {
	logger *zap.SugaredLogger
	tuning *config.Tuning
	store  *calibration.Store
	engine *projection.Engine
}

func newEnv(c *cli.Context) (*env, error) {
	logger, err := logging.New("soccer-vision", c.Bool(flagDebug))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create logger")
	}

	tuning := &config.Tuning{}
	if path := c.Path(flagConfig); path != "" {
		if tuning, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	calPath := tuning.GetCalibrationFile()
	if path := c.Path(flagCalibration); path != "" {
		calPath = path
	}
	if info, err := os.Stat(calPath); err == nil && info.IsDir() {
		calPath = filepath.Join(calPath, calibration.DefaultFileName)
	}
	store, err := calibration.NewStore(calPath, logger.Named("calibration"))
	if err != nil {
		return nil, err
	}

	return &env{
		logger: logger,
		tuning: tuning,
		store:  store,
		engine: projection.NewEngine(tuning.Intrinsics()),
	}, nil
}

// pose builds the camera pose selected by poseFlags.
func (e *env) pose(c *cli.Context) (camera.CameraPose, error) {
	if c.Bool(flagLegacy) {
		h := e.tuning.GetLegacyCameraHeight()
		if c.IsSet(flagHeight) {
			h = c.Float64(flagHeight)
		}
		if h <= 0 {
			return camera.CameraPose{}, errors.Errorf("camera height must be positive, got %g", h)
		}
		return camera.NewLegacyPose(geometry.PitchRoll{Pitch: c.Float64(flagPitch), Roll: c.Float64(flagRoll)}, h), nil
	}

	cam, err := camera.ParseCamera(c.String(flagCamera))
	if err != nil {
		return camera.CameraPose{}, err
	}
	return camera.NewModel(e.store).Pose(camera.KinematicState{
		LegHeight: c.Float64(flagLegHeight),
		Body:      geometry.YawPitchRoll{Pitch: c.Float64(flagBodyPitch), Roll: c.Float64(flagBodyRoll)},
		Head:      geometry.YawPitch{Yaw: c.Float64(flagHeadYaw), Pitch: c.Float64(flagHeadPitch)},
		Camera:    cam,
	}), nil
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ServeAction runs the tool server until stdin closes or a signal arrives.
func ServeAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	defer e.logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.store.Watch(ctx); err != nil {
			e.logger.Warnw("calibration hot reload disabled", "error", err)
		}
	}()

	srv, err := server.New(server.Options{
		Tuning:  e.tuning,
		Store:   e.store,
		Logger:  e.logger.Named("server"),
		Version: Version,
	})
	if err != nil {
		return err
	}
	e.logger.Debugw("server starting", "version", Version, "build_time", BuildTime, "commit", GitCommit)
	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "server error")
	}
	return nil
}

// ScanAction prints the ball hypotheses found in a frame.
func ScanAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("scan needs exactly one frame")
	}
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	pose, err := e.pose(c)
	if err != nil {
		return err
	}
	cfg, err := e.tuning.BallConfig()
	if err != nil {
		return err
	}
	detector, err := detection.NewBallDetector(e.engine, cfg, e.logger.Named("ball"))
	if err != nil {
		return err
	}

	path := c.Args().First()
	img, err := imaging.NewFrameCache().Load(path)
	if err != nil {
		return err
	}
	balls, err := detector.Detect(img, pose)
	if err != nil {
		return err
	}

	if c.Bool(flagPatches) {
		base := strings.TrimSuffix(path, filepath.Ext(path))
		for i, b := range balls {
			patch, err := detector.Patch(img, b)
			if err != nil {
				return err
			}
			out := fmt.Sprintf("%s_ball%d.png", base, i)
			if err := writePNG(out, patch); err != nil {
				return err
			}
			e.logger.Infow("patch written", "path", out, "score", b.Score)
		}
	}
	return printJSON(c, balls)
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create patch file")
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, img)
}

// HorizonAction prints the horizon line for the selected pose.
func HorizonAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	pose, err := e.pose(c)
	if err != nil {
		return err
	}
	line, ok := e.engine.Horizon(pose)
	if !ok {
		return errors.Wrap(projection.ErrGeometricDegeneracy, "camera looks straight up or down")
	}
	return printJSON(c, line)
}

// ProjectAction projects one pixel onto a horizontal plane.
func ProjectAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	pose, err := e.pose(c)
	if err != nil {
		return err
	}
	px := r2.Point{X: c.Float64(flagX), Y: c.Float64(flagY)}
	g, ok := e.engine.ProjectAtHeight(pose, px, c.Float64(flagPlaneHeight))
	if !ok {
		return errors.Errorf("pixel (%g, %g) does not reach the plane", px.X, px.Y)
	}
	return printJSON(c, g)
}

// FitAction fits an ellipse to a JSON array of {"x":..,"y":..} points.
func FitAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("fit needs exactly one points file")
	}
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(c.Args().First())
	if err != nil {
		return errors.Wrap(err, "failed to read points")
	}
	var raw []struct{ X, Y float64 }
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "failed to parse points")
	}
	pts := lo.Map(raw, func(p struct{ X, Y float64 }, _ int) r2.Point { return r2.Point{X: p.X, Y: p.Y} })

	if c.Bool(flagCircle) {
		pose, err := e.pose(c)
		if err != nil {
			return err
		}
		detector, err := detection.NewCenterCircleDetector(e.engine, e.tuning.CenterCircleConfig(), e.logger.Named("center_circle"))
		if err != nil {
			return err
		}
		cc, err := detector.Detect(pose, pts)
		if err != nil {
			return err
		}
		return printJSON(c, cc)
	}

	conic, err := ellipse.Fit(pts)
	if err != nil {
		return err
	}
	el, err := conic.Params()
	if err != nil {
		return err
	}
	return printJSON(c, map[string]interface{}{"conic": conic, "ellipse": el})
}

// CalibrationShowAction prints the active offsets.
func CalibrationShowAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	return printJSON(c, e.store.Current())
}

// CalibrationSetAction changes the offsets named on the command line.
func CalibrationSetAction(c *cli.Context) error {
	e, err := newEnv(c)
	if err != nil {
		return err
	}
	o := e.store.Current()
	if c.IsSet(flagHeadPitchOffset) {
		o.HeadPitch = c.Float64(flagHeadPitchOffset)
	}
	if c.IsSet(flagHeadRollOffset) {
		o.HeadRoll = c.Float64(flagHeadRollOffset)
	}
	if c.IsSet(flagBodyPitchOffset) {
		o.BodyPitch = c.Float64(flagBodyPitchOffset)
	}
	if c.IsSet(flagBodyRollOffset) {
		o.BodyRoll = c.Float64(flagBodyRollOffset)
	}
	if c.IsSet(flagPixelOffsetX) {
		o.PixelOffsetX = c.Int(flagPixelOffsetX)
	}
	if c.IsSet(flagPixelOffsetY) {
		o.PixelOffsetY = c.Int(flagPixelOffsetY)
	}
	if err := e.store.Update(o); err != nil {
		return err
	}
	return printJSON(c, o)
}
