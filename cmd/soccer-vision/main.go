// Package main is the soccer-vision command: a stdio tool server and a set of
// offline commands for inspecting recorded frames and calibration.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	flagDebug       = "debug"
	flagConfig      = "config"
	flagCalibration = "calibration"

	flagCamera    = "camera"
	flagLegacy    = "legacy"
	flagPitch     = "pitch"
	flagRoll      = "roll"
	flagHeight    = "height"
	flagLegHeight = "leg-height"
	flagBodyPitch = "body-pitch"
	flagBodyRoll  = "body-roll"
	flagHeadYaw   = "head-yaw"
	flagHeadPitch = "head-pitch"

	flagX           = "x"
	flagY           = "y"
	flagPlaneHeight = "plane-height"
	flagPatches     = "patches"
	flagCircle      = "center-circle"

	flagHeadPitchOffset = "head-pitch-offset"
	flagHeadRollOffset  = "head-roll-offset"
	flagBodyPitchOffset = "body-pitch-offset"
	flagBodyRollOffset  = "body-roll-offset"
	flagPixelOffsetX    = "pixel-offset-x"
	flagPixelOffsetY    = "pixel-offset-y"
)

// poseFlags select the camera pose for the geometry commands.
var poseFlags = []cli.Flag{
	&cli.StringFlag{Name: flagCamera, Value: "upper", Usage: "camera that took the frame: upper or lower"},
	&cli.BoolFlag{Name: flagLegacy, Usage: "use a pitch/roll/height pose instead of joint angles"},
	&cli.Float64Flag{Name: flagPitch, Usage: "legacy camera pitch in radians, positive looks down"},
	&cli.Float64Flag{Name: flagRoll, Usage: "legacy camera roll in radians"},
	&cli.Float64Flag{Name: flagHeight, Usage: "legacy camera height in meters (default from config)"},
	&cli.Float64Flag{Name: flagLegHeight, Value: 0.3, Usage: "hip height above the sole in meters"},
	&cli.Float64Flag{Name: flagBodyPitch, Usage: "torso pitch in radians"},
	&cli.Float64Flag{Name: flagBodyRoll, Usage: "torso roll in radians"},
	&cli.Float64Flag{Name: flagHeadYaw, Usage: "head yaw in radians"},
	&cli.Float64Flag{Name: flagHeadPitch, Usage: "head pitch in radians"},
}

func newApp() *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintf(c.App.Writer, "soccer-vision %s\n", Version)
		fmt.Fprintf(c.App.Writer, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(c.App.Writer, "  Git commit: %s\n", GitCommit)
	}

	return &cli.App{
		Name:    "soccer-vision",
		Usage:   "ball and field-feature perception for humanoid soccer robots",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging (also SOCCER_VISION_LOG_LEVEL=debug)",
			},
			&cli.PathFlag{
				Name:  flagConfig,
				Usage: "JSON tuning file",
			},
			&cli.PathFlag{
				Name:  flagCalibration,
				Usage: "calibration TOML file (overrides the tuning file)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the tool server over stdin/stdout",
				Action: ServeAction,
			},
			{
				Name:      "scan",
				Usage:     "find ball hypotheses in a frame",
				ArgsUsage: "<frame>",
				Flags:     append([]cli.Flag{&cli.BoolFlag{Name: flagPatches, Usage: "write classifier patches next to the frame"}}, poseFlags...),
				Action:    ScanAction,
			},
			{
				Name:   "horizon",
				Usage:  "print the horizon line for a pose",
				Flags:  poseFlags,
				Action: HorizonAction,
			},
			{
				Name:  "project",
				Usage: "project a pixel onto the ground",
				Flags: append([]cli.Flag{
					&cli.Float64Flag{Name: flagX, Required: true, Usage: "pixel column"},
					&cli.Float64Flag{Name: flagY, Required: true, Usage: "pixel row"},
					&cli.Float64Flag{Name: flagPlaneHeight, Usage: "target plane height in meters"},
				}, poseFlags...),
				Action: ProjectAction,
			},
			{
				Name:      "fit",
				Usage:     "fit an ellipse to image points",
				ArgsUsage: "<points.json>",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: flagCircle, Usage: "project the ellipse and check it as the center circle"},
				}, poseFlags...),
				Action: FitAction,
			},
			{
				Name:            "calibration",
				Usage:           "work with calibration offsets",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "print the current offsets",
						Action: CalibrationShowAction,
					},
					{
						Name:  "set",
						Usage: "change offsets and write the file atomically",
						Flags: []cli.Flag{
							&cli.Float64Flag{Name: flagHeadPitchOffset, Usage: "head pitch offset in radians"},
							&cli.Float64Flag{Name: flagHeadRollOffset, Usage: "head roll offset in radians"},
							&cli.Float64Flag{Name: flagBodyPitchOffset, Usage: "body pitch offset in radians"},
							&cli.Float64Flag{Name: flagBodyRollOffset, Usage: "body roll offset in radians"},
							&cli.IntFlag{Name: flagPixelOffsetX, Usage: "principal point offset in pixels"},
							&cli.IntFlag{Name: flagPixelOffsetY, Usage: "principal point offset in pixels"},
						},
						Action: CalibrationSetAction,
					},
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "soccer-vision: %v\n", err)
		os.Exit(1)
	}
}
