// Package cli contains the armsim command line application.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	generalFlagConfig  = "config"
	generalFlagDebug   = "debug"
	generalFlagLogFile = "log-file"

	runFlagGoal     = "goal"
	runFlagDuration = "duration"
	runFlagPlot     = "plot"
	runFlagRealtime = "realtime"
	runFlagSeed     = "seed"

	prefsFlagFile = "file"
)

var app = &cli.App{
	Name:            "armsim",
	Usage:           "simulate and tune a single jointed arm",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    generalFlagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.StringFlag{
			Name:  generalFlagLogFile,
			Usage: "also write logs to `FILE`, rotated by size",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "run",
			Usage:     "drive the simulated arm to a goal and summarize the move",
			UsageText: "armsim [global options] run [--goal <degrees>] [--duration <duration>] [--plot <png>]",
			Flags: []cli.Flag{
				&cli.Float64Flag{
					Name:  runFlagGoal,
					Usage: "goal angle in degrees. defaults to the configured high preset",
				},
				&cli.DurationFlag{
					Name:  runFlagDuration,
					Value: defaultRunDuration,
					Usage: "simulated time to run for",
				},
				&cli.StringFlag{
					Name:  runFlagPlot,
					Usage: "write a plot of the run to `FILE` (png)",
				},
				&cli.BoolFlag{
					Name:  runFlagRealtime,
					Usage: "tick on the wall clock instead of as fast as possible",
				},
				&cli.Uint64Flag{
					Name:  runFlagSeed,
					Usage: "override the sensor noise seed",
				},
			},
			Action: RunAction,
		},
		{
			Name:            "prefs",
			Usage:           "work with the tunable preference file",
			HideHelpCommand: true,
			Subcommands: []*cli.Command{
				{
					Name:  "reset",
					Usage: "overwrite the preference file with the configured defaults",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  prefsFlagFile,
							Usage: "preference `FILE`. defaults to prefs.path from the config",
						},
					},
					Action: PrefsResetAction,
				},
				{
					Name:  "show",
					Usage: "print the preference file",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  prefsFlagFile,
							Usage: "preference `FILE`. defaults to prefs.path from the config",
						},
					},
					Action: PrefsShowAction,
				},
			},
		},
	},
}

// NewApp returns a new app with the CLI function, usage and flags.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
