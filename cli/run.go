package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/armctl/axis"
	"go.viam.com/armctl/config"
	"go.viam.com/armctl/control"
	"go.viam.com/armctl/dispatch"
	"go.viam.com/armctl/logging"
	"go.viam.com/armctl/prefs"
	"go.viam.com/armctl/report"
	"go.viam.com/armctl/sim"
	"go.viam.com/armctl/telemetry"
	"go.viam.com/armctl/utils"
)

const defaultRunDuration = 5 * time.Second

// simulation wires a controller to the simulated arm on one scheduler.
type simulation struct {
	cfg    *config.Config
	logger logging.Logger

	sched    *dispatch.Scheduler
	ctrl     *axis.Controller
	model    *sim.ArmModel
	store    *prefs.Store
	table    *telemetry.Table
	recorder *report.Recorder

	elapsed time.Duration
	simErr  error
	stop    func()
}

func newSimulation(cfg *config.Config, logger logging.Logger) (*simulation, error) {
	simCfg, err := cfg.ArmSimConfig()
	if err != nil {
		return nil, err
	}
	arm, err := sim.NewArmSim(simCfg)
	if err != nil {
		return nil, err
	}
	ff, err := cfg.Arm.FeedforwardModel()
	if err != nil {
		return nil, err
	}

	store := prefs.NewStore(logger.Sublogger("prefs"))
	if path := cfg.Prefs.Path; path != "" {
		if err := store.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		if cfg.Prefs.Watch {
			if err := store.Watch(path); err != nil {
				return nil, err
			}
		}
	}

	table := telemetry.NewTable()
	sink := telemetry.Multi(table, telemetry.NewLogSink(logger.Sublogger("telemetry")))
	hw := sim.NewHardware(0, sim.WithPositionNoise(cfg.PositionNoise(), cfg.Sim.Seed))
	model := sim.NewArmModel(cfg.Arm.Name, arm, hw, cfg.Battery(), sink)

	sched := dispatch.NewScheduler(logger.Sublogger("scheduler"))
	ctrl, err := axis.New(cfg.AxisConfig(), hw, logger.Sublogger(cfg.Arm.Name),
		axis.WithFeedforward(ff),
		axis.WithPreferences(store),
		axis.WithScheduler(sched),
	)
	if err != nil {
		return nil, multierr.Combine(err, store.Close())
	}

	s := &simulation{
		cfg:      cfg,
		logger:   logger,
		sched:    sched,
		ctrl:     ctrl,
		model:    model,
		store:    store,
		table:    table,
		recorder: report.NewRecorder(),
		stop:     func() {},
	}
	sched.AddPeriodic(s.step)
	return s, nil
}

// step advances the physics by one period and records the controller's view of it. The
// scheduler runs it ahead of the controller's own update on every tick.
func (s *simulation) step() {
	if s.simErr != nil {
		return
	}
	if err := s.model.Update(s.cfg.Period); err != nil {
		s.simErr = err
		s.stop()
		return
	}
	s.elapsed += s.cfg.Period

	measured := s.ctrl.Measurement()
	s.recorder.Record(report.Sample{
		Time:     s.elapsed,
		Goal:     s.ctrl.GoalPosition(),
		Setpoint: s.ctrl.Setpoint().Position,
		Position: measured.Position,
		Velocity: measured.Velocity,
		Voltage:  s.ctrl.Output(),
		Current:  s.model.Arm().CurrentDraw(),
		Battery:  s.model.BatteryVoltage(),
		AtGoal:   s.ctrl.AtGoal(),
	})
	s.ctrl.Publish(s.table)
}

// run moves the arm to goal and keeps ticking until duration of simulated time has passed. The
// arm is disabled on the way out.
func (s *simulation) run(ctx context.Context, goal float64, duration time.Duration, realtime bool) error {
	defer s.ctrl.Disable()
	s.sched.Schedule(s.ctrl.MoveTo(goal))

	if realtime {
		ctx, cancel := context.WithTimeout(ctx, duration)
		defer cancel()
		s.stop = cancel
		if err := s.sched.Run(ctx, clock.New(), s.cfg.Period); err != nil {
			return err
		}
		return s.simErr
	}

	ticks := int(duration / s.cfg.Period)
	for i := 0; i < ticks && s.simErr == nil; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.sched.Tick()
	}
	return s.simErr
}

func (s *simulation) Close() error {
	return s.store.Close()
}

// RunAction is the corresponding Action for 'run'.
func RunAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	if c.IsSet(runFlagSeed) {
		cfg.Sim.Seed = c.Uint64(runFlagSeed)
	}
	goalDeg := cfg.Arm.HighDeg
	if c.IsSet(runFlagGoal) {
		goalDeg = c.Float64(runFlagGoal)
	}
	duration := c.Duration(runFlagDuration)
	if duration < cfg.Period {
		return errors.Errorf("duration must be at least one period (%v), got %v", cfg.Period, duration)
	}

	s, err := newSimulation(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warnw("failed to stop preference watcher", "error", err)
		}
	}()

	start := s.ctrl.Measurement()
	goal := s.ctrl.Range().Clamp(utils.DegToRad(goalDeg))
	logger.Infow("running", "goal_deg", utils.RadToDeg(goal), "duration", duration, "realtime", c.Bool(runFlagRealtime))
	if err := s.run(c.Context, goal, duration, c.Bool(runFlagRealtime)); err != nil {
		return err
	}

	summary, err := s.recorder.Summary()
	if err != nil {
		return err
	}
	profileTime := control.TotalTime(control.State{Position: start.Position}, control.State{Position: goal}, s.ctrl.Constraints())
	fmt.Fprintln(c.App.Writer, summaryTable(summary, profileTime))

	if path := c.String(runFlagPlot); path != "" {
		if err := s.recorder.SavePlot(path); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Plot written to %s\n", path)
	}
	return nil
}

func summaryTable(sum report.Summary, profileTime time.Duration) string {
	arrival := "never"
	if sum.Arrived {
		arrival = sum.ArrivalTime.String()
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Goal", fmt.Sprintf("%.2f°", utils.RadToDeg(sum.FinalGoal))},
		{"Final angle", fmt.Sprintf("%.2f°", utils.RadToDeg(sum.FinalPosition))},
		{"Profile time", profileTime.String()},
		{"Arrival", arrival},
		{"RMS tracking error", fmt.Sprintf("%.3f°", utils.RadToDeg(sum.RMSError))},
		{"Max tracking error", fmt.Sprintf("%.3f°", utils.RadToDeg(sum.MaxError))},
		{"Mean current", fmt.Sprintf("%.2f A", sum.MeanCurrent)},
		{"Max current", fmt.Sprintf("%.2f A", sum.MaxCurrent)},
		{"Min battery voltage", fmt.Sprintf("%.2f V", sum.MinBattery)},
		{"Simulated time", sum.Duration.String()},
	})
	return t.Render()
}

// newLogger returns the command's logger and a function that closes its log file, if any.
func newLogger(c *cli.Context) (logging.Logger, func()) {
	logger := logging.NewBlankLogger("armsim")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if !c.Bool(generalFlagDebug) {
		logger.SetLevel(logging.INFO)
	}

	var closer io.Closer
	if path := c.String(generalFlagLogFile); path != "" {
		var appender logging.Appender
		appender, closer = logging.NewFileAppender(path)
		logger.AddAppender(appender)
	}
	return logger, func() {
		if closer == nil {
			return
		}
		if err := closer.Close(); err != nil {
			fmt.Fprintln(c.App.ErrWriter, "failed to close log file:", err)
		}
	}
}

// readConfig loads the file named by the config flag, or the defaults when it is not set. The
// config's log level applies unless debug logging was asked for.
func readConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String(generalFlagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path, logger); err != nil {
			return nil, err
		}
	} else {
		def := config.Default()
		if err := def.Validate("config"); err != nil {
			return nil, err
		}
		cfg = &def
	}

	if !c.Bool(generalFlagDebug) && cfg.LogLevel != "" {
		level, err := logging.LevelFromString(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		logger.SetLevel(level)
	}
	return cfg, nil
}
