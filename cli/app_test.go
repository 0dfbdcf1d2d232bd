package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/armctl/config"
	"go.viam.com/armctl/logging"
	"go.viam.com/armctl/utils"
)

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"armsim"}, args...))
	return out.String(), errOut.String(), err
}

func TestRunDefaults(t *testing.T) {
	out, _, err := runApp(t, "run", "--duration", "4s")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "RMS tracking error")
	test.That(t, out, test.ShouldContainSubstring, "90.00°")
	test.That(t, out, test.ShouldNotContainSubstring, "never")
}

func TestRunWithPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.png")
	out, _, err := runApp(t, "run", "--goal", "0", "--duration", "3s", "--plot", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Plot written to")

	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestRunRejectsShortDuration(t *testing.T) {
	_, _, err := runApp(t, "run", "--duration", "1ms")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least one period")
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "arm.yaml")
	prefsPath := filepath.Join(dir, "prefs.yaml")
	data := []byte("log_level: warn\narm:\n  high_deg: 45\nprefs:\n  path: " + prefsPath + "\n")
	test.That(t, os.WriteFile(cfgPath, data, 0o600), test.ShouldBeNil)

	// the preference file caps the velocity well below the config
	test.That(t, os.WriteFile(prefsPath, []byte("ArmVelocityMax: 0.5\n"), 0o600), test.ShouldBeNil)

	out, errOut, err := runApp(t, "--config", cfgPath, "run", "--duration", "2s")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "45.00°")
	test.That(t, out, test.ShouldContainSubstring, "never")
	test.That(t, errOut, test.ShouldNotContainSubstring, "running")
}

func TestRunBadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "arm.yaml")
	test.That(t, os.WriteFile(cfgPath, []byte("arm:\n  kp: -1\n"), 0o600), test.ShouldBeNil)

	_, _, err := runApp(t, "--config", cfgPath, "run")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "kP")
}

func TestPrefsResetAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")

	out, errOut, err := runApp(t, "prefs", "reset", "--file", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Reset 6 preferences")
	test.That(t, errOut, test.ShouldContainSubstring, "ArmKG")

	out, _, err = runApp(t, "prefs", "show", "--file", path)
	test.That(t, err, test.ShouldBeNil)
	for _, key := range []string{"ArmKP", "ArmKS", "ArmKG", "ArmKV", "ArmVelocityMax", "ArmAccelerationMax"} {
		test.That(t, out, test.ShouldContainSubstring, key)
	}
	test.That(t, out, test.ShouldContainSubstring, "1.26")
}

func TestPrefsNeedsFile(t *testing.T) {
	_, _, err := runApp(t, "prefs", "show")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no preference file")
}

func TestSimulationRealtime(t *testing.T) {
	logger := logging.NewTestLogger(t)
	logger.SetLevel(logging.INFO)
	cfg := config.Default()
	s, err := newSimulation(&cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, s.Close(), test.ShouldBeNil)
	}()

	err = s.run(context.Background(), utils.DegToRad(0), 300*time.Millisecond, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.recorder.Len(), test.ShouldBeGreaterThan, 0)
	test.That(t, s.ctrl.Enabled(), test.ShouldBeFalse)
	test.That(t, s.ctrl.Output(), test.ShouldEqual, 0.0)

	angle, ok := s.table.Number("Arm Sim Angle")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, angle, test.ShouldBeGreaterThan, -75.0)
}

func TestSimulationTicks(t *testing.T) {
	logger := logging.NewTestLogger(t)
	logger.SetLevel(logging.INFO)
	cfg := config.Default()
	s, err := newSimulation(&cfg, logger)
	test.That(t, err, test.ShouldBeNil)

	err = s.run(context.Background(), utils.DegToRad(90), time.Second, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.recorder.Len(), test.ShouldEqual, 50)
	test.That(t, s.sched.Ticks(), test.ShouldEqual, int64(50))
	test.That(t, s.elapsed, test.ShouldEqual, time.Second)
}

func TestLogFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "armsim.log")
	_, _, err := runApp(t, "--log-file", logPath, "prefs", "reset", "--file", filepath.Join(dir, "prefs.yaml"))
	test.That(t, err, test.ShouldBeNil)

	data, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "ArmVelocityMax")
}
