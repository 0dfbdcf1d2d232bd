package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/armctl/config"
	"go.viam.com/armctl/prefs"
)

// PrefsResetAction is the corresponding Action for 'prefs reset'.
func PrefsResetAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	path, err := prefsPath(c, cfg)
	if err != nil {
		return err
	}

	axisCfg := cfg.AxisConfig()
	store := prefs.NewStore(logger.Sublogger("prefs"))
	store.ResetTo(axisCfg.PreferenceDefaults())
	if err := store.Save(path); err != nil {
		return err
	}
	store.LogAll(logger)
	fmt.Fprintf(c.App.Writer, "Reset %d preferences in %s\n", len(store.Keys()), path)
	return nil
}

// PrefsShowAction is the corresponding Action for 'prefs show'.
func PrefsShowAction(c *cli.Context) error {
	logger, closeLogs := newLogger(c)
	defer closeLogs()
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	path, err := prefsPath(c, cfg)
	if err != nil {
		return err
	}

	store := prefs.NewStore(logger.Sublogger("prefs"))
	if err := store.Load(path); err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Key", "Value"})
	for _, key := range store.Keys() {
		t.AppendRow(table.Row{key, store.GetDouble(key, 0)})
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

func prefsPath(c *cli.Context, cfg *config.Config) (string, error) {
	if path := c.String(prefsFlagFile); path != "" {
		return path, nil
	}
	if cfg.Prefs.Path != "" {
		return cfg.Prefs.Path, nil
	}
	return "", errors.New("no preference file given. pass --file or set prefs.path in the config")
}
