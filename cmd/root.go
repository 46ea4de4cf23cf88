package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/mobility-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "mobility-cli",
	Short: "Mobility ping analytics",
	Long:  "Cleanses mobile-device pings and area catalogs, assigns pings to areas and computes co-visitation, repeat visits, hourly structure, demographics, building stock and home/work estimates.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("config loaded",
			zap.String("pings", cfg.Input.Pings),
			zap.String("areas", cfg.Input.Areas),
			zap.String("store", cfg.Store.Driver),
		)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	addRootFlags(rootCmd.PersistentFlags())
}

func addRootFlags(pf *pflag.FlagSet) {
	pf.String("config", "", "config file (default ./config.yaml if present)")
	pf.String("log-level", "", "override log.level (debug, info, warn, error)")
	pf.String("log-format", "", "override log.format (json, console)")
}

// loadConfig reads the config file named by --config, falling back to
// ./config.yaml, and applies the logging overrides.
func loadConfig(fs *pflag.FlagSet) (*config.Config, error) {
	path, _ := fs.GetString("config")
	c, err := config.Load(path)
	if err != nil {
		return nil, eris.Wrap(err, "load config")
	}

	if fs.Changed("log-level") {
		c.Log.Level, _ = fs.GetString("log-level")
	}
	if fs.Changed("log-format") {
		c.Log.Format, _ = fs.GetString("log-format")
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
