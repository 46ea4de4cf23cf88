package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/mobility-cli/internal/config"
	"github.com/sells-group/mobility-cli/internal/model"
	"github.com/sells-group/mobility-cli/internal/pipeline"
	"github.com/sells-group/mobility-cli/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run every configured analysis and export the report",
	Long:  "Loads and cleanses the inputs, assigns pings to areas and writes the co-visitation, repeat, hourly, demographic, building and residence results to output.dir.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyInputFlags(cmd.Flags(), cfg)
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		var st store.Store
		if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
			var err error
			st, err = store.Open(ctx, cfg.Store)
			if err != nil {
				return eris.Wrap(err, "analyze: open store")
			}
			defer st.Close() //nolint:errcheck
		}

		res, err := pipeline.New(cfg, st).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		formatAnalyses(os.Stdout, res.RunID, res.Statuses(), res.Files)
		return nil
	},
}

func init() {
	addInputFlags(analyzeCmd.Flags())
	analyzeCmd.Flags().String("format", "", "output format: xlsx or csv (overrides output.format)")
	analyzeCmd.Flags().Int("window", 0, "repeat visit window in days (overrides analysis.decay_window_days)")
	analyzeCmd.Flags().String("metric", "", "nearest metric: great_circle or planar (overrides analysis.nearest_metric)")
	analyzeCmd.Flags().StringSlice("area", nil, "area to summarize; repeatable (overrides analysis.areas)")
	analyzeCmd.Flags().Bool("no-store", false, "skip recording the run in the result store")
	rootCmd.AddCommand(analyzeCmd)
}

// addInputFlags registers the input path flags shared by analyze and clean.
func addInputFlags(fs *pflag.FlagSet) {
	fs.String("pings", "", "pings table (overrides input.pings)")
	fs.String("areas", "", "area catalog (overrides input.areas)")
	fs.String("population", "", "population grid (overrides input.population)")
	fs.String("buildings", "", "building footprints (overrides input.buildings)")
}

// applyInputFlags copies explicitly set flags over the loaded configuration.
func applyInputFlags(fs *pflag.FlagSet, c *config.Config) {
	str := func(name string, dst *string) {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	str("pings", &c.Input.Pings)
	str("areas", &c.Input.Areas)
	str("population", &c.Input.Population)
	str("buildings", &c.Input.Buildings)
	str("format", &c.Output.Format)
	str("metric", &c.Analysis.NearestMetric)

	if fs.Lookup("window") != nil && fs.Changed("window") {
		c.Analysis.DecayWindowDays, _ = fs.GetInt("window")
	}
	if fs.Lookup("area") != nil && fs.Changed("area") {
		c.Analysis.Areas, _ = fs.GetStringSlice("area")
	}
}

// formatAnalyses writes the per-analysis statuses and output files to w.
func formatAnalyses(out io.Writer, runID string, statuses map[string]model.Status, files []string) {
	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", runID)
	_, _ = fmt.Fprintln(w, "ANALYSIS\tSTATUS\tMESSAGE")
	_, _ = fmt.Fprintln(w, "--------\t------\t-------")
	for _, name := range names {
		s := statuses[name]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, s, s.Message())
	}
	for _, f := range files {
		_, _ = fmt.Fprintf(w, "File:\t%s\n", f)
	}
	_ = w.Flush()
}
