package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mobility-cli/internal/fetcher"
	"github.com/sells-group/mobility-cli/internal/warehouse"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Dump warehouse tables to CSV",
	Long:  "Reads the configured pings, areas, population and buildings tables from the Postgres/PostGIS warehouse and writes them as CSV files usable as analyze inputs. Area boundaries are exported as hex WKB.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			cfg.Output.Dir = out
		}
		if err := cfg.Validate("extract"); err != nil {
			return err
		}

		pool, err := warehousePool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		wh := warehouse.New(pool, cfg.Warehouse.Schema)

		if list, _ := cmd.Flags().GetBool("list"); list {
			tables, err := wh.ListTables(ctx)
			if err != nil {
				return eris.Wrap(err, "extract")
			}
			for _, t := range tables {
				fmt.Println(t)
			}
			return nil
		}

		var paths []string
		all, _ := cmd.Flags().GetBool("all")
		tables, _ := cmd.Flags().GetStringSlice("table")
		switch {
		case all:
			paths, err = wh.DumpAll(ctx, cfg.Output.Dir)
		case len(tables) > 0:
			paths, err = dumpTables(ctx, wh, tables, cfg.Output.Dir)
		default:
			geomColumn, _ := cmd.Flags().GetString("geom-column")
			paths, err = dumpEntities(ctx, wh, cfg.Output.Dir, geomColumn)
		}
		if err != nil {
			return eris.Wrap(err, "extract")
		}

		for _, p := range paths {
			fmt.Println(p)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().String("out", "", "output directory (overrides output.dir)")
	extractCmd.Flags().StringSlice("table", nil, "table to dump; repeatable")
	extractCmd.Flags().Bool("all", false, "dump every table of the warehouse schema")
	extractCmd.Flags().Bool("list", false, "list the tables of the warehouse schema")
	extractCmd.Flags().String("geom-column", "geometry", "boundary column of the areas table")
	rootCmd.AddCommand(extractCmd)
}

func dumpTables(ctx context.Context, wh *warehouse.Warehouse, tables []string, dir string) ([]string, error) {
	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		path, _, err := wh.DumpCSV(ctx, t, dir)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// dumpEntities writes the configured entity tables. Areas go through a PostGIS
// query so the boundary arrives as WKB with a point-on-surface reference.
func dumpEntities(ctx context.Context, wh *warehouse.Warehouse, dir, geomColumn string) ([]string, error) {
	tables := cfg.Warehouse.Tables
	var paths []string

	if tables.Areas != "" {
		t, err := wh.Areas(ctx, tables.Areas, geomColumn)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, tables.Areas+".csv")
		if err := fetcher.WriteCSV(path, t); err != nil {
			return nil, err
		}
		zap.L().Info("extract: saved areas", zap.String("path", path), zap.Int("rows", len(t.Rows)))
		paths = append(paths, path)
	}

	var rest []string
	for _, t := range []string{tables.Pings, tables.Population, tables.Buildings} {
		if t != "" {
			rest = append(rest, t)
		}
	}
	more, err := dumpTables(ctx, wh, rest, dir)
	return append(paths, more...), err
}
