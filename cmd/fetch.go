package main

import (
	"context"
	"fmt"
	"net/url"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/mobility-cli/internal/fetcher"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url> [dest]",
	Short: "Download an input file over HTTP(S) or FTP",
	Long:  "Downloads a remote file with retries and per-host rate limiting. Without a destination the file is saved under data/ using the URL's base name. Zip archives are extracted with --unzip.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("fetch"); err != nil {
			return err
		}

		dest := ""
		if len(args) > 1 {
			dest = args[1]
		}
		dest, err := destination(args[0], dest)
		if err != nil {
			return err
		}

		n, err := download(ctx, args[0], dest)
		if err != nil {
			return err
		}
		zap.L().Info("fetch: downloaded", zap.String("url", args[0]), zap.String("path", dest), zap.Int64("bytes", n))

		if unzip, _ := cmd.Flags().GetBool("unzip"); unzip {
			files, err := fetcher.ExtractZIP(dest, filepath.Dir(dest))
			if err != nil {
				return eris.Wrap(err, "fetch: extract")
			}
			for _, f := range files {
				fmt.Println(f)
			}
			return nil
		}
		fmt.Println(dest)
		return nil
	},
}

func init() {
	fetchCmd.Flags().Bool("unzip", false, "extract the downloaded zip archive next to it")
	rootCmd.AddCommand(fetchCmd)
}

// destination returns dest, or data/<base name of the URL path> when empty.
func destination(rawURL, dest string) (string, error) {
	if dest != "" {
		return dest, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "fetch: parse url")
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return "", eris.Errorf("fetch: cannot derive a file name from %q, pass a destination", rawURL)
	}
	return filepath.Join("data", base), nil
}

func download(ctx context.Context, rawURL, dest string) (int64, error) {
	f, err := fetcher.ForURL(rawURL, fetcher.Options{
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		RatePerSec: cfg.Fetch.RatePerSec,
		UserAgent:  "mobility-cli",
	})
	if err != nil {
		return 0, err
	}
	n, err := f.DownloadToFile(ctx, rawURL, dest)
	if err != nil {
		return 0, eris.Wrap(err, "fetch")
	}
	return n, nil
}
