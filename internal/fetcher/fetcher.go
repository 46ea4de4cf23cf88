// Package fetcher downloads input files over HTTP(S) or FTP and reads the
// tabular formats the inputs arrive in: CSV, XLSX and ZIP archives of either.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Fetcher downloads remote data.
type Fetcher interface {
	// Download fetches the URL and returns the body. The caller closes it.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL into path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// Options configures the fetcher returned by ForURL.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	RatePerSec float64
	UserAgent  string
}

// ForURL returns a fetcher for the URL's scheme.
func ForURL(rawURL string, opts Options) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}
	switch u.Scheme {
	case "http", "https":
		return NewHTTPFetcher(HTTPOptions{
			UserAgent:  opts.UserAgent,
			Timeout:    opts.Timeout,
			MaxRetries: opts.MaxRetries,
			RatePerSec: opts.RatePerSec,
		}), nil
	case "ftp":
		return NewFTPFetcher(FTPOptions{Timeout: opts.Timeout, MaxRetries: opts.MaxRetries}), nil
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
