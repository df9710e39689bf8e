package docview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/gobeaver/docview/filetype"
)

// DefaultDownloadTimeout bounds a single remote document request
const DefaultDownloadTimeout = 10 * time.Second

// Download is a fetched remote document
type Download struct {
	URL      string
	Name     string // from Content-Disposition, else the last URL path segment
	MIMEType string // Content-Type without parameters
	Data     []byte
}

// DownloaderOption configures a Downloader
type DownloaderOption func(*Downloader)

// WithProgress reports the number of bytes received. The total is the
// response Content-Length, or -1 if the server did not send one.
func WithProgress(fn ProgressFunc) DownloaderOption {
	return func(d *Downloader) {
		d.progress = fn
	}
}

// WithDownloadLogger sets the downloader's logger
func WithDownloadLogger(logger *slog.Logger) DownloaderOption {
	return func(d *Downloader) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Downloader fetches documents over HTTP. Safe for concurrent use.
type Downloader struct {
	client   *http.Client
	timeout  time.Duration
	maxSize  int64
	progress ProgressFunc
	logger   *slog.Logger
}

// NewDownloader creates a Downloader. A nil client means
// http.DefaultClient, a non-positive timeout means DefaultDownloadTimeout
// and a non-positive maxSize disables the size limit.
func NewDownloader(client *http.Client, timeout time.Duration, maxSize int64, opts ...DownloaderOption) *Downloader {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}

	d := &Downloader{
		client:  client,
		timeout: timeout,
		maxSize: maxSize,
		logger:  discardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads rawURL. Transport failures, timeouts and non-2xx
// responses wrap ErrDownload; oversized bodies wrap ErrTooLarge.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) (*Download, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, WrapPathErr("download", rawURL, fmt.Errorf("%w: invalid URL", ErrDownload))
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, WrapPathErr("download", rawURL, fmt.Errorf("%w: %w", ErrDownload, err))
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", d.timeout)
		}
		return nil, WrapPathErr("download", rawURL, fmt.Errorf("%w: %w", ErrDownload, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, WrapPathErr("download", rawURL, fmt.Errorf("%w: status %d", ErrDownload, resp.StatusCode))
	}

	if d.maxSize > 0 && resp.ContentLength > d.maxSize {
		return nil, WrapPathErr("download", rawURL, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength))
	}

	var r io.Reader = resp.Body
	if d.progress != nil {
		r = &progressReader{
			reader:        resp.Body,
			progress:      d.progress,
			size:          resp.ContentLength,
			reportingStep: 64 * 1024,
		}
	}

	data, err := readLimited(r, d.maxSize)
	if err != nil {
		if !errors.Is(err, ErrTooLarge) {
			err = fmt.Errorf("%w: %w", ErrDownload, err)
		}
		return nil, WrapPathErr("download", rawURL, err)
	}

	dl := &Download{
		URL:      rawURL,
		Name:     downloadName(u, resp.Header.Get("Content-Disposition")),
		MIMEType: filetype.NormalizeMIME(resp.Header.Get("Content-Type")),
		Data:     data,
	}

	d.logger.Debug("document downloaded",
		"url", rawURL, "name", dl.Name, "mime", dl.MIMEType,
		"bytes", len(data), "duration", time.Since(start))

	return dl, nil
}

func downloadName(u *url.URL, disposition string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
			return path.Base(params["filename"])
		}
	}

	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}
