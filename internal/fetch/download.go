// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

// HTTPDoer is the subset of *http.Client the downloader needs, substitutable
// in tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewDownloadClient returns an HTTP client tuned for large archive downloads:
// bounded connect and response-header timeouts, but no overall request
// deadline since archives can legitimately take many minutes to transfer.
func NewDownloadClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 10 * time.Second,
			}).DialContext,
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}
}

// DownloadFile streams the resource at url into dest, reporting the running
// byte count through progress after each chunk when progress is non-nil.
// A partially written file is removed on any failure.
func DownloadFile(ctx context.Context, client HTTPDoer, url, dest string, progress func(received uint64)) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only HTTP response body

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: unexpected status %d", url, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			// Best-effort removal of the partially written file.
			_ = os.Remove(dest)
		}
	}()

	src := io.Reader(resp.Body)
	if progress != nil {
		src = io.TeeReader(resp.Body, &progressWriter{report: progress})
	}

	if _, err := io.Copy(f, src); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}

	return nil
}

// progressWriter counts bytes flowing through it and reports the running
// total to the callback.
type progressWriter struct {
	received uint64
	report   func(uint64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.received += uint64(len(p))
	w.report(w.received)
	return len(p), nil
}
