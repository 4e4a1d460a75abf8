// SPDX-License-Identifier: MPL-2.0

// Package discover locates toolkit and companion-library releases on the
// NVIDIA redistributable servers, caching index listings and release
// metadata on disk between runs.
package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"cudup-cli/internal/cache"
	"cudup-cli/internal/config"
	"cudup-cli/internal/cuda"
)

const (
	// maxJSONResponseBytes is the upper bound on metadata response size (10 MB).
	// Prevents unbounded memory consumption from malformed responses.
	maxJSONResponseBytes = 10 << 20

	// ProductCUDA identifies the toolkit on the redistributable server.
	ProductCUDA = "cuda"

	// ProductCudnn identifies the companion library on the redistributable server.
	ProductCudnn = "cudnn"
)

// versionFilePattern matches redistrib metadata filenames in the server's
// directory index, capturing the version string.
var versionFilePattern = regexp.MustCompile(`redistrib_(\d+\.\d+\.\d+)\.json`)

type (
	// HTTPDoer is the subset of *http.Client the discovery client needs,
	// substitutable in tests.
	HTTPDoer interface {
		Do(req *http.Request) (*http.Response, error)
	}

	// StatusError reports an unexpected HTTP status from the redistributable server.
	StatusError struct {
		What       string
		URL        string
		StatusCode int
	}

	// Client discovers available releases by scraping the server's directory
	// index and fetching per-version metadata documents.
	Client struct {
		httpClient   HTTPDoer
		cache        *cache.Cache
		cudaBaseURL  string
		cudnnBaseURL string
		logger       *log.Logger
	}

	// ClientOption configures a Client during construction.
	ClientOption func(*Client)
)

// Error formats the unexpected status as a human-readable message.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d from %s", e.What, e.StatusCode, e.URL)
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c HTTPDoer) ClientOption {
	return func(d *Client) {
		d.httpClient = c
	}
}

// WithBaseURLs overrides the toolkit and companion-library base URLs,
// primarily for test servers.
func WithBaseURLs(cudaBase, cudnnBase string) ClientOption {
	return func(d *Client) {
		d.cudaBaseURL = strings.TrimRight(cudaBase, "/")
		d.cudnnBaseURL = strings.TrimRight(cudnnBase, "/")
	}
}

// WithLogger sets the logger used for non-fatal discovery warnings.
func WithLogger(logger *log.Logger) ClientOption {
	return func(d *Client) {
		d.logger = logger
	}
}

// NewClient creates a Client backed by the given on-disk cache.
// Defaults: production NVIDIA base URLs, a 30s-deadline HTTP client
// (listings and metadata documents are small), discarded logs.
func NewClient(c *cache.Cache, opts ...ClientOption) *Client {
	d := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		cache:        c,
		cudaBaseURL:  config.DefaultCUDABaseURL,
		cudnnBaseURL: config.DefaultCudnnBaseURL,
		logger:       log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// BaseURL returns the configured base URL for the given product.
func (d *Client) BaseURL(product string) string {
	if product == ProductCudnn {
		return d.cudnnBaseURL
	}
	return d.cudaBaseURL
}

// AvailableVersions lists the versions published for product, sorted in
// ascending numeric order. Results come from the on-disk cache when a fresh
// entry exists; force bypasses the cache and refreshes it from the server.
func (d *Client) AvailableVersions(ctx context.Context, product string, force bool) ([]cuda.Version, error) {
	if cached, ok, err := d.cache.VersionList(product, force); err != nil {
		return nil, err
	} else if ok {
		return parseVersionList(product, cached)
	}

	indexURL := d.BaseURL(product) + "/"
	body, err := d.get(ctx, "listing versions", indexURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }() // read-only response body

	page, err := io.ReadAll(io.LimitReader(body, maxJSONResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("listing versions: reading index for %s: %w", product, err)
	}

	raw := scrapeVersions(page)
	if err := d.cache.SaveVersionList(product, raw); err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}

	return parseVersionList(product, raw)
}

// FetchMetadata retrieves the release metadata document for product/version.
// A fresh cache entry is used unless force is set; a successful server fetch
// refreshes the cache.
func (d *Client) FetchMetadata(ctx context.Context, product string, version cuda.Version, force bool) (*cuda.ReleaseMetadata, error) {
	if cached, ok, err := d.cache.Metadata(product, version.String(), force); err != nil {
		return nil, err
	} else if ok {
		return cached, nil
	}

	metaURL := fmt.Sprintf("%s/redistrib_%s.json", d.BaseURL(product), version)
	body, err := d.get(ctx, "fetching metadata", metaURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }() // read-only response body

	var meta cuda.ReleaseMetadata
	if err := json.NewDecoder(io.LimitReader(body, maxJSONResponseBytes)).Decode(&meta); err != nil {
		return nil, fmt.Errorf("fetching metadata for %s %s: decoding response: %w", product, version, err)
	}

	if err := d.cache.SaveMetadata(product, version.String(), &meta); err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}

	return &meta, nil
}

// FindCompatibleCudnn searches the published companion-library releases, newest
// first, for one that declares support for cudaVersion's major line. It returns
// the matching release and its metadata, or ok=false when no release is
// compatible. Individual metadata fetch failures are logged and skipped so one
// bad document does not mask an older compatible release.
func (d *Client) FindCompatibleCudnn(ctx context.Context, cudaVersion cuda.Version, force bool) (cuda.Version, *cuda.ReleaseMetadata, bool, error) {
	versions, err := d.AvailableVersions(ctx, ProductCudnn, force)
	if err != nil {
		return cuda.Version{}, nil, false, fmt.Errorf("finding compatible cudnn: %w", err)
	}

	// Newest first: the best match is the most recent compatible release.
	for i := len(versions) - 1; i >= 0; i-- {
		candidate := versions[i]

		meta, err := d.FetchMetadata(ctx, ProductCudnn, candidate, force)
		if err != nil {
			if ctx.Err() != nil {
				return cuda.Version{}, nil, false, ctx.Err()
			}
			d.logger.Warn("skipping cudnn release with unreadable metadata",
				"version", candidate, "error", err)
			continue
		}

		pkg, ok := meta.Packages[ProductCudnn]
		if !ok {
			continue
		}
		if pkg.SupportsCudaMajor(cudaVersion.Major()) {
			return candidate, meta, true, nil
		}
	}

	return cuda.Version{}, nil, false, nil
}

// get issues a GET request and returns the response body on HTTP 200.
// Any other status closes the body and returns a *StatusError.
func (d *Client) get(ctx context.Context, what, reqURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", what, err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: executing request: %w", what, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &StatusError{What: what, URL: reqURL, StatusCode: resp.StatusCode}
	}

	return resp.Body, nil
}

// scrapeVersions extracts the distinct version strings named by redistrib
// metadata links in a directory index page, preserving no particular order.
func scrapeVersions(page []byte) []string {
	var versions []string
	seen := make(map[string]struct{})

	for _, m := range versionFilePattern.FindAllSubmatch(page, -1) {
		v := string(m[1])
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		versions = append(versions, v)
	}

	return versions
}

// parseVersionList converts raw version strings to Versions sorted in
// ascending numeric order. Unparseable entries are rejected rather than
// silently dropped since they only appear via cache tampering.
func parseVersionList(product string, raw []string) ([]cuda.Version, error) {
	versions := make([]cuda.Version, 0, len(raw))
	for _, s := range raw {
		v, err := cuda.ParseVersion(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s version %q in listing: %w", product, s, err)
		}
		versions = append(versions, v)
	}

	slices.SortFunc(versions, cuda.Version.Compare)
	return versions, nil
}
