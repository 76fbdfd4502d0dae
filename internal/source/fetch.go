package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 32 << 20 // 32 MiB
	userAgent      = "choliday/1.0"
	defaultRetries = 3
	retryBackoff   = 200 * time.Millisecond
)

// errRetryable marks failures worth another attempt: transport errors and 5xx
var errRetryable = errors.New("retryable")

// Source is one configured calendar location
type Source struct {
	// Index is the position of the source in the configured list
	Index int
	// URI is a local path, file:// URL, http(s):// URL or webcal(s):// URL
	URI string
}

// Result is the outcome of fetching a single source
type Result struct {
	Source   Source
	Body     []byte
	Err      error
	Duration time.Duration
}

// FetchError reports a source that could not be read
type FetchError struct {
	Source Source
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("source #%d (%s): %v", e.Source.Index, Redact(e.Source.URI), e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher reads calendar sources. Every call goes to the origin:
// nothing is cached between runs so remote calendars stay current.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *zap.Logger
}

// NewFetcher creates a new Fetcher with the given per-source timeout
func NewFetcher(timeout time.Duration, logger *zap.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
		logger:  logger,
	}
}

// FetchAll fetches every URI concurrently, one task per source.
// Results are returned in configuration order regardless of completion order;
// failed sources carry a *FetchError in Result.Err.
func (f *Fetcher) FetchAll(ctx context.Context, uris []string) []Result {
	sources := make([]Source, len(uris))
	for i, uri := range uris {
		sources[i] = Source{Index: i, URI: uri}
	}

	return iter.Map(sources, func(src *Source) Result {
		start := time.Now()
		body, err := f.FetchOne(ctx, *src)
		res := Result{
			Source:   *src,
			Body:     body,
			Duration: time.Since(start),
		}
		if err != nil {
			res.Err = &FetchError{Source: *src, Err: err}
			f.logger.Warn("Calendar source unavailable",
				zap.Int("source", src.Index),
				zap.String("uri", Redact(src.URI)),
				zap.Error(err))
			return res
		}

		f.logger.Debug("Calendar source fetched",
			zap.Int("source", src.Index),
			zap.String("uri", Redact(src.URI)),
			zap.Int("bytes", len(body)),
			zap.Duration("took", res.Duration))
		return res
	})
}

// FetchOne reads a single source within the fetcher's timeout
func (f *Fetcher) FetchOne(ctx context.Context, src Source) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	location, remote, err := resolve(src.URI)
	if err != nil {
		return nil, err
	}

	if remote {
		return f.fetchHTTP(ctx, location)
	}
	return readFile(ctx, location)
}

// fetchHTTP retries transient failures until the attempts or the
// per-source deadline run out
func (f *Fetcher) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= defaultRetries; attempt++ {
		body, err := f.fetchHTTPOnce(ctx, location)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !errors.Is(err, errRetryable) || ctx.Err() != nil {
			return nil, err
		}

		f.logger.Debug("Calendar request failed, retrying",
			zap.String("uri", Redact(location)),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", defaultRetries),
			zap.Error(err))

		if attempt < defaultRetries {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("request failed after %d attempts: %w", attempt, lastErr)
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", defaultRetries, lastErr)
}

func (f *Fetcher) fetchHTTPOnce(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar, */*;q=0.5")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar: %w: %w", errRetryable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("calendar server returned status %d: %w", resp.StatusCode, errRetryable)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar file: %w", err)
	}
	return body, nil
}

// resolve turns a configured URI into a fetchable location.
// webcal:// is the subscription alias of http:// and is rewritten accordingly.
func resolve(uri string) (location string, remote bool, err error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", false, errors.New("source URI is empty")
	}

	scheme, rest, found := strings.Cut(uri, "://")
	if !found {
		return uri, false, nil
	}

	switch strings.ToLower(scheme) {
	case "http", "https":
		return uri, true, nil
	case "webcal":
		return "http://" + rest, true, nil
	case "webcals":
		return "https://" + rest, true, nil
	case "file":
		u, perr := url.Parse(uri)
		if perr != nil {
			return "", false, fmt.Errorf("invalid file URL: %w", perr)
		}
		return u.Path, false, nil
	default:
		return "", false, fmt.Errorf("unsupported source scheme %q", scheme)
	}
}

// Redact hides the path and query of remote URIs, which often carry
// private calendar tokens, so they can be logged safely.
func Redact(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return uri
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
