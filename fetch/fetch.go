package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAcceptLanguage = "es-AR,es;q=0.8,en-US;q=0.5,en;q=0.3"
	DefaultAccept         = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	DefaultTimeout        = 10 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryDelayBase = 2
	DefaultBackoffUnit    = time.Second
)

// maxBodySize caps how much of a response is read
const maxBodySize = 10 << 20

// Config is the explicit fetcher configuration
type Config struct {
	Headers map[string]string // extra request headers

	UserAgent      string
	AcceptLanguage string
	Accept         string

	Timeout        time.Duration // per attempt
	BackoffUnit    time.Duration
	MaxRetries     int // total attempts
	RetryDelayBase int

	InsecureSkipVerify bool
}

// DefaultConfig returns the default fetcher configuration
func DefaultConfig() Config {
	return Config{
		UserAgent:      DefaultUserAgent,
		AcceptLanguage: DefaultAcceptLanguage,
		Accept:         DefaultAccept,
		Timeout:        DefaultTimeout,
		MaxRetries:     DefaultMaxRetries,
		RetryDelayBase: DefaultRetryDelayBase,
		BackoffUnit:    DefaultBackoffUnit,
	}
}

// Response is a successful (HTTP 200) fetch result
type Response struct {
	ContentType string
	URL         string // final URL, after redirects
	Body        []byte
}

type Option func(f *Fetcher)

// WithLogger specifies the logger for the fetcher
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithHTTPClient overrides the HTTP client used for requests
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithSleep overrides how the fetcher waits between attempts
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// Fetcher performs GET requests, retrying transient failures
// with exponential backoff
type Fetcher struct {
	logger *slog.Logger
	client *http.Client
	sleep  func(ctx context.Context, d time.Duration) error

	cfg Config
}

// New creates a new fetcher from the given configuration
func New(cfg Config, opts ...Option) *Fetcher {
	tr := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.InsecureSkipVerify {
		tr.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // opt-in
		}
	}

	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}

	f := &Fetcher{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		client: &http.Client{Transport: tr},
		sleep:  sleepContext,
		cfg:    cfg,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch GETs the URL with the query parameters appended.
// Only HTTP 200 is a success; 5xx, timeouts and transport errors are retried,
// every other status fails immediately
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, query url.Values) (*Response, error) {
	target, err := buildURL(rawURL, query)
	if err != nil {
		return nil, &Error{
			Kind: KindRequest,
			URL:  rawURL,
			Err:  err,
		}
	}

	var lastErr error

	for attempt := 0; attempt < f.cfg.MaxRetries; attempt++ {
		resp, err := f.fetchOnce(ctx, target)
		if err == nil {
			f.logger.Debug(
				"fetched page",
				"url", target,
				"attempt", attempt+1,
				"size", len(resp.Body),
			)

			return resp, nil
		}

		// Cancellation by the caller is never retried
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		var fetchErr *Error
		if errors.As(err, &fetchErr) && !fetchErr.Retryable() {
			f.logger.Error(
				"non-retryable fetch failure",
				"url", target,
				"status", fetchErr.Status,
			)

			return nil, err
		}

		lastErr = err

		f.logger.Warn(
			"fetch attempt failed",
			"url", target,
			"attempt", attempt+1,
			"max_attempts", f.cfg.MaxRetries,
			"err", err,
		)

		if attempt == f.cfg.MaxRetries-1 {
			break
		}

		if err := f.sleep(ctx, f.backoff(attempt)); err != nil {
			return nil, err
		}
	}

	f.logger.Error(
		"fetch attempts exhausted",
		"url", target,
		"attempts", f.cfg.MaxRetries,
		"err", lastErr,
	)

	return nil, &Error{
		Kind:     KindExhausted,
		URL:      target,
		Attempts: f.cfg.MaxRetries,
		Err:      lastErr,
	}
}

// fetchOnce runs a single attempt bounded by the per-attempt timeout
func (f *Fetcher) fetchOnce(ctx context.Context, target string) (*Response, error) {
	if f.cfg.Timeout > 0 {
		var cancelFn context.CancelFunc

		ctx, cancelFn = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancelFn()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, &Error{Kind: KindRequest, URL: target, Err: err}
	}

	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := KindStatus
		if resp.StatusCode >= http.StatusInternalServerError {
			kind = KindServer
		}

		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

		return nil, &Error{
			Kind:   kind,
			URL:    target,
			Status: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &Error{Kind: KindTransport, URL: target, Err: err}
	}

	return &Response{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         resp.Request.URL.String(),
	}, nil
}

func (f *Fetcher) setHeaders(req *http.Request) {
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	if f.cfg.Accept != "" {
		req.Header.Set("Accept", f.cfg.Accept)
	}

	if f.cfg.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", f.cfg.AcceptLanguage)
	}

	for k, v := range f.cfg.Headers {
		req.Header.Set(k, v)
	}
}

// backoff returns RetryDelayBase^attempt units, attempt being 0-indexed
func (f *Fetcher) backoff(attempt int) time.Duration {
	factor := math.Pow(float64(f.cfg.RetryDelayBase), float64(attempt))

	return time.Duration(factor * float64(f.cfg.BackoffUnit))
}

func buildURL(rawURL string, query url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("unable to parse url: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}

	if len(query) > 0 {
		q := u.Query()

		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}

		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
