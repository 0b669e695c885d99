// Package fetch downloads dataset sources. A source is an http(s) URL or a
// local path; both come back as bytes.
//
// Remote requests are rate limited, and transient failures (network errors,
// 429, 5xx) are retried after a randomized delay. A 404 or an empty payload
// fails at once: retrying will not make the file appear.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/momacs/localedb/internal/config"
	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/logging"
	"github.com/momacs/localedb/internal/observability"
)

// Options configures a Fetcher. Zero values fall back to the defaults of
// config.FetchConfig.
type Options struct {
	Attempts      int
	BackoffMin    time.Duration
	BackoffMax    time.Duration
	Timeout       time.Duration
	RatePerSecond float64 // 0 disables limiting
	UserAgent     string
	Client        *http.Client
	Clock         clockwork.Clock
	Metrics       *observability.Metrics
}

// Fetcher retrieves sources with retries.
type Fetcher struct {
	client     *http.Client
	clock      clockwork.Clock
	limiter    *rate.Limiter
	attempts   int
	backoffMin time.Duration
	backoffMax time.Duration
	userAgent  string
	metrics    *observability.Metrics
}

// New creates a Fetcher.
func New(opt Options) *Fetcher {
	f := &Fetcher{
		client:     opt.Client,
		clock:      opt.Clock,
		attempts:   opt.Attempts,
		backoffMin: opt.BackoffMin,
		backoffMax: opt.BackoffMax,
		userAgent:  opt.UserAgent,
		metrics:    opt.Metrics,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: opt.Timeout}
	}
	if f.clock == nil {
		f.clock = clockwork.NewRealClock()
	}
	if f.attempts <= 0 {
		f.attempts = 3
	}
	if f.backoffMax < f.backoffMin {
		f.backoffMax = f.backoffMin
	}
	if opt.RatePerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(opt.RatePerSecond), 1)
	}
	return f
}

// FromConfig creates a Fetcher from the FETCH_* settings.
func FromConfig(cfg config.FetchConfig, metrics *observability.Metrics) *Fetcher {
	return New(Options{
		Attempts:      cfg.Attempts,
		BackoffMin:    cfg.BackoffMin,
		BackoffMax:    cfg.BackoffMax,
		Timeout:       cfg.Timeout,
		RatePerSecond: cfg.RatePerSecond,
		UserAgent:     cfg.UserAgent,
		Metrics:       metrics,
	})
}

// IsRemote reports whether src is an http or https URL.
func IsRemote(src string) bool {
	u, err := url.Parse(src)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Join appends name to a base URL or directory.
func Join(base, name string) string {
	if IsRemote(base) {
		return strings.TrimRight(base, "/") + "/" + name
	}
	return filepath.Join(base, name)
}

// Fetch returns the content of src. Failures are *core.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, src string) ([]byte, error) {
	if !IsRemote(src) {
		return f.readLocal(src)
	}

	log := logging.WithFields(ctx, "url", src)
	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if attempt > 1 {
			delay := f.backoff()
			log.Warn("fetch failed, retrying", "attempt", attempt-1, "delay", delay, "error", lastErr)
			f.count("retry")
			if err := f.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		data, err := f.get(ctx, src)
		if err == nil {
			f.count("success")
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			f.count("error")
			return nil, &core.FetchError{URL: src, Attempts: attempt, Permanent: true, Err: perm.err}
		}
		lastErr = err
	}
	f.count("error")
	return nil, &core.FetchError{URL: src, Attempts: f.attempts, Err: lastErr}
}

// FetchAll fetches every source concurrently and returns the contents in
// input order. The first failure cancels the rest.
func (f *Fetcher) FetchAll(ctx context.Context, srcs ...string) ([][]byte, error) {
	out := make([][]byte, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range srcs {
		g.Go(func() error {
			data, err := f.Fetch(gctx, src)
			if err != nil {
				return err
			}
			out[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (f *Fetcher) get(ctx context.Context, src string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, &permanentError{err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := f.clock.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	default:
		return nil, &permanentError{fmt.Errorf("status %d", resp.StatusCode)}
	}

	body := &countingReader{r: resp.Body}
	data, err := io.ReadAll(body)
	if f.metrics != nil {
		f.metrics.FetchBytes.Add(float64(body.n))
	}
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, &permanentError{errors.New("empty payload")}
	}
	if f.metrics != nil {
		f.metrics.FetchDuration.Observe(f.clock.Since(start).Seconds())
	}
	return data, nil
}

// countingReader counts the bytes read through it, including those of a
// body that fails part way.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (f *Fetcher) readLocal(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.FetchError{URL: path, Attempts: 1, Permanent: true, Err: err}
	}
	if len(data) == 0 {
		return nil, &core.FetchError{URL: path, Attempts: 1, Permanent: true, Err: errors.New("empty payload")}
	}
	return data, nil
}

// backoff picks a delay uniformly from [backoffMin, backoffMax].
func (f *Fetcher) backoff() time.Duration {
	span := int64(f.backoffMax - f.backoffMin)
	if span <= 0 {
		return f.backoffMin
	}
	return f.backoffMin + time.Duration(rand.Int64N(span+1))
}

func (f *Fetcher) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := f.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}

func (f *Fetcher) count(outcome string) {
	if f.metrics != nil {
		f.metrics.FetchRequests.WithLabelValues(outcome).Inc()
	}
}
