// Package fetch retrieves API resources with exponential-backoff retry.
// Failures never escape as Go errors from Fetch; they are reported in the
// returned Result.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mushaf/internal/corpus"
)

// Key identifies one remote resource: a chapter in a text edition.
type Key struct {
	ChapterID int
	Edition   string
}

// Path is the resource path relative to the API root.
func (k Key) Path() string {
	return fmt.Sprintf("surah/%d/%s", k.ChapterID, k.Edition)
}

func (k Key) String() string { return k.Path() }

// Pattern is Path with the chapter number left as {n}.
func (k Key) Pattern() string {
	return "surah/{n}/" + k.Edition
}

// Result is the terminal state of a Fetch. Err is nil on success.
type Result struct {
	Key      Key
	Body     []byte
	Kind     corpus.ErrorKind
	Attempts int
	Err      error
	Log      []corpus.AttemptRecord
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Observer receives every attempt as it completes.
type Observer func(corpus.AttemptRecord)

// Fetcher wraps a Getter with the retry policy.
type Fetcher struct {
	getter   Getter
	baseURL  string
	policy   Policy
	logger   *zap.Logger
	observer Observer

	sleep func(ctx context.Context, d time.Duration) error
	rand  func() float64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger used for per-attempt messages.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithObserver registers a callback for every attempt.
func WithObserver(obs Observer) Option {
	return func(f *Fetcher) { f.observer = obs }
}

// WithSleep replaces the cancellable sleep used between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) { f.sleep = sleep }
}

// WithRand replaces the jitter source. fn must return values in [0,1).
func WithRand(fn func() float64) Option {
	return func(f *Fetcher) { f.rand = fn }
}

// NewFetcher creates a Fetcher for resources under baseURL.
func NewFetcher(getter Getter, baseURL string, policy Policy, opts ...Option) *Fetcher {
	f := &Fetcher{
		getter:  getter,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		policy:  policy.withDefaults(),
		logger:  zap.NewNop(),
		sleep:   sleepWithCtx,
		rand:    defaultRand,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Policy returns the effective retry policy.
func (f *Fetcher) Policy() Policy { return f.policy }

// URL returns the absolute address of key.
func (f *Fetcher) URL(key Key) string {
	return f.baseURL + "/" + key.Path()
}

// Fetch retrieves key, retrying transient failures. Client errors (4xx) and
// cancellation end the loop immediately.
func (f *Fetcher) Fetch(ctx context.Context, key Key) Result {
	url := f.URL(key)
	res := Result{Key: key}

	var delay time.Duration
	for attempt := 0; attempt < f.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay = f.policy.Delay(attempt-1, f.rand())
			f.logger.Debug("retrying",
				zap.String("resource", key.Path()),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))
			if err := f.sleep(ctx, delay); err != nil {
				res.Kind = corpus.KindCanceled
				res.Err = fmt.Errorf("%s: %w", key.Path(), err)
				return res
			}
		}
		if err := ctx.Err(); err != nil {
			res.Kind = corpus.KindCanceled
			res.Err = fmt.Errorf("%s: %w", key.Path(), err)
			return res
		}

		start := time.Now()
		body, err := f.getter.Get(ctx, url)
		elapsed := time.Since(start)
		res.Attempts = attempt + 1

		kind := Classify(err)
		if err != nil && ctx.Err() != nil {
			// the run was cancelled while the request was in flight
			kind = corpus.KindCanceled
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		rec := corpus.AttemptRecord{
			ChapterID:  key.ChapterID,
			Edition:    key.Edition,
			Key:        key.Path(),
			Attempt:    attempt + 1,
			Kind:       kind,
			StatusCode: StatusCode(err),
			DelayMS:    delay.Milliseconds(),
			DurationMS: elapsed.Milliseconds(),
		}
		if err != nil {
			rec.Err = err.Error()
		}
		res.Log = append(res.Log, rec)
		if f.observer != nil {
			f.observer(rec)
		}

		if err == nil {
			res.Body = body
			res.Kind = corpus.KindNone
			res.Err = nil
			return res
		}

		res.Err = err
		res.Kind = kind
		switch kind {
		case corpus.KindTransient:
			f.logger.Warn("fetch attempt failed",
				zap.String("resource", key.Path()),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", f.policy.MaxAttempts),
				zap.Error(err))
			continue
		default:
			msg := "fetch failed, not retrying"
			var httpErr *HTTPError
			if errors.As(err, &httpErr) && httpErr.IsNotFound() {
				msg = "resource not found"
			}
			f.logger.Warn(msg,
				zap.String("resource", key.Path()),
				zap.String("kind", string(kind)),
				zap.Error(err))
			return res
		}
	}

	res.Kind = corpus.KindRetryExhausted
	res.Err = fmt.Errorf("%s: giving up after %d attempts: %w", key.Path(), res.Attempts, res.Err)
	return res
}

// sleepWithCtx waits for d or until ctx is done.
func sleepWithCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
