// Package pipeline wires the fetcher, collector, validator and exporters
// into one build run.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mushaf/internal/collect"
	"mushaf/internal/config"
	"mushaf/internal/corpus"
	"mushaf/internal/fetch"
	"mushaf/internal/logging"
	"mushaf/internal/validate"
)

// Result is everything a run produced.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	// Chapters are the successfully collected chapters in ID order.
	Chapters []*corpus.Chapter
	Outcomes map[int]corpus.Outcome
	Report   validate.Report
	// Attempts is the audit log, ordered by chapter.
	Attempts []corpus.AttemptRecord
	Sources  []string
	// Requests counts HTTP attempts; Retries the attempts after the first.
	Requests int
	Retries  int
	Canceled bool
}

// Option adjusts a run.
type Option func(*runOptions)

type runOptions struct {
	chapters  []int
	reference corpus.ReferenceStatistics
	progress  func(corpus.Outcome)
	getter    fetch.Getter
}

// WithChapters restricts the run to ids. The report still compares against
// the full reference, so a partial run does not pass.
func WithChapters(ids ...int) Option {
	return func(o *runOptions) { o.chapters = ids }
}

// WithReference replaces the default reference statistics.
func WithReference(ref corpus.ReferenceStatistics) Option {
	return func(o *runOptions) { o.reference = ref }
}

// WithProgress is called as each chapter finishes, from worker goroutines.
func WithProgress(fn func(corpus.Outcome)) Option {
	return func(o *runOptions) { o.progress = fn }
}

// WithGetter replaces the HTTP transport.
func WithGetter(g fetch.Getter) Option {
	return func(o *runOptions) { o.getter = g }
}

// Run collects and validates the corpus. It returns an error only when cfg
// is invalid; fetch failures and cancellation are reported in the Result.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	o := runOptions{
		chapters:  corpus.AllChapterIDs(),
		reference: corpus.DefaultReference(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	res := &Result{RunID: uuid.NewString(), StartedAt: time.Now()}
	logger = logging.OrNop(logger).With(zap.String("run_id", res.RunID))

	getter := o.getter
	if getter == nil {
		getter = fetch.NewHTTPClient(cfg.GetTimeout(), cfg.API.UserAgent)
	}
	var requests, retries atomic.Int64
	fetcher := fetch.NewFetcher(getter, cfg.API.BaseURL, cfg.RetryPolicy(),
		fetch.WithLogger(logger),
		fetch.WithObserver(func(rec corpus.AttemptRecord) {
			requests.Add(1)
			if rec.Attempt > 1 {
				retries.Add(1)
			}
		}))
	collector := collect.New(fetcher, collect.Options{
		Concurrency:   cfg.Collect.Concurrency,
		SimpleEdition: cfg.API.SimpleEdition,
		MarkedEdition: cfg.API.MarkedEdition,
		OnOutcome:     o.progress,
	}, logger)

	res.Sources = SourcePatterns(cfg.API.BaseURL, cfg.API.SimpleEdition, cfg.API.MarkedEdition)

	logger.Info("collecting chapters",
		zap.Int("chapters", len(o.chapters)),
		zap.Int("concurrency", cfg.Collect.Concurrency),
		zap.Int("max_attempts", cfg.Retry.MaxAttempts))

	res.Outcomes = collector.CollectAll(ctx, o.chapters)
	res.Canceled = ctx.Err() != nil
	res.Requests = int(requests.Load())
	res.Retries = int(retries.Load())

	outcomeIDs := make([]int, 0, len(res.Outcomes))
	for id := range res.Outcomes {
		outcomeIDs = append(outcomeIDs, id)
	}
	slices.Sort(outcomeIDs)
	for _, id := range outcomeIDs {
		out := res.Outcomes[id]
		res.Attempts = append(res.Attempts, out.Log...)
		if out.Succeeded() {
			res.Chapters = append(res.Chapters, out.Chapter)
		}
	}

	res.Report = validate.Validate(res.Outcomes, o.reference)
	res.FinishedAt = time.Now()

	fields := []zap.Field{
		zap.Int("chapters", res.Report.ChaptersCollected),
		zap.Int("verses", res.Report.VersesCollected),
		zap.Int("discrepancies", len(res.Report.Discrepancies)),
		zap.Int("failures", len(res.Report.Failures)),
		zap.Int("warnings", len(res.Report.Warnings)),
		zap.Int("requests", res.Requests),
		zap.Int("retries", res.Retries),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	}
	if res.Report.Pass {
		logger.Info("validation passed", fields...)
	} else {
		logger.Warn("validation failed", fields...)
		for _, d := range res.Report.Discrepancies {
			logger.Warn("discrepancy", zap.Stringer("detail", d))
		}
	}
	return res, nil
}

// SourcePatterns returns the address pattern requested for each edition,
// with {n} standing for the surah number.
func SourcePatterns(baseURL string, editions ...string) []string {
	base := strings.TrimRight(baseURL, "/")
	out := make([]string, 0, len(editions))
	for _, e := range editions {
		out = append(out, base+"/"+fetch.Key{Edition: e}.Pattern())
	}
	return out
}
