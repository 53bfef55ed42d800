// Package collect fetches every chapter of the corpus through a fixed pool
// of workers. A chapter that fails never stops the others, and every
// requested chapter ends with exactly one terminal outcome.
package collect

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mushaf/internal/corpus"
	"mushaf/internal/fetch"
	"mushaf/internal/logging"
)

// Default edition identifiers on alquran.cloud.
const (
	EditionSimple  = "quran-simple"
	EditionUthmani = "quran-uthmani"
)

// DefaultConcurrency is the number of fetches allowed in flight at once.
const DefaultConcurrency = 5

// ResourceFetcher fetches one resource; *fetch.Fetcher implements it.
type ResourceFetcher interface {
	Fetch(ctx context.Context, key fetch.Key) fetch.Result
}

// FetchFunc adapts a function to ResourceFetcher.
type FetchFunc func(ctx context.Context, key fetch.Key) fetch.Result

// Fetch calls f.
func (f FetchFunc) Fetch(ctx context.Context, key fetch.Key) fetch.Result {
	return f(ctx, key)
}

// Options configures a Collector.
type Options struct {
	Concurrency int
	// SimpleEdition provides the text that is simplified; MarkedEdition the
	// diacritics-preserving text.
	SimpleEdition string
	MarkedEdition string
	// OnOutcome, if set, is called from worker goroutines as each chapter
	// finishes. It must be safe for concurrent use.
	OnOutcome func(corpus.Outcome)
}

// Collector runs chapter fetches with bounded concurrency.
type Collector struct {
	fetcher ResourceFetcher
	opts    Options
	logger  *zap.Logger
}

// New creates a Collector.
func New(fetcher ResourceFetcher, opts Options, logger *zap.Logger) *Collector {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.SimpleEdition == "" {
		opts.SimpleEdition = EditionSimple
	}
	if opts.MarkedEdition == "" {
		opts.MarkedEdition = EditionUthmani
	}
	return &Collector{
		fetcher: fetcher,
		opts:    opts,
		logger:  logging.OrNop(logger),
	}
}

// Editions returns the simplified and marked edition identifiers.
func (c *Collector) Editions() (simple, marked string) {
	return c.opts.SimpleEdition, c.opts.MarkedEdition
}

type job struct {
	slot int
	id   int
}

// CollectAll fetches every chapter in ids and returns one outcome per
// distinct id. It returns only when all chapters are terminal; chapters not
// started before ctx was cancelled are reported as KindCanceled.
func (c *Collector) CollectAll(ctx context.Context, ids []int) map[int]corpus.Outcome {
	ids = dedupe(ids)
	// each slot is written by exactly one worker
	results := make([]corpus.Outcome, len(ids))
	done := make([]bool, len(ids))

	jobs := make(chan job, c.opts.Concurrency)
	var g errgroup.Group

	g.Go(func() error {
		defer close(jobs)
		for slot, id := range ids {
			select {
			case jobs <- job{slot: slot, id: id}:
			case <-ctx.Done():
				return nil
			}
		}
		return nil
	})

	for w := 0; w < c.opts.Concurrency; w++ {
		g.Go(func() error {
			for j := range jobs {
				out := c.collectOne(ctx, j.id)
				results[j.slot] = out
				done[j.slot] = true
				c.report(out)
			}
			return nil
		})
	}
	_ = g.Wait()

	outcomes := make(map[int]corpus.Outcome, len(ids))
	for slot, id := range ids {
		if !done[slot] {
			out := corpus.Failure(id, corpus.KindCanceled, 0,
				fmt.Errorf("surah %d not started: %w", id, context.Cause(ctx)), nil)
			c.report(out)
			results[slot] = out
		}
		outcomes[id] = results[slot]
	}
	return outcomes
}

// CollectOne fetches a single chapter.
func (c *Collector) CollectOne(ctx context.Context, id int) corpus.Outcome {
	return c.collectOne(ctx, id)
}

func (c *Collector) collectOne(ctx context.Context, id int) corpus.Outcome {
	if !corpus.ValidChapterID(id) {
		return corpus.Failure(id, corpus.KindRemote, 0,
			fmt.Errorf("surah %d is outside 1..%d", id, corpus.TotalChapters), nil)
	}

	simple := c.fetcher.Fetch(ctx, fetch.Key{ChapterID: id, Edition: c.opts.SimpleEdition})
	marked := c.fetcher.Fetch(ctx, fetch.Key{ChapterID: id, Edition: c.opts.MarkedEdition})

	log := make([]corpus.AttemptRecord, 0, len(simple.Log)+len(marked.Log))
	log = append(log, simple.Log...)
	log = append(log, marked.Log...)

	if !simple.OK() || !marked.OK() {
		return fetchFailure(id, simple, marked, log)
	}

	sp, err := decodeSurah(simple.Body, id)
	if err != nil {
		return corpus.Failure(id, corpus.KindMalformed, simple.Attempts, err, log, c.opts.SimpleEdition)
	}
	mp, err := decodeSurah(marked.Body, id)
	if err != nil {
		return corpus.Failure(id, corpus.KindMalformed, marked.Attempts, err, log, c.opts.MarkedEdition)
	}
	ch, err := buildChapter(sp, mp)
	if err != nil {
		return corpus.Failure(id, corpus.KindMalformed, simple.Attempts+marked.Attempts, err, log,
			c.opts.SimpleEdition, c.opts.MarkedEdition)
	}
	return corpus.Success(ch, simple.Attempts+marked.Attempts, log)
}

// fetchFailure combines the two sub-fetch results of a chapter where at least
// one failed. The kind and attempt count come from the first failing fetch.
// A cancellation marks both editions failed.
func fetchFailure(id int, simple, marked fetch.Result, log []corpus.AttemptRecord) corpus.Outcome {
	var failed []fetch.Result
	canceled := false
	for _, r := range []fetch.Result{simple, marked} {
		if !r.OK() {
			failed = append(failed, r)
			canceled = canceled || r.Kind == corpus.KindCanceled
		}
	}
	first := failed[0]
	editions := make([]string, 0, 2)
	errs := make([]error, 0, len(failed))
	for _, r := range failed {
		editions = append(editions, r.Key.Edition)
		errs = append(errs, r.Err)
	}
	if canceled {
		return corpus.Failure(id, corpus.KindCanceled, first.Attempts, errors.Join(errs...), log,
			simple.Key.Edition, marked.Key.Edition)
	}
	return corpus.Failure(id, first.Kind, first.Attempts, errors.Join(errs...), log, editions...)
}

func (c *Collector) report(out corpus.Outcome) {
	if out.Succeeded() {
		c.logger.Info("chapter collected",
			zap.Int("chapter", out.ChapterID),
			zap.Int("verses", len(out.Chapter.Verses)),
			zap.Int("attempts", out.Attempts))
	} else {
		c.logger.Warn("chapter failed",
			zap.Int("chapter", out.ChapterID),
			zap.String("kind", string(out.Kind)),
			zap.Int("attempts", out.Attempts),
			zap.Strings("failed_editions", out.FailedEditions),
			zap.Error(out.Err))
	}
	if c.opts.OnOutcome != nil {
		c.opts.OnOutcome(out)
	}
}

func dedupe(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
