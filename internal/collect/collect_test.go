package collect

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"mushaf/internal/apitest"
	"mushaf/internal/corpus"
	"mushaf/internal/fetch"
	"mushaf/internal/normalize"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeFetcher answers from an apitest.API without going through HTTP.
func fakeFetcher(api *apitest.API) FetchFunc {
	return func(ctx context.Context, key fetch.Key) fetch.Result {
		if err := ctx.Err(); err != nil {
			return fetch.Result{Key: key, Kind: corpus.KindCanceled, Err: err}
		}
		body, code := api.Body(key.ChapterID, key.Edition)
		if code != 200 {
			err := &fetch.HTTPError{StatusCode: code, URL: key.Path()}
			return fetch.Result{Key: key, Kind: fetch.Classify(err), Attempts: 1, Err: err}
		}
		return fetch.Result{Key: key, Body: body, Attempts: 1}
	}
}

func TestCollectAllIsolatesFailedChapter(t *testing.T) {
	api := apitest.NewAPI()
	api.Status = map[int]int{2: 404}
	c := New(fakeFetcher(api), Options{Concurrency: 4}, nil)

	outcomes := c.CollectAll(context.Background(), corpus.AllChapterIDs())

	require.Len(t, outcomes, corpus.TotalChapters)
	failed := outcomes[2]
	assert.False(t, failed.Succeeded())
	assert.Equal(t, corpus.KindRemote, failed.Kind)
	assert.Equal(t, []string{EditionSimple, EditionUthmani}, failed.FailedEditions)
	assert.Error(t, failed.Err)

	ref := corpus.DefaultReference()
	for _, id := range corpus.AllChapterIDs() {
		if id == 2 {
			continue
		}
		out := outcomes[id]
		require.True(t, out.Succeeded(), "chapter %d: %v", id, out.Err)
		want, _ := ref.Verses(id)
		assert.Len(t, out.Chapter.Verses, want, "chapter %d", id)
		assert.Equal(t, 2, out.Attempts)
	}
}

func TestCollectAllReportsPartialVariantFailure(t *testing.T) {
	api := apitest.NewAPI()
	fetcher := FetchFunc(func(ctx context.Context, key fetch.Key) fetch.Result {
		if key.ChapterID == 9 && key.Edition == EditionUthmani {
			err := &fetch.HTTPError{StatusCode: 503}
			return fetch.Result{Key: key, Kind: corpus.KindRetryExhausted, Attempts: 3, Err: err}
		}
		return fakeFetcher(api)(ctx, key)
	})
	c := New(fetcher, Options{}, nil)

	outcomes := c.CollectAll(context.Background(), []int{8, 9})

	require.True(t, outcomes[8].Succeeded())
	out := outcomes[9]
	assert.False(t, out.Succeeded())
	assert.Equal(t, corpus.KindRetryExhausted, out.Kind)
	assert.Equal(t, []string{EditionUthmani}, out.FailedEditions)
	assert.Equal(t, 3, out.Attempts)
}

func TestCollectOneCancelledBetweenEditions(t *testing.T) {
	api := apitest.NewAPI()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher := FetchFunc(func(ctx context.Context, key fetch.Key) fetch.Result {
		res := fakeFetcher(api)(ctx, key)
		if key.Edition == EditionSimple {
			cancel()
		}
		return res
	})
	c := New(fetcher, Options{}, nil)

	out := c.CollectOne(ctx, 1)

	assert.False(t, out.Succeeded())
	assert.Equal(t, corpus.KindCanceled, out.Kind)
	assert.Equal(t, []string{EditionSimple, EditionUthmani}, out.FailedEditions)
	assert.ErrorIs(t, out.Err, context.Canceled)
}

func TestCollectOneNormalizesBothVariants(t *testing.T) {
	c := New(fakeFetcher(apitest.NewAPI()), Options{}, nil)

	out := c.CollectOne(context.Background(), 112)

	require.True(t, out.Succeeded(), "%v", out.Err)
	ch := out.Chapter
	assert.Equal(t, 112, ch.ID)
	assert.Equal(t, corpus.Meccan, ch.Revelation)
	assert.Equal(t, 4, ch.DeclaredVerseCount)
	require.Len(t, ch.Verses, 4)
	for i, v := range ch.Verses {
		assert.Equal(t, i+1, v.Number)
		assert.Equal(t, apitest.SimpleText, v.Raw)
		assert.Equal(t, "قل هو الله احد", v.Simplified)
		assert.Equal(t, normalize.PreserveMarks(apitest.MarkedText), v.Marked)
		assert.NotEqual(t, v.Simplified, v.Marked)
	}
}

func TestCollectOneMalformedPayloads(t *testing.T) {
	tests := []struct {
		name   string
		simple []byte
		marked []byte
	}{
		{"not json", []byte("<html>"), apitest.SurahBody(5, 3, 0, EditionUthmani)},
		{"api error code", apitest.ErrorBody(404, "not found"), apitest.SurahBody(5, 3, 0, EditionUthmani)},
		{"wrong chapter", apitest.SurahBody(6, 3, 0, EditionSimple), apitest.SurahBody(5, 3, 0, EditionUthmani)},
		{"variant counts differ", apitest.SurahBody(5, 3, 0, EditionSimple), apitest.SurahBody(5, 2, 0, EditionUthmani)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(FetchFunc(func(ctx context.Context, key fetch.Key) fetch.Result {
				body := tt.simple
				if key.Edition == EditionUthmani {
					body = tt.marked
				}
				return fetch.Result{Key: key, Body: body, Attempts: 1}
			}), Options{}, nil)

			out := c.CollectOne(context.Background(), 5)

			assert.False(t, out.Succeeded())
			assert.Equal(t, corpus.KindMalformed, out.Kind)
			assert.ErrorIs(t, out.Err, corpus.ErrMalformed)
		})
	}
}

func TestCollectAllRejectsOutOfRangeIDs(t *testing.T) {
	var calls atomic.Int32
	c := New(FetchFunc(func(ctx context.Context, key fetch.Key) fetch.Result {
		calls.Add(1)
		return fetch.Result{Key: key, Err: errors.New("unexpected")}
	}), Options{}, nil)

	outcomes := c.CollectAll(context.Background(), []int{0, 115, 115})

	require.Len(t, outcomes, 2)
	assert.Equal(t, corpus.KindRemote, outcomes[0].Kind)
	assert.Equal(t, corpus.KindRemote, outcomes[115].Kind)
	assert.Zero(t, calls.Load())
}

func TestCollectAllBoundsConcurrency(t *testing.T) {
	api := apitest.NewAPI()
	var inFlight, peak atomic.Int32
	fetcher := FetchFunc(func(ctx context.Context, key fetch.Key) fetch.Result {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return fakeFetcher(api)(ctx, key)
	})
	c := New(fetcher, Options{Concurrency: 3}, nil)

	outcomes := c.CollectAll(context.Background(), corpus.AllChapterIDs()[:30])

	assert.Len(t, outcomes, 30)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Positive(t, peak.Load())
}

func TestCollectAllCancelledMidRun(t *testing.T) {
	api := apitest.NewAPI()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var reported []int
	c := New(fakeFetcher(api), Options{
		Concurrency: 2,
		OnOutcome: func(out corpus.Outcome) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, out.ChapterID)
			if len(reported) == 10 {
				cancel()
			}
		},
	}, nil)

	outcomes := c.CollectAll(ctx, corpus.AllChapterIDs())

	require.Len(t, outcomes, corpus.TotalChapters)
	var ok, canceled int
	for _, out := range outcomes {
		switch {
		case out.Succeeded():
			ok++
		case out.Kind == corpus.KindCanceled:
			canceled++
			assert.ErrorIs(t, out.Err, context.Canceled)
		default:
			t.Errorf("chapter %d: unexpected kind %q", out.ChapterID, out.Kind)
		}
	}
	assert.GreaterOrEqual(t, ok, 10)
	assert.Positive(t, canceled)
	assert.Equal(t, corpus.TotalChapters, ok+canceled)
	assert.Len(t, reported, corpus.TotalChapters)
}

func TestNewAppliesDefaults(t *testing.T) {
	c := New(nil, Options{Concurrency: -1}, nil)
	simple, marked := c.Editions()
	assert.Equal(t, EditionSimple, simple)
	assert.Equal(t, EditionUthmani, marked)
	assert.Equal(t, DefaultConcurrency, c.opts.Concurrency)
}
