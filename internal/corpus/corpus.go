// Package corpus holds the data model shared by the fetch, collect, validate
// and export stages: chapters, verses, fetch outcomes and the reference
// statistics.
package corpus

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed marks a payload that was fetched but could not be turned into
// a chapter.
var ErrMalformed = errors.New("malformed payload")

// RevelationType is the period a surah is attributed to.
type RevelationType string

const (
	Meccan  RevelationType = "meccan"
	Medinan RevelationType = "medinan"
)

// ParseRevelationType accepts the API's capitalised spelling.
func ParseRevelationType(s string) (RevelationType, error) {
	switch RevelationType(strings.ToLower(strings.TrimSpace(s))) {
	case Meccan:
		return Meccan, nil
	case Medinan:
		return Medinan, nil
	}
	return "", fmt.Errorf("%w: unknown revelation type %q", ErrMalformed, s)
}

// Verse is a single ayah.
type Verse struct {
	ChapterID int
	Number    int // 1-based within the chapter

	// Global is the verse number across the whole corpus (1..6236).
	Global int
	Juz    int
	Page   int

	Raw        string // simplified edition text as fetched
	Simplified string
	Marked     string // diacritics-preserving edition, whitespace-normalized
}

// Chapter is a single surah with its verses in order.
type Chapter struct {
	ID                 int
	NameArabic         string
	NameEnglish        string
	NameTranslation    string
	Revelation         RevelationType
	DeclaredVerseCount int
	Verses             []Verse
}

// CheckContiguous verifies that verse numbers run 1..len(Verses) without
// gaps or duplicates and that every verse belongs to the chapter.
func (c *Chapter) CheckContiguous() error {
	for i, v := range c.Verses {
		if v.ChapterID != c.ID {
			return fmt.Errorf("%w: verse %d:%d filed under chapter %d", ErrMalformed, v.ChapterID, v.Number, c.ID)
		}
		if v.Number != i+1 {
			return fmt.Errorf("%w: chapter %d verse at position %d numbered %d", ErrMalformed, c.ID, i+1, v.Number)
		}
	}
	return nil
}

// ErrorKind classifies why a chapter could not be collected.
type ErrorKind string

const (
	KindNone ErrorKind = ""
	// KindTransient is a network error, timeout or 5xx that may succeed on retry.
	KindTransient ErrorKind = "transient"
	// KindRemote is a 4xx response: the resource is absent or the request is wrong.
	KindRemote ErrorKind = "remote"
	// KindRetryExhausted is a transient failure that persisted for every attempt.
	KindRetryExhausted ErrorKind = "retry_exhausted"
	// KindMalformed is a successful response whose body is unusable.
	KindMalformed ErrorKind = "malformed"
	// KindCanceled means the run was cancelled before the chapter finished.
	KindCanceled ErrorKind = "canceled"
)

// Outcome is the terminal result of collecting one chapter: either Chapter is
// set (success) or Kind/Err describe the failure.
type Outcome struct {
	ChapterID int
	Chapter   *Chapter

	Kind     ErrorKind
	Attempts int // attempts used by the failing sub-fetch, or all attempts on success
	Err      error

	// FailedEditions lists the text editions whose fetch failed. A failure
	// with fewer failed editions than requested is a partial-variant failure.
	FailedEditions []string
	Log            []AttemptRecord
}

// Succeeded reports whether the chapter was collected.
func (o Outcome) Succeeded() bool {
	return o.Chapter != nil && o.Err == nil
}

// Success builds a successful outcome.
func Success(ch *Chapter, attempts int, log []AttemptRecord) Outcome {
	return Outcome{ChapterID: ch.ID, Chapter: ch, Attempts: attempts, Log: log}
}

// Failure builds a failed outcome.
func Failure(id int, kind ErrorKind, attempts int, err error, log []AttemptRecord, editions ...string) Outcome {
	return Outcome{
		ChapterID:      id,
		Kind:           kind,
		Attempts:       attempts,
		Err:            err,
		FailedEditions: editions,
		Log:            log,
	}
}

// AttemptRecord is one network attempt, kept for the audit log.
type AttemptRecord struct {
	ChapterID  int       `json:"chapter"`
	Edition    string    `json:"edition"`
	Key        string    `json:"key"`
	Attempt    int       `json:"attempt"` // 1-based
	Kind       ErrorKind `json:"kind,omitempty"`
	StatusCode int       `json:"status,omitempty"`
	DelayMS    int64     `json:"delay_ms"` // backoff waited before this attempt
	DurationMS int64     `json:"duration_ms"`
	Err        string    `json:"error,omitempty"`
}
