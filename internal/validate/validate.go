// Package validate checks a collected corpus against reference statistics.
//
// Discrepancies are data: Validate never fails, it reports. A report passes
// when it has no discrepancies and no failed chapters; text-quality warnings
// are informational.
package validate

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"mushaf/internal/corpus"
	"mushaf/internal/normalize"
)

// DiscrepancyKind names a class of count mismatch.
type DiscrepancyKind string

const (
	ChapterVerses    DiscrepancyKind = "chapter_verses"
	DeclaredMismatch DiscrepancyKind = "declared_mismatch"
	UnknownChapter   DiscrepancyKind = "unknown_chapter"
	MissingChapter   DiscrepancyKind = "missing_chapter"
	TotalChapters    DiscrepancyKind = "total_chapters"
	TotalVerses      DiscrepancyKind = "total_verses"
)

// Text-quality limits on a simplified verse, in runes.
const (
	MinVerseRunes = 3
	MaxVerseRunes = 1000
)

// Discrepancy is one mismatch between collected and expected counts.
// ChapterID is zero for total-level discrepancies.
type Discrepancy struct {
	Kind      DiscrepancyKind `json:"kind"`
	ChapterID int             `json:"chapter,omitempty"`
	Expected  int             `json:"expected"`
	Actual    int             `json:"actual"`
}

func (d Discrepancy) String() string {
	if d.ChapterID == 0 {
		return fmt.Sprintf("%s: expected %d, got %d", d.Kind, d.Expected, d.Actual)
	}
	return fmt.Sprintf("%s: surah %d expected %d, got %d", d.Kind, d.ChapterID, d.Expected, d.Actual)
}

// Failure describes a chapter that could not be collected.
type Failure struct {
	ChapterID      int              `json:"chapter"`
	Kind           corpus.ErrorKind `json:"kind"`
	Attempts       int              `json:"attempts"`
	Error          string           `json:"error,omitempty"`
	FailedEditions []string         `json:"failed_editions,omitempty"`
	// Partial is set when only one of the chapter's editions failed.
	Partial bool `json:"partial"`
}

// Issue names a text-quality problem.
type Issue string

const (
	EmptySimplified Issue = "empty_simplified"
	EmptyMarked     Issue = "empty_marked"
	NoArabicLetters Issue = "no_arabic_letters"
	TooShort        Issue = "too_short"
	TooLong         Issue = "too_long"
)

// Warning is a text-quality observation about one verse.
type Warning struct {
	ChapterID int   `json:"chapter"`
	Verse     int   `json:"verse"`
	Issue     Issue `json:"issue"`
}

// ChapterStats are counts for one collected chapter.
type ChapterStats struct {
	ChapterID  int                   `json:"chapter"`
	Name       string                `json:"name"`
	Revelation corpus.RevelationType `json:"revelation"`
	Verses     int                   `json:"verses"`
	Words      int                   `json:"words"`
	Letters    int                   `json:"letters"`
}

// Report is the outcome of validating one collection run.
type Report struct {
	ChaptersExpected  int `json:"chapters_expected"`
	ChaptersCollected int `json:"chapters_collected"`
	VersesExpected    int `json:"verses_expected"`
	VersesCollected   int `json:"verses_collected"`
	// Deltas are collected minus expected.
	ChapterDelta int `json:"chapter_delta"`
	VerseDelta   int `json:"verse_delta"`

	Words   int `json:"words"`
	Letters int `json:"letters"`
	Meccan  int `json:"meccan"`
	Medinan int `json:"medinan"`

	Discrepancies []Discrepancy  `json:"discrepancies"`
	Failures      []Failure      `json:"failures"`
	Warnings      []Warning      `json:"warnings"`
	Chapters      []ChapterStats `json:"chapters"`
	Pass          bool           `json:"pass"`
}

// Summary returns a one-line description of r.
func (r Report) Summary() string {
	return fmt.Sprintf("pass=%t chapters=%d/%d verses=%d/%d discrepancies=%d failures=%d warnings=%d",
		r.Pass, r.ChaptersCollected, r.ChaptersExpected, r.VersesCollected, r.VersesExpected,
		len(r.Discrepancies), len(r.Failures), len(r.Warnings))
}

// PartialFailures returns the failures where only one edition failed.
func (r Report) PartialFailures() []Failure {
	var out []Failure
	for _, f := range r.Failures {
		if f.Partial {
			out = append(out, f)
		}
	}
	return out
}

// Validate compares outcomes with ref.
//
// Every chapter contributes at most one per-chapter discrepancy. Total-level
// discrepancies are added only for the part of a delta that per-chapter
// discrepancies and failures do not already account for, which happens only
// when ref's totals disagree with its own per-chapter table.
func Validate(outcomes map[int]corpus.Outcome, ref corpus.ReferenceStatistics) Report {
	r := Report{
		ChaptersExpected: ref.TotalChapters,
		VersesExpected:   ref.TotalVerses,
		Discrepancies:    []Discrepancy{},
		Failures:         []Failure{},
		Warnings:         []Warning{},
		Chapters:         []ChapterStats{},
	}

	// explained deltas, accumulated per chapter
	var chapterDelta, verseDelta int

	outcomeIDs := make([]int, 0, len(outcomes))
	for id := range outcomes {
		outcomeIDs = append(outcomeIDs, id)
	}
	slices.Sort(outcomeIDs)
	for _, id := range outcomeIDs {
		out := outcomes[id]
		expected, known := ref.Verses(id)

		if !out.Succeeded() {
			r.Failures = append(r.Failures, failureOf(id, out))
			if known {
				chapterDelta--
				verseDelta -= expected
			}
			continue
		}

		ch := out.Chapter
		got := len(ch.Verses)
		r.ChaptersCollected++
		r.VersesCollected += got

		switch {
		case !known:
			r.Discrepancies = append(r.Discrepancies, Discrepancy{
				Kind: UnknownChapter, ChapterID: id, Expected: 0, Actual: got,
			})
			chapterDelta++
			verseDelta += got
		case got != expected:
			r.Discrepancies = append(r.Discrepancies, Discrepancy{
				Kind: ChapterVerses, ChapterID: id, Expected: expected, Actual: got,
			})
			verseDelta += got - expected
		case ch.DeclaredVerseCount != expected:
			r.Discrepancies = append(r.Discrepancies, Discrepancy{
				Kind: DeclaredMismatch, ChapterID: id, Expected: expected, Actual: ch.DeclaredVerseCount,
			})
		}

		r.Chapters = append(r.Chapters, r.inspect(ch))
	}

	for _, id := range ref.ChapterIDs() {
		if _, ok := outcomes[id]; ok {
			continue
		}
		expected, _ := ref.Verses(id)
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Kind: MissingChapter, ChapterID: id, Expected: expected, Actual: 0,
		})
		chapterDelta--
		verseDelta -= expected
	}

	r.ChapterDelta = r.ChaptersCollected - ref.TotalChapters
	r.VerseDelta = r.VersesCollected - ref.TotalVerses
	if r.ChapterDelta != chapterDelta {
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Kind: TotalChapters, Expected: ref.TotalChapters, Actual: r.ChaptersCollected,
		})
	}
	if r.VerseDelta != verseDelta {
		r.Discrepancies = append(r.Discrepancies, Discrepancy{
			Kind: TotalVerses, Expected: ref.TotalVerses, Actual: r.VersesCollected,
		})
	}

	r.Pass = len(r.Discrepancies) == 0 && len(r.Failures) == 0
	return r
}

func failureOf(id int, out corpus.Outcome) Failure {
	f := Failure{
		ChapterID:      id,
		Kind:           out.Kind,
		Attempts:       out.Attempts,
		FailedEditions: out.FailedEditions,
		Partial:        len(out.FailedEditions) == 1 && out.Kind != corpus.KindCanceled,
	}
	if out.Err != nil {
		f.Error = out.Err.Error()
	}
	return f
}

// inspect counts words and letters of ch and records quality warnings.
func (r *Report) inspect(ch *corpus.Chapter) ChapterStats {
	stats := ChapterStats{
		ChapterID:  ch.ID,
		Name:       ch.NameEnglish,
		Revelation: ch.Revelation,
		Verses:     len(ch.Verses),
	}
	switch ch.Revelation {
	case corpus.Meccan:
		r.Meccan++
	case corpus.Medinan:
		r.Medinan++
	}

	for _, v := range ch.Verses {
		words := len(normalize.Words(v.Simplified))
		letters := normalize.Letters(v.Simplified)
		stats.Words += words
		stats.Letters += letters

		for _, issue := range verseIssues(v) {
			r.Warnings = append(r.Warnings, Warning{ChapterID: ch.ID, Verse: v.Number, Issue: issue})
		}
	}
	r.Words += stats.Words
	r.Letters += stats.Letters
	return stats
}

func verseIssues(v corpus.Verse) []Issue {
	var issues []Issue
	if v.Simplified == "" {
		issues = append(issues, EmptySimplified)
	}
	if v.Marked == "" {
		issues = append(issues, EmptyMarked)
	}
	if v.Simplified != "" && !normalize.HasArabicLetter(v.Simplified) {
		issues = append(issues, NoArabicLetters)
	}
	if v.Simplified != "" {
		switch n := utf8.RuneCountInString(v.Simplified); {
		case n < MinVerseRunes:
			issues = append(issues, TooShort)
		case n > MaxVerseRunes:
			issues = append(issues, TooLong)
		}
	}
	return issues
}
