package export

import (
	"math"
	"time"

	"mushaf/internal/corpus"
	"mushaf/internal/validate"
)

// Base names of the exported documents.
const (
	CompleteName   = "quran_complete"
	SimpleName     = "quran_simple"
	StatisticsName = "quran_statistics"
	ReportName     = "validation_report"
	DatabaseName   = "quran.db"
	AuditName      = "fetch_audit.jsonl"
	ManifestName   = "manifest.json"
)

// Meta describes one build run.
type Meta struct {
	RunID       string    `json:"run_id"`
	Title       string    `json:"title,omitempty"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	TotalSurahs int       `json:"total_surahs"`
	TotalVerses int       `json:"total_verses"`
	Sources     []string  `json:"sources,omitempty"`
}

// NewMeta fills the totals from chapters.
func NewMeta(runID, version string, generatedAt time.Time, chapters []*corpus.Chapter, sources ...string) Meta {
	m := Meta{
		RunID:       runID,
		Version:     version,
		GeneratedAt: generatedAt.UTC(),
		TotalSurahs: len(chapters),
		Sources:     sources,
	}
	for _, ch := range chapters {
		m.TotalVerses += len(ch.Verses)
	}
	return m
}

func (m Meta) titled(title string) Meta {
	m.Title = title
	return m
}

type surahName struct {
	Arabic      string `json:"arabic"`
	English     string `json:"english"`
	Translation string `json:"translation,omitempty"`
}

type verseText struct {
	Simple  string `json:"simple"`
	Uthmani string `json:"uthmani"`
	Raw     string `json:"raw"`
}

type completeVerse struct {
	Number int       `json:"number"`
	Global int       `json:"global,omitempty"`
	Juz    int       `json:"juz,omitempty"`
	Page   int       `json:"page,omitempty"`
	Text   verseText `json:"text"`
}

type completeSurah struct {
	Number         int                   `json:"number"`
	Name           surahName             `json:"name"`
	RevelationType corpus.RevelationType `json:"revelation_type"`
	VersesCount    int                   `json:"verses_count"`
	Verses         []completeVerse       `json:"verses"`
}

// CompleteDocument carries both text variants of every verse.
type CompleteDocument struct {
	Metadata Meta            `json:"metadata"`
	Surahs   []completeSurah `json:"surahs"`
}

type simpleVerse struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

type simpleSurah struct {
	Number         int                   `json:"number"`
	Name           surahName             `json:"name"`
	RevelationType corpus.RevelationType `json:"revelation_type"`
	Verses         []simpleVerse         `json:"verses"`
}

// SimpleDocument carries only the simplified text.
type SimpleDocument struct {
	Metadata Meta          `json:"metadata"`
	Surahs   []simpleSurah `json:"surahs"`
}

func nameOf(ch *corpus.Chapter) surahName {
	return surahName{Arabic: ch.NameArabic, English: ch.NameEnglish, Translation: ch.NameTranslation}
}

// BuildComplete assembles the complete document. chapters must be ordered.
func BuildComplete(chapters []*corpus.Chapter, meta Meta) CompleteDocument {
	doc := CompleteDocument{
		Metadata: meta.titled("Holy Quran - Complete Data"),
		Surahs:   make([]completeSurah, 0, len(chapters)),
	}
	for _, ch := range chapters {
		s := completeSurah{
			Number:         ch.ID,
			Name:           nameOf(ch),
			RevelationType: ch.Revelation,
			VersesCount:    len(ch.Verses),
			Verses:         make([]completeVerse, 0, len(ch.Verses)),
		}
		for _, v := range ch.Verses {
			s.Verses = append(s.Verses, completeVerse{
				Number: v.Number,
				Global: v.Global,
				Juz:    v.Juz,
				Page:   v.Page,
				Text:   verseText{Simple: v.Simplified, Uthmani: v.Marked, Raw: v.Raw},
			})
		}
		doc.Surahs = append(doc.Surahs, s)
	}
	return doc
}

// BuildSimple assembles the simplified-text document.
func BuildSimple(chapters []*corpus.Chapter, meta Meta) SimpleDocument {
	doc := SimpleDocument{
		Metadata: meta.titled("Holy Quran - Simple Text"),
		Surahs:   make([]simpleSurah, 0, len(chapters)),
	}
	for _, ch := range chapters {
		s := simpleSurah{
			Number:         ch.ID,
			Name:           nameOf(ch),
			RevelationType: ch.Revelation,
			Verses:         make([]simpleVerse, 0, len(ch.Verses)),
		}
		for _, v := range ch.Verses {
			s.Verses = append(s.Verses, simpleVerse{Number: v.Number, Text: v.Simplified})
		}
		doc.Surahs = append(doc.Surahs, s)
	}
	return doc
}

// StatisticsSummary holds corpus-wide counts.
type StatisticsSummary struct {
	GeneratedAt           time.Time `json:"generated_at"`
	Version               string    `json:"version"`
	RunID                 string    `json:"run_id"`
	TotalSurahs           int       `json:"total_surahs"`
	TotalVerses           int       `json:"total_verses"`
	TotalWords            int       `json:"total_words"`
	TotalCharacters       int       `json:"total_characters"`
	MeccanSurahs          int       `json:"meccan_surahs"`
	MedinanSurahs         int       `json:"medinan_surahs"`
	AverageVersesPerSurah float64   `json:"average_verses_per_surah"`
	AverageWordsPerVerse  float64   `json:"average_words_per_verse"`
}

type surahStatistics struct {
	Number         int                   `json:"number"`
	NameArabic     string                `json:"name_arabic"`
	NameEnglish    string                `json:"name_english"`
	RevelationType corpus.RevelationType `json:"revelation_type"`
	VersesCount    int                   `json:"verses_count"`
	WordCount      int                   `json:"word_count"`
	CharacterCount int                   `json:"character_count"`
}

// StatisticsDocument is the statistics export.
type StatisticsDocument struct {
	Summary StatisticsSummary `json:"summary"`
	Surahs  []surahStatistics `json:"surahs_detailed"`
}

// BuildStatistics derives the statistics document from the validation
// report, which already counted words and letters.
func BuildStatistics(chapters []*corpus.Chapter, report validate.Report, meta Meta) StatisticsDocument {
	doc := StatisticsDocument{
		Summary: StatisticsSummary{
			GeneratedAt:           meta.GeneratedAt,
			Version:               meta.Version,
			RunID:                 meta.RunID,
			TotalSurahs:           report.ChaptersCollected,
			TotalVerses:           report.VersesCollected,
			TotalWords:            report.Words,
			TotalCharacters:       report.Letters,
			MeccanSurahs:          report.Meccan,
			MedinanSurahs:         report.Medinan,
			AverageVersesPerSurah: ratio(report.VersesCollected, report.ChaptersCollected),
			AverageWordsPerVerse:  ratio(report.Words, report.VersesCollected),
		},
		Surahs: make([]surahStatistics, 0, len(report.Chapters)),
	}

	arabic := make(map[int]string, len(chapters))
	for _, ch := range chapters {
		arabic[ch.ID] = ch.NameArabic
	}
	for _, cs := range report.Chapters {
		doc.Surahs = append(doc.Surahs, surahStatistics{
			Number:         cs.ChapterID,
			NameArabic:     arabic[cs.ChapterID],
			NameEnglish:    cs.Name,
			RevelationType: cs.Revelation,
			VersesCount:    cs.Verses,
			WordCount:      cs.Words,
			CharacterCount: cs.Letters,
		})
	}
	return doc
}

// ReportDocument wraps a validation report with run metadata.
type ReportDocument struct {
	Metadata Meta            `json:"metadata"`
	Summary  string          `json:"summary"`
	Report   validate.Report `json:"report"`
}

// BuildReport assembles the validation report document.
func BuildReport(report validate.Report, meta Meta) ReportDocument {
	return ReportDocument{
		Metadata: meta.titled("Validation Report"),
		Summary:  report.Summary(),
		Report:   report,
	}
}

// ratio returns a/b rounded to two decimals, or 0 when b is 0.
func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return math.Round(float64(a)/float64(b)*100) / 100
}
