package export

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"mushaf/internal/corpus"
	"mushaf/internal/validate"
)

func testChapters() []*corpus.Chapter {
	mk := func(id int, rev corpus.RevelationType, n int) *corpus.Chapter {
		ch := &corpus.Chapter{
			ID:                 id,
			NameArabic:         "سورة",
			NameEnglish:        "Test",
			NameTranslation:    "The Test",
			Revelation:         rev,
			DeclaredVerseCount: n,
		}
		for i := 1; i <= n; i++ {
			ch.Verses = append(ch.Verses, corpus.Verse{
				ChapterID:  id,
				Number:     i,
				Global:     i,
				Juz:        1,
				Page:       1,
				Raw:        "قل هو الله احد",
				Simplified: "قل هو الله احد",
				Marked:     "قُلْ هُوَ ٱللَّهُ أَحَدٌ",
			})
		}
		return ch
	}
	return []*corpus.Chapter{mk(1, corpus.Meccan, 7), mk(2, corpus.Medinan, 3)}
}

func testMeta(chapters []*corpus.Chapter) Meta {
	return NewMeta("run-1", "1.0.0", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), chapters,
		"https://api.alquran.cloud/v1/surah/{n}/quran-simple")
}

func TestWriteJSONPlain(t *testing.T) {
	w, err := NewWriter(t.TempDir(), false, nil)
	require.NoError(t, err)
	chapters := testChapters()

	rel, err := w.WriteJSON(SimpleName, BuildSimple(chapters, testMeta(chapters)))
	require.NoError(t, err)
	assert.Equal(t, "quran_simple.json", rel)

	data, err := os.ReadFile(w.Path(rel))
	require.NoError(t, err)
	assert.Contains(t, string(data), "قل هو الله احد", "Arabic must not be escaped")

	var doc SimpleDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Holy Quran - Simple Text", doc.Metadata.Title)
	assert.Equal(t, 10, doc.Metadata.TotalVerses)
	require.Len(t, doc.Surahs, 2)
	assert.Equal(t, corpus.Medinan, doc.Surahs[1].RevelationType)
	assert.Equal(t, []string{"quran_simple.json"}, w.Files())
}

func TestWriteJSONGzipReplacesPlainFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quran_complete.json"), []byte("{}"), 0644))
	w, err := NewWriter(dir, true, nil)
	require.NoError(t, err)
	chapters := testChapters()

	rel, err := w.WriteJSON(CompleteName, BuildComplete(chapters, testMeta(chapters)))
	require.NoError(t, err)
	assert.Equal(t, "quran_complete.json.gz", rel)
	assert.NoFileExists(t, filepath.Join(dir, "quran_complete.json"))

	f, err := os.Open(w.Path(rel))
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	var doc CompleteDocument
	require.NoError(t, json.NewDecoder(gr).Decode(&doc))

	require.Len(t, doc.Surahs, 2)
	v := doc.Surahs[0].Verses[0]
	assert.Equal(t, "قل هو الله احد", v.Text.Simple)
	assert.Equal(t, "قُلْ هُوَ ٱللَّهُ أَحَدٌ", v.Text.Uthmani)
	assert.Equal(t, 7, doc.Surahs[0].VersesCount)
	assert.Equal(t, "run-1", doc.Metadata.RunID)
}

func TestWriteSQLite(t *testing.T) {
	w, err := NewWriter(t.TempDir(), false, nil)
	require.NoError(t, err)
	chapters := testChapters()
	ctx := context.Background()

	require.NoError(t, w.WriteSQLite(ctx, DatabaseName, chapters, testMeta(chapters)))
	// a second run replaces the file instead of violating the unique index
	require.NoError(t, w.WriteSQLite(ctx, DatabaseName, chapters, testMeta(chapters)))

	db, err := OpenDB(w.Path(DatabaseName))
	require.NoError(t, err)
	defer db.Close()

	var surahs, verses int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM surahs`).Scan(&surahs))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM verses`).Scan(&verses))
	assert.Equal(t, 2, surahs)
	assert.Equal(t, 10, verses)

	var rev string
	var count int
	require.NoError(t, db.QueryRow(`SELECT revelation_type, verses_count FROM surahs WHERE number = 2`).Scan(&rev, &count))
	assert.Equal(t, "medinan", strings.ToLower(rev))
	assert.Equal(t, 3, count)

	var simple, uthmani string
	require.NoError(t, db.QueryRow(
		`SELECT text_simple, text_uthmani FROM verses WHERE surah_number = 1 AND verse_number = 7`).Scan(&simple, &uthmani))
	assert.Equal(t, "قل هو الله احد", simple)
	assert.Equal(t, "قُلْ هُوَ ٱللَّهُ أَحَدٌ", uthmani)

	var runID string
	require.NoError(t, db.QueryRow(`SELECT value FROM metadata WHERE key = 'run_id'`).Scan(&runID))
	assert.Equal(t, "run-1", runID)
}

func TestWriteAudit(t *testing.T) {
	w, err := NewWriter(t.TempDir(), false, nil)
	require.NoError(t, err)
	records := []corpus.AttemptRecord{
		{ChapterID: 2, Edition: "quran-simple", Attempt: 1, Kind: corpus.KindTransient, StatusCode: 503, Err: "503"},
		{ChapterID: 2, Edition: "quran-simple", Attempt: 2, DelayMS: 1000},
	}

	require.NoError(t, w.WriteAudit(AuditName, records))

	f, err := os.Open(w.Path(AuditName))
	require.NoError(t, err)
	defer f.Close()
	var got []corpus.AttemptRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec corpus.AttemptRecord
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		got = append(got, rec)
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, records, got)
}

func TestManifestAndBundle(t *testing.T) {
	w, err := NewWriter(t.TempDir(), false, nil)
	require.NoError(t, err)
	chapters := testChapters()
	meta := testMeta(chapters)

	_, err = w.WriteJSON(SimpleName, BuildSimple(chapters, meta))
	require.NoError(t, err)
	require.NoError(t, w.WriteSQLite(context.Background(), DatabaseName, chapters, meta))

	m, err := w.WriteManifest(meta)
	require.NoError(t, err)
	require.Len(t, m.Files, 2)
	assert.Equal(t, "quran_simple.json", m.Files[0].Path)
	assert.Len(t, m.Files[0].BLAKE3, 64)
	assert.Positive(t, m.Files[1].Size)

	loaded, err := ReadManifest(w.Dir())
	require.NoError(t, err)
	assert.Equal(t, m.Files, loaded.Files)
	assert.Equal(t, []string{"https://api.alquran.cloud/v1/surah/{n}/quran-simple"}, loaded.Sources)
	require.NoError(t, VerifyManifest(w.Dir(), loaded))

	rel, err := w.WriteBundle(meta.RunID)
	require.NoError(t, err)
	assert.Equal(t, "mushaf-run-1.tar.xz", rel)

	f, err := os.Open(w.Path(rel))
	require.NoError(t, err)
	defer f.Close()
	xr, err := xz.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(xr)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	assert.Equal(t, []string{"quran_simple.json", "quran.db", "manifest.json"}, names)

	require.NoError(t, os.WriteFile(w.Path("quran_simple.json"), []byte("tampered"), 0644))
	assert.ErrorContains(t, VerifyManifest(w.Dir(), loaded), "quran_simple.json")
}

func TestBuildStatistics(t *testing.T) {
	chapters := testChapters()
	outcomes := map[int]corpus.Outcome{}
	for _, ch := range chapters {
		outcomes[ch.ID] = corpus.Success(ch, 2, nil)
	}
	ref := corpus.NewReference(2, 10, map[int]int{1: 7, 2: 3})
	report := validate.Validate(outcomes, ref)

	doc := BuildStatistics(chapters, report, testMeta(chapters))

	s := doc.Summary
	assert.Equal(t, 2, s.TotalSurahs)
	assert.Equal(t, 10, s.TotalVerses)
	assert.Equal(t, 40, s.TotalWords)
	assert.Equal(t, 110, s.TotalCharacters)
	assert.Equal(t, 1, s.MeccanSurahs)
	assert.Equal(t, 1, s.MedinanSurahs)
	assert.Equal(t, 5.0, s.AverageVersesPerSurah)
	assert.Equal(t, 4.0, s.AverageWordsPerVerse)
	require.Len(t, doc.Surahs, 2)
	assert.Equal(t, "سورة", doc.Surahs[0].NameArabic)
	assert.Equal(t, 28, doc.Surahs[0].WordCount)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 0.0, ratio(5, 0))
	assert.Equal(t, 54.7, ratio(6236, 114))
	assert.Equal(t, 0.33, ratio(1, 3))
}
