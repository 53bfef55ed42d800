package export

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"mushaf/internal/corpus"
)

const schema = `
CREATE TABLE surahs (
	number INTEGER PRIMARY KEY,
	name_arabic TEXT NOT NULL,
	name_english TEXT NOT NULL,
	name_translation TEXT NOT NULL DEFAULT '',
	revelation_type TEXT NOT NULL,
	verses_count INTEGER NOT NULL
);
CREATE TABLE verses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	surah_number INTEGER NOT NULL REFERENCES surahs (number),
	verse_number INTEGER NOT NULL,
	global_number INTEGER,
	juz INTEGER,
	page INTEGER,
	text_raw TEXT NOT NULL,
	text_simple TEXT NOT NULL,
	text_uthmani TEXT NOT NULL,
	UNIQUE (surah_number, verse_number)
);
CREATE TABLE metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX idx_verses_surah ON verses (surah_number);
CREATE INDEX idx_verses_number ON verses (verse_number);
`

// OpenDB opens a SQLite database with the pure-Go driver.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one writer; SQLite serializes writes anyway
	db.SetMaxOpenConns(1)
	return db, nil
}

// WriteSQLite writes chapters into a fresh database file named name, in a
// single transaction.
func (w *Writer) WriteSQLite(ctx context.Context, name string, chapters []*corpus.Chapter, meta Meta) error {
	path := w.Path(name)
	if err := removeStale(path); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}

	db, err := OpenDB(path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertCorpus(ctx, tx, chapters); err != nil {
		return err
	}
	if err := insertMetadata(ctx, tx, meta); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	w.record(name)
	w.logger.Info("wrote database",
		zap.String("file", name),
		zap.Int("surahs", meta.TotalSurahs),
		zap.Int("verses", meta.TotalVerses))
	return nil
}

func insertCorpus(ctx context.Context, tx *sql.Tx, chapters []*corpus.Chapter) error {
	surahStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO surahs (number, name_arabic, name_english, name_translation, revelation_type, verses_count)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing surah insert: %w", err)
	}
	defer surahStmt.Close()

	verseStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO verses (surah_number, verse_number, global_number, juz, page, text_raw, text_simple, text_uthmani)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing verse insert: %w", err)
	}
	defer verseStmt.Close()

	for _, ch := range chapters {
		if _, err := surahStmt.ExecContext(ctx, ch.ID, ch.NameArabic, ch.NameEnglish, ch.NameTranslation,
			string(ch.Revelation), len(ch.Verses)); err != nil {
			return fmt.Errorf("inserting surah %d: %w", ch.ID, err)
		}
		for _, v := range ch.Verses {
			if _, err := verseStmt.ExecContext(ctx, v.ChapterID, v.Number, nullInt(v.Global), nullInt(v.Juz),
				nullInt(v.Page), v.Raw, v.Simplified, v.Marked); err != nil {
				return fmt.Errorf("inserting verse %d:%d: %w", v.ChapterID, v.Number, err)
			}
		}
	}
	return nil
}

func insertMetadata(ctx context.Context, tx *sql.Tx, meta Meta) error {
	rows := [][2]string{
		{"run_id", meta.RunID},
		{"version", meta.Version},
		{"last_updated", meta.GeneratedAt.Format(time.RFC3339)},
		{"total_surahs", strconv.Itoa(meta.TotalSurahs)},
		{"total_verses", strconv.Itoa(meta.TotalVerses)},
	}
	for _, kv := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO metadata (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
			kv[0], kv[1]); err != nil {
			return fmt.Errorf("inserting metadata %s: %w", kv[0], err)
		}
	}
	return nil
}

// nullInt stores zero as NULL.
func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
