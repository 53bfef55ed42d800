// Package export writes a validated corpus to disk: JSON documents (plain or
// gzip-compressed), a SQLite database, an attempt audit log, a BLAKE3
// manifest and an optional tar.xz bundle.
package export

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/zap"

	"mushaf/internal/logging"
)

// Writer writes export files under one directory and remembers what it
// wrote, so the manifest and bundle cover exactly this run's files.
type Writer struct {
	dir    string
	gzip   bool
	logger *zap.Logger

	mu    sync.Mutex
	files []string // relative to dir, in write order
}

// NewWriter creates dir if needed. With gz set, JSON documents are written
// as .json.gz.
func NewWriter(dir string, gz bool, logger *zap.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{dir: dir, gzip: gz, logger: logging.OrNop(logger)}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Files returns the relative paths written so far.
func (w *Writer) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.files)
}

// Path returns the absolute-or-relative path of a file under the output
// directory.
func (w *Writer) Path(rel string) string {
	return filepath.Join(w.dir, rel)
}

func (w *Writer) record(rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !slices.Contains(w.files, rel) {
		w.files = append(w.files, rel)
	}
}

// WriteJSON writes payload as name.json, or name.json.gz when compression is
// on, and returns the relative path written.
func (w *Writer) WriteJSON(name string, payload any) (string, error) {
	rel := name + ".json"
	if w.gzip {
		rel += ".gz"
	}
	path := w.Path(rel)

	var err error
	if w.gzip {
		err = writeGzJSON(path, payload)
		if err == nil {
			err = removeStale(w.Path(name + ".json"))
		}
	} else {
		err = writeFile(path, func(out io.Writer) error { return encodeJSON(out, payload, "  ") })
	}
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", rel, err)
	}

	w.record(rel)
	w.logger.Debug("wrote export", zap.String("file", rel))
	return rel, nil
}

// encodeJSON writes payload without escaping <, > and &, keeping Arabic text
// readable.
func encodeJSON(out io.Writer, payload any, indent string) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(payload)
}

func writeGzJSON(path string, payload any) error {
	return writeFile(path, func(out io.Writer) error {
		gw, _ := gzip.NewWriterLevel(out, gzip.BestSpeed)
		if err := encodeJSON(gw, payload, ""); err != nil {
			return err
		}
		return gw.Close()
	})
}

// writeFile creates path and hands it to fill, closing it afterwards and
// reporting the first error of either.
func writeFile(path string, fill func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fill(f)
}

// removeStale deletes an uncompressed leftover of a previous run.
func removeStale(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
