package export

import (
	"archive/tar"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

// ManifestEntry describes one exported file.
type ManifestEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	BLAKE3 string `json:"blake3"`
}

// Manifest lists the files of one run with their digests.
type Manifest struct {
	RunID       string          `json:"run_id"`
	Version     string          `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
	Sources     []string        `json:"sources,omitempty"`
	Files       []ManifestEntry `json:"files"`
}

// FileDigest returns the size and hex BLAKE3-256 digest of the file at path.
func FileDigest(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	h := blake3.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// WriteManifest digests every file written so far and writes manifest.json.
func (w *Writer) WriteManifest(meta Meta) (Manifest, error) {
	m := Manifest{RunID: meta.RunID, Version: meta.Version, GeneratedAt: meta.GeneratedAt, Sources: meta.Sources}
	for _, rel := range w.Files() {
		if rel == ManifestName {
			continue
		}
		size, sum, err := FileDigest(w.Path(rel))
		if err != nil {
			return Manifest{}, fmt.Errorf("digesting %s: %w", rel, err)
		}
		m.Files = append(m.Files, ManifestEntry{Path: rel, Size: size, BLAKE3: sum})
	}

	err := writeFile(w.Path(ManifestName), func(out io.Writer) error {
		return encodeJSON(out, m, "  ")
	})
	if err != nil {
		return Manifest{}, fmt.Errorf("writing %s: %w", ManifestName, err)
	}
	w.record(ManifestName)
	return m, nil
}

// ReadManifest loads the manifest of the run exported to dir.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing %s: %w", ManifestName, err)
	}
	return m, nil
}

// VerifyManifest re-digests every listed file and reports the first
// mismatch.
func VerifyManifest(dir string, m Manifest) error {
	for _, e := range m.Files {
		size, sum, err := FileDigest(filepath.Join(dir, e.Path))
		if err != nil {
			return fmt.Errorf("digesting %s: %w", e.Path, err)
		}
		if size != e.Size || sum != e.BLAKE3 {
			return fmt.Errorf("%s: digest mismatch", e.Path)
		}
	}
	return nil
}

// BundleName returns the archive name for a run.
func BundleName(runID string) string {
	return "mushaf-" + runID + ".tar.xz"
}

// WriteBundle packs every file written so far into an xz-compressed tarball
// next to them and returns its relative path. The bundle is not itself
// recorded.
func (w *Writer) WriteBundle(runID string) (string, error) {
	rel := BundleName(runID)
	err := writeFile(w.Path(rel), func(out io.Writer) error {
		xw, err := xz.NewWriter(out)
		if err != nil {
			return fmt.Errorf("failed to create xz writer: %w", err)
		}
		tw := tar.NewWriter(xw)
		for _, name := range w.Files() {
			if err := addFileToTar(tw, w.Path(name), name); err != nil {
				return fmt.Errorf("adding %s: %w", name, err)
			}
		}
		if err := tw.Close(); err != nil {
			return err
		}
		return xw.Close()
	})
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", rel, err)
	}
	w.logger.Info("wrote bundle", zap.String("file", rel))
	return rel, nil
}

func addFileToTar(tw *tar.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
