package export

import (
	"bufio"
	"fmt"
	"io"

	"go.uber.org/zap"

	"mushaf/internal/corpus"
)

// WriteAudit writes one JSON object per fetch attempt.
func (w *Writer) WriteAudit(name string, records []corpus.AttemptRecord) error {
	err := writeFile(w.Path(name), func(out io.Writer) error {
		bw := bufio.NewWriter(out)
		for _, rec := range records {
			if err := encodeJSON(bw, rec, ""); err != nil {
				return err
			}
		}
		return bw.Flush()
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	w.record(name)
	w.logger.Debug("wrote audit log", zap.String("file", name), zap.Int("attempts", len(records)))
	return nil
}
