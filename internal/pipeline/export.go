package pipeline

import (
	"context"

	"go.uber.org/zap"

	"mushaf/internal/config"
	"mushaf/internal/export"
	"mushaf/internal/logging"
)

// Exported lists what Export wrote.
type Exported struct {
	Dir      string
	Files    []string
	Manifest export.Manifest
	Bundle   string
}

// Export writes res in the formats selected by out. The validation report
// and manifest are always written.
func Export(ctx context.Context, res *Result, out config.OutputConfig, logger *zap.Logger) (*Exported, error) {
	logger = logging.OrNop(logger).With(zap.String("run_id", res.RunID))

	w, err := export.NewWriter(out.Dir, out.Gzip, logger)
	if err != nil {
		return nil, err
	}
	meta := export.NewMeta(res.RunID, config.Version, res.FinishedAt, res.Chapters, res.Sources...)

	if out.JSON {
		docs := []struct {
			name    string
			payload any
		}{
			{export.CompleteName, export.BuildComplete(res.Chapters, meta)},
			{export.SimpleName, export.BuildSimple(res.Chapters, meta)},
			{export.StatisticsName, export.BuildStatistics(res.Chapters, res.Report, meta)},
		}
		for _, d := range docs {
			if _, err := w.WriteJSON(d.name, d.payload); err != nil {
				return nil, err
			}
		}
	}
	if _, err := w.WriteJSON(export.ReportName, export.BuildReport(res.Report, meta)); err != nil {
		return nil, err
	}

	if out.SQLite {
		if err := w.WriteSQLite(ctx, export.DatabaseName, res.Chapters, meta); err != nil {
			return nil, err
		}
	}
	if out.Audit {
		if err := w.WriteAudit(export.AuditName, res.Attempts); err != nil {
			return nil, err
		}
	}

	manifest, err := w.WriteManifest(meta)
	if err != nil {
		return nil, err
	}
	exported := &Exported{Dir: w.Dir(), Manifest: manifest}

	if out.Bundle {
		if exported.Bundle, err = w.WriteBundle(res.RunID); err != nil {
			return nil, err
		}
	}
	exported.Files = w.Files()

	logger.Info("export complete",
		zap.String("dir", w.Dir()),
		zap.Strings("files", exported.Files),
		zap.String("bundle", exported.Bundle))
	return exported, nil
}
