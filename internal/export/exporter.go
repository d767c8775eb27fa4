package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/swatches"
	"github.com/lychee-technology/swatches/internal"
	"go.uber.org/zap"
)

// bulkMetaLister is implemented by stores that can list every cached entry in one query.
type bulkMetaLister interface {
	ListProductMeta(ctx context.Context, key string) ([]internal.ProductMetaRow, error)
}

// Result describes one uploaded snapshot.
type Result struct {
	Bucket  string        `json:"bucket"`
	Key     string        `json:"key"`
	Summary Summary       `json:"summary"`
	Bytes   int64         `json:"bytes"`
	Elapsed time.Duration `json:"elapsed"`
}

// Exporter writes the swatch cache of every product to a Parquet snapshot and uploads it.
type Exporter struct {
	meta     swatches.ProductMetaStore
	uploader Uploader
	pause    *uploadPause
	cfg      swatches.ExportConfig
	logger   *zap.Logger
	nowFunc  func() time.Time
}

func NewExporter(meta swatches.ProductMetaStore, uploader Uploader, cfg swatches.ExportConfig, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	pause := newUploadPause(pauseSettings{
		limit:    cfg.FailureThreshold,
		window:   cfg.FailureWindow,
		pauseFor: cfg.OpenDuration,
	})
	return &Exporter{
		meta:     meta,
		uploader: uploader,
		pause:    pause,
		cfg:      cfg,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Export runs one snapshot. The object key is <prefix>/snapshots/<yyyy-mm-dd>/<uuid>.parquet.
func (e *Exporter) Export(ctx context.Context) (Result, error) {
	var res Result
	if !e.cfg.Enabled {
		return res, swatches.NewSwatchError(swatches.ErrorTypeExport, swatches.ErrCodeExportUnavailable, "snapshot export is disabled")
	}
	if until, paused := e.pause.pausedUntil(); paused {
		return res, swatches.NewSwatchError(swatches.ErrorTypeExport, swatches.ErrCodeExportUnavailable, "snapshot uploads are paused after repeated failures").
			WithDetail("resume_at", until.UTC().Format(time.RFC3339))
	}
	started := e.nowFunc()

	rows, err := e.rows(ctx)
	if err != nil {
		return res, swatches.NewExportError("collect cached swatches", err)
	}

	dir := e.cfg.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}
	objectID := uuid.Must(uuid.NewV7()).String()
	localPath := filepath.Join(dir, "swatches-"+objectID+".parquet")
	defer os.Remove(localPath)

	writer, err := NewParquetWriter(ctx, e.logger)
	if err != nil {
		return res, swatches.NewExportError("open snapshot writer", err)
	}
	defer writer.Close()

	res.Summary, err = writer.Write(ctx, rows, started, localPath)
	if err != nil {
		return res, swatches.NewExportError("write snapshot", err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return res, swatches.NewExportError("open snapshot file", err)
	}
	defer f.Close()
	if st, err := f.Stat(); err == nil {
		res.Bytes = st.Size()
	}

	res.Bucket = e.cfg.Bucket
	res.Key = ObjectKey(e.cfg.Prefix, started, objectID)
	if err := e.uploader.Upload(ctx, res.Bucket, res.Key, f); err != nil {
		if retryable(err) {
			e.pause.failed()
		}
		return res, swatches.NewExportError("upload snapshot", err).WithDetail("key", res.Key)
	}
	e.pause.succeeded()

	res.Elapsed = e.nowFunc().Sub(started)
	e.logger.Info("swatch snapshot exported",
		zap.String("bucket", res.Bucket),
		zap.String("key", res.Key),
		zap.Int64("rows", res.Summary.Rows),
		zap.Int64("bytes", res.Bytes),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func (e *Exporter) rows(ctx context.Context) ([]Row, error) {
	if bulk, ok := e.meta.(bulkMetaLister); ok {
		metaRows, err := bulk.ListProductMeta(ctx, swatches.CacheKey)
		if err != nil {
			return nil, err
		}
		out := make([]Row, 0, len(metaRows))
		for _, r := range metaRows {
			out = append(out, Row{ProductID: int64(r.ProductID), HTML: r.Value})
		}
		return out, nil
	}

	ids, err := e.meta.ListProductIDsWithMeta(ctx, swatches.CacheKey)
	if err != nil {
		return nil, err
	}
	out := make([]Row, 0, len(ids))
	for _, id := range ids {
		html, ok, err := e.meta.GetProductMeta(ctx, id, swatches.CacheKey)
		if err != nil {
			return nil, fmt.Errorf("read product %d: %w", id, err)
		}
		if !ok {
			continue
		}
		out = append(out, Row{ProductID: int64(id), HTML: html})
	}
	return out, nil
}

// ObjectKey builds the object key of a snapshot.
func ObjectKey(prefix string, at time.Time, id string) string {
	prefix = strings.Trim(prefix, "/")
	key := fmt.Sprintf("snapshots/%s/%s.parquet", at.UTC().Format("2006-01-02"), id)
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
