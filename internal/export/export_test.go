package export

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/lychee-technology/swatches"
	"github.com/lychee-technology/swatches/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Upload pause
// ---------------------------------------------------------------------------

func testPause(limit int, window, pauseFor time.Duration, now *time.Time) *uploadPause {
	p := newUploadPause(pauseSettings{limit: limit, window: window, pauseFor: pauseFor})
	p.nowFunc = func() time.Time { return *now }
	return p
}

func TestUploadPause_StartsAtLimit(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := testPause(2, time.Minute, 30*time.Second, &now)

	p.failed()
	_, paused := p.pausedUntil()
	assert.False(t, paused)

	p.failed()
	until, paused := p.pausedUntil()
	assert.True(t, paused)
	assert.Equal(t, now.Add(30*time.Second), until)

	now = now.Add(31 * time.Second)
	_, paused = p.pausedUntil()
	assert.False(t, paused, "uploads resume after the pause")

	p.failed()
	_, paused = p.pausedUntil()
	assert.False(t, paused, "failures before the pause are not counted again")
}

func TestUploadPause_FailuresOutsideWindowAreForgotten(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := testPause(2, time.Minute, time.Minute, &now)

	p.failed()
	now = now.Add(2 * time.Minute)
	p.failed()
	_, paused := p.pausedUntil()
	assert.False(t, paused)
}

func TestUploadPause_SuccessLiftsPause(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := testPause(1, time.Minute, time.Hour, &now)

	p.failed()
	_, paused := p.pausedUntil()
	require.True(t, paused)
	p.succeeded()
	_, paused = p.pausedUntil()
	assert.False(t, paused)
}

func TestUploadPause_NilAndZeroLimit(t *testing.T) {
	var p *uploadPause
	p.failed()
	p.succeeded()
	_, paused := p.pausedUntil()
	assert.False(t, paused)

	now := time.Now()
	one := testPause(0, time.Minute, time.Minute, &now)
	one.failed()
	_, paused = one.pausedUntil()
	assert.True(t, paused)
}

// ---------------------------------------------------------------------------
// Keys, config and error classification
// ---------------------------------------------------------------------------

func TestObjectKey(t *testing.T) {
	at := time.Date(2025, 3, 1, 23, 30, 0, 0, time.FixedZone("x", -5*3600))
	assert.Equal(t, "snapshots/2025-03-02/abc.parquet", ObjectKey("", at, "abc"))
	assert.Equal(t, "shop/snapshots/2025-03-02/abc.parquet", ObjectKey("/shop/", at, "abc"))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     swatches.ExportConfig
		wantErr bool
	}{
		{"disabled", swatches.ExportConfig{}, false},
		{"bucket", swatches.ExportConfig{Enabled: true, Bucket: "b"}, false},
		{"no bucket", swatches.ExportConfig{Enabled: true}, true},
		{"access key only", swatches.ExportConfig{Enabled: true, Bucket: "b", AccessKey: "a"}, true},
		{"secret only", swatches.ExportConfig{Enabled: true, Bucket: "b", SecretKey: "s"}, true},
		{"both keys", swatches.ExportConfig{Enabled: true, Bucket: "b", AccessKey: "a", SecretKey: "s"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestS3HealthCheck_Disabled(t *testing.T) {
	assert.NoError(t, S3HealthCheck(context.Background(), swatches.ExportConfig{}, time.Second))
	assert.Error(t, S3HealthCheck(context.Background(), swatches.ExportConfig{Enabled: true}, time.Second))
}

func TestRetryable(t *testing.T) {
	client := &smithy.GenericAPIError{Code: "AccessDenied", Fault: smithy.FaultClient}
	server := &smithy.GenericAPIError{Code: "SlowDown", Fault: smithy.FaultServer}

	assert.False(t, retryable(client))
	assert.True(t, retryable(server))
	assert.True(t, retryable(errors.New("connection reset")))

	assert.True(t, bucketExists(&smithy.GenericAPIError{Code: "BucketAlreadyOwnedByYou"}))
	assert.False(t, bucketExists(server))
	assert.False(t, bucketExists(errors.New("x")))
}

// ---------------------------------------------------------------------------
// Exporter
// ---------------------------------------------------------------------------

type fakeUploader struct {
	bucket, key string
	size        int
	err         error
	calls       int
}

func (u *fakeUploader) Upload(_ context.Context, bucket, key string, body io.Reader) error {
	u.calls++
	if u.err != nil {
		return u.err
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	u.bucket, u.key, u.size = bucket, key, len(b)
	return nil
}

type failingMeta struct{ swatches.ProductMetaStore }

func (failingMeta) ListProductIDsWithMeta(context.Context, string) ([]swatches.ProductID, error) {
	return nil, errors.New("boom")
}

func seededMeta(t *testing.T) *internal.MemoryStore {
	t.Helper()
	mem := internal.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, mem.SetProductMeta(ctx, 7, swatches.CacheKey, "<ul>seven</ul>"))
	require.NoError(t, mem.SetProductMeta(ctx, 3, swatches.CacheKey, "<ul>three</ul>"))
	require.NoError(t, mem.SetProductMeta(ctx, 9, "other_key", "ignored"))
	return mem
}

func enabledConfig(t *testing.T) swatches.ExportConfig {
	return swatches.ExportConfig{
		Enabled:          true,
		Bucket:           "swatch-snapshots",
		Prefix:           "shop",
		WorkDir:          t.TempDir(),
		FailureThreshold: 1,
		FailureWindow:    time.Minute,
		OpenDuration:     time.Hour,
	}
}

func TestExporter_Disabled(t *testing.T) {
	up := &fakeUploader{}
	e := NewExporter(seededMeta(t), up, swatches.ExportConfig{}, nil)

	_, err := e.Export(context.Background())
	require.Error(t, err)
	assert.Equal(t, swatches.ErrCodeExportUnavailable, swatches.GetErrorCode(err))
	assert.Zero(t, up.calls)
}

func TestExporter_RowsFallsBackToPerProductReads(t *testing.T) {
	e := NewExporter(seededMeta(t), &fakeUploader{}, enabledConfig(t), nil)

	rows, err := e.rows(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []Row{{ProductID: 3, HTML: "<ul>three</ul>"}, {ProductID: 7, HTML: "<ul>seven</ul>"}}, rows)
}

func TestExporter_CollectFailure(t *testing.T) {
	e := NewExporter(failingMeta{}, &fakeUploader{}, enabledConfig(t), nil)

	_, err := e.Export(context.Background())
	require.Error(t, err)
	assert.Equal(t, swatches.ErrCodeExportFailed, swatches.GetErrorCode(err))
}

func TestExporter_ExportUploadsSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping duckdb snapshot test in short mode")
	}
	up := &fakeUploader{}
	cfg := enabledConfig(t)
	e := NewExporter(seededMeta(t), up, cfg, nil)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e.nowFunc = func() time.Time { return at }

	res, err := e.Export(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "swatch-snapshots", res.Bucket)
	assert.Regexp(t, `^shop/snapshots/2025-03-01/[0-9a-f-]{36}\.parquet$`, res.Key)
	assert.Equal(t, Summary{Rows: 2, HTMLBytes: int64(len("<ul>seven</ul>") + len("<ul>three</ul>")), MinProduct: 3, MaxProduct: 7}, res.Summary)
	assert.Equal(t, res.Key, up.key)
	assert.Equal(t, int64(up.size), res.Bytes)

	leftovers, err := filepath.Glob(filepath.Join(cfg.WorkDir, "*.parquet"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "local snapshot files are removed")
}

func TestExporter_UploadFailuresPauseUploads(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping duckdb snapshot test in short mode")
	}
	up := &fakeUploader{err: &smithy.GenericAPIError{Code: "InternalError", Fault: smithy.FaultServer}}
	e := NewExporter(seededMeta(t), up, enabledConfig(t), nil)

	_, err := e.Export(context.Background())
	require.Error(t, err)
	se, ok := swatches.AsSwatchError(err)
	require.True(t, ok)
	assert.Contains(t, se.Details["key"], "snapshots/")

	_, err = e.Export(context.Background())
	assert.Equal(t, swatches.ErrCodeExportUnavailable, swatches.GetErrorCode(err))
	se, ok = swatches.AsSwatchError(err)
	require.True(t, ok)
	assert.NotEmpty(t, se.Details["resume_at"])
	assert.Equal(t, 1, up.calls)
}

func TestExporter_ClientFaultDoesNotPause(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping duckdb snapshot test in short mode")
	}
	up := &fakeUploader{err: &smithy.GenericAPIError{Code: "AccessDenied", Fault: smithy.FaultClient}}
	e := NewExporter(seededMeta(t), up, enabledConfig(t), nil)

	_, err := e.Export(context.Background())
	require.Error(t, err)
	_, err = e.Export(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, up.calls)
}

// ---------------------------------------------------------------------------
// Parquet writer
// ---------------------------------------------------------------------------

func TestParquetWriter_WriteAndCount(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping duckdb snapshot test in short mode")
	}
	ctx := context.Background()
	w, err := NewParquetWriter(ctx, nil)
	require.NoError(t, err)
	defer w.Close()

	path := filepath.Join(t.TempDir(), "it's.parquet")
	sum, err := w.Write(ctx, nil, time.Now(), path)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)

	sum, err = w.Write(ctx, []Row{{ProductID: 5, HTML: "ab"}, {ProductID: 2, HTML: "cde"}}, time.Now(), path)
	require.NoError(t, err)
	assert.Equal(t, Summary{Rows: 2, HTMLBytes: 5, MinProduct: 2, MaxProduct: 5}, sum)

	n, err := w.CountParquetRows(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
