package telemetry

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/require"

	"github.com/tapestry-kg/tapestry/pkg/types"
)

func TestParquetHandlerCapturesErrors(t *testing.T) {
	dir := t.TempDir()
	next := slog.NewTextHandler(io.Discard, nil)

	h, err := NewParquetHandler(next, dir)
	require.NoError(t, err)

	log := slog.New(h)
	ctx := context.WithValue(context.Background(), types.ContextKeyRequestID, "req-1")
	ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")

	log.InfoContext(ctx, "routine message")
	log.ErrorContext(ctx, "backend write failed", "key", "n:ada")

	require.NoError(t, h.Flush())

	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	records, err := parquet.ReadFile[LogRecord](files[0])
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "backend write failed", records[0].Message)
	require.Equal(t, "req-1", records[0].RequestID)
	require.Equal(t, "server", records[0].RequestSource)
	require.Contains(t, records[0].Attributes, "n:ada")
}

func TestParquetHandlerFlushEmptyBuffer(t *testing.T) {
	dir := t.TempDir()
	h, err := NewParquetHandler(slog.NewTextHandler(io.Discard, nil), dir)
	require.NoError(t, err)

	require.NoError(t, h.Flush())

	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)
	require.Empty(t, files)
}
