package backfill

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/vectorflow/ai/mock"
	"github.com/poiesic/vectorflow/cdc"
	"github.com/poiesic/vectorflow/core"
	"github.com/poiesic/vectorflow/extract"
	"github.com/poiesic/vectorflow/storage/badger"
	"github.com/poiesic/vectorflow/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	source      *extract.Extractor
	backend     *badger.Backend
	checkpoints *badger.CheckpointRepository
	client      *vectorstore.Client
	embedder    *mock.MockEmbedder
	mapper      *cdc.Mapper
}

func newFixture(t *testing.T, rows int) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open(extract.DriverSQLite, filepath.Join(t.TempDir(), "shop.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.ExecContext(ctx, `CREATE TABLE products (id INTEGER PRIMARY KEY, name TEXT, category TEXT)`)
	require.NoError(t, err)
	for i := 1; i <= rows; i++ {
		_, err = db.ExecContext(ctx, `INSERT INTO products VALUES (?, ?, ?)`,
			i, fmt.Sprintf("product %d", i), fmt.Sprintf("cat%d", i%2))
		require.NoError(t, err)
	}
	source := extract.New(db, nil)

	backend, checkpoints, err := badger.NewMemoryBackend()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	client, err := vectorstore.NewClient(backend)
	require.NoError(t, err)

	mapper, err := cdc.NewMapper(cdc.ConcatColumns(" ", "name"), cdc.WithMetadata(cdc.ColumnValues("category")))
	require.NoError(t, err)

	return &fixture{
		source:      source,
		backend:     backend,
		checkpoints: checkpoints,
		client:      client,
		embedder:    mock.NewMockEmbedderWithDimensions(4),
		mapper:      mapper,
	}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Relation = "products"
	cfg.Columns = []string{"name", "category"}
	cfg.PrimaryKey = "id"
	cfg.Index = "products"
	cfg.ChunkSize = 2
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func (f *fixture) backfiller(t *testing.T, cfg *Config, opts ...Option) *Backfiller {
	t.Helper()
	b, err := New(f.source, f.mapper, f.embedder, f.client, cfg, opts...)
	require.NoError(t, err)
	return b
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	n, err := f.backend.CountVectors(context.Background(), "products", "")
	require.NoError(t, err)
	return n
}

func TestBackfill_LoadsEveryRow(t *testing.T) {
	f := newFixture(t, 5)
	var progress bytes.Buffer

	result, err := f.backfiller(t, testConfig(), WithCheckpoints(f.checkpoints), WithProgress(&progress)).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(5), result.Total)
	assert.Equal(t, int64(5), result.Upserted)
	assert.Zero(t, result.Resumed)
	assert.Equal(t, 5, f.count(t))
	assert.Equal(t, 3, f.embedder.CallCount(), "one embedding call per chunk")

	idx, err := f.backend.DescribeIndex(context.Background(), "products")
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Dimensions)

	rec, err := f.backend.GetVector(context.Background(), "products", "", "3")
	require.NoError(t, err)
	assert.Equal(t, mock.GenerateDeterministicVector("product 3", 4), rec.Values)
	assert.Equal(t, []any{"cat1"}, rec.Metadata[core.MetadataKey])

	cp, err := f.checkpoints.LoadCheckpoint(context.Background(), testConfig().CheckpointName())
	require.NoError(t, err)
	assert.Nil(t, cp, "checkpoint is cleared after a complete run")

	assert.Contains(t, progress.String(), "Backfill complete")
}

func TestBackfill_ResumesFromCheckpoint(t *testing.T) {
	f := newFixture(t, 5)
	cfg := testConfig()
	require.NoError(t, f.checkpoints.SaveCheckpoint(context.Background(),
		&core.Checkpoint{Name: cfg.CheckpointName(), Offset: 3}))

	result, err := f.backfiller(t, cfg, WithCheckpoints(f.checkpoints)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.Resumed)
	assert.Equal(t, int64(2), result.Upserted)
	assert.Equal(t, []string{"product 4", "product 5"}, f.embedder.Texts())
}

func TestBackfill_RetriesEmbedding(t *testing.T) {
	f := newFixture(t, 2)
	calls := 0
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("temporary outage")
		}
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = mock.GenerateDeterministicVector(text, 4)
		}
		return out, nil
	}

	result, err := f.backfiller(t, testConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Upserted)
	assert.Equal(t, 2, calls)
}

func TestBackfill_FailureKeepsCheckpoint(t *testing.T) {
	f := newFixture(t, 5)
	calls := 0
	f.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("quota exceeded")
		}
		return [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}, nil
	}
	cfg := testConfig()
	cfg.MaxRetries = 2

	_, err := f.backfiller(t, cfg, WithCheckpoints(f.checkpoints)).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 3, calls, "first chunk once, second chunk twice")

	cp, err := f.checkpoints.LoadCheckpoint(context.Background(), cfg.CheckpointName())
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, int64(2), cp.Offset)
	assert.Equal(t, 2, f.count(t))
}

func TestBackfill_ExistingIndexWithOtherDimensions(t *testing.T) {
	f := newFixture(t, 1)
	require.NoError(t, f.client.EnsureIndex(context.Background(), "products", 8))

	_, err := f.backfiller(t, testConfig()).Run(context.Background())
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestBackfill_EmptyTable(t *testing.T) {
	f := newFixture(t, 0)

	result, err := f.backfiller(t, testConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.Zero(t, f.embedder.CallCount())
}

func TestNew_Validation(t *testing.T) {
	f := newFixture(t, 0)

	_, err := New(nil, f.mapper, f.embedder, f.client, testConfig())
	assert.ErrorIs(t, err, ErrSourceRequired)
	_, err = New(f.source, nil, f.embedder, f.client, testConfig())
	assert.ErrorIs(t, err, ErrMapperRequired)
	_, err = New(f.source, f.mapper, nil, f.client, testConfig())
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = New(f.source, f.mapper, f.embedder, nil, testConfig())
	assert.ErrorIs(t, err, ErrClientRequired)

	_, err = New(f.source, f.mapper, f.embedder, f.client, nil)
	assert.Error(t, err, "default config names no relation")
}
