package vectorflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/vectorflow/ai/mock"
	"github.com/poiesic/vectorflow/cdc"
	"github.com/poiesic/vectorflow/codec"
	"github.com/poiesic/vectorflow/core"
	"github.com/poiesic/vectorflow/sink"
	"github.com/poiesic/vectorflow/stream"
	"github.com/poiesic/vectorflow/vectorstore/pinecone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	t.Run("create on disk", func(t *testing.T) {
		e, err := NewEngine(WithStatePath(filepath.Join(t.TempDir(), "state")), WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		defer e.Close()

		assert.NotNil(t, e.Client())
		assert.NotNil(t, e.Embedder())
		assert.NotNil(t, e.CheckpointRepository())
		_, local := e.VectorReader()
		assert.True(t, local)
	})

	t.Run("state path required", func(t *testing.T) {
		_, err := NewEngine(WithProvider(mock.NewMockProvider()))
		assert.ErrorIs(t, err, ErrStateRequired)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		e, err := NewEngine(WithStatePath(tmpFile), WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, e)
	})

	t.Run("invalid pinecone config", func(t *testing.T) {
		_, err := NewEngine(WithInMemoryState(), WithProvider(mock.NewMockProvider()),
			WithPinecone(pinecone.NewConfig()))
		assert.Error(t, err, "pinecone requires an api key")
	})
}

func TestEngine_CloseClosesProvider(t *testing.T) {
	provider := mock.NewMockProvider()
	e, err := NewEngine(WithInMemoryState(), WithProvider(provider))
	require.NoError(t, err)

	require.NoError(t, e.Close())
	assert.True(t, provider.(*mock.MockProvider).Closed())
}

// Rows flow from a change event through the stage and the sink into the local index.
func TestEngine_StreamToLocalIndex(t *testing.T) {
	ctx := context.Background()
	e, err := NewEngine(WithInMemoryState(),
		WithProvider(mock.NewMockProviderWithEmbedder(mock.NewMockEmbedderWithDimensions(3))))
	require.NoError(t, err)
	defer e.Close()

	broker := stream.NewMemoryBroker()
	defer broker.Close()
	serializer := codec.NewAvroSerializer(codec.DefaultSchema(), 1, nil)

	mapper, err := cdc.NewMapper(cdc.ConcatColumns(" ", "name"), cdc.WithMetadata(cdc.ColumnValues("category")))
	require.NoError(t, err)
	stage, err := e.NewStage(mapper, serializer, broker, "products")
	require.NoError(t, err)

	_, err = stage.Process(ctx, stream.Message{Value: []byte(`{"payload": {"id": 1, "name": "lamp", "category": "home"}}`)})
	require.NoError(t, err)

	s, err := e.NewSink(broker.Consumer("products"), serializer,
		sink.NewConfig(sink.WithIndex("products"), sink.WithBatchSize(1), sink.WithEnsureIndex(true)))
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- s.Run(runCtx) }()
	require.Eventually(t, func() bool { return broker.Committed("products") == 1 }, defaultWait, pollEvery)
	cancel()
	require.NoError(t, <-done)

	reader, ok := e.VectorReader()
	require.True(t, ok)
	rec, err := reader.GetVector(ctx, "products", "", core.IDFromContent("lamp"))
	require.NoError(t, err)
	assert.Equal(t, mock.GenerateDeterministicVector("lamp", 3), rec.Values)
	assert.Equal(t, []any{"home"}, rec.Metadata[core.MetadataKey])
}

const (
	defaultWait = 2 * time.Second
	pollEvery   = 5 * time.Millisecond
)
