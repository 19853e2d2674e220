package ingestion

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/vectorflow/ai/mock"
	"github.com/poiesic/vectorflow/cdc"
	"github.com/poiesic/vectorflow/codec"
	"github.com/poiesic/vectorflow/core"
	"github.com/poiesic/vectorflow/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingSerializer implements codec.Serializer and always fails
type failingSerializer struct {
	err error
}

func (s failingSerializer) Serialize(core.EmbeddingRecord) ([]byte, error) {
	return nil, s.err
}

// failingProducer implements stream.Producer and always fails
type failingProducer struct{}

func (failingProducer) Produce(context.Context, string, []byte, []byte) error {
	return errors.New("broker unavailable")
}

func (failingProducer) Close() error { return nil }

func productMessage(value string) stream.Message {
	return stream.Message{Topic: "pg.public.products", Value: []byte(value)}
}

type stageFixture struct {
	stage      *Stage
	broker     *stream.MemoryBroker
	embedder   *mock.MockEmbedder
	serializer *codec.AvroSerializer
}

func newStageFixture(t *testing.T, opts ...StageOption) *stageFixture {
	t.Helper()
	mapper, err := cdc.NewMapper(cdc.ConcatColumns(" ", "name", "description"),
		cdc.WithMetadata(cdc.ColumnValues("category")))
	require.NoError(t, err)

	broker := stream.NewMemoryBroker()
	t.Cleanup(func() { broker.Close() })
	embedder := mock.NewMockEmbedderWithDimensions(4)
	serializer := codec.NewAvroSerializer(codec.DefaultSchema(), 1, nil)

	stage, err := NewStage(mapper, embedder, serializer, broker, "products", opts...)
	require.NoError(t, err)
	return &stageFixture{stage: stage, broker: broker, embedder: embedder, serializer: serializer}
}

func TestStage_ProducesEmbeddingRecord(t *testing.T) {
	f := newStageFixture(t, WithKeyColumn("id"))
	ctx := context.Background()

	produced, err := f.stage.Process(ctx, productMessage(
		`{"payload": {"id": 7, "name": "widget", "description": "a small widget", "category": "tools", "__deleted": "false"}}`))
	require.NoError(t, err)
	assert.True(t, produced)

	msgs := f.broker.Messages("products")
	require.Len(t, msgs, 1)
	assert.Equal(t, "7", string(msgs[0].Key))

	record, err := f.serializer.Deserialize(ctx, msgs[0].Value)
	require.NoError(t, err)
	assert.Equal(t, mock.GenerateDeterministicVector("widget a small widget", 4), record.Doc)
	assert.Equal(t, []string{"tools"}, record.Metadata)
	assert.Equal(t, []string{"widget a small widget"}, f.embedder.Texts())
}

func TestStage_DeletedEventProducesNothing(t *testing.T) {
	f := newStageFixture(t)

	produced, err := f.stage.Process(context.Background(), productMessage(
		`{"payload": {"id": 7, "name": "widget", "description": "gone", "category": "tools", "__deleted": "true"}}`))
	require.NoError(t, err)
	assert.False(t, produced)

	assert.Empty(t, f.broker.Messages("products"), "zero sends for deleted rows")
	assert.Zero(t, f.embedder.CallCount(), "deleted rows are not embedded")
}

func TestStage_TombstoneAndInvalidEventsAreSkipped(t *testing.T) {
	f := newStageFixture(t)

	for _, value := range []string{"", `{"not": "a change event"}`, `garbage`} {
		produced, err := f.stage.Process(context.Background(), productMessage(value))
		require.NoError(t, err)
		assert.False(t, produced)
	}
	assert.Empty(t, f.broker.Messages("products"))
}

func TestStage_KeyDefaultsToContentHash(t *testing.T) {
	f := newStageFixture(t)

	_, err := f.stage.Process(context.Background(), productMessage(
		`{"payload": {"name": "widget", "description": "blue", "category": "tools"}}`))
	require.NoError(t, err)

	msgs := f.broker.Messages("products")
	require.Len(t, msgs, 1)
	assert.Equal(t, core.IDFromContent("widget blue"), string(msgs[0].Key))
}

func TestStage_MissingKeyColumn(t *testing.T) {
	f := newStageFixture(t, WithKeyColumn("sku"))

	_, err := f.stage.Process(context.Background(), productMessage(
		`{"payload": {"id": 1, "name": "widget", "description": "d", "category": "c"}}`))
	assert.ErrorIs(t, err, core.ErrArgument)
	assert.Empty(t, f.broker.Messages("products"))
}

func TestStage_TransformArgumentErrorPropagates(t *testing.T) {
	f := newStageFixture(t)

	_, err := f.stage.Process(context.Background(), productMessage(`{"payload": {"id": 1, "title": "no name column"}}`))
	assert.ErrorIs(t, err, core.ErrArgument)
}

func TestStage_SerializationErrorPropagates(t *testing.T) {
	mapper, err := cdc.NewMapper(cdc.ConcatColumns(" "))
	require.NoError(t, err)
	broker := stream.NewMemoryBroker()
	defer broker.Close()

	schemaErr := errors.New("schema mismatch")
	stage, err := NewStage(mapper, mock.NewMockEmbedderWithDimensions(2), failingSerializer{err: schemaErr}, broker, "products")
	require.NoError(t, err)

	_, err = stage.Process(context.Background(), productMessage(`{"payload": {"name": "widget"}}`))
	assert.ErrorIs(t, err, schemaErr)
	assert.Empty(t, broker.Messages("products"))
}

func TestStage_EmbedderErrorPropagates(t *testing.T) {
	f := newStageFixture(t)
	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("rate limited")
	}

	_, err := f.stage.Process(context.Background(), productMessage(
		`{"payload": {"name": "widget", "description": "d", "category": "c"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestStage_EmptyEmbedding(t *testing.T) {
	f := newStageFixture(t)
	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{}, nil
	}

	_, err := f.stage.Process(context.Background(), productMessage(
		`{"payload": {"name": "widget", "description": "d", "category": "c"}}`))
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestStage_ProduceErrorPropagates(t *testing.T) {
	mapper, err := cdc.NewMapper(cdc.ConcatColumns(" "))
	require.NoError(t, err)

	stage, err := NewStage(mapper, mock.NewMockEmbedderWithDimensions(2),
		codec.NewAvroSerializer(codec.DefaultSchema(), 1, nil), failingProducer{}, "products")
	require.NoError(t, err)

	_, err = stage.Process(context.Background(), productMessage(`{"payload": {"name": "widget"}}`))
	assert.ErrorContains(t, err, "broker unavailable")
}

func TestNewStage_RequiredDependencies(t *testing.T) {
	mapper, err := cdc.NewMapper(cdc.ConcatColumns(" "))
	require.NoError(t, err)
	embedder := mock.NewMockEmbedder()
	serializer := codec.NewAvroSerializer(codec.DefaultSchema(), 1, nil)
	broker := stream.NewMemoryBroker()
	defer broker.Close()

	_, err = NewStage(nil, embedder, serializer, broker, "t")
	assert.ErrorIs(t, err, ErrMapperRequired)
	_, err = NewStage(mapper, nil, serializer, broker, "t")
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewStage(mapper, embedder, nil, broker, "t")
	assert.ErrorIs(t, err, ErrSerializerRequired)
	_, err = NewStage(mapper, embedder, serializer, nil, "t")
	assert.ErrorIs(t, err, ErrProducerRequired)
	_, err = NewStage(mapper, embedder, serializer, broker, "")
	assert.ErrorIs(t, err, ErrTopicRequired)
}
