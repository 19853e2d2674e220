package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/vectorflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upsertCall struct {
	index     string
	namespace string
	records   []core.VectorRecord
}

// recordingBackend implements Backend for testing and records every call
type recordingBackend struct {
	indexes     map[string]core.Index
	describeErr error
	describes   int
	creates     []core.Index
	upserts     []upsertCall
	upsertErr   error
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{indexes: make(map[string]core.Index)}
}

func (b *recordingBackend) DescribeIndex(ctx context.Context, name string) (*core.Index, error) {
	b.describes++
	if b.describeErr != nil {
		return nil, b.describeErr
	}
	idx, ok := b.indexes[name]
	if !ok {
		return nil, core.ErrIndexNotFound
	}
	return &idx, nil
}

func (b *recordingBackend) CreateIndex(ctx context.Context, index core.Index) error {
	b.creates = append(b.creates, index)
	b.indexes[index.Name] = index
	return nil
}

func (b *recordingBackend) Upsert(ctx context.Context, index, namespace string, records []core.VectorRecord) error {
	b.upserts = append(b.upserts, upsertCall{index: index, namespace: namespace, records: records})
	return b.upsertErr
}

func newTestClient(t *testing.T) (*Client, *recordingBackend) {
	backend := newRecordingBackend()
	client, err := NewClient(backend)
	require.NoError(t, err)
	return client, backend
}

func TestNewClient_RequiresBackend(t *testing.T) {
	_, err := NewClient(nil)
	assert.ErrorIs(t, err, ErrBackendRequired)
}

func TestEnsureIndex_CreatesMissingIndex(t *testing.T) {
	client, backend := newTestClient(t)

	err := client.EnsureIndex(context.Background(), "docs", 3)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.describes)
	require.Len(t, backend.creates, 1)
	assert.Equal(t, core.Index{Name: "docs", Dimensions: 3}, backend.creates[0])
}

func TestEnsureIndex_ExistingSameDimensionsIsNoop(t *testing.T) {
	client, backend := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.EnsureIndex(ctx, "docs", 3))
	require.NoError(t, client.Upsert(ctx, "docs", "ns", core.VectorRecord{ID: "a", Values: []float32{1, 2, 3}}))

	err := client.EnsureIndex(ctx, "docs", 3)
	require.NoError(t, err)

	assert.Equal(t, 2, backend.describes)
	assert.Len(t, backend.creates, 1, "second EnsureIndex must not create again")
}

func TestEnsureIndex_DimensionMismatch(t *testing.T) {
	client, backend := newTestClient(t)
	backend.indexes["docs"] = core.Index{Name: "docs", Dimensions: 4}

	err := client.EnsureIndex(context.Background(), "docs", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.Empty(t, backend.creates)
}

func TestEnsureIndex_InvalidDimensions(t *testing.T) {
	client, backend := newTestClient(t)

	err := client.EnsureIndex(context.Background(), "docs", 0)
	assert.ErrorIs(t, err, core.ErrArgument)
	assert.Equal(t, 0, backend.describes)
}

func TestEnsureIndex_DescribeErrorPropagates(t *testing.T) {
	client, backend := newTestClient(t)
	backend.describeErr = errors.New("network down")

	err := client.EnsureIndex(context.Background(), "docs", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
	assert.Empty(t, backend.creates)
}

func TestUpsert_WithMetadata(t *testing.T) {
	client, backend := newTestClient(t)

	record := core.VectorRecord{ID: "test_id", Values: []float32{1, 2, 3}, Metadata: core.Metadata{"key": "value"}}
	err := client.Upsert(context.Background(), "test_index", "test_namespace", record)
	require.NoError(t, err)

	require.Len(t, backend.upserts, 1)
	call := backend.upserts[0]
	assert.Equal(t, "test_index", call.index)
	assert.Equal(t, "test_namespace", call.namespace)
	assert.Equal(t, []core.VectorRecord{record}, call.records)
}

func TestUpsert_WithoutMetadata(t *testing.T) {
	client, backend := newTestClient(t)

	err := client.Upsert(context.Background(), "idx", "ns", core.VectorRecord{ID: "a", Values: []float32{1}})
	require.NoError(t, err)

	require.Len(t, backend.upserts, 1)
	assert.Nil(t, backend.upserts[0].records[0].Metadata)
}

func TestUpsert_InvalidRecord(t *testing.T) {
	client, backend := newTestClient(t)

	err := client.Upsert(context.Background(), "idx", "ns", core.VectorRecord{Values: []float32{1}})
	assert.ErrorIs(t, err, core.ErrInvalidVectorRecord)
	assert.Empty(t, backend.upserts)
}

func TestUpsert_BackendErrorPropagates(t *testing.T) {
	client, backend := newTestClient(t)
	backend.upsertErr = errors.New("quota exceeded")

	err := client.Upsert(context.Background(), "idx", "ns", core.VectorRecord{ID: "a", Values: []float32{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Len(t, backend.upserts, 1, "no retries")
}

func TestBulkUpsert_WithMetadata(t *testing.T) {
	client, backend := newTestClient(t)

	ids := []string{"a", "b"}
	vectors := [][]float32{{1, 2, 3}, {4, 5, 6}}
	metadata := []core.Metadata{{"k": "v1"}, {"k": "v2"}}

	err := client.BulkUpsert(context.Background(), "idx", "ns", ids, vectors, metadata)
	require.NoError(t, err)

	require.Len(t, backend.upserts, 1)
	assert.Equal(t, []core.VectorRecord{
		{ID: "a", Values: []float32{1, 2, 3}, Metadata: core.Metadata{"k": "v1"}},
		{ID: "b", Values: []float32{4, 5, 6}, Metadata: core.Metadata{"k": "v2"}},
	}, backend.upserts[0].records)
}

func TestBulkUpsert_WithoutMetadata(t *testing.T) {
	client, backend := newTestClient(t)

	err := client.BulkUpsert(context.Background(), "idx", "ns",
		[]string{"a", "b"}, [][]float32{{1, 2}, {3, 4}}, nil)
	require.NoError(t, err)

	require.Len(t, backend.upserts, 1)
	for _, rec := range backend.upserts[0].records {
		assert.Nil(t, rec.Metadata, "record %s should carry no metadata", rec.ID)
	}
}

func TestBulkUpsert_DimensionMismatch(t *testing.T) {
	client, backend := newTestClient(t)

	err := client.BulkUpsert(context.Background(), "idx", "ns",
		[]string{"a", "b"}, [][]float32{{1, 2, 3}, {4, 5}}, nil)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)
	assert.Empty(t, backend.upserts, "no network write on invalid batch")
}

func TestBulkUpsert_CountMismatch(t *testing.T) {
	client, backend := newTestClient(t)

	err := client.BulkUpsert(context.Background(), "idx", "ns",
		[]string{"a"}, [][]float32{{1, 2}, {3, 4}}, nil)
	assert.ErrorIs(t, err, core.ErrCountMismatch)
	assert.Empty(t, backend.upserts, "no network write on invalid batch")
}

func TestBulkUpsert_ShortMetadata(t *testing.T) {
	client, backend := newTestClient(t)

	err := client.BulkUpsert(context.Background(), "idx", "ns",
		[]string{"a", "b", "c"}, [][]float32{{1}, {2}, {3}}, []core.Metadata{{"k": "v"}})
	require.NoError(t, err)

	require.Len(t, backend.upserts, 1)
	records := backend.upserts[0].records
	require.Len(t, records, 3, "records without metadata are still written")
	assert.Equal(t, core.Metadata{"k": "v"}, records[0].Metadata)
	assert.Nil(t, records[1].Metadata)
	assert.Nil(t, records[2].Metadata)
}

func TestBulkUpsert_EmptyBatch(t *testing.T) {
	client, backend := newTestClient(t)

	err := client.BulkUpsert(context.Background(), "idx", "ns", nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, backend.upserts)
}
