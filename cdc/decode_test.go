package cdc

import (
	"testing"

	"github.com/poiesic/vectorflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChangeEvent_PreservesColumnOrder(t *testing.T) {
	data := []byte(`{"schema": {"type": "struct"}, "payload": {"name": "widget", "id": 7, "price": 9.5, "tags": null, "__deleted": "false"}}`)

	event, err := DecodeChangeEvent(data)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.False(t, event.Deleted)
	assert.Equal(t, core.OperationUpsert, event.Operation)
	assert.Equal(t, []string{"name", "id", "price", "tags"}, event.Row.Columns)
	assert.Equal(t, []any{"widget", int64(7), 9.5, nil}, event.Row.Values)
}

func TestDecodeChangeEvent_DeletedFlagIsPopped(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		deleted bool
	}{
		{"string true", `{"payload": {"id": 1, "__deleted": "true"}}`, true},
		{"string false", `{"payload": {"__deleted": "false", "id": 1}}`, false},
		{"bool true", `{"payload": {"id": 1, "__deleted": true}}`, true},
		{"missing flag", `{"payload": {"id": 1}}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := DecodeChangeEvent([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.deleted, event.Deleted)
			assert.Equal(t, []string{"id"}, event.Row.Columns, "__deleted must not reach the row")
			if tt.deleted {
				assert.Equal(t, core.OperationDelete, event.Operation)
			}
		})
	}
}

func TestDecodeChangeEvent_Tombstone(t *testing.T) {
	for _, data := range [][]byte{nil, {}, []byte("  ")} {
		event, err := DecodeChangeEvent(data)
		assert.NoError(t, err)
		assert.Nil(t, event)
	}
}

func TestDecodeChangeEvent_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `not json`},
		{"array", `[1, 2]`},
		{"missing payload", `{"schema": {}}`},
		{"null payload", `{"payload": null}`},
		{"bad deleted flag", `{"payload": {"__deleted": "maybe"}}`},
		{"truncated", `{"payload": {"id": 1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeChangeEvent([]byte(tt.data))
			assert.ErrorIs(t, err, core.ErrInvalidChangeEvent)
		})
	}
}

func TestDecodeChangeEvent_NestedValues(t *testing.T) {
	event, err := DecodeChangeEvent([]byte(`{"payload": {"attrs": {"n": 1}, "list": [1, 2.5]}}`))
	require.NoError(t, err)

	attrs, ok := event.Row.Get("attrs")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"n": int64(1)}, attrs)

	list, ok := event.Row.Get("list")
	require.True(t, ok)
	assert.Equal(t, []any{int64(1), 2.5}, list)
}
