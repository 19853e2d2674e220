package cdc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/vectorflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productEvent(deleted bool) *core.ChangeEvent {
	return &core.ChangeEvent{
		Operation: core.OperationUpsert,
		Row: core.Row{
			Columns: []string{"id", "name", "category"},
			Values:  []any{int64(1), "widget", "tools"},
		},
		Deleted: deleted,
	}
}

func TestMapper_DeletedEventProducesNothing(t *testing.T) {
	called := false
	mapper, err := NewMapper(TransformFunc(func(row core.Row) (string, error) {
		called = true
		return "doc", nil
	}))
	require.NoError(t, err)

	doc, metadata, ok, err := mapper.Map(productEvent(true))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, doc)
	assert.Nil(t, metadata)
	assert.False(t, called, "transform must not run for deleted rows")
}

func TestMapper_NilEvent(t *testing.T) {
	mapper, err := NewMapper(ConcatColumns(" "))
	require.NoError(t, err)

	_, _, ok, err := mapper.Map(nil)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestMapper_IdentityFunctions(t *testing.T) {
	identity := Positional(1, func(values ...any) (string, error) {
		return values[0].(string), nil
	})
	identityMetadata := PositionalMetadata(1, func(values ...any) ([]string, error) {
		return []string{values[0].(string)}, nil
	})
	mapper, err := NewMapper(identity, WithMetadata(identityMetadata))
	require.NoError(t, err)

	event := &core.ChangeEvent{Row: core.Row{Columns: []string{"body"}, Values: []any{"hello"}}}
	doc, metadata, ok, err := mapper.Map(event)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", doc)
	assert.Equal(t, []string{"hello"}, metadata)
}

func TestMapper_NoMetadataExtractorGivesEmptyMetadata(t *testing.T) {
	mapper, err := NewMapper(ConcatColumns(" ", "name"))
	require.NoError(t, err)

	doc, metadata, ok, err := mapper.Map(productEvent(false))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "widget", doc)
	assert.NotNil(t, metadata)
	assert.Empty(t, metadata)
}

func TestMapper_ArityMismatch(t *testing.T) {
	mapper, err := NewMapper(Positional(2, func(values ...any) (string, error) {
		return fmt.Sprint(values...), nil
	}))
	require.NoError(t, err)

	_, _, ok, err := mapper.Map(productEvent(false))
	assert.ErrorIs(t, err, core.ErrArgument)
	assert.False(t, ok)
}

func TestMapper_MetadataError(t *testing.T) {
	boom := errors.New("boom")
	mapper, err := NewMapper(ConcatColumns(" "), WithMetadata(MetadataFunc(func(core.Row) ([]string, error) {
		return nil, boom
	})))
	require.NoError(t, err)

	_, _, _, err = mapper.Map(productEvent(false))
	assert.ErrorIs(t, err, boom)
}

func TestNewMapper_RequiresTransform(t *testing.T) {
	_, err := NewMapper(nil)
	assert.ErrorIs(t, err, ErrTransformRequired)
}

func TestConcatColumns(t *testing.T) {
	row := core.Row{
		Columns: []string{"id", "name", "notes", "category"},
		Values:  []any{int64(3), "widget", nil, "tools"},
	}

	doc, err := ConcatColumns(" | ", "name", "category").Transform(row)
	require.NoError(t, err)
	assert.Equal(t, "widget | tools", doc)

	doc, err = ConcatColumns(" ").Transform(row)
	require.NoError(t, err)
	assert.Equal(t, "3 widget tools", doc, "all columns in order, nulls skipped")

	_, err = ConcatColumns(" ", "missing").Transform(row)
	assert.ErrorIs(t, err, core.ErrArgument)
}

func TestColumnValues(t *testing.T) {
	row := core.Row{Columns: []string{"category", "brand"}, Values: []any{"tools", nil}}

	tags, err := ColumnValues("category", "brand").ExtractMetadata(row)
	require.NoError(t, err)
	assert.Equal(t, []string{"tools"}, tags)
}

func TestColumns_Order(t *testing.T) {
	transform := Columns(func(values ...any) (string, error) {
		return fmt.Sprintf("%v-%v", values[0], values[1]), nil
	}, "name", "id")

	doc, err := transform.Transform(productEvent(false).Row)
	require.NoError(t, err)
	assert.Equal(t, "widget-1", doc)
}
