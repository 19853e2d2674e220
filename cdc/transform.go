package cdc

import (
	"fmt"
	"strings"

	"github.com/poiesic/vectorflow/core"
)

// Transform turns a row into the document that gets embedded.
// Implementations must be pure functions of the row.
type Transform interface {
	Transform(row core.Row) (string, error)
}

// MetadataExtractor derives metadata tags from a row.
// Implementations must be pure functions of the row.
type MetadataExtractor interface {
	ExtractMetadata(row core.Row) ([]string, error)
}

// TransformFunc adapts a function to the Transform interface.
type TransformFunc func(row core.Row) (string, error)

// Transform calls f(row).
func (f TransformFunc) Transform(row core.Row) (string, error) {
	return f(row)
}

// MetadataFunc adapts a function to the MetadataExtractor interface.
type MetadataFunc func(row core.Row) ([]string, error)

// ExtractMetadata calls f(row).
func (f MetadataFunc) ExtractMetadata(row core.Row) ([]string, error) {
	return f(row)
}

func positional[T any](arity int, fn func(values ...any) (T, error)) func(core.Row) (T, error) {
	return func(row core.Row) (T, error) {
		if row.Len() != arity {
			var zero T
			return zero, fmt.Errorf("%w: function takes %d values, row has %d columns %v",
				core.ErrArgument, arity, row.Len(), row.Columns)
		}
		return fn(row.Values...)
	}
}

func columns[T any](fn func(values ...any) (T, error), names []string) func(core.Row) (T, error) {
	return func(row core.Row) (T, error) {
		values := make([]any, len(names))
		for i, name := range names {
			v, ok := row.Get(name)
			if !ok {
				var zero T
				return zero, fmt.Errorf("%w: column %q not in row %v", core.ErrArgument, name, row.Columns)
			}
			values[i] = v
		}
		return fn(values...)
	}
}

// Positional passes every column value of the row, in source order, to fn.
// A row that does not have exactly arity columns fails with core.ErrArgument.
func Positional(arity int, fn func(values ...any) (string, error)) TransformFunc {
	return TransformFunc(positional(arity, fn))
}

// PositionalMetadata is Positional for metadata functions.
func PositionalMetadata(arity int, fn func(values ...any) ([]string, error)) MetadataFunc {
	return MetadataFunc(positional(arity, fn))
}

// Columns passes the values of the named columns, in the given order, to fn.
// A missing column fails with core.ErrArgument.
func Columns(fn func(values ...any) (string, error), names ...string) TransformFunc {
	return TransformFunc(columns(fn, names))
}

// ColumnsMetadata is Columns for metadata functions.
func ColumnsMetadata(fn func(values ...any) ([]string, error), names ...string) MetadataFunc {
	return MetadataFunc(columns(fn, names))
}

// ConcatColumns joins the named column values with sep. With no names every
// column is used in source order. Null values are skipped.
func ConcatColumns(sep string, names ...string) TransformFunc {
	join := func(values ...any) (string, error) {
		parts := make([]string, 0, len(values))
		for _, v := range values {
			if v == nil {
				continue
			}
			parts = append(parts, fmt.Sprint(v))
		}
		return strings.Join(parts, sep), nil
	}
	if len(names) == 0 {
		return func(row core.Row) (string, error) {
			return join(row.Values...)
		}
	}
	return Columns(join, names...)
}

// ColumnValues returns the named column values as metadata tags.
// Null values are skipped.
func ColumnValues(names ...string) MetadataFunc {
	return ColumnsMetadata(func(values ...any) ([]string, error) {
		tags := make([]string, 0, len(values))
		for _, v := range values {
			if v == nil {
				continue
			}
			tags = append(tags, fmt.Sprint(v))
		}
		return tags, nil
	}, names...)
}
