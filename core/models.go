package core

import (
	"encoding/hex"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// MetadataKey is the index metadata field that carries wire metadata tags.
const MetadataKey = "metadata"

// IDFromContent generates a deterministic vector ID from text content using BLAKE2b hashing.
// Identical content always produces the same ID.
func IDFromContent(text string) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// IntID converts an integer identifier into the string form used by vector indexes.
func IntID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Index describes a named collection of vectors.
// Dimensions is fixed when the index is created and never changes.
type Index struct {
	Name       string
	Dimensions int
	Namespace  string // Optional logical partition; empty means the default namespace
}

// Metadata is the optional key/value payload stored next to a vector.
// A nil Metadata means the record carries no metadata field at all.
type Metadata map[string]any

// TagsMetadata converts wire metadata tags into index metadata.
// Empty tags produce nil metadata so nothing is written.
func TagsMetadata(tags []string) Metadata {
	if len(tags) == 0 {
		return nil
	}
	values := make([]any, len(tags))
	for i, tag := range tags {
		values[i] = tag
	}
	return Metadata{MetadataKey: values}
}

// VectorRecord is a single vector written to an index namespace.
// Upserting a record with an existing ID overwrites it.
type VectorRecord struct {
	ID       string
	Values   []float32
	Metadata Metadata
}

// Operation identifies the kind of row change carried by a ChangeEvent.
type Operation int

const (
	// OperationUpsert is an insert or update of a row.
	OperationUpsert Operation = iota + 1
	// OperationDelete is a row deletion.
	OperationDelete
)

func (o Operation) String() string {
	switch o {
	case OperationUpsert:
		return "upsert"
	case OperationDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Row holds the column values of a captured row in source column order.
type Row struct {
	Columns []string
	Values  []any
}

// Len returns the number of columns in the row.
func (r Row) Len() int {
	return len(r.Columns)
}

// Get returns the value of the named column.
func (r Row) Get(name string) (any, bool) {
	for i, col := range r.Columns {
		if col == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Map returns the row as a column -> value map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, col := range r.Columns {
		m[col] = r.Values[i]
	}
	return m
}

// ChangeEvent is a single row change captured from a relational source.
// Events are consumed once and never persisted.
type ChangeEvent struct {
	Operation Operation
	Row       Row
	Deleted   bool
}

// EmbeddingRecord is the wire form handed to the stream producer.
type EmbeddingRecord struct {
	Doc      []float32 `avro:"doc"`
	Metadata []string  `avro:"metadata"`
}

// Checkpoint records how far a backfill has progressed.
type Checkpoint struct {
	Name      string
	Offset    int64
	UpdatedAt time.Time
}
