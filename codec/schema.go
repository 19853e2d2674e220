package codec

import "github.com/hamba/avro/v2"

// EmbeddingRecordSchema is the Avro schema of the records produced to index topics.
const EmbeddingRecordSchema = `{
  "type": "record",
  "name": "EmbeddingRecord",
  "namespace": "vectorflow",
  "fields": [
    {"name": "doc", "type": {"type": "array", "items": "float"}},
    {"name": "metadata", "type": {"type": "array", "items": "string"}, "default": []}
  ]
}`

var embeddingRecordSchema = avro.MustParse(EmbeddingRecordSchema)

// DefaultSchema returns the parsed EmbeddingRecordSchema.
func DefaultSchema() avro.Schema {
	return embeddingRecordSchema
}

// SubjectName returns the schema registry subject for the values of an index topic.
func SubjectName(index string) string {
	return index + "-value"
}
