package codec

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/hamba/avro/v2"
	"github.com/poiesic/vectorflow/core"
)

const (
	magicByte    = 0
	headerLength = 5
)

// Serializer encodes embedding records for the stream.
type Serializer interface {
	Serialize(record core.EmbeddingRecord) ([]byte, error)
}

// Deserializer decodes embedding records read from the stream.
type Deserializer interface {
	Deserialize(ctx context.Context, data []byte) (core.EmbeddingRecord, error)
}

// SchemaResolver resolves writer schemas by registry id.
type SchemaResolver interface {
	GetSchema(ctx context.Context, id int) (avro.Schema, error)
}

// AvroSerializer encodes records with an Avro schema in the Confluent wire
// format: a zero magic byte, the 4 byte big-endian schema id, then the Avro body.
type AvroSerializer struct {
	schema   avro.Schema
	id       int
	resolver SchemaResolver
	schemas  sync.Map // int -> avro.Schema
}

var (
	_ Serializer   = (*AvroSerializer)(nil)
	_ Deserializer = (*AvroSerializer)(nil)
)

// NewAvroSerializer creates a serializer writing with schema under the given registry id.
// resolver may be nil; messages written with another schema id then fail to decode.
func NewAvroSerializer(schema avro.Schema, id int, resolver SchemaResolver) *AvroSerializer {
	s := &AvroSerializer{
		schema:   schema,
		id:       id,
		resolver: resolver,
	}
	s.schemas.Store(id, schema)
	return s
}

// SchemaID returns the registry id written into every message.
func (s *AvroSerializer) SchemaID() int {
	return s.id
}

// Serialize encodes a record. A nil Metadata slice is written as an empty array.
func (s *AvroSerializer) Serialize(record core.EmbeddingRecord) ([]byte, error) {
	if record.Metadata == nil {
		record.Metadata = []string{}
	}

	body, err := avro.Marshal(s.schema, record)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}

	buf := make([]byte, headerLength, headerLength+len(body))
	buf[0] = magicByte
	binary.BigEndian.PutUint32(buf[1:headerLength], uint32(s.id))
	return append(buf, body...), nil
}

// Deserialize decodes a framed message, resolving the writer schema by id.
func (s *AvroSerializer) Deserialize(ctx context.Context, data []byte) (core.EmbeddingRecord, error) {
	var record core.EmbeddingRecord

	if len(data) < headerLength || data[0] != magicByte {
		return record, fmt.Errorf("%w: missing wire format header", ErrDeserialization)
	}
	id := int(binary.BigEndian.Uint32(data[1:headerLength]))

	schema, err := s.writerSchema(ctx, id)
	if err != nil {
		return record, err
	}

	if err := avro.Unmarshal(schema, data[headerLength:], &record); err != nil {
		return record, fmt.Errorf("%w: %w", ErrDeserialization, err)
	}
	if record.Metadata == nil {
		record.Metadata = []string{}
	}
	return record, nil
}

func (s *AvroSerializer) writerSchema(ctx context.Context, id int) (avro.Schema, error) {
	if schema, ok := s.schemas.Load(id); ok {
		return schema.(avro.Schema), nil
	}
	if s.resolver == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSchema, id)
	}

	schema, err := s.resolver.GetSchema(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %d: %w", ErrUnknownSchema, id, err)
	}
	s.schemas.Store(id, schema)
	return schema, nil
}
