package codec

import "errors"

var (
	// ErrSerialization indicates a record could not be encoded against the schema.
	ErrSerialization = errors.New("serialization failed")

	// ErrDeserialization indicates a message could not be decoded.
	ErrDeserialization = errors.New("deserialization failed")

	// ErrUnknownSchema indicates a message references a schema id that cannot be resolved.
	ErrUnknownSchema = errors.New("unknown schema id")
)
