package sink

import "errors"

var (
	// ErrConsumerRequired is returned when a stream consumer is not provided.
	ErrConsumerRequired = errors.New("consumer required")

	// ErrDecoderRequired is returned when a record deserializer is not provided.
	ErrDecoderRequired = errors.New("decoder required")

	// ErrClientRequired is returned when a vector store client is not provided.
	ErrClientRequired = errors.New("vector store client required")

	// ErrMissingKey is returned when a record arrives without a message key.
	ErrMissingKey = errors.New("record has no key")
)
