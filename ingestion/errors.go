package ingestion

import "errors"

var (
	// ErrMapperRequired is returned when a change event mapper is not provided.
	ErrMapperRequired = errors.New("mapper required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrSerializerRequired is returned when a record serializer is not provided.
	ErrSerializerRequired = errors.New("serializer required")

	// ErrProducerRequired is returned when a stream producer is not provided.
	ErrProducerRequired = errors.New("producer required")

	// ErrConsumerRequired is returned when a stream consumer is not provided.
	ErrConsumerRequired = errors.New("consumer required")

	// ErrStageRequired is returned when an agent is created without a stage.
	ErrStageRequired = errors.New("stage required")

	// ErrAgentsRequired is returned when a pipeline is created without agents.
	ErrAgentsRequired = errors.New("at least one agent required")

	// ErrTopicRequired is returned when the destination topic is empty.
	ErrTopicRequired = errors.New("destination topic required")

	// ErrEmptyEmbedding is returned when the embedder produces an empty vector.
	ErrEmptyEmbedding = errors.New("embedder returned an empty vector")
)
