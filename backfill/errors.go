package backfill

import "errors"

var (
	// ErrSourceRequired is returned when no table source is provided.
	ErrSourceRequired = errors.New("source required")

	// ErrMapperRequired is returned when no row mapper is provided.
	ErrMapperRequired = errors.New("mapper required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrClientRequired is returned when no vector store client is provided.
	ErrClientRequired = errors.New("vector store client required")
)
