package cdc

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/vectorflow/core"
)

// ErrTransformRequired is returned when a Mapper is created without a transform.
var ErrTransformRequired = errors.New("transform required")

// Mapper turns change events into (document, metadata) pairs.
type Mapper struct {
	transform Transform
	metadata  MetadataExtractor
	logger    *slog.Logger
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithMetadata sets the metadata extractor. Without one every document gets empty metadata.
func WithMetadata(extractor MetadataExtractor) MapperOption {
	return func(m *Mapper) {
		m.metadata = extractor
	}
}

// WithMapperLogger sets a custom logger.
func WithMapperLogger(logger *slog.Logger) MapperOption {
	return func(m *Mapper) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMapper creates a mapper around a transform.
func NewMapper(transform Transform, opts ...MapperOption) (*Mapper, error) {
	if transform == nil {
		return nil, ErrTransformRequired
	}
	m := &Mapper{
		transform: transform,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "cdc-mapper")
	return m, nil
}

// Map applies the transform and metadata extractor to an event.
//
// Deleted events produce nothing: ok is false and the deletion is only
// logged. Nothing is removed from the index. A nil event is treated the same way.
// Metadata is never nil when ok is true.
func (m *Mapper) Map(event *core.ChangeEvent) (doc string, metadata []string, ok bool, err error) {
	if event == nil {
		return "", nil, false, nil
	}
	if event.Deleted {
		m.logger.Info("row was deleted, skipping embedding", "columns", event.Row.Columns)
		return "", nil, false, nil
	}

	doc, err = m.transform.Transform(event.Row)
	if err != nil {
		return "", nil, false, fmt.Errorf("transform failed: %w", err)
	}

	metadata = []string{}
	if m.metadata != nil {
		tags, err := m.metadata.ExtractMetadata(event.Row)
		if err != nil {
			return "", nil, false, fmt.Errorf("metadata extraction failed: %w", err)
		}
		if tags != nil {
			metadata = tags
		}
	}

	return doc, metadata, true, nil
}
