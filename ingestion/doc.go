// Package ingestion turns change events into embedding records on the stream.
//
// A Stage decodes one change-event message, maps the row to a document,
// embeds it, serializes the resulting EmbeddingRecord and produces it to the
// topic named after the destination index. An Agent drives a Stage from a
// stream consumer, committing each message after it is handled. A Pipeline
// runs one agent per source topic on a worker pool.
//
// Deleted rows and tombstones produce nothing. Serialization and produce
// errors stop the agent without committing the failed message.
package ingestion
