// Package sink loads embedding records from the stream into a vector index.
//
// A Sink reads one index topic, decodes each record and writes batches with
// vectorstore.Client.BulkUpsert. Offsets are committed only after the batch
// holding them has been written, so a crash replays at most one batch.
package sink
