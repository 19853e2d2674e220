// Package backfill loads the rows that already exist in a table into a
// vector index, so a new index does not wait for every row to change.
//
// Rows are read in primary key order by an extract.Extractor, mapped with the
// same cdc.Mapper the streaming path uses, embedded in chunks and written with
// vectorstore.Client.BulkUpsert. Progress is saved per chunk as a checkpoint.
package backfill
