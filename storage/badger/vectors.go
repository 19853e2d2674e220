package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vectorflow/core"
	"github.com/poiesic/vectorflow/storage"
	"github.com/poiesic/vectorflow/vectorstore"
)

var (
	_ vectorstore.Backend  = (*Backend)(nil)
	_ storage.VectorReader = (*Backend)(nil)
)

// DescribeIndex returns the stored descriptor of an index.
// Returns core.ErrIndexNotFound if the index was never created.
func (b *Backend) DescribeIndex(ctx context.Context, name string) (*core.Index, error) {
	var index *core.Index
	err := b.WithTx(func(tx *badger.Txn) error {
		var err error
		index, err = getIndex(tx, name)
		return err
	}, false)
	return index, err
}

// CreateIndex stores an index descriptor. Creating an index that already
// exists with the same dimensions is a no-op.
func (b *Backend) CreateIndex(ctx context.Context, index core.Index) error {
	if err := core.ValidateDimensions(index.Dimensions); err != nil {
		return err
	}

	return b.WithTx(func(tx *badger.Txn) error {
		existing, err := getIndex(tx, index.Name)
		if err == nil {
			if existing.Dimensions != index.Dimensions {
				return fmt.Errorf("%w: index %s already exists with %d dimensions",
					core.ErrConfiguration, index.Name, existing.Dimensions)
			}
			return nil
		}
		if !errors.Is(err, core.ErrIndexNotFound) {
			return err
		}

		index.Namespace = ""
		if err := tx.Set(makeIndexKey(index.Name), storage.MarshalIndex(&index)); err != nil {
			return err
		}
		b.logger.Debug("created index", "index", index.Name, "dimensions", index.Dimensions)
		return tx.Commit()
	}, true)
}

// Upsert writes records into a namespace of an index.
// Every record is checked against the index before anything is written,
// so a batch is either rejected whole or written whole.
func (b *Backend) Upsert(ctx context.Context, index, namespace string, records []core.VectorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var idx *core.Index
	err := b.WithTx(func(tx *badger.Txn) error {
		var err error
		idx, err = getIndex(tx, index)
		return err
	}, false)
	if err != nil {
		return err
	}

	values := make([][]byte, len(records))
	for i := range records {
		if err := core.ValidateVectorRecord(records[i]); err != nil {
			return err
		}
		if len(records[i].Values) != idx.Dimensions {
			return fmt.Errorf("%w: record %s has %d values, index %s has %d dimensions",
				core.ErrDimensionMismatch, records[i].ID, len(records[i].Values), index, idx.Dimensions)
		}
		if values[i], err = storage.MarshalVectorRecord(&records[i]); err != nil {
			return err
		}
	}

	// WriteBatch splits large batches across transactions transparently.
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for i := range records {
		if err := wb.Set(makeVectorKey(index, namespace, records[i].ID), values[i]); err != nil {
			return err
		}
	}
	if err := wb.Flush(); err != nil {
		return err
	}

	b.logger.Debug("upserted vectors", "index", index, "namespace", namespace, "count", len(records))
	return nil
}

// GetVector retrieves a single vector.
// Returns storage.ErrNotFound if the vector doesn't exist.
func (b *Backend) GetVector(ctx context.Context, index, namespace, id string) (*core.VectorRecord, error) {
	var record *core.VectorRecord
	err := b.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorKey(index, namespace, id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: vector %s in %s/%s", storage.ErrNotFound, id, index, namespace)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			record, err = storage.UnmarshalVectorRecord(val)
			return err
		})
	}, false)
	return record, err
}

// CountVectors returns the number of vectors stored in a namespace of an index.
func (b *Backend) CountVectors(ctx context.Context, index, namespace string) (int, error) {
	count := 0
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeNamespacePrefix(index, namespace)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// ListIndexes returns every index descriptor, ordered by name.
func (b *Backend) ListIndexes(ctx context.Context) ([]core.Index, error) {
	var indexes []core.Index
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(indexPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				index, err := storage.UnmarshalIndex(val)
				if err != nil {
					return err
				}
				indexes = append(indexes, *index)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return indexes, err
}

func getIndex(tx *badger.Txn, name string) (*core.Index, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: index name is required", core.ErrArgument)
	}
	item, err := tx.Get(makeIndexKey(name))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", core.ErrIndexNotFound, name)
		}
		return nil, err
	}

	var index *core.Index
	err = item.Value(func(val []byte) error {
		var err error
		index, err = storage.UnmarshalIndex(val)
		return err
	})
	return index, err
}
