// Package extract reads relational tables in primary key order for backfills.
//
// An Extractor works over database/sql. The pgx driver ("pgx") and the pure
// Go SQLite driver ("sqlite") are registered by this package.
package extract

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/poiesic/vectorflow/core"
)

const (
	// DriverPostgres is the database/sql driver name for PostgreSQL.
	DriverPostgres = "pgx"
	// DriverSQLite is the database/sql driver name for SQLite.
	DriverSQLite = "sqlite"
)

var (
	// ErrInvalidChunkSize is returned when the chunk size is not positive.
	ErrInvalidChunkSize = errors.New("chunk size must be greater than 0")

	// ErrColumnsRequired is returned when no columns are requested.
	ErrColumnsRequired = errors.New("at least one column required")
)

// Chunk is one page of an extraction.
// PrimaryKeys[i] is the primary key of Rows[i]; the key column is not part of the row.
type Chunk struct {
	Rows        []core.Row
	PrimaryKeys []any
	// Offset is the position of the first row of the chunk in key order.
	Offset int64
}

// Extractor pages through tables of one database.
type Extractor struct {
	db     *sql.DB
	owned  bool
	logger *slog.Logger
}

// Open connects to dsn with the named driver and checks the connection.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Extractor, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", driver, err)
	}
	e := New(db, logger)
	e.owned = true
	return e, nil
}

// New wraps an existing database handle. Close does not close db.
func New(db *sql.DB, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{db: db, logger: logger.With("component", "extractor")}
}

// Close closes the database if it was opened by Open.
func (e *Extractor) Close() error {
	if e.owned {
		return e.db.Close()
	}
	return nil
}

// Count returns the number of rows in relation.
func (e *Extractor) Count(ctx context.Context, relation string) (int64, error) {
	var n int64
	query := "SELECT COUNT(*) FROM " + QuoteIdentifier(relation)
	if err := e.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", relation, err)
	}
	return n, nil
}

// ExtractAll reads columns of relation in primary key order, chunkSize rows
// at a time, starting at offset, and calls fn for every non-empty chunk.
// It stops at the first short chunk or when fn returns an error.
func (e *Extractor) ExtractAll(
	ctx context.Context,
	relation string,
	columns []string,
	primaryKey string,
	chunkSize int,
	offset int64,
	fn func(Chunk) error,
) error {
	if chunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if len(columns) == 0 {
		return ErrColumnsRequired
	}

	selected := make([]string, 0, len(columns)+1)
	for _, col := range columns {
		selected = append(selected, QuoteIdentifier(col))
	}
	pk := QuoteIdentifier(primaryKey)
	selected = append(selected, pk)

	base := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s LIMIT %d OFFSET ",
		strings.Join(selected, ", "), QuoteIdentifier(relation), pk, chunkSize)

	for {
		chunk, err := e.readChunk(ctx, base+strconv.FormatInt(offset, 10), columns)
		if err != nil {
			return fmt.Errorf("extract %s at offset %d: %w", relation, offset, err)
		}
		if len(chunk.Rows) == 0 {
			return nil
		}
		chunk.Offset = offset

		e.logger.Debug("extracted chunk", "relation", relation, "offset", offset, "rows", len(chunk.Rows))
		if err := fn(chunk); err != nil {
			return err
		}

		if len(chunk.Rows) < chunkSize {
			return nil
		}
		offset += int64(len(chunk.Rows))
	}
}

func (e *Extractor) readChunk(ctx context.Context, query string, columns []string) (Chunk, error) {
	var chunk Chunk

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return chunk, err
	}
	defer rows.Close()

	for rows.Next() {
		values := make([]any, len(columns)+1)
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return chunk, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}

		chunk.Rows = append(chunk.Rows, core.Row{Columns: columns, Values: values[:len(columns)]})
		chunk.PrimaryKeys = append(chunk.PrimaryKeys, values[len(columns)])
	}
	return chunk, rows.Err()
}

// QuoteIdentifier quotes a possibly schema-qualified identifier with double
// quotes, so "public.products" becomes "public"."products".
func QuoteIdentifier(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}
