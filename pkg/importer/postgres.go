package importer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/partsbridge/partsync/pkg/config"
	"github.com/partsbridge/partsync/pkg/errors"
	"github.com/partsbridge/partsync/pkg/logger"
	"github.com/partsbridge/partsync/pkg/mapping"
)

// PostgresStore implements Store against the canonical Postgres database.
// Entity tables carry an `id` surrogate key and a `natural_key` column;
// auxiliary lookup tables carry `id` and `code`.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore opens and verifies a connection pool to the destination.
func NewPostgresStore(ctx context.Context, cfg *config.DestinationConfig) (*PostgresStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid destination url")
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create destination pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "destination unreachable")
	}

	return &PostgresStore{
		pool:   pool,
		logger: logger.Get().With(zap.String("component", "postgres_store")),
	}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Begin starts one destination transaction.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

// pgTx wraps a pgx transaction. Individual inserts and updates run inside
// savepoints so a failed record leaves the enclosing transaction usable.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LookupID(ctx context.Context, entity, naturalKey string) (int64, bool, error) {
	var id int64
	stmt := fmt.Sprintf("SELECT id FROM %s WHERE natural_key = $1", pgx.Identifier{entity}.Sanitize())
	err := t.tx.QueryRow(ctx, stmt, naturalKey).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (t *pgTx) Insert(ctx context.Context, entity, naturalKey string, fields map[string]interface{}) error {
	columns := []string{"natural_key"}
	values := []interface{}{naturalKey}
	for _, name := range sortedFieldNames(fields) {
		columns = append(columns, pgx.Identifier{name}.Sanitize())
		values = append(values, encodeValue(fields[name]))
	}

	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{entity}.Sanitize(),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "))

	return t.withSavepoint(ctx, func(sp pgx.Tx) error {
		_, err := sp.Exec(ctx, stmt, values...)
		return err
	})
}

func (t *pgTx) Update(ctx context.Context, entity string, id int64, fields map[string]interface{}) error {
	assignments := make([]string, 0, len(fields))
	values := []interface{}{id}
	for _, name := range sortedFieldNames(fields) {
		values = append(values, encodeValue(fields[name]))
		assignments = append(assignments, fmt.Sprintf("%s = $%d", pgx.Identifier{name}.Sanitize(), len(values)))
	}
	if len(assignments) == 0 {
		return nil
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1",
		pgx.Identifier{entity}.Sanitize(),
		strings.Join(assignments, ", "))

	return t.withSavepoint(ctx, func(sp pgx.Tx) error {
		_, err := sp.Exec(ctx, stmt, values...)
		return err
	})
}

func (t *pgTx) ResolveRef(ctx context.Context, table, code string, createMissing bool) (int64, error) {
	var id int64
	stmt := fmt.Sprintf("SELECT id FROM %s WHERE code = $1", pgx.Identifier{table}.Sanitize())
	err := t.tx.QueryRow(ctx, stmt, code).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return 0, err
	}
	if !createMissing {
		return 0, fmt.Errorf("no %s row with code %q", table, code)
	}

	insert := fmt.Sprintf("INSERT INTO %s (code) VALUES ($1) RETURNING id", pgx.Identifier{table}.Sanitize())
	err = t.withSavepoint(ctx, func(sp pgx.Tx) error {
		return sp.QueryRow(ctx, insert, code).Scan(&id)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// withSavepoint runs fn inside a nested transaction, releasing it on
// success and rolling back to it on failure.
func (t *pgTx) withSavepoint(ctx context.Context, fn func(sp pgx.Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

func sortedFieldNames(fields map[string]interface{}) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// encodeValue converts reconstructed list fields to JSON for jsonb columns;
// scalar values pass through to the driver untouched.
func encodeValue(v interface{}) interface{} {
	if tagged, ok := v.([]mapping.TaggedValue); ok {
		data, err := json.Marshal(tagged)
		if err != nil {
			return nil
		}
		return string(data)
	}
	return v
}
