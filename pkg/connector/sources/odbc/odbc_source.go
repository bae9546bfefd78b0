// Package odbc provides a source connector for legacy midrange databases
// reachable through an ODBC driver (AS/400-era systems of record). Queries
// run read-only against an explicit table allow-list.
package odbc

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/alexbrainman/odbc" // registers the "odbc" database/sql driver
	"go.uber.org/zap"

	"github.com/partsbridge/partsync/pkg/config"
	"github.com/partsbridge/partsync/pkg/connector/core"
	"github.com/partsbridge/partsync/pkg/errors"
	"github.com/partsbridge/partsync/pkg/logger"
	"github.com/partsbridge/partsync/pkg/models"
)

// Source extracts rows from a legacy database over ODBC.
type Source struct {
	cfg    *config.ODBCSourceConfig
	name   string
	logger *zap.Logger

	db *sql.DB
}

// New creates an ODBC source connector from a validated SourceConfig.
func New(cfg *config.SourceConfig) (core.Source, error) {
	if cfg.ODBC == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "odbc source requires an odbc section")
	}
	return &Source{
		cfg:    cfg.ODBC,
		name:   cfg.Name,
		logger: logger.Get().With(zap.String("connector", "odbc"), zap.String("source", cfg.Name)),
	}, nil
}

// Name returns the connector type name.
func (s *Source) Name() string { return "odbc" }

// Connect opens and verifies the ODBC connection. It is idempotent.
func (s *Source) Connect(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("odbc", s.connectionString())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to open odbc connection")
	}

	pingCtx := ctx
	if s.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return errors.Wrap(err, errors.ErrorTypeConnection, "odbc host unreachable or authentication failed")
	}

	s.db = db
	s.logger.Info("odbc connection established", zap.String("dsn", s.cfg.DSN))
	return nil
}

// Extract runs the given query and returns its rows. A bare table name is
// expanded to a full-table select and checked against the allow-list; any
// other string is passed through as backend-native SQL.
func (s *Source) Extract(ctx context.Context, query string, limit int) ([]models.SourceRecord, error) {
	if s.db == nil {
		return nil, errors.New(errors.ErrorTypeConnection, "extract called before connect")
	}

	stmt, err := s.buildStatement(query)
	if err != nil {
		return nil, err
	}

	queryCtx := ctx
	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	rows, err := s.db.QueryContext(queryCtx, stmt)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "odbc query failed")
	}
	defer rows.Close() //nolint:errcheck

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read result columns")
	}

	records := make([]models.SourceRecord, 0)
	values := make([]interface{}, len(columns))
	scanArgs := make([]interface{}, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to scan row")
		}
		record := make(models.SourceRecord, len(columns))
		for i, col := range columns {
			record[col] = normalize(values[i])
		}
		records = append(records, record)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "row iteration failed")
	}

	logger.WithContext(ctx).Debug("rows extracted",
		zap.String("connector", "odbc"),
		zap.Int("rows", len(records)))
	return records, nil
}

// Close releases the connection. Idempotent, safe without a prior Connect.
func (s *Source) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to close odbc connection")
	}
	return nil
}

func (s *Source) connectionString() string {
	var b strings.Builder
	b.WriteString("DSN=")
	b.WriteString(s.cfg.DSN)
	if s.cfg.Username != "" {
		b.WriteString(";UID=")
		b.WriteString(s.cfg.Username)
	}
	if s.cfg.Password != "" {
		b.WriteString(";PWD=")
		b.WriteString(s.cfg.Password)
	}
	return b.String()
}

// buildStatement turns a bare table name into a select statement after
// checking the allow-list. Strings containing whitespace are treated as
// native SQL and passed through unchanged.
func (s *Source) buildStatement(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New(errors.ErrorTypeQuery, "empty query")
	}
	if strings.ContainsAny(query, " \t\n") {
		return query, nil
	}
	if !s.cfg.TableAllowed(query) {
		return "", errors.Newf(errors.ErrorTypeConfig, "table %q is not on the allow-list", query)
	}
	return "SELECT * FROM " + query, nil
}

// normalize converts driver-native values to the source-record value set.
// Legacy drivers mostly hand back []byte for character data.
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case time.Time:
		return val
	default:
		return val
	}
}
