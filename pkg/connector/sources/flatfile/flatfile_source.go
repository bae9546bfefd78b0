// Package flatfile provides a source connector for delimited flat files,
// the export format most legacy catalog systems can produce.
package flatfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/partsbridge/partsync/pkg/config"
	"github.com/partsbridge/partsync/pkg/connector/core"
	"github.com/partsbridge/partsync/pkg/errors"
	"github.com/partsbridge/partsync/pkg/logger"
	"github.com/partsbridge/partsync/pkg/models"
)

// Source reads delimited flat files into SourceRecords.
type Source struct {
	cfg    *config.FileSourceConfig
	name   string
	logger *zap.Logger

	headers   []string
	rows      [][]string
	connected bool
}

// New creates a flat-file source connector from a validated SourceConfig.
func New(cfg *config.SourceConfig) (core.Source, error) {
	if cfg.File == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "flatfile source requires a file section")
	}
	return &Source{
		cfg:    cfg.File,
		name:   cfg.Name,
		logger: logger.Get().With(zap.String("connector", "flatfile"), zap.String("source", cfg.Name)),
	}, nil
}

// Name returns the connector type name.
func (s *Source) Name() string { return "flatfile" }

// Connect loads and parses the backing file. It is idempotent.
func (s *Source) Connect(_ context.Context) error {
	if s.connected {
		return nil
	}

	f, err := os.Open(s.cfg.Path) //nolint:gosec // G304: path comes from validated config
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to open source file "+s.cfg.Path)
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.Comma = s.cfg.DelimiterRune()
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to parse source file "+s.cfg.Path)
	}

	if s.cfg.HasHeader && len(rows) > 0 {
		s.headers = rows[0]
		s.rows = rows[1:]
	} else {
		width := 0
		for _, row := range rows {
			if len(row) > width {
				width = len(row)
			}
		}
		s.headers = make([]string, width)
		for i := range s.headers {
			s.headers[i] = fmt.Sprintf("field_%d", i+1)
		}
		s.rows = rows
	}

	s.connected = true
	s.logger.Info("flat file loaded",
		zap.String("path", s.cfg.Path),
		zap.Int("rows", len(s.rows)),
		zap.Int("columns", len(s.headers)))
	return nil
}

// Extract returns rows from the loaded file. The query is either empty, the
// bare file name, or a comma-separated list of field=value equality filters.
// The filter form is a compatibility shim for legacy callers and is not a
// general query language.
func (s *Source) Extract(ctx context.Context, query string, limit int) ([]models.SourceRecord, error) {
	if !s.connected {
		return nil, errors.New(errors.ErrorTypeConnection, "extract called before connect")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "extract cancelled")
	}

	filters, err := s.parseQuery(query)
	if err != nil {
		return nil, err
	}

	records := make([]models.SourceRecord, 0, len(s.rows))
	for _, row := range s.rows {
		record := s.toRecord(row)
		if !matches(record, filters) {
			continue
		}
		records = append(records, record)
		if limit > 0 && len(records) >= limit {
			break
		}
	}

	logger.WithContext(ctx).Debug("rows extracted",
		zap.String("connector", "flatfile"),
		zap.Int("rows", len(records)))
	return records, nil
}

// Close releases the loaded data. Idempotent, safe without a prior Connect.
func (s *Source) Close() error {
	s.rows = nil
	s.headers = nil
	s.connected = false
	return nil
}

// parseQuery interprets the backend-specific query string. An empty query or
// the backing file's bare name selects all rows; "field=value,field2=value2"
// selects rows matching every pair.
func (s *Source) parseQuery(query string) (map[string]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	if !strings.Contains(query, "=") {
		base := filepath.Base(s.cfg.Path)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		if strings.EqualFold(query, base) || strings.EqualFold(query, stem) {
			return nil, nil
		}
		return nil, errors.Newf(errors.ErrorTypeQuery, "unknown file %q for flatfile source backed by %s", query, base)
	}

	filters := make(map[string]string)
	for _, pair := range strings.Split(query, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, errors.Newf(errors.ErrorTypeQuery, "malformed filter %q", pair)
		}
		filters[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return filters, nil
}

// toRecord builds a fresh SourceRecord from one raw row. Null markers become
// nil values; rows shorter than the header leave trailing fields absent.
func (s *Source) toRecord(row []string) models.SourceRecord {
	record := make(models.SourceRecord, len(s.headers))
	for i, header := range s.headers {
		if i >= len(row) {
			break
		}
		value := row[i]
		if s.cfg.TrimSpaces {
			value = strings.TrimSpace(value)
		}
		if s.isNull(value) {
			record[header] = nil
			continue
		}
		record[header] = value
	}
	return record
}

func (s *Source) isNull(value string) bool {
	for _, nv := range s.cfg.NullValues {
		if value == nv {
			return true
		}
	}
	return false
}

func matches(record models.SourceRecord, filters map[string]string) bool {
	for field, want := range filters {
		got, ok := record[field]
		if !ok || got == nil {
			return false
		}
		if fmt.Sprintf("%v", got) != want {
			return false
		}
	}
	return true
}
