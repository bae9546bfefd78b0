// Package core defines the source connector contract shared by all
// partsync connectors. A connector provides uniform extraction over one
// concrete backend (delimited files, legacy ODBC databases); it never
// writes to the destination store.
package core

import (
	"context"

	"github.com/partsbridge/partsync/pkg/models"
)

// Source is the interface that all source connectors implement.
type Source interface {
	// Name returns the connector type name (e.g. "flatfile", "odbc")
	Name() string

	// Connect establishes the underlying connection or loads the backing
	// file. It is idempotent; calling it on an already connected source
	// is a no-op. It fails with a connection error on authentication
	// failure, unreachable host, or missing file.
	Connect(ctx context.Context) error

	// Extract returns raw rows for the given query. Query semantics are
	// backend-specific: a bare table or file name for file- and
	// table-oriented connectors, a backend-native query string for
	// relational connectors. A limit of 0 means no row cap. Extract
	// returns an empty slice, never nil, when no rows match.
	Extract(ctx context.Context, query string, limit int) ([]models.SourceRecord, error)

	// Close releases resources. It is idempotent and safe to call even
	// if Connect never succeeded.
	Close() error
}
