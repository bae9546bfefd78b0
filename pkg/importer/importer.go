// Package importer persists processed records into the canonical store,
// idempotently by natural key. Per-record failures are isolated from one
// another; all successful writes of one batch commit together in a single
// transaction at the end of the call.
package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/partsbridge/partsync/pkg/errors"
	"github.com/partsbridge/partsync/pkg/models"
)

// Store is the destination-side persistence surface the importer drives.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one destination transaction. Insert and Update failures must leave
// the transaction usable for subsequent records (the Postgres
// implementation uses savepoints for this).
type Tx interface {
	// LookupID resolves a natural key to an existing destination row
	LookupID(ctx context.Context, entity, naturalKey string) (int64, bool, error)
	// Insert creates a new destination row
	Insert(ctx context.Context, entity, naturalKey string, fields map[string]interface{}) error
	// Update rewrites an existing destination row in place
	Update(ctx context.Context, entity string, id int64, fields map[string]interface{}) error
	// ResolveRef translates a human-readable code into the internal
	// identifier of an auxiliary lookup row, optionally creating a
	// missing row on first sight
	ResolveRef(ctx context.Context, table, code string, createMissing bool) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// RefRule declares that one processed-record field holds a code referencing
// an auxiliary lookup table. The code is replaced by the resolved internal
// identifier before persistence.
type RefRule struct {
	// Field is the processed-record field carrying the code
	Field string
	// Table is the auxiliary lookup table
	Table string
	// LazyCreate creates a missing aux row on first sight instead of
	// failing the referencing record; only for low-risk tables
	LazyCreate bool
}

// Importer persists batches of processed records for one entity type.
// Reference lookups are cached for the importer's lifetime, one sync run.
type Importer struct {
	entity   string
	store    Store
	refs     []RefRule
	refCache map[string]map[string]int64
	logger   *zap.Logger
}

// New creates an importer for one entity type.
func New(entity string, store Store, refs []RefRule, logger *zap.Logger) *Importer {
	return &Importer{
		entity:   entity,
		store:    store,
		refs:     refs,
		refCache: make(map[string]map[string]int64),
		logger:   logger.With(zap.String("component", "importer"), zap.String("entity", entity)),
	}
}

// ImportBatch upserts records by natural key. A failure on one record is
// caught, appended to the error list in source order, and does not abort
// the remaining records. All successful writes commit together at the end;
// a commit failure rolls the whole batch back and is returned as a
// batch-level commit error alongside the accumulated per-record results.
func (im *Importer) ImportBatch(ctx context.Context, records []models.ProcessedRecord) (models.ImportResult, error) {
	result := models.ImportResult{Errors: []models.ImportError{}}
	if len(records) == 0 {
		return result, nil
	}

	tx, err := im.store.Begin(ctx)
	if err != nil {
		return result, errors.Wrap(err, errors.ErrorTypeCommit, "failed to begin import transaction")
	}

	for _, record := range records {
		created, err := im.upsertOne(ctx, tx, record)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, models.ImportError{
				NaturalKey: record.NaturalKey,
				Message:    err.Error(),
			})
			im.logger.Warn("record import failed",
				zap.String("natural_key", record.NaturalKey), zap.Error(err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return result, errors.Wrap(err, errors.ErrorTypeCommit, "import batch commit failed")
	}

	im.logger.Info("batch imported",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed))
	return result, nil
}

// upsertOne persists one record: resolve references, look up the natural
// key, then create or update. Returns whether a new row was created.
func (im *Importer) upsertOne(ctx context.Context, tx Tx, record models.ProcessedRecord) (bool, error) {
	fields, err := im.resolveRefs(ctx, tx, record.Fields)
	if err != nil {
		return false, err
	}

	id, found, err := tx.LookupID(ctx, im.entity, record.NaturalKey)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrorTypePersistence, "natural key lookup failed")
	}

	if found {
		if err := tx.Update(ctx, im.entity, id, fields); err != nil {
			return false, errors.Wrap(err, errors.ErrorTypePersistence, "update failed")
		}
		return false, nil
	}

	if err := tx.Insert(ctx, im.entity, record.NaturalKey, fields); err != nil {
		return false, errors.Wrap(err, errors.ErrorTypePersistence, "insert failed")
	}
	return true, nil
}

// resolveRefs replaces reference codes with internal identifiers, going
// through the per-run cache first.
func (im *Importer) resolveRefs(ctx context.Context, tx Tx, fields map[string]interface{}) (map[string]interface{}, error) {
	if len(im.refs) == 0 {
		return fields, nil
	}

	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}

	for _, ref := range im.refs {
		raw, ok := out[ref.Field]
		if !ok || raw == nil {
			continue
		}
		code := fmt.Sprintf("%v", raw)

		if cached, ok := im.refCache[ref.Table][code]; ok {
			out[ref.Field] = cached
			continue
		}

		id, err := tx.ResolveRef(ctx, ref.Table, code, ref.LazyCreate)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypePersistence,
				fmt.Sprintf("unresolvable reference %s=%q", ref.Field, code))
		}

		if im.refCache[ref.Table] == nil {
			im.refCache[ref.Table] = make(map[string]int64)
		}
		im.refCache[ref.Table][code] = id
		out[ref.Field] = id
	}
	return out, nil
}
