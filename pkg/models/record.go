// Package models provides the data model shared across the partsync
// ingestion pipeline: raw source records as extracted by connectors,
// processed records as produced by processors, and the result structures
// returned by the importer and the pipeline orchestrator.
package models

// SourceRecord is a raw row as returned by a source connector: a mapping of
// source-native field name to unvalidated value. A SourceRecord is immutable
// once extracted; processors copy it rather than mutating it in place.
type SourceRecord map[string]interface{}

// Clone returns a shallow copy of the record. Processors that reshape rows
// work on clones so the extracted record stays untouched.
func (r SourceRecord) Clone() SourceRecord {
	out := make(SourceRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ProcessedRecord is a validated instance of the target schema for one
// entity. A single SourceRecord may yield zero, one, or several
// ProcessedRecords depending on processor logic.
type ProcessedRecord struct {
	// Entity is the target entity type (destination table)
	Entity string
	// NaturalKey is the business-meaningful unique identifier used for
	// upsert matching
	NaturalKey string
	// Fields holds the transformed target-schema field values
	Fields map[string]interface{}
}

// ImportError describes one failed record within an import batch.
type ImportError struct {
	NaturalKey string `json:"natural_key"`
	Message    string `json:"message"`
}

// ImportResult reports the outcome of one ImportBatch call. Per-record
// errors are listed in source order; a batch-level commit failure is
// reported separately as an error return, not here.
type ImportResult struct {
	Created int
	Updated int
	Failed  int
	Errors  []ImportError
}

// Summary is the structured outcome of one pipeline run. It is always
// returned, whether or not the run failed.
type Summary struct {
	Success          bool          `json:"success"`
	RecordsProcessed int           `json:"records_processed"`
	RecordsCreated   int           `json:"records_created"`
	RecordsUpdated   int           `json:"records_updated"`
	RecordsFailed    int           `json:"records_failed"`
	ErrorDetails     []ImportError `json:"error_details"`
	DryRun           bool          `json:"dry_run"`
}
