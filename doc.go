// Package partsync synchronizes records from heterogeneous legacy systems
// of record into a canonical relational store.
//
// The ingestion pipeline is built from four cooperating layers:
//
//  1. Source connectors (pkg/connector) provide uniform extraction over
//     delimited flat files and ODBC-accessible midrange databases.
//
//  2. Processors (pkg/processor) convert raw rows into validated
//     target-schema records using externally supplied field-mapping and
//     alias tables (pkg/mapping). Specialized processors may reshape a
//     single raw row into a different cardinality of output records, such
//     as the pricing explosion that derives up to two tagged price records
//     from one legacy row.
//
//  3. The importer (pkg/importer) persists processed records idempotently
//     by natural key, isolating per-record failures from the single
//     transaction that commits each batch.
//
//  4. The pipeline orchestrator (internal/pipeline) drives
//     connector -> processor -> importer in bounded chunks, supports dry
//     runs, and tracks every execution as a finite-state sync run with an
//     append-only event log (pkg/syncrun).
//
// # Quick Start
//
// Run one synchronization from the command line:
//
//	partsync sync --entity part --query PARTMAST \
//	    --source-config source.yaml --mappings tables.yaml \
//	    --db-url postgres://localhost/catalog
//
// Or drive the pipeline programmatically:
//
//	connector, _ := registry.CreateSource(cfg)
//	proc, _ := processor.New(tables, "part", cfg.Type, log)
//	imp := importer.New("part", store, nil, log)
//	p := pipeline.New("part", cfg.Type, connector, proc, imp, runs, log)
//	summary, err := p.Run(ctx, "PARTMAST", pipeline.Options{ChunkSize: 500})
package partsync
