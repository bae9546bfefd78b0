package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/partsbridge/partsync/internal/pipeline"
	"github.com/partsbridge/partsync/pkg/config"
	"github.com/partsbridge/partsync/pkg/connector/registry"
	"github.com/partsbridge/partsync/pkg/importer"
	"github.com/partsbridge/partsync/pkg/logger"
	"github.com/partsbridge/partsync/pkg/mapping"
	"github.com/partsbridge/partsync/pkg/processor"
	"github.com/partsbridge/partsync/pkg/syncrun"

	// Import all available connectors to register them
	_ "github.com/partsbridge/partsync/pkg/connector/sources/flatfile"
	_ "github.com/partsbridge/partsync/pkg/connector/sources/odbc"
)

var version = "0.1.0"

func main() {
	viper.SetEnvPrefix("PARTSYNC")
	viper.AutomaticEnv()

	root := &cobra.Command{
		Use:   "partsync",
		Short: "partsync - legacy catalog ingestion and synchronization",
		Long: `partsync ingests records from legacy systems of record (flat files,
ODBC-accessible midrange databases) and synchronizes them into a canonical
relational store, idempotently by natural key.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("partsync v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available source connectors and transformers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available Source Connectors:")
			sources := registry.ListSources()
			sort.Strings(sources)
			for _, source := range sources {
				fmt.Printf("  - %s\n", source)
			}
			fmt.Println("\nAvailable Transformers:")
			names := mapping.TransformerNames()
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("  - %s\n", name)
			}
		},
	})

	var (
		entity       string
		query        string
		sourceFile   string
		mappingsFile string
		dbURL        string
		chunkSize    int
		limit        int
		timeout      time.Duration
		dryRun       bool
		raiseOnError bool
		logLevel     string
	)

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization for an entity",
		Long: `Run one synchronization: extract from the configured source, map and
validate records, and upsert them into the destination store.

Example:
  partsync sync --entity part --query PARTMAST \
      --source-config source.yaml --mappings tables.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(syncParams{
				entity:       entity,
				query:        query,
				sourceFile:   sourceFile,
				mappingsFile: mappingsFile,
				dbURL:        dbURL,
				chunkSize:    chunkSize,
				limit:        limit,
				timeout:      timeout,
				dryRun:       dryRun,
				raiseOnError: raiseOnError,
				logLevel:     logLevel,
			})
		},
	}

	syncCmd.Flags().StringVar(&entity, "entity", "", "entity type to synchronize (required)")
	syncCmd.Flags().StringVar(&query, "query", "", "table/file name or backend-native query (required)")
	syncCmd.Flags().StringVar(&sourceFile, "source-config", "", "source connector config YAML (required)")
	syncCmd.Flags().StringVar(&mappingsFile, "mappings", "", "field mapping and alias tables YAML (required)")
	syncCmd.Flags().StringVar(&dbURL, "db-url", viper.GetString("DB_URL"), "destination Postgres URL (or PARTSYNC_DB_URL)")
	syncCmd.Flags().IntVar(&chunkSize, "chunk-size", pipeline.DefaultChunkSize, "records per chunk")
	syncCmd.Flags().IntVar(&limit, "limit", 0, "row cap, 0 for no limit")
	syncCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "overall run timeout")
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "extract and process but never write")
	syncCmd.Flags().BoolVar(&raiseOnError, "raise-on-error", false, "exit non-zero on run-level errors")
	syncCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	_ = syncCmd.MarkFlagRequired("entity")
	_ = syncCmd.MarkFlagRequired("query")
	_ = syncCmd.MarkFlagRequired("source-config")
	_ = syncCmd.MarkFlagRequired("mappings")
	root.AddCommand(syncCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type syncParams struct {
	entity       string
	query        string
	sourceFile   string
	mappingsFile string
	dbURL        string
	chunkSize    int
	limit        int
	timeout      time.Duration
	dryRun       bool
	raiseOnError bool
	logLevel     string
}

func runSync(params syncParams) error {
	if err := logger.Init(logger.Config{Level: params.logLevel, Encoding: "console"}); err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck
	log := logger.Get()

	ctx, cancel := context.WithTimeout(context.Background(), params.timeout)
	defer cancel()

	var sourceCfg config.SourceConfig
	if err := config.Load(params.sourceFile, &sourceCfg); err != nil {
		return err
	}

	connector, err := registry.CreateSource(&sourceCfg)
	if err != nil {
		return err
	}

	tables, err := mapping.LoadRegistry(params.mappingsFile)
	if err != nil {
		return err
	}

	// The processor is resolved before any connector I/O so configuration
	// errors surface without touching the source.
	proc, err := processor.New(tables, params.entity, sourceCfg.Type, log)
	if err != nil {
		return err
	}

	var batchImporter pipeline.BatchImporter
	if !params.dryRun {
		if params.dbURL == "" {
			return fmt.Errorf("destination url required: set --db-url or PARTSYNC_DB_URL")
		}
		store, err := importer.NewPostgresStore(ctx, &config.DestinationConfig{URL: params.dbURL})
		if err != nil {
			return err
		}
		defer store.Close()
		batchImporter = importer.New(params.entity, store, refRules(tables, params.entity), log)
	}

	runs := syncrun.NewMemoryStore()
	p := pipeline.New(params.entity, sourceCfg.Type, connector, proc, batchImporter, runs, log)

	log.Info("starting sync",
		zap.String("entity", params.entity),
		zap.String("source", sourceCfg.Name),
		zap.String("source_type", sourceCfg.Type),
		zap.String("query", params.query),
		zap.Bool("dry_run", params.dryRun))

	summary, runErr := p.Run(ctx, params.query, pipeline.Options{
		Limit:        params.limit,
		ChunkSize:    params.chunkSize,
		DryRun:       params.dryRun,
		RaiseOnError: params.raiseOnError,
	})

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	return runErr
}

// refRules converts the mapping table's reference declarations into
// importer rules.
func refRules(tables *mapping.Registry, entity string) []importer.RefRule {
	fm, ok := tables.Mapping(entity)
	if !ok {
		return nil
	}
	rules := make([]importer.RefRule, 0, len(fm.Refs))
	for _, ref := range fm.Refs {
		rules = append(rules, importer.RefRule{
			Field:      ref.Field,
			Table:      ref.Table,
			LazyCreate: ref.LazyCreate,
		})
	}
	return rules
}
