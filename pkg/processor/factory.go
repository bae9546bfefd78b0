package processor

import (
	"go.uber.org/zap"

	"github.com/partsbridge/partsync/pkg/mapping"
)

// resolutionKey identifies one (entity type, source type) pair.
type resolutionKey struct {
	Entity     string
	SourceType string
}

// Factory builds a processor from the mapping registry.
type Factory func(reg *mapping.Registry, logger *zap.Logger) (Processor, error)

// specialized is the statically constructed resolution table. Entries here
// take precedence over the generic declarative fallback. Legacy flat-file
// price feeds carry the jobber and export prices as two independent columns
// on one row, so they go through the pricing-explosion processor.
var specialized = map[resolutionKey]Factory{
	{Entity: "price", SourceType: "flatfile"}: func(reg *mapping.Registry, logger *zap.Logger) (Processor, error) {
		return NewPricing(reg, "flatfile", "jobber_price", "export_price", "part_no", logger)
	},
	{Entity: "price", SourceType: "odbc"}: func(reg *mapping.Registry, logger *zap.Logger) (Processor, error) {
		return NewPricing(reg, "odbc", "PJOBBR", "PEXPRT", "PPARTN", logger)
	},
}

// New resolves the processor for an (entity type, source type) pair: an
// explicitly registered specialized factory for the exact pair, otherwise a
// generic processor built from the entity's field mapping. A missing field
// mapping is a configuration error, raised before any extraction happens.
func New(reg *mapping.Registry, entity, sourceType string, logger *zap.Logger) (Processor, error) {
	if factory, ok := specialized[resolutionKey{Entity: entity, SourceType: sourceType}]; ok {
		return factory(reg, logger)
	}
	return NewGeneric(reg, entity, sourceType, logger)
}
