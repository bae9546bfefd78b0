package processor

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/partsbridge/partsync/pkg/mapping"
	"github.com/partsbridge/partsync/pkg/models"
)

// Price-type discriminators synthesized by the pricing processor. These
// values do not exist as columns in any source system.
const (
	PriceTypeJobber = "Jobber"
	PriceTypeExport = "Export"
)

// Synthetic columns injected into derived rows before generic mapping.
const (
	priceColumn     = "price"
	priceTypeColumn = "price_type"
	priceKeyColumn  = "price_key"
)

// priceSource pairs a legacy price column with its discriminator.
type priceSource struct {
	column    string
	priceType string
}

// Pricing reshapes legacy price rows before generic mapping applies. One
// legacy row carries up to two independent price columns; each one that
// holds a positive numeric value contributes exactly one derived record
// tagged with a synthesized price-type discriminator. A row may therefore
// legitimately yield 0, 1, or 2 processed records.
type Pricing struct {
	generic *Generic
	partKey string
	prices  []priceSource
	logger  *zap.Logger
}

// NewPricing builds the pricing-explosion processor for the "price" entity.
// partKeyColumn names the source column carrying the part number used to
// synthesize the per-price natural key.
func NewPricing(reg *mapping.Registry, sourceType, jobberColumn, exportColumn, partKeyColumn string, logger *zap.Logger) (*Pricing, error) {
	generic, err := NewGeneric(reg, "price", sourceType, logger)
	if err != nil {
		return nil, err
	}
	return &Pricing{
		generic: generic,
		partKey: partKeyColumn,
		prices: []priceSource{
			{column: jobberColumn, priceType: PriceTypeJobber},
			{column: exportColumn, priceType: PriceTypeExport},
		},
		logger: logger.With(zap.String("processor", "pricing")),
	}, nil
}

// Process explodes each raw row into derived per-price rows, then runs the
// derived rows through the generic field mapping.
func (p *Pricing) Process(rows []models.SourceRecord) Outcome {
	derived := make([]models.SourceRecord, 0, len(rows))
	for _, row := range rows {
		derived = append(derived, p.explode(row)...)
	}
	return p.generic.Process(derived)
}

// explode builds zero, one, or two derived rows from one legacy row. A
// blank, non-numeric, or non-positive price column means "no price", not an
// error, and contributes no row.
func (p *Pricing) explode(row models.SourceRecord) []models.SourceRecord {
	out := make([]models.SourceRecord, 0, len(p.prices))
	for _, src := range p.prices {
		price, ok := parsePrice(row[src.column])
		if !ok {
			continue
		}
		d := row.Clone()
		d[priceColumn] = price
		d[priceTypeColumn] = src.priceType
		d[priceKeyColumn] = fmt.Sprintf("%v:%s", row[p.partKey], src.priceType)
		out = append(out, d)
	}
	return out
}

// parsePrice returns the numeric price and whether the raw value is a
// usable positive price.
func parsePrice(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		return v, v > 0
	case float32:
		return float64(v), v > 0
	case int:
		return float64(v), v > 0
	case int64:
		return float64(v), v > 0
	}
	s := strings.TrimSpace(fmt.Sprintf("%v", raw))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}
