// Package processor converts raw source records into validated target-schema
// records using the declarative mapping registry. Processing is pure: no I/O
// beyond construction-time registry lookups, and source records are never
// mutated in place.
package processor

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/partsbridge/partsync/pkg/errors"
	"github.com/partsbridge/partsync/pkg/mapping"
	"github.com/partsbridge/partsync/pkg/models"
)

// SkipDetail records one row dropped during processing.
type SkipDetail struct {
	// NaturalKey is the row's natural key value when resolvable, or the
	// raw source value of the key column
	NaturalKey string
	Reason     string
}

// Outcome is the result of one Process call. A skipped row is a validation
// failure at row granularity; the rest of the batch is unaffected.
type Outcome struct {
	Records []models.ProcessedRecord
	Skipped []SkipDetail
}

// Processor transforms raw rows into zero or more processed records.
type Processor interface {
	Process(rows []models.SourceRecord) Outcome
}

// resolvedRule is a FieldRule with its transformer resolved at construction.
type resolvedRule struct {
	target    string
	source    string
	required  bool
	transform mapping.TransformFunc
}

// Generic applies an entity's field mapping row by row: one valid row in,
// one processed record out.
type Generic struct {
	entity     string
	naturalKey string
	keySource  string
	rules      []resolvedRule
	assemble   mapping.Assembler
	logger     *zap.Logger
}

// NewGeneric builds a generic processor for an (entity, source type) pair
// from the registry. It fails with a config error when the entity has no
// field mapping, before any extraction is attempted.
func NewGeneric(reg *mapping.Registry, entity, sourceType string, logger *zap.Logger) (*Generic, error) {
	fm, ok := reg.Mapping(entity)
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeConfig, "no field mapping registered for entity %q", entity)
	}

	rules := make([]resolvedRule, 0, len(fm.Fields))
	keySource := ""
	for _, rule := range fm.Fields {
		resolved := resolvedRule{target: rule.Target, source: rule.Source, required: rule.Required}
		if rule.Transform != "" {
			fn, ok := mapping.Lookup(rule.Transform)
			if !ok {
				return nil, errors.Newf(errors.ErrorTypeConfig,
					"mapping for %s references unknown transformer %q", entity, rule.Transform)
			}
			resolved.transform = fn
		}
		if rule.Target == fm.NaturalKey {
			keySource = rule.Source
		}
		rules = append(rules, resolved)
	}
	if keySource == "" {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"mapping for %s does not map its natural key field %q", entity, fm.NaturalKey)
	}

	return &Generic{
		entity:     entity,
		naturalKey: fm.NaturalKey,
		keySource:  keySource,
		rules:      rules,
		assemble:   reg.NewAssembler(entity, sourceType),
		logger:     logger.With(zap.String("processor", "generic"), zap.String("entity", entity)),
	}, nil
}

// Process maps each row through the field mapping and assembles complex
// list fields. Rows failing required-field or transform validation are
// skipped and counted, not raised.
func (g *Generic) Process(rows []models.SourceRecord) Outcome {
	out := Outcome{
		Records: make([]models.ProcessedRecord, 0, len(rows)),
		Skipped: make([]SkipDetail, 0),
	}
	for _, row := range rows {
		record, err := g.mapRow(row)
		if err != nil {
			out.Skipped = append(out.Skipped, SkipDetail{
				NaturalKey: rawKey(row, g.keySource),
				Reason:     err.Error(),
			})
			g.logger.Debug("row skipped", zap.String("reason", err.Error()))
			continue
		}
		out.Records = append(out.Records, record)
	}
	return out
}

// mapRow converts one raw row into one processed record.
func (g *Generic) mapRow(row models.SourceRecord) (models.ProcessedRecord, error) {
	fields := make(map[string]interface{}, len(g.rules))

	for _, rule := range g.rules {
		raw, present := row[rule.source]
		if !present || raw == nil || isBlankValue(raw) {
			if rule.required {
				return models.ProcessedRecord{}, errors.Newf(errors.ErrorTypeValidation,
					"missing required field %s (source column %s)", rule.target, rule.source)
			}
			continue
		}

		value := raw
		if rule.transform != nil {
			transformed, err := rule.transform(raw)
			if err != nil {
				if rule.required {
					return models.ProcessedRecord{}, errors.Wrap(err, errors.ErrorTypeValidation,
						"transformer failed on required field "+rule.target)
				}
				// Field-level failure on an optional field drops the
				// field, not the record.
				g.logger.Debug("optional field dropped",
					zap.String("field", rule.target), zap.Error(err))
				continue
			}
			value = transformed
		}
		fields[rule.target] = value
	}

	for field, values := range g.assemble(row) {
		fields[field] = values
	}

	key, ok := fields[g.naturalKey]
	if !ok || isBlankValue(key) {
		return models.ProcessedRecord{}, errors.Newf(errors.ErrorTypeValidation,
			"natural key field %s is empty", g.naturalKey)
	}

	return models.ProcessedRecord{
		Entity:     g.entity,
		NaturalKey: fmt.Sprintf("%v", key),
		Fields:     fields,
	}, nil
}

func rawKey(row models.SourceRecord, keySource string) string {
	if v, ok := row[keySource]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func isBlankValue(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}
