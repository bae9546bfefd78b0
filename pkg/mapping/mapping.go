// Package mapping holds the externally supplied, read-only configuration
// consumed by record processors: per-entity field mappings with transformers
// and required flags, and complex-field alias tables that reconstruct one
// structured list field from many flat legacy columns. The core only
// consumes these tables, it never authors them.
package mapping

import (
	"github.com/partsbridge/partsync/pkg/config"
	"github.com/partsbridge/partsync/pkg/errors"
	"github.com/partsbridge/partsync/pkg/models"
)

// FieldRule maps one target field to its external source column.
type FieldRule struct {
	// Target is the field name on the target schema
	Target string `yaml:"target"`
	// Source is the external column name in the source system
	Source string `yaml:"source"`
	// Transform names a registered transformer applied to the raw value
	Transform string `yaml:"transform,omitempty"`
	// Required marks fields whose absence or transform failure skips the row
	Required bool `yaml:"required,omitempty"`
}

// RefRule declares a target field whose value is a code referencing an
// auxiliary lookup table, resolved to an internal identifier at import time.
type RefRule struct {
	Field string `yaml:"field"`
	Table string `yaml:"table"`
	// LazyCreate allows creating a missing aux row on first sight
	LazyCreate bool `yaml:"lazy_create,omitempty"`
}

// FieldMapping is the declarative mapping table for one entity type.
type FieldMapping struct {
	Entity string `yaml:"entity"`
	// NaturalKey is the target field used for upsert matching
	NaturalKey string      `yaml:"natural_key"`
	Fields     []FieldRule `yaml:"fields"`
	// Refs lists fields resolved against auxiliary lookup tables
	Refs []RefRule `yaml:"refs,omitempty"`
}

// AliasEntry maps one flat external column to a semantic subtype within a
// structured list field.
type AliasEntry struct {
	// Column is the flat column name as it appears in source rows
	Column string `yaml:"column"`
	// Subtype tags the reconstructed value (e.g. "Short", "Marketing")
	Subtype string `yaml:"subtype"`
}

// ComplexFieldAlias describes, for one (entity, complex field, source type),
// which scalar source columns feed the reconstructed list field.
type ComplexFieldAlias struct {
	Entity     string       `yaml:"entity"`
	Field      string       `yaml:"field"`
	SourceType string       `yaml:"source_type"`
	Aliases    []AliasEntry `yaml:"aliases"`
}

// TaggedValue is one element of a reconstructed list field.
type TaggedValue struct {
	Subtype string      `json:"subtype"`
	Value   interface{} `json:"value"`
}

type aliasKey struct {
	entity     string
	field      string
	sourceType string
}

// Registry holds the mapping and alias tables for all entity types. It is
// read-only after construction.
type Registry struct {
	mappings map[string]*FieldMapping
	aliases  map[aliasKey][]AliasEntry
}

// NewRegistry builds a registry from mapping and alias tables.
func NewRegistry(mappings []FieldMapping, aliases []ComplexFieldAlias) (*Registry, error) {
	r := &Registry{
		mappings: make(map[string]*FieldMapping, len(mappings)),
		aliases:  make(map[aliasKey][]AliasEntry, len(aliases)),
	}
	for i := range mappings {
		m := mappings[i]
		if m.Entity == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "field mapping with empty entity")
		}
		if m.NaturalKey == "" {
			return nil, errors.Newf(errors.ErrorTypeConfig, "field mapping for %s has no natural key", m.Entity)
		}
		if _, dup := r.mappings[m.Entity]; dup {
			return nil, errors.Newf(errors.ErrorTypeConfig, "duplicate field mapping for entity %s", m.Entity)
		}
		for _, rule := range m.Fields {
			if rule.Transform != "" {
				if _, ok := Lookup(rule.Transform); !ok {
					return nil, errors.Newf(errors.ErrorTypeConfig,
						"mapping for %s references unknown transformer %q", m.Entity, rule.Transform)
				}
			}
		}
		r.mappings[m.Entity] = &m
	}
	for _, a := range aliases {
		key := aliasKey{entity: a.Entity, field: a.Field, sourceType: a.SourceType}
		r.aliases[key] = append(r.aliases[key], a.Aliases...)
	}
	return r, nil
}

// Mapping returns the field mapping for an entity type.
func (r *Registry) Mapping(entity string) (*FieldMapping, bool) {
	m, ok := r.mappings[entity]
	return m, ok
}

// Aliases returns the alias entries for one (entity, field, source type),
// in table order. Missing tables yield an empty slice.
func (r *Registry) Aliases(entity, field, sourceType string) []AliasEntry {
	return r.aliases[aliasKey{entity: entity, field: field, sourceType: sourceType}]
}

// ComplexFields returns the complex list-field names defined for an
// (entity, source type) pair.
func (r *Registry) ComplexFields(entity, sourceType string) []string {
	fields := make([]string, 0)
	seen := make(map[string]bool)
	for key := range r.aliases {
		if key.entity == entity && key.sourceType == sourceType && !seen[key.field] {
			seen[key.field] = true
			fields = append(fields, key.field)
		}
	}
	return fields
}

// Assembler reconstructs the structured list fields of one row from its
// flat columns. It is a pure function over the row.
type Assembler func(row models.SourceRecord) map[string][]TaggedValue

// NewAssembler builds an assembler for an (entity, source type) pair from
// the registry's alias tables at processor construction time. Columns absent
// from the alias tables, or present but blank, are silently excluded.
func (r *Registry) NewAssembler(entity, sourceType string) Assembler {
	type fieldAliases struct {
		field   string
		entries []AliasEntry
	}
	tables := make([]fieldAliases, 0)
	for _, field := range r.ComplexFields(entity, sourceType) {
		tables = append(tables, fieldAliases{field: field, entries: r.Aliases(entity, field, sourceType)})
	}

	return func(row models.SourceRecord) map[string][]TaggedValue {
		out := make(map[string][]TaggedValue, len(tables))
		for _, table := range tables {
			values := make([]TaggedValue, 0, len(table.entries))
			for _, entry := range table.entries {
				raw, ok := row[entry.Column]
				if !ok || isBlank(raw) {
					continue
				}
				values = append(values, TaggedValue{Subtype: entry.Subtype, Value: raw})
			}
			if len(values) > 0 {
				out[table.field] = values
			}
		}
		return out
	}
}

// tablesFile is the on-disk layout of the externally supplied tables.
type tablesFile struct {
	Mappings []FieldMapping      `yaml:"mappings"`
	Aliases  []ComplexFieldAlias `yaml:"aliases"`
}

// LoadRegistry reads mapping and alias tables from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	var file tablesFile
	if err := config.Load(path, &file); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load mapping tables")
	}
	return NewRegistry(file.Mappings, file.Aliases)
}
