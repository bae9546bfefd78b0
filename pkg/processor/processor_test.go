package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsbridge/partsync/pkg/errors"
	"github.com/partsbridge/partsync/pkg/mapping"
	"github.com/partsbridge/partsync/pkg/models"
	"github.com/partsbridge/partsync/pkg/testutil"
)

func partRegistry(t *testing.T) *mapping.Registry {
	t.Helper()
	reg, err := mapping.NewRegistry([]mapping.FieldMapping{
		{
			Entity:     "part",
			NaturalKey: "part_number",
			Fields: []mapping.FieldRule{
				{Target: "part_number", Source: "PARTNO", Transform: "trim", Required: true},
				{Target: "weight", Source: "WEIGHT", Transform: "decimal"},
				{Target: "active", Source: "ACTIVE", Transform: "bool_yn"},
			},
		},
	}, []mapping.ComplexFieldAlias{
		{
			Entity:     "part",
			Field:      "descriptions",
			SourceType: "flatfile",
			Aliases: []mapping.AliasEntry{
				{Column: "DESC_SHORT", Subtype: "Short"},
				{Column: "DESC_LONG", Subtype: "Long"},
			},
		},
	})
	require.NoError(t, err)
	return reg
}

func TestGenericProcess(t *testing.T) {
	proc, err := NewGeneric(partRegistry(t), "part", "flatfile", testutil.TestLogger(t))
	require.NoError(t, err)

	out := proc.Process([]models.SourceRecord{
		{"PARTNO": "  AB123 ", "WEIGHT": "2.5", "ACTIVE": "Y", "DESC_SHORT": "Brake pad"},
	})

	require.Len(t, out.Records, 1)
	assert.Empty(t, out.Skipped)

	rec := out.Records[0]
	assert.Equal(t, "part", rec.Entity)
	assert.Equal(t, "AB123", rec.NaturalKey)
	assert.Equal(t, "AB123", rec.Fields["part_number"])
	assert.Equal(t, 2.5, rec.Fields["weight"])
	assert.Equal(t, true, rec.Fields["active"])
	assert.Equal(t, []mapping.TaggedValue{{Subtype: "Short", Value: "Brake pad"}},
		rec.Fields["descriptions"])
}

func TestGenericSkipsRowMissingRequiredField(t *testing.T) {
	proc, err := NewGeneric(partRegistry(t), "part", "flatfile", testutil.TestLogger(t))
	require.NoError(t, err)

	out := proc.Process([]models.SourceRecord{
		{"PARTNO": "AB123", "WEIGHT": "2.5"},
		{"PARTNO": "   ", "WEIGHT": "1.0"}, // blank natural key
		{"WEIGHT": "1.0"},                  // key column absent
		{"PARTNO": "CD456"},
	})

	require.Len(t, out.Records, 2)
	require.Len(t, out.Skipped, 2)
	assert.Equal(t, "AB123", out.Records[0].NaturalKey)
	assert.Equal(t, "CD456", out.Records[1].NaturalKey)
}

func TestGenericOptionalTransformFailureDropsFieldOnly(t *testing.T) {
	proc, err := NewGeneric(partRegistry(t), "part", "flatfile", testutil.TestLogger(t))
	require.NoError(t, err)

	out := proc.Process([]models.SourceRecord{
		{"PARTNO": "AB123", "WEIGHT": "heavy"},
	})

	require.Len(t, out.Records, 1)
	assert.Empty(t, out.Skipped)
	_, present := out.Records[0].Fields["weight"]
	assert.False(t, present)
	assert.Equal(t, "AB123", out.Records[0].Fields["part_number"])
}

func TestGenericSkipsRowOnRequiredTransformFailure(t *testing.T) {
	reg, err := mapping.NewRegistry([]mapping.FieldMapping{
		{
			Entity:     "part",
			NaturalKey: "part_number",
			Fields: []mapping.FieldRule{
				{Target: "part_number", Source: "PARTNO", Required: true},
				{Target: "weight", Source: "WEIGHT", Transform: "decimal", Required: true},
			},
		},
	}, nil)
	require.NoError(t, err)

	proc, err := NewGeneric(reg, "part", "flatfile", testutil.TestLogger(t))
	require.NoError(t, err)

	out := proc.Process([]models.SourceRecord{
		{"PARTNO": "AB123", "WEIGHT": "heavy"},
	})
	assert.Empty(t, out.Records)
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, "AB123", out.Skipped[0].NaturalKey)
}

func TestNewGenericUnknownEntityIsConfigError(t *testing.T) {
	_, err := NewGeneric(partRegistry(t), "warehouse", "flatfile", testutil.TestLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestFactoryResolvesSpecializedThenGeneric(t *testing.T) {
	reg := priceRegistry(t)
	logger := testutil.TestLogger(t)

	proc, err := New(reg, "price", "flatfile", logger)
	require.NoError(t, err)
	assert.IsType(t, &Pricing{}, proc)

	proc, err = New(reg, "price", "odbc", logger)
	require.NoError(t, err)
	assert.IsType(t, &Pricing{}, proc)

	reg = partRegistry(t)
	proc, err = New(reg, "part", "flatfile", logger)
	require.NoError(t, err)
	assert.IsType(t, &Generic{}, proc)
}

func TestFactoryUnmappedEntityFailsBeforeAnyExtraction(t *testing.T) {
	_, err := New(partRegistry(t), "warehouse", "flatfile", testutil.TestLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
