package flatfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsbridge/partsync/pkg/config"
	"github.com/partsbridge/partsync/pkg/errors"
	"github.com/partsbridge/partsync/pkg/testutil"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newTestSource(t *testing.T, path string) *Source {
	t.Helper()
	src, err := New(&config.SourceConfig{
		Type: "flatfile",
		Name: "catalog",
		File: &config.FileSourceConfig{
			Path:       path,
			Delimiter:  ",",
			HasHeader:  true,
			TrimSpaces: true,
			NullValues: []string{"", "NULL"},
		},
	})
	require.NoError(t, err)
	return src.(*Source)
}

const partsCSV = `part_no,brand,jobber_price
AB123,ACME,12.50
CD456,ACME,NULL
EF789,BOLTCO,5.25
`

func TestConnectAndExtract(t *testing.T) {
	ctx := testutil.TestContext(t)
	src := newTestSource(t, writeCSV(t, "parts.csv", partsCSV))
	require.NoError(t, src.Connect(ctx))

	records, err := src.Extract(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "AB123", records[0]["part_no"])
	assert.Equal(t, "12.50", records[0]["jobber_price"])
	assert.Nil(t, records[1]["jobber_price"], "NULL marker becomes nil")
}

func TestExtractBareFileNameSelectsAll(t *testing.T) {
	ctx := testutil.TestContext(t)
	src := newTestSource(t, writeCSV(t, "parts.csv", partsCSV))
	require.NoError(t, src.Connect(ctx))

	for _, query := range []string{"parts.csv", "parts", "PARTS"} {
		records, err := src.Extract(ctx, query, 0)
		require.NoError(t, err, query)
		assert.Len(t, records, 3, query)
	}

	_, err := src.Extract(ctx, "inventory", 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))
}

func TestExtractEqualityFilters(t *testing.T) {
	ctx := testutil.TestContext(t)
	src := newTestSource(t, writeCSV(t, "parts.csv", partsCSV))
	require.NoError(t, src.Connect(ctx))

	records, err := src.Extract(ctx, "brand=ACME", 0)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = src.Extract(ctx, "brand=ACME,part_no=AB123", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "AB123", records[0]["part_no"])

	// No match is an empty, non-nil result, not an error.
	records, err = src.Extract(ctx, "brand=NOPE", 0)
	require.NoError(t, err)
	require.NotNil(t, records)
	assert.Empty(t, records)

	_, err = src.Extract(ctx, "=ACME", 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))
}

func TestExtractLimit(t *testing.T) {
	ctx := testutil.TestContext(t)
	src := newTestSource(t, writeCSV(t, "parts.csv", partsCSV))
	require.NoError(t, src.Connect(ctx))

	records, err := src.Extract(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestConnectMissingFile(t *testing.T) {
	ctx := testutil.TestContext(t)
	src := newTestSource(t, filepath.Join(t.TempDir(), "absent.csv"))

	err := src.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}

func TestExtractBeforeConnect(t *testing.T) {
	ctx := testutil.TestContext(t)
	src := newTestSource(t, writeCSV(t, "parts.csv", partsCSV))

	_, err := src.Extract(ctx, "", 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}

func TestHeaderlessFileSynthesizesColumnNames(t *testing.T) {
	ctx := testutil.TestContext(t)
	path := writeCSV(t, "raw.csv", "AB123,ACME\nCD456,BOLTCO\n")
	src, err := New(&config.SourceConfig{
		Type: "flatfile",
		Name: "raw",
		File: &config.FileSourceConfig{Path: path, Delimiter: ","},
	})
	require.NoError(t, err)
	require.NoError(t, src.Connect(ctx))

	records, err := src.Extract(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "AB123", records[0]["field_1"])
	assert.Equal(t, "ACME", records[0]["field_2"])
}

func TestCloseIsIdempotent(t *testing.T) {
	ctx := testutil.TestContext(t)
	src := newTestSource(t, writeCSV(t, "parts.csv", partsCSV))

	require.NoError(t, src.Close(), "close without connect")
	require.NoError(t, src.Connect(ctx))
	require.NoError(t, src.Close())
	require.NoError(t, src.Close())

	// A closed source can reconnect.
	require.NoError(t, src.Connect(ctx))
	records, err := src.Extract(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}
