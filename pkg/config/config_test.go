package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsbridge/partsync/pkg/errors"
)

func TestSourceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SourceConfig
		wantErr bool
	}{
		{
			name: "valid flatfile",
			cfg: SourceConfig{
				Type: "flatfile", Name: "catalog",
				File: &FileSourceConfig{Path: "/data/parts.csv"},
			},
		},
		{
			name: "valid odbc",
			cfg: SourceConfig{
				Type: "odbc", Name: "legacy",
				ODBC: &ODBCSourceConfig{DSN: "LEGACY", AllowedTables: []string{"ITMMST"}},
			},
		},
		{name: "missing type", cfg: SourceConfig{Name: "x"}, wantErr: true},
		{name: "missing name", cfg: SourceConfig{Type: "flatfile"}, wantErr: true},
		{name: "unknown type", cfg: SourceConfig{Type: "ftp", Name: "x"}, wantErr: true},
		{name: "flatfile without file section", cfg: SourceConfig{Type: "flatfile", Name: "x"}, wantErr: true},
		{
			name: "flatfile without path",
			cfg: SourceConfig{
				Type: "flatfile", Name: "x",
				File: &FileSourceConfig{},
			},
			wantErr: true,
		},
		{
			name: "multi-character delimiter",
			cfg: SourceConfig{
				Type: "flatfile", Name: "x",
				File: &FileSourceConfig{Path: "/data/p.csv", Delimiter: "||"},
			},
			wantErr: true,
		},
		{
			name: "odbc without dsn",
			cfg: SourceConfig{
				Type: "odbc", Name: "x",
				ODBC: &ODBCSourceConfig{AllowedTables: []string{"ITMMST"}},
			},
			wantErr: true,
		},
		{
			name: "odbc without allow-list",
			cfg: SourceConfig{
				Type: "odbc", Name: "x",
				ODBC: &ODBCSourceConfig{DSN: "LEGACY"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDelimiterRune(t *testing.T) {
	assert.Equal(t, ',', (&FileSourceConfig{}).DelimiterRune())
	assert.Equal(t, '|', (&FileSourceConfig{Delimiter: "|"}).DelimiterRune())
}

func TestTableAllowedIsCaseInsensitive(t *testing.T) {
	cfg := &ODBCSourceConfig{AllowedTables: []string{"ITMMST", "PrcMst"}}
	assert.True(t, cfg.TableAllowed("itmmst"))
	assert.True(t, cfg.TableAllowed("PRCMST"))
	assert.False(t, cfg.TableAllowed("CUSMST"))
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("PARTSYNC_TEST_DSN", "LEGACY400")
	t.Setenv("PARTSYNC_TEST_PWD", "s3cret")

	content := `
type: odbc
name: legacy
odbc:
  dsn: ${PARTSYNC_TEST_DSN}
  username: sync
  password: ${PARTSYNC_TEST_PWD}
  connect_timeout: 10s
  allowed_tables: [ITMMST]
`
	path := filepath.Join(t.TempDir(), "source.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	var cfg SourceConfig
	require.NoError(t, Load(path, &cfg))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "LEGACY400", cfg.ODBC.DSN)
	assert.Equal(t, "s3cret", cfg.ODBC.Password)
	assert.Equal(t, 10*time.Second, cfg.ODBC.ConnectTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	var cfg SourceConfig
	err := Load(filepath.Join(t.TempDir(), "absent.yaml"), &cfg)
	assert.Error(t, err)
}
