// Package config provides connector and destination configuration for
// partsync. Each connector type has a structured, validated configuration
// object; validation happens at construction time and fails fast with a
// config error before any I/O is attempted.
package config

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/partsbridge/partsync/pkg/errors"
)

// SourceConfig is the top-level configuration for one source connector.
// Exactly one of the type-specific sections must be set, matching Type.
type SourceConfig struct {
	// Type selects the connector implementation ("flatfile", "odbc")
	Type string `yaml:"type" json:"type"`
	// Name identifies the source instance in logs and sync runs
	Name string `yaml:"name" json:"name"`

	File *FileSourceConfig `yaml:"file,omitempty" json:"file,omitempty"`
	ODBC *ODBCSourceConfig `yaml:"odbc,omitempty" json:"odbc,omitempty"`
}

// Validate checks the source configuration for correctness.
func (c *SourceConfig) Validate() error {
	if c.Type == "" {
		return errors.New(errors.ErrorTypeConfig, "source type is required")
	}
	if c.Name == "" {
		return errors.New(errors.ErrorTypeConfig, "source name is required")
	}
	switch c.Type {
	case "flatfile":
		if c.File == nil {
			return errors.New(errors.ErrorTypeConfig, "flatfile source requires a file section")
		}
		return c.File.Validate()
	case "odbc":
		if c.ODBC == nil {
			return errors.New(errors.ErrorTypeConfig, "odbc source requires an odbc section")
		}
		return c.ODBC.Validate()
	default:
		return errors.Newf(errors.ErrorTypeConfig, "unknown source type %q", c.Type)
	}
}

// FileSourceConfig configures a delimited flat-file source.
type FileSourceConfig struct {
	// Path is the location of the backing file
	Path string `yaml:"path" json:"path"`
	// Delimiter separates fields; defaults to comma
	Delimiter string `yaml:"delimiter" json:"delimiter"`
	// HasHeader indicates the first row carries column names
	HasHeader bool `yaml:"has_header" json:"has_header"`
	// TrimSpaces strips surrounding whitespace from values
	TrimSpaces bool `yaml:"trim_spaces" json:"trim_spaces"`
	// NullValues are raw strings treated as null (e.g. "NULL", "N/A")
	NullValues []string `yaml:"null_values" json:"null_values"`
}

// Validate checks the flat-file configuration.
func (c *FileSourceConfig) Validate() error {
	if c.Path == "" {
		return errors.New(errors.ErrorTypeConfig, "file path is required")
	}
	if len(c.Delimiter) > 1 {
		return errors.Newf(errors.ErrorTypeConfig, "delimiter must be a single character, got %q", c.Delimiter)
	}
	return nil
}

// DelimiterRune returns the configured delimiter, defaulting to comma.
func (c *FileSourceConfig) DelimiterRune() rune {
	if c.Delimiter == "" {
		return ','
	}
	return rune(c.Delimiter[0])
}

// ODBCSourceConfig configures a legacy database source reached through an
// ODBC driver. Access to these systems is typically restricted, so the
// tables the connector may read from are an explicit allow-list.
type ODBCSourceConfig struct {
	// DSN is the ODBC data source name
	DSN string `yaml:"dsn" json:"dsn"`
	// Username and Password authenticate against the legacy system
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	// ConnectTimeout bounds connection establishment
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	// QueryTimeout bounds individual extract calls
	QueryTimeout time.Duration `yaml:"query_timeout" json:"query_timeout"`
	// AllowedTables is the explicit allow-list of readable tables;
	// bare-table extracts outside this list are rejected
	AllowedTables []string `yaml:"allowed_tables" json:"allowed_tables"`
}

// UnmarshalYAML accepts Go duration strings ("10s", "1m30s") for the
// timeout fields.
func (c *ODBCSourceConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		DSN            string   `yaml:"dsn"`
		Username       string   `yaml:"username"`
		Password       string   `yaml:"password"`
		ConnectTimeout string   `yaml:"connect_timeout"`
		QueryTimeout   string   `yaml:"query_timeout"`
		AllowedTables  []string `yaml:"allowed_tables"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.DSN = raw.DSN
	c.Username = raw.Username
	c.Password = raw.Password
	c.AllowedTables = raw.AllowedTables

	var err error
	if raw.ConnectTimeout != "" {
		if c.ConnectTimeout, err = time.ParseDuration(raw.ConnectTimeout); err != nil {
			return errors.Newf(errors.ErrorTypeConfig, "invalid connect_timeout %q", raw.ConnectTimeout)
		}
	}
	if raw.QueryTimeout != "" {
		if c.QueryTimeout, err = time.ParseDuration(raw.QueryTimeout); err != nil {
			return errors.Newf(errors.ErrorTypeConfig, "invalid query_timeout %q", raw.QueryTimeout)
		}
	}
	return nil
}

// Validate checks the ODBC configuration.
func (c *ODBCSourceConfig) Validate() error {
	if c.DSN == "" {
		return errors.New(errors.ErrorTypeConfig, "odbc dsn is required")
	}
	if len(c.AllowedTables) == 0 {
		return errors.New(errors.ErrorTypeConfig, "odbc allowed_tables must not be empty")
	}
	return nil
}

// TableAllowed reports whether the named table is on the allow-list.
// Matching is case-insensitive, as legacy catalogs are.
func (c *ODBCSourceConfig) TableAllowed(table string) bool {
	for _, t := range c.AllowedTables {
		if strings.EqualFold(t, table) {
			return true
		}
	}
	return false
}

// DestinationConfig configures the canonical relational store.
type DestinationConfig struct {
	// URL is the Postgres connection string
	URL string `yaml:"url" json:"url"`
	// MaxConns caps the connection pool size
	MaxConns int32 `yaml:"max_conns" json:"max_conns"`
}

// Validate checks the destination configuration.
func (c *DestinationConfig) Validate() error {
	if c.URL == "" {
		return errors.New(errors.ErrorTypeConfig, "destination url is required")
	}
	return nil
}
