package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partsbridge/partsync/pkg/config"
	"github.com/partsbridge/partsync/pkg/connector/core"
	"github.com/partsbridge/partsync/pkg/errors"
	"github.com/partsbridge/partsync/pkg/models"
)

type nopSource struct{ name string }

func (s *nopSource) Name() string { return s.name }

func (s *nopSource) Connect(context.Context) error { return nil }

func (s *nopSource) Close() error { return nil }
func (s *nopSource) Extract(context.Context, string, int) ([]models.SourceRecord, error) {
	return nil, nil
}

func nopFactory(cfg *config.SourceConfig) (core.Source, error) {
	return &nopSource{name: cfg.Name}, nil
}

func validConfig() *config.SourceConfig {
	return &config.SourceConfig{
		Type: "flatfile",
		Name: "catalog",
		File: &config.FileSourceConfig{Path: "/data/parts.csv"},
	}
}

func TestRegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSource("flatfile", nopFactory))

	src, err := r.CreateSource(validConfig())
	require.NoError(t, err)
	assert.Equal(t, "catalog", src.Name())

	assert.Equal(t, []string{"flatfile"}, r.ListSources())
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSource("flatfile", nopFactory))
	err := r.RegisterSource("flatfile", nopFactory)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestCreateUnknownType(t *testing.T) {
	r := NewRegistry()
	cfg := validConfig()
	_, err := r.CreateSource(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestCreateValidatesConfigFirst(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSource("flatfile", nopFactory))

	cfg := validConfig()
	cfg.File = nil
	_, err := r.CreateSource(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}
