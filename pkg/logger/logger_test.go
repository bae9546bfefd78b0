package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// swapGlobal installs an observable logger for the duration of one test.
func swapGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := globalLogger
	globalLogger = zap.New(core)
	t.Cleanup(func() { globalLogger = prev })
	return logs
}

func TestWithContextAttachesRunFields(t *testing.T) {
	logs := swapGlobal(t)

	ctx := context.WithValue(context.Background(), RunIDKey, "run-1")
	ctx = context.WithValue(ctx, EntityKey, "part")
	ctx = context.WithValue(ctx, SourceKey, "flatfile")

	WithContext(ctx).Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "run-1", fields["run_id"])
	assert.Equal(t, "part", fields["entity"])
	assert.Equal(t, "flatfile", fields["source"])
}

func TestWithContextWithoutValues(t *testing.T) {
	logs := swapGlobal(t)

	WithContext(context.Background()).Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].ContextMap())
}

func TestWithAddsFields(t *testing.T) {
	logs := swapGlobal(t)

	With(zap.String("component", "test")).Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "test", entries[0].ContextMap()["component"])
}

func TestNewLoggerRejectsInvalidLevel(t *testing.T) {
	_, err := newLogger(Config{Level: "shout", Encoding: "json"})
	assert.Error(t, err)
}

func TestNewLoggerDefaults(t *testing.T) {
	log, err := newLogger(Config{Level: "info", Encoding: "json"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}
