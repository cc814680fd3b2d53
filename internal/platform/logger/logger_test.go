package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medisync/internal/platform/logger"
)

func TestNewDefaultsToInfo(t *testing.T) {
	log := logger.New()
	require.NotNil(t, log)

	ctx := context.Background()
	assert.False(t, log.Enabled(ctx, slog.LevelDebug))
	assert.True(t, log.Enabled(ctx, slog.LevelInfo))
}

func TestWithLevelEnablesDebug(t *testing.T) {
	log := logger.New(logger.WithLevel(slog.LevelDebug))

	assert.True(t, log.Enabled(context.Background(), slog.LevelDebug))
}
