// ABOUTME: Tests for logger construction
// ABOUTME: Checks level parsing and the process logger
package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/incial/crm/config"
)

func TestNewLevels(t *testing.T) {
	logger, err := New(config.LogConfig{Level: "debug", Development: true})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = New(config.LogConfig{Level: "loud"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestGetAndSet(t *testing.T) {
	assert.NotNil(t, Get())
	custom := zap.NewExample()
	Set(custom)
	assert.Same(t, custom, Get())
}
