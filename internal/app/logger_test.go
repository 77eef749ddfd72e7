package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewLoggerLevels(t *testing.T) {
	assert.True(t, NewLogger("development").Core().Enabled(zap.DebugLevel))

	prod := NewLogger("production")
	assert.False(t, prod.Core().Enabled(zap.DebugLevel))
	assert.True(t, prod.Core().Enabled(zap.InfoLevel))
}
