package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"gitlab.ozon.dev/qwestard/umishka/internal/logger"
)

func TestNewZapLog(t *testing.T) {
	zl, err := logger.NewZapLog("warn")
	require.NoError(t, err)
	assert.True(t, zl.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, zl.Core().Enabled(zapcore.InfoLevel))

	_, err = logger.NewZapLog("loud")
	assert.Error(t, err)
}
