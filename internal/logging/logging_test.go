package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ndewijer/portfolio-client/internal/logging"
)

// TestNew tests logger construction from a level name.
//
// WHY: The level comes straight from user configuration; a typo must be reported
// instead of silently logging at the wrong level.
func TestNew(t *testing.T) {
	t.Run("defaults to info", func(t *testing.T) {
		logger, err := logging.New("")
		require.NoError(t, err)

		assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("accepts mixed case levels", func(t *testing.T) {
		logger, err := logging.New("DEBUG")
		require.NoError(t, err)

		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("rejects unknown levels", func(t *testing.T) {
		_, err := logging.New("verbose")
		assert.Error(t, err)
	})
}
