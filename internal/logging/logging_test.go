package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"git.sr.ht/~jakintosh/yourauth/internal/logging"
)

func TestNew(t *testing.T) {
	t.Parallel()

	// json logger at warn drops info
	logger, err := logging.New("warn", logging.FormatJSON)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	// console logger at debug
	logger, err = logging.New("DEBUG", logging.FormatConsole)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	// unknown level fails
	_, err := logging.New("loud", logging.FormatJSON)
	assert.Error(t, err)

	// unknown format fails
	_, err = logging.New("info", "xml")
	assert.Error(t, err)
}
