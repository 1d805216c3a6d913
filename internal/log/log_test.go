package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevelSet(t *testing.T) {
	var ll LogLevel
	require.NoError(t, ll.Set("debug"))
	assert.Equal(t, DEBUG, ll)
	assert.Error(t, ll.Set("loud"))
}

func TestStrToLogLevel(t *testing.T) {
	tests := map[LogLevel]zerolog.Level{
		DEBUG:    zerolog.DebugLevel,
		INFO:     zerolog.InfoLevel,
		WARN:     zerolog.WarnLevel,
		ERROR:    zerolog.ErrorLevel,
		DISABLED: zerolog.Disabled,
		TRACE:    zerolog.TraceLevel,
	}
	for in, expected := range tests {
		got, err := strToLogLevel(in)
		require.NoError(t, err)
		assert.Equal(t, expected, got, in)
	}
	_, err := strToLogLevel("verbose")
	assert.Error(t, err)
}

func TestInitWithLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.log")
	require.NoError(t, InitWithLogLevel(INFO, path, true))
	t.Cleanup(func() { _ = Close() })

	log.Info().Int("device", 2001).Msg("processing device")
	log.Debug().Msg("hidden")
	require.NoError(t, Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"device":2001`)
	assert.NotContains(t, string(b), "hidden")
}
