package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigureLevels(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	t.Setenv(LevelEnv, "")
	logger := ConfigureWriter(&buf, false)
	logger.Debug("hidden")
	logger.Info("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger = ConfigureWriter(&buf, true)
	logger.Debug("detail")
	require.Contains(t, buf.String(), "detail", "verbose enables debug output")

	buf.Reset()
	t.Setenv(LevelEnv, "warn")
	logger = ConfigureWriter(&buf, true)
	logger.Info("quiet")
	logger.Warn("loud")
	require.NotContains(t, buf.String(), "quiet", "%s overrides verbose", LevelEnv)
	require.Contains(t, buf.String(), "loud")
}
