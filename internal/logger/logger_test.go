package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHelpersBeforeInitialize(t *testing.T) {
	assert.NotPanics(t, func() {
		Debug("debug")
		Info("info")
		Warn("warn")
		Error("error")
		_ = Named("component")
	})
}

func TestInitializeWritesFiles(t *testing.T) {
	directory := t.TempDir()
	logFile := filepath.Join(directory, "raffles.log")
	errorFile := filepath.Join(directory, "raffles.error.log")

	require.NoError(t, Initialize(Configuration{
		LogFile:   logFile,
		ErrorFile: errorFile,
		Level:     "info",
	}))
	t.Cleanup(func() { log = zap.NewNop() })

	Debug("hidden below info")
	Info("fetch blockchain data: done", zap.Int("raffles", 2))
	Error("fetch blockchain data: failed")
	Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "fetch blockchain data: done")
	assert.NotContains(t, string(content), "hidden below info")

	errors, err := os.ReadFile(errorFile)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(errors), "\n"))
	assert.Contains(t, string(errors), "fetch blockchain data: failed")
}

func TestInitializeUnknownLevelFallsBackToDebug(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "raffles.log")

	require.NoError(t, Initialize(Configuration{LogFile: logFile, Level: "verbose"}))
	t.Cleanup(func() { log = zap.NewNop() })

	Debug("debug visible")
	Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "debug visible")
}
