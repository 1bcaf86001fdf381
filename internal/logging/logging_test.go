package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiered-billing-engine/internal/domain"
)

func TestNew_FormatAndLevel(t *testing.T) {
	logger, err := New(domain.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"})
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
	assert.Equal(t, os.Stderr, logger.Out)
}

func TestNew_DefaultsToJSONAndInfo(t *testing.T) {
	logger, err := New(domain.LoggingConfig{Level: "chatty"})
	require.NoError(t, err)

	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	assert.Equal(t, os.Stdout, logger.Out)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "billing.log")

	logger, err := New(domain.LoggingConfig{Level: "info", Output: "file", Filename: path})
	require.NoError(t, err)

	logger.WithField("component", "test").Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
}

func TestNew_InvalidOutput(t *testing.T) {
	_, err := New(domain.LoggingConfig{Output: "file"})
	assert.Error(t, err)

	_, err = New(domain.LoggingConfig{Output: "syslog"})
	assert.Error(t, err)
}
