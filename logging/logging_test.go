package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = "debug"
	cfg.NoColors = true
	cfg.Output = &buf

	logger, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithFields(Fields{"detections": 3}).Debug("inference complete")
	assert.Contains(t, buf.String(), "inference complete")
	assert.Contains(t, buf.String(), "detections:3")
}

func TestNew_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "detector.log")
	cfg := DefaultConfig()
	cfg.File = file
	cfg.Output = &bytes.Buffer{}

	logger, err := New(cfg)
	require.NoError(t, err)
	logger.Info("detector ready")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "detector ready")
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}
