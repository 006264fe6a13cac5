package utils

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *logrus.Logger {
	logger := NewLogger(false, true)
	logger.SetOutput(buf)

	return logger
}

func TestFormatterAppendsBody(t *testing.T) {
	var buf bytes.Buffer

	logger := newTestLogger(&buf)
	logger.WithFields(logrus.Fields{
		"body":  []byte(`{"type":"getTags"}`),
		"color": color.FgCyan,
	}).Info("qewd frame")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "qewd frame")
	assert.NotContains(t, lines[0], "body=")
	assert.NotContains(t, lines[0], "color=")
	assert.Equal(t, `{"type":"getTags"}`, lines[1])
}

func TestFormatterStringBody(t *testing.T) {
	var buf bytes.Buffer

	logger := newTestLogger(&buf)
	logger.WithField("body", "plain text\n").Info("response")

	assert.True(t, strings.HasSuffix(buf.String(), "plain text\n"))
	assert.Equal(t, 1, strings.Count(buf.String(), "plain text"))
}

func TestFormatterWithoutBody(t *testing.T) {
	var buf bytes.Buffer

	logger := newTestLogger(&buf)
	logger.WithField("operation", "getTags").Info("call finished")

	assert.Contains(t, buf.String(), "operation=getTags")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestNewLoggerVerbose(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewLogger(true, true).GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger(false, true).GetLevel())
}

func TestGetBuildVersion(t *testing.T) {
	assert.Equal(t, "git-dev", GetBuildVersion())

	BuildVersion = "abc123"
	defer func() { BuildVersion = "" }()

	assert.Equal(t, "git-abc123", GetBuildVersion())
}
