package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Formats(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"json", `"msg":"hello"`},
		{"text", "msg=hello"},
		{"pretty", "hello"},
		{"", "msg=hello"}, // a buffer is not a terminal
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger, closer, err := NewLogger(&buf, LogOptions{Format: tt.format})
			require.NoError(t, err)
			defer closer.Close()

			logger.Info("hello", "tick", 3)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := NewLogger(&buf, LogOptions{Level: "warn", Format: "json"})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("quiet")
	logger.Warn("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "eventsheet.log")
	var stderr bytes.Buffer
	logger, closer, err := NewLogger(&stderr, LogOptions{Format: "json", File: path})
	require.NoError(t, err)

	logger.Info("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
	assert.Empty(t, stderr.String())
}

func TestNewLogger_Invalid(t *testing.T) {
	_, _, err := NewLogger(&bytes.Buffer{}, LogOptions{Level: "loud"})
	assert.ErrorContains(t, err, `invalid log level "loud"`)

	_, _, err = NewLogger(&bytes.Buffer{}, LogOptions{Format: "xml"})
	assert.ErrorContains(t, err, `invalid log format "xml"`)
}

func TestRoot_LogFileFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.log")
	_, _, code := execute(t, "--verbose", "--log-format", "json", "--log-file", path,
		"run", "--ticks", "2", testdata("counter.json"))
	require.Equal(t, ExitSuccess, code)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"level":"DEBUG"`)
}
