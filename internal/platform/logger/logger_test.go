package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, closer, err := New(Config{Level: "info", Format: "json", Service: "universe"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	l.Debug("hidden")
	l.Info("import finished", "added", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec), "exactly one JSON record expected")
	assert.Equal(t, "import finished", rec["msg"])
	assert.Equal(t, "universe", rec["service"])
	assert.EqualValues(t, 3, rec["added"])
}

func TestNew_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, _, err := New(Config{Level: "debug", Format: "text"}, &buf)
	require.NoError(t, err)

	l.Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}

func TestNew_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	var buf bytes.Buffer
	l, closer, err := New(Config{Level: "warn", File: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	l.Warn("disk almost full")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "disk almost full")
	assert.Contains(t, buf.String(), "disk almost full")
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	_, _, err := New(Config{Level: "loud"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid log level")

	_, _, err = New(Config{Level: "info", Format: "xml"}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "invalid log format")
}
