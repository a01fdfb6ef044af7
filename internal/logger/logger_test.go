package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG")

	Info("operation posted", "operation_idx", 3, "type", "SendRgb")

	out := buf.String()
	assert.Contains(t, out, "[INFO] operation posted")
	assert.Contains(t, out, "operation_idx=3")
	assert.Contains(t, out, "type=SendRgb")
}

func TestLevelGate(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO")

	Debug("should not appear")
	Info("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO")

	SetLevel("DEBUG")
	Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")

	// invalid levels are ignored
	SetLevel("LOUD")
	buf.Reset()
	Debug("still visible")
	assert.Contains(t, buf.String(), "still visible")
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "INFO")

	l := With("request_id", "abc123")
	l.Info("handled")

	assert.Contains(t, buf.String(), "request_id=abc123")
}

func TestRollingWriter(t *testing.T) {
	dir := t.TempDir()
	rw, err := newRollingWriter(dir, "bridge")
	require.NoError(t, err)
	defer rw.Close()

	_, err = rw.Write([]byte("hello\n"))
	require.NoError(t, err)

	want := filepath.Join(dir, "bridge.log."+time.Now().Format("2006-01-02"))
	data, err := os.ReadFile(want)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}
