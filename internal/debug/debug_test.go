package debug

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(bytes.NewBuffer(nil)) })
	return &buf
}

func TestDebugOutputGated(t *testing.T) {
	buf := capture(t)
	DebugOutput(false, "hidden %d", 1)
	assert.Empty(t, buf.String())

	DebugOutput(true, "shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
}

func TestDebugTiming(t *testing.T) {
	buf := capture(t)
	done := DebugTiming(true, "import")
	done()
	assert.Contains(t, buf.String(), "Starting: import")
	assert.Contains(t, buf.String(), "Completed: import")

	buf.Reset()
	DebugTiming(false, "quiet")()
	assert.Empty(t, buf.String())
}

func TestSetLevel(t *testing.T) {
	require.NoError(t, SetLevel("warn"))
	buf := capture(t)
	DebugOutput(true, "info is filtered")
	assert.Empty(t, buf.String())
	require.NoError(t, SetLevel("info"))

	assert.Error(t, SetLevel("loud"))
}
