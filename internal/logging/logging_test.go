package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWithOutput_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("coloring", "warn", &buf)

	l.Info("hidden")
	l.Warn("shown", "workers", 4)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "coloring")
	assert.Contains(t, out, "workers=4")
}

func TestNewWithOutput_UnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput("x", "chatty", &buf)

	l.Debug("debug line")
	l.Info("info line")

	assert.NotContains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "info line")
}

func TestOrNull(t *testing.T) {
	assert.NotNil(t, OrNull(nil))

	l := NewWithOutput("x", "info", &bytes.Buffer{})
	assert.Equal(t, l, OrNull(l))
}
