package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(level LogLevel) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.Colorize = false
	cfg.ShowTime = false
	cfg.Output = &buf
	return New(cfg), &buf
}

func TestLevelFiltering(t *testing.T) {
	log, buf := newBufferLogger(WARN)

	log.Infof("hidden %d", 1)
	log.Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.False(t, log.IsDebug())

	log.SetLevel(DEBUG)
	log.Debugf("debug line")
	assert.Contains(t, buf.String(), "debug line")
	assert.True(t, log.IsDebug())
}

func TestWithField(t *testing.T) {
	log, buf := newBufferLogger(INFO)

	log.WithField("run", "abc").Infof("started")

	out := buf.String()
	assert.Contains(t, out, "run=abc")
	assert.Contains(t, out, "started")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected LogLevel
		ok       bool
	}{
		{"debug", DEBUG, true},
		{"INFO", INFO, true},
		{"warning", WARN, true},
		{" error ", ERROR, true},
		{"fatal", FATAL, true},
		{"verbose", INFO, false},
	}

	for _, tt := range tests {
		level, ok := ParseLevel(tt.name)
		require.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.expected, level, tt.name)
	}
}
