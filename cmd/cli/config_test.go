package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")

	cfg, err := loadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfigLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamdna.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db: file.sqlite\nstart: 30\nend: 10\nloose: true\n"), 0o644))

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("STREAMDNA_START", "90")
	t.Setenv("STREAMDNA_LOG_LEVEL", "debug")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("db", "ignored-default.txt", "")
	fs.Int("workers", 1, "")
	fs.Bool("keep-going", false, "")
	require.NoError(t, fs.Parse([]string{"--db=flag.txt", "--keep-going"}))

	cfg, err := loadConfig("", fs)
	require.NoError(t, err)

	assert.Equal(t, "flag.txt", cfg.DB)
	assert.Equal(t, 90, cfg.Start)
	assert.Equal(t, 10, cfg.End)
	assert.True(t, cfg.Loose)
	assert.True(t, cfg.KeepGoing)
	assert.Equal(t, "debug", cfg.LogLevel)
	// unset flags keep the lower layers
	assert.Equal(t, defaultConfig().Workers, cfg.Workers)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")

	tests := []struct {
		name string
		env  map[string]string
	}{
		{"start not after end", map[string]string{"STREAMDNA_START": "10", "STREAMDNA_END": "10"}},
		{"negative end", map[string]string{"STREAMDNA_END": "-4"}},
		{"unknown level", map[string]string{"STREAMDNA_LOG_LEVEL": "loud"}},
		{"no workers", map[string]string{"STREAMDNA_WORKERS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig("", nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}
