package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	cwd, err := os.Getwd()
	require.NoError(t, err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"home directory expansion", "~/test/path", filepath.Join(home, "test/path")},
		{"absolute path unchanged", "/absolute/path", "/absolute/path"},
		{"relative path converted to absolute", "relative/path", filepath.Join(cwd, "relative/path")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandPath(tt.input))
		})
	}
}

func TestEnsureDir(t *testing.T) {
	testDir := filepath.Join(t.TempDir(), "test", "nested", "dir")

	require.NoError(t, ensureDir(testDir))
	info, err := os.Stat(testDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent
	assert.NoError(t, ensureDir(testDir))
}

func TestCommandStructure(t *testing.T) {
	assert.Equal(t, "go-logviewer", rootCmd.Use)
	assert.True(t, strings.Contains(rootCmd.Long, "crash, ANR"))

	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"show", "export", "find", "watch"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommandFlags(t *testing.T) {
	tests := []struct {
		flagName string
		expected string
	}{
		{"debug", "false"},
		{"log-file", defaultLogFile},
		{"host-config", defaultHostConfig},
		{"tombstone-dir", "/data/tombstones"},
		{"timezone", "Local"},
	}

	for _, tt := range tests {
		t.Run(tt.flagName, func(t *testing.T) {
			flag := rootCmd.PersistentFlags().Lookup(tt.flagName)
			require.NotNil(t, flag, "Flag %s should exist", tt.flagName)
			assert.Equal(t, tt.expected, flag.DefValue)
		})
	}
}

func TestLoadHostConfig(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.yaml")

	cfg, err := loadHostConfig(missing, false)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Fingerprint)

	_, err = loadHostConfig(missing, true)
	assert.Error(t, err)

	path := filepath.Join(dir, "host.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testHostConfig), 0644))
	cfg, err = loadHostConfig(path, false)
	require.NoError(t, err)
	assert.Equal(t, testFingerprint, cfg.Fingerprint)
	assert.Equal(t, "Example", cfg.Packages["com.example.app"].Label)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("fingerprint: [unclosed"), 0644))
	_, err = loadHostConfig(bad, false)
	assert.Error(t, err)
}

func TestInvalidTimezone(t *testing.T) {
	env := newCLIEnv(t)
	event := writeNativeCrashMessage(t, env)

	res := env.run(t, "", "show", "--timezone", "Invalid/Zone", event)

	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid timezone")
}
