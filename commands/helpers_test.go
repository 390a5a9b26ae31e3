package commands

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

const testFingerprint = "google/husky/husky:14/AP1A/2024030100:user/release-keys"

const testHostConfig = `fingerprint: "` + testFingerprint + `"
packages:
  com.example.app:
    label: Example
    installer: app.grapheneos.apps
`

// syncBuffer is a bytes.Buffer safe to read while a command writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

type cliEnv struct {
	dir          string
	tombstoneDir string
	hostConfig   string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{
		dir:          dir,
		tombstoneDir: filepath.Join(dir, "tombstones"),
		hostConfig:   filepath.Join(dir, "host.yaml"),
	}
	require.NoError(t, os.MkdirAll(env.tombstoneDir, 0755))
	require.NoError(t, os.WriteFile(env.hostConfig, []byte(testHostConfig), 0644))
	return env
}

func (e *cliEnv) args(args ...string) []string {
	return append([]string{
		"--log-file", "",
		"--host-config", e.hostConfig,
		"--tombstone-dir", e.tombstoneDir,
		"--timezone", "UTC",
	}, args...)
}

func (e *cliEnv) run(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	return e.runContext(context.Background(), t, stdin, &syncBuffer{}, args...)
}

func (e *cliEnv) runContext(ctx context.Context, t *testing.T, stdin string, stdout *syncBuffer, args ...string) cliResult {
	t.Helper()
	resetFlags(rootCmd)

	stderr := &syncBuffer{}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(e.args(args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(ctx)
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// resetFlags restores every flag to its default between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func encodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}
