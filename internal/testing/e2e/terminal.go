// Package e2e runs the built binary attached to a pseudo terminal.
package e2e

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"syscall"
	"time"

	"github.com/creack/pty"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

// StripANSI removes all ANSI escape codes from a string
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// TerminalConfig describes one run of a command inside a pty.
type TerminalConfig struct {
	Command string
	Args    []string
	Dir     string
	Env     []string

	Rows uint16
	Cols uint16

	Timeout time.Duration
}

// TerminalResult is what the command wrote to the terminal, stdout and
// stderr interleaved, with CRLF line endings normalized.
type TerminalResult struct {
	Output   string
	ExitCode int
}

// Clean returns the output without escape codes.
func (r *TerminalResult) Clean() string {
	return StripANSI(r.Output)
}

// RunInTerminal starts the command on a pty of the configured size and
// waits for it to exit.
func RunInTerminal(config *TerminalConfig) (*TerminalResult, error) {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Rows == 0 {
		config.Rows = 24
	}
	if config.Cols == 0 {
		config.Cols = 80
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, config.Command, config.Args...)
	cmd.Dir = config.Dir
	cmd.Env = config.Env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: config.Rows, Cols: config.Cols})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}
	defer ptmx.Close()

	var output bytes.Buffer
	copied := make(chan struct{})
	go func() {
		defer close(copied)
		// Reading a pty whose child has exited ends with EIO.
		if _, err := io.Copy(&output, ptmx); err != nil && !errors.Is(err, syscall.EIO) {
			output.WriteString(fmt.Sprintf("\n[pty read error: %v]", err))
		}
	}()

	waitErr := cmd.Wait()
	<-copied

	result := &TerminalResult{
		Output: string(bytes.ReplaceAll(output.Bytes(), []byte("\r\n"), []byte("\n"))),
	}
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		return result, waitErr
	}
	return result, nil
}
