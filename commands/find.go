package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/penwyp/go-logviewer/internal/core/constants"
	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/data/tombstone"
	"github.com/penwyp/go-logviewer/internal/util"
	"github.com/spf13/cobra"
)

var (
	findHeaderFile     string
	findStackTraceFile string

	findCmd = &cobra.Command{
		Use:   "find",
		Short: "Locate the text tombstone matching a crash",
		Long: `Look up the newest text tombstone starting with a given header.

The header is either read verbatim from --header-file, or taken from the
native crash stack trace in --stack-trace-file (everything up to and
including its Timestamp line).`,
		Args: cobra.NoArgs,
		RunE: runFind,
	}
)

func init() {
	rootCmd.AddCommand(findCmd)

	findCmd.Flags().StringVar(&findHeaderFile, "header-file", "",
		"File holding the exact tombstone header bytes")
	findCmd.Flags().StringVar(&findStackTraceFile, "stack-trace-file", "",
		"File holding a native crash stack trace")
	findCmd.MarkFlagsMutuallyExclusive("header-file", "stack-trace-file")
	findCmd.MarkFlagsOneRequired("header-file", "stack-trace-file")
}

func runFind(cmd *cobra.Command, args []string) error {
	env, err := newRuntimeEnv(cmd)
	if err != nil {
		return err
	}

	header, err := lookupHeader()
	if err != nil {
		return err
	}

	tf, ok := env.finder.Find(header)
	if !ok {
		fmt.Fprintln(cmd.ErrOrStderr(), constants.MsgNoMatchingTombstone)
		return nil
	}

	printTombstone(cmd, tf, env.clock.Location())
	return nil
}

func lookupHeader() ([]byte, error) {
	if findHeaderFile != "" {
		data, err := os.ReadFile(expandPath(findHeaderFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read header file: %w", err)
		}
		if len(data) == 0 {
			return nil, errors.New("header file is empty")
		}
		return data, nil
	}

	data, err := os.ReadFile(expandPath(findStackTraceFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read stack trace file: %w", err)
	}
	header, ok := tombstone.HeaderFromStackTrace(string(data))
	if !ok {
		return nil, errors.New("stack trace has no Timestamp line")
	}
	return header, nil
}

func printTombstone(cmd *cobra.Command, tf *model.TimestampedFile, loc *time.Location) {
	modified := time.UnixMilli(tf.LastModified).In(loc)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%s\n", tf.Path)
	fmt.Fprintf(out, "  modified: %s (%s)\n", modified.Format("2006-01-02 15:04:05 MST"), humanize.Time(modified))
	if info, err := util.GetFileInfo(tf.Path); err == nil {
		fmt.Fprintf(out, "  size:     %s\n", humanize.Bytes(uint64(info.Size)))
	}
}
