package commands

import (
	"fmt"

	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/presentation/display"
	"github.com/penwyp/go-logviewer/internal/util"
	"github.com/spf13/cobra"
)

var (
	showMoreInfo bool

	showCmd = &cobra.Command{
		Use:   "show [event-file...]",
		Short: "Display error reports",
		Long: `Display one or more error reports read from event files.

With no file, or "-", a single event is read from stdin. With --more-info
the full text tombstone is shown instead of the condensed report.`,
		RunE: runShow,
	}
)

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().BoolVar(&showMoreInfo, "more-info", false,
		"Show the full text tombstone instead of the inline report")
}

func runShow(cmd *cobra.Command, args []string) error {
	env, err := newRuntimeEnv(cmd)
	if err != nil {
		return err
	}

	out := display.NewRenderer(cmd.OutOrStdout())
	notices := display.NewRenderer(cmd.ErrOrStderr())

	events, err := readEvents(cmd, env.parser, args, notices)
	if err != nil {
		return err
	}
	if showMoreInfo {
		preferTextTombstone(events)
	}

	shown := 0
	viewEvents(cmd.Context(), env.source, events, func(m *model.DisplayModel, err error) {
		if err != nil {
			reportLoadError(notices, err)
			return
		}
		if shown > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		if err := out.Render(m); err != nil {
			util.LogError(fmt.Sprintf("Failed to render report: %v", err))
			return
		}
		shown++
	})

	util.LogDebugf("Displayed %d of %d reports", shown, len(events))
	return nil
}
