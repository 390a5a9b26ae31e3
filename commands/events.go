package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/penwyp/go-logviewer/internal/application/report"
	"github.com/penwyp/go-logviewer/internal/core/constants"
	"github.com/penwyp/go-logviewer/internal/core/executor"
	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/data/parser"
	"github.com/penwyp/go-logviewer/internal/presentation/display"
	"github.com/penwyp/go-logviewer/internal/util"
	"github.com/spf13/cobra"
)

// readEvents parses the event files named in args, or stdin when args is
// empty or "-". Files that fail to parse are reported and skipped; the
// remaining events keep the order of args.
func readEvents(cmd *cobra.Command, p *parser.Parser, args []string, notices *display.Renderer) ([]model.Event, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		ev, err := p.ParseReader(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to parse event from stdin: %w", err)
		}
		return []model.Event{ev}, nil
	}

	parsed := make(map[string]model.Event, len(args))
	for result := range p.ParseFiles(args) {
		if result.Error != nil {
			util.LogWarn(fmt.Sprintf("Skipping event file: %v", result.Error))
			notices.Notice(fmt.Sprintf("Skipping %s: %v", result.File, result.Error))
			continue
		}
		parsed[result.File] = result.Event
	}

	events := make([]model.Event, 0, len(parsed))
	for _, file := range args {
		if ev, ok := parsed[file]; ok {
			events = append(events, ev)
		}
	}
	if len(events) == 0 {
		return nil, errors.New("no valid event files")
	}
	return events, nil
}

// viewEvents loads events one after another and hands each result to
// handle on the main loop. It returns once every event has been handled or
// ctx is done.
func viewEvents(ctx context.Context, source *report.Source, events []model.Event, handle func(*model.DisplayModel, error)) {
	if len(events) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := executor.NewMainLoop(1)
	viewer := report.NewViewer(source, loop, executor.NewWorkerPool(1))

	var open func(i int)
	open = func(i int) {
		viewer.Open(events[i], func(m *model.DisplayModel, err error) {
			handle(m, err)
			if i+1 < len(events) {
				open(i + 1)
				return
			}
			cancel()
		})
	}
	open(0)
	loop.Run(ctx)
}

// reportLoadError tells the user why nothing is shown for an event.
func reportLoadError(notices *display.Renderer, err error) {
	util.LogWarn(fmt.Sprintf("Failed to load report: %v", err))
	switch {
	case errors.Is(err, report.ErrMoreInfoUnavailable):
		notices.Notice(constants.MsgUnableToShowMoreInfo)
	case errors.Is(err, report.ErrInvalidReport):
		notices.Notice(constants.MsgInvalidReport)
	default:
		notices.Notice(fmt.Sprintf("%s: %v", constants.MsgUnableToDisplay, err))
	}
}

func preferTextTombstone(events []model.Event) {
	for i, ev := range events {
		events[i] = ev.PreferringTextTombstone()
	}
}
