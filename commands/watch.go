package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/penwyp/go-logviewer/internal/application/report"
	"github.com/penwyp/go-logviewer/internal/core/executor"
	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/core/watcher"
	"github.com/penwyp/go-logviewer/internal/presentation/display"
	"github.com/penwyp/go-logviewer/internal/util"
	"github.com/spf13/cobra"
)

var (
	watchInbox    string
	watchExisting bool
	watchMoreInfo bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Show error reports as event files arrive",
		Long: `Watch an inbox directory and display every event file (*.json) written
to it, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchInbox, "inbox", "",
		"Directory to watch for event files")
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false,
		"Also show event files already in the inbox")
	watchCmd.Flags().BoolVar(&watchMoreInfo, "more-info", false,
		"Show full text tombstones instead of inline reports")
	_ = watchCmd.MarkFlagRequired("inbox")
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, err := newRuntimeEnv(cmd)
	if err != nil {
		return err
	}

	dir := expandPath(watchInbox)
	w, err := watcher.NewInboxWatcher(dir, watcher.DefaultSettle)
	if err != nil {
		return fmt.Errorf("failed to watch inbox %s: %w", dir, err)
	}
	defer w.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := display.NewRenderer(cmd.OutOrStdout())
	notices := display.NewRenderer(cmd.ErrOrStderr())

	loop := executor.NewMainLoop(16)
	pool := executor.NewWorkerPool(2)
	viewer := report.NewViewer(env.source, loop, pool)

	shown := 0
	render := func(m *model.DisplayModel, err error) {
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
	}

	open := func(path string) {
		pool.Submit(func() {
			ev, err := env.parser.ParseFile(path)
			if err != nil {
				util.LogWarn(fmt.Sprintf("Skipping event file: %v", err))
				loop.Post(func() { notices.Notice(fmt.Sprintf("Skipping %s: %v", path, err)) })
				return
			}
			if watchMoreInfo {
				ev = ev.PreferringTextTombstone()
			}
			viewer.Open(ev, render)
		})
	}

	if watchExisting {
		existing, err := existingEventFiles(dir)
		if err != nil {
			return err
		}
		for _, path := range existing {
			open(path)
		}
	}

	go forwardInbox(ctx, w, open)

	util.LogInfo("Watching inbox", util.F("dir", dir))
	loop.Run(ctx)
	return nil
}

func forwardInbox(ctx context.Context, w *watcher.InboxWatcher, open func(string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.Events():
			open(path)
		}
	}
}

func existingEventFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == watcher.EventFileExt {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
