package commands

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/penwyp/go-logviewer/internal/application/export"
	"github.com/penwyp/go-logviewer/internal/application/report"
	"github.com/penwyp/go-logviewer/internal/core/constants"
	"github.com/penwyp/go-logviewer/internal/core/executor"
	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/presentation/display"
	"github.com/penwyp/go-logviewer/internal/presentation/formatter"
	"github.com/penwyp/go-logviewer/internal/util"
	"github.com/spf13/cobra"
)

var (
	exportOut      string
	exportFormat   string
	exportMoreInfo bool

	exportCmd = &cobra.Command{
		Use:   "export [event-file]",
		Short: "Save an error report to a file",
		Long: `Save the report of an event file, or of stdin, the way it is displayed.

--out names the destination file. When it is empty or an existing directory
the file name is derived from the report title and the current time. "-"
writes to stdout.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExport,
	}
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOut, "out", "O", "",
		"Destination file or directory (default: current directory)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "text",
		"Snapshot format (text, json)")
	exportCmd.Flags().BoolVar(&exportMoreInfo, "more-info", false,
		"Export the full text tombstone instead of the inline report")
}

// stopNotifier stops the export run once the outcome is known.
type stopNotifier struct {
	export.Notifier
	stop context.CancelFunc
}

func (n *stopNotifier) Saved(fileName string) {
	n.Notifier.Saved(fileName)
	n.stop()
}

func (n *stopNotifier) Failed(message string, err error) {
	n.Notifier.Failed(message, err)
	n.stop()
}

func runExport(cmd *cobra.Command, args []string) error {
	encoder, err := formatter.NewSnapshotEncoder(exportFormat)
	if err != nil {
		return err
	}
	env, err := newRuntimeEnv(cmd)
	if err != nil {
		return err
	}

	notices := display.NewRenderer(cmd.ErrOrStderr())
	events, err := readEvents(cmd, env.parser, args, notices)
	if err != nil {
		return err
	}
	if exportMoreInfo {
		preferTextTombstone(events)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	loop := executor.NewMainLoop(4)
	pool := executor.NewWorkerPool(1)
	exporter := export.NewExporter(loop, pool, &stopNotifier{Notifier: notices, stop: cancel})
	session := export.NewSession(exporter, encoder)
	viewer := report.NewViewer(env.source, loop, pool)

	viewer.Open(events[0], func(m *model.DisplayModel, err error) {
		if err != nil {
			reportLoadError(notices, err)
			cancel()
			return
		}
		snap, err := session.Start(m, env.clock.Now())
		if err != nil {
			util.LogError(err.Error())
			notices.Notice(constants.MsgUnableToSaveFile)
			cancel()
			return
		}
		session.Complete(snap.ID, destinationFor(cmd, exportOut, snap.FileName))
	})
	loop.Run(ctx)

	return nil
}

// destinationFor resolves --out against the snapshot's file name.
func destinationFor(cmd *cobra.Command, out, fileName string) export.Destination {
	if out == "-" {
		return writerDestination{w: cmd.OutOrStdout()}
	}
	if out == "" {
		return export.FileDestination{Path: fileName}
	}

	path := expandPath(out)
	if strings.HasSuffix(out, string(os.PathSeparator)) {
		return export.FileDestination{Path: filepath.Join(path, fileName)}
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return export.FileDestination{Path: filepath.Join(path, fileName)}
	}
	return export.FileDestination{Path: path}
}

type writerDestination struct {
	w io.Writer
}

func (d writerDestination) Open() (io.WriteCloser, error) {
	return nopWriteCloser{d.w}, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
