// Package export saves the displayed report to a user-chosen destination.
//
// An export happens in two steps. Start freezes the current display model
// into a snapshot and marks it pending while the user picks a destination.
// Complete hands the pending snapshot to a worker that writes it. A
// completion that doesn't match the pending snapshot, as after a restart,
// is reported as a failure rather than silently writing stale data.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/penwyp/go-logviewer/internal/core/constants"
	"github.com/penwyp/go-logviewer/internal/core/executor"
	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/presentation/formatter"
	"github.com/penwyp/go-logviewer/internal/util"
)

var (
	ErrExportPending     = errors.New("export already pending")
	ErrNoPendingSnapshot = errors.New("no pending snapshot")
	ErrNoWriter          = errors.New("destination returned no writer")
)

// Destination is a place picked by the user to save a snapshot to.
type Destination interface {
	Open() (io.WriteCloser, error)
}

// FileDestination writes to a path on the local filesystem, replacing any
// existing content.
type FileDestination struct {
	Path string
}

func (d FileDestination) Open() (io.WriteCloser, error) {
	return os.OpenFile(d.Path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
}

// Notifier receives the outcome of an export on the main loop.
type Notifier interface {
	Saved(fileName string)
	Failed(message string, err error)
}

// Exporter writes snapshots on the worker pool and reports back on the
// main loop.
type Exporter struct {
	loop     *executor.MainLoop
	pool     *executor.WorkerPool
	notifier Notifier
}

func NewExporter(loop *executor.MainLoop, pool *executor.WorkerPool, notifier Notifier) *Exporter {
	return &Exporter{loop: loop, pool: pool, notifier: notifier}
}

// Export writes snap to dest in the background.
func (e *Exporter) Export(snap *model.Snapshot, dest Destination) {
	e.pool.Submit(func() {
		message, err := write(snap, dest)
		if err != nil {
			util.LogWarn(fmt.Sprintf("Export of %s failed: %v", snap.FileName, err))
			e.post(func() { e.notifier.Failed(message, err) })
			return
		}
		util.LogDebug(fmt.Sprintf("Exported %s (%s)", snap.FileName, humanize.Bytes(uint64(len(snap.TextBytes)))))
		e.post(func() { e.notifier.Saved(snap.FileName) })
	})
}

func (e *Exporter) post(fn func()) {
	if !e.loop.Post(fn) {
		util.LogDebug("Main loop stopped, dropping export notification")
	}
}

// write returns the user-facing failure message alongside any error.
func write(snap *model.Snapshot, dest Destination) (message string, err error) {
	w, err := dest.Open()
	if err != nil {
		return constants.MsgUnableToOpenFile, fmt.Errorf("failed to open destination: %w", err)
	}
	if w == nil {
		return constants.MsgUnableToOpenFile, ErrNoWriter
	}

	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			message, err = constants.MsgUnableToSaveFile, fmt.Errorf("failed to close destination: %w", cerr)
		}
	}()

	if _, werr := w.Write(snap.TextBytes); werr != nil {
		return constants.MsgUnableToSaveFile, fmt.Errorf("failed to write snapshot: %w", werr)
	}
	return "", nil
}

// Session tracks the single export a display may have in flight.
// Start and Complete are meant to be called on the main loop; the mutex
// only guards against misuse.
type Session struct {
	mu       sync.Mutex
	pending  *model.Snapshot
	exporter *Exporter
	encoder  formatter.SnapshotEncoder
	notifier Notifier
}

func NewSession(exporter *Exporter, encoder formatter.SnapshotEncoder) *Session {
	return &Session{
		exporter: exporter,
		encoder:  encoder,
		notifier: exporter.notifier,
	}
}

// Start snapshots m and marks it as the pending export.
func (s *Session) Start(m *model.DisplayModel, now time.Time) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return nil, ErrExportPending
	}

	snap, err := formatter.NewSnapshot(m, s.encoder, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	s.pending = snap
	return snap, nil
}

// Pending returns the snapshot awaiting a destination, if any.
func (s *Session) Pending() (*model.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending, s.pending != nil
}

// Complete consumes the pending snapshot identified by id. A nil dest means
// the user cancelled the pick.
func (s *Session) Complete(id string, dest Destination) {
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()

	if dest == nil {
		util.LogDebug("Export cancelled")
		return
	}

	if snap == nil || snap.ID != id {
		err := fmt.Errorf("%w: %s", ErrNoPendingSnapshot, id)
		util.LogWarn(err.Error())
		s.notifier.Failed(constants.MsgUnableToSaveFile, err)
		return
	}

	s.exporter.Export(snap, dest)
}

// SavedMessage is the notice shown once fileName has been written.
func SavedMessage(fileName string) string {
	return fmt.Sprintf(constants.MsgSavedAsFormat, fileName)
}
