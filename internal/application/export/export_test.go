package export

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/penwyp/go-logviewer/internal/core/constants"
	"github.com/penwyp/go-logviewer/internal/core/executor"
	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/presentation/formatter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	saved   string
	message string
	err     error
}

// recordingNotifier stops the loop after the first notification.
type recordingNotifier struct {
	stop context.CancelFunc
	got  []outcome
}

func (n *recordingNotifier) Saved(fileName string) {
	n.got = append(n.got, outcome{saved: fileName})
	n.stop()
}

func (n *recordingNotifier) Failed(message string, err error) {
	n.got = append(n.got, outcome{message: message, err: err})
	n.stop()
}

type harness struct {
	loop     *executor.MainLoop
	ctx      context.Context
	notifier *recordingNotifier
	session  *Session
}

func newHarness(t *testing.T, enc formatter.SnapshotEncoder) *harness {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	loop := executor.NewMainLoop(4)
	notifier := &recordingNotifier{stop: cancel}
	exporter := NewExporter(loop, executor.NewWorkerPool(1), notifier)
	return &harness{
		loop:     loop,
		ctx:      ctx,
		notifier: notifier,
		session:  NewSession(exporter, enc),
	}
}

// complete runs Complete on the loop and waits for the resulting notice.
func (h *harness) complete(id string, dest Destination) []outcome {
	h.loop.Post(func() { h.session.Complete(id, dest) })
	h.loop.Run(h.ctx)
	return h.notifier.got
}

var testModel = &model.DisplayModel{
	Title:  "Example error report",
	Header: "type: crash\nosVersion: fp",
	Body:   "java.lang.RuntimeException: boom\n",
}

var testNow = time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)

func TestExportRoundTrip(t *testing.T) {
	h := newHarness(t, formatter.NewTextEncoder())
	snap, err := h.session.Start(testModel, testNow)
	require.NoError(t, err)
	assert.Equal(t, "Example_error_report-20240301-123045.txt", snap.FileName)
	assert.Equal(t, formatter.MimeTypeText, snap.MimeType)
	assert.NotEmpty(t, snap.ID)

	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("previous content that is longer than the report"), 0644))

	got := h.complete(snap.ID, FileDestination{Path: path})

	require.Len(t, got, 1)
	assert.Equal(t, snap.FileName, got[0].saved)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testModel.Text(), string(data))

	_, pending := h.session.Pending()
	assert.False(t, pending)
}

func TestExportJSONSnapshot(t *testing.T) {
	h := newHarness(t, formatter.NewJSONEncoder())
	snap, err := h.session.Start(testModel, testNow)
	require.NoError(t, err)
	assert.Equal(t, ".json", filepath.Ext(snap.FileName))

	path := filepath.Join(t.TempDir(), "out.json")
	got := h.complete(snap.ID, FileDestination{Path: path})

	require.Len(t, got, 1)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, snap.TextBytes, data)
	assert.Contains(t, string(data), `"title": "Example error report"`)
}

func TestStartWhilePending(t *testing.T) {
	h := newHarness(t, formatter.NewTextEncoder())
	_, err := h.session.Start(testModel, testNow)
	require.NoError(t, err)

	_, err = h.session.Start(testModel, testNow)
	assert.True(t, errors.Is(err, ErrExportPending))
}

func TestCompleteCancelled(t *testing.T) {
	h := newHarness(t, formatter.NewTextEncoder())
	snap, err := h.session.Start(testModel, testNow)
	require.NoError(t, err)

	h.session.Complete(snap.ID, nil)

	assert.Empty(t, h.notifier.got)
	_, pending := h.session.Pending()
	assert.False(t, pending)
}

func TestCompleteAfterRestart(t *testing.T) {
	before := newHarness(t, formatter.NewTextEncoder())
	snap, err := before.session.Start(testModel, testNow)
	require.NoError(t, err)

	// A fresh session has no memory of the snapshot.
	after := newHarness(t, formatter.NewTextEncoder())
	path := filepath.Join(t.TempDir(), "out.txt")
	got := after.complete(snap.ID, FileDestination{Path: path})

	require.Len(t, got, 1)
	assert.Equal(t, constants.MsgUnableToSaveFile, got[0].message)
	assert.True(t, errors.Is(got[0].err, ErrNoPendingSnapshot))
	assert.NoFileExists(t, path)
}

func TestCompleteWrongID(t *testing.T) {
	h := newHarness(t, formatter.NewTextEncoder())
	_, err := h.session.Start(testModel, testNow)
	require.NoError(t, err)

	got := h.complete("other", FileDestination{Path: filepath.Join(t.TempDir(), "out.txt")})

	require.Len(t, got, 1)
	assert.True(t, errors.Is(got[0].err, ErrNoPendingSnapshot))
}

type failingDestination struct {
	openErr  error
	nilOpen  bool
	writeErr error
	closeErr error
	written  []byte
}

func (d *failingDestination) Open() (io.WriteCloser, error) {
	if d.openErr != nil || d.nilOpen {
		return nil, d.openErr
	}
	return d, nil
}

func (d *failingDestination) Write(p []byte) (int, error) {
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	d.written = append(d.written, p...)
	return len(p), nil
}

func (d *failingDestination) Close() error { return d.closeErr }

func TestExportFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		dest    *failingDestination
		message string
	}{
		{"open error", &failingDestination{openErr: boom}, constants.MsgUnableToOpenFile},
		{"nil writer", &failingDestination{nilOpen: true}, constants.MsgUnableToOpenFile},
		{"write error", &failingDestination{writeErr: boom}, constants.MsgUnableToSaveFile},
		{"close error", &failingDestination{closeErr: boom}, constants.MsgUnableToSaveFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, formatter.NewTextEncoder())
			snap, err := h.session.Start(testModel, testNow)
			require.NoError(t, err)

			got := h.complete(snap.ID, tt.dest)

			require.Len(t, got, 1, "a failure is never followed by a saved notice")
			assert.Empty(t, got[0].saved)
			assert.Equal(t, tt.message, got[0].message)
			assert.Error(t, got[0].err)
		})
	}
}

func TestFileDestinationOpenError(t *testing.T) {
	h := newHarness(t, formatter.NewTextEncoder())
	snap, err := h.session.Start(testModel, testNow)
	require.NoError(t, err)

	got := h.complete(snap.ID, FileDestination{Path: filepath.Join(t.TempDir(), "missing", "out.txt")})

	require.Len(t, got, 1)
	assert.Equal(t, constants.MsgUnableToOpenFile, got[0].message)
}

func TestSavedMessage(t *testing.T) {
	assert.Equal(t, "Saved as report.txt", SavedMessage("report.txt"))
}
