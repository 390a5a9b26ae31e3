package model

// Inbound event actions.
const (
	ActionErrorReport = "app.grapheneos.logviewer.ERROR_REPORT"
	ActionAppError    = "android.intent.action.APP_ERROR"
)

// DefaultErrorType labels pre-rendered messages that don't name their type.
const DefaultErrorType = "crash"

// Event is a validated inbound report. The concrete types are
// *ErrorReportEvent and *AppErrorEvent.
type Event interface {
	Action() string
	// PreferringTextTombstone returns a copy of the event asking for the
	// on-disk text tombstone instead of the inline data.
	PreferringTextTombstone() Event
}

// TombstoneRef names a text tombstone together with the modification time
// the sender observed.
type TombstoneRef struct {
	Path         string
	LastModified int64
}

// ErrorReportEvent carries a pre-rendered, gzip-compressed message.
type ErrorReportEvent struct {
	PreferTextTombstone bool
	GzippedMessage      []byte
	Tombstone           *TombstoneRef
	ErrorType           string
	SourcePackage       *string
	Title               *string
	ShowReportButton    bool
}

func (e *ErrorReportEvent) Action() string { return ActionErrorReport }

func (e *ErrorReportEvent) PreferringTextTombstone() Event {
	c := *e
	c.PreferTextTombstone = true
	return &c
}

// AppErrorEvent carries a structured ErrorReport.
type AppErrorEvent struct {
	Report              *ErrorReport
	ExtraText           *string
	PreferTextTombstone bool
	Tombstone           *TombstoneRef
}

func (e *AppErrorEvent) Action() string { return ActionAppError }

func (e *AppErrorEvent) PreferringTextTombstone() Event {
	c := *e
	c.PreferTextTombstone = true
	return &c
}
