package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/util"
)

// ErrMalformedEvent marks input that does not describe a usable event.
var ErrMalformedEvent = errors.New("malformed event")

// rawEvent mirrors the loosely typed action + extras document.
type rawEvent struct {
	Action string     `json:"action"`
	Extras *rawExtras `json:"extras"`
}

type rawExtras struct {
	PreferTextTombstone           bool               `json:"prefer_text_tombstone"`
	GzippedMessage                []byte             `json:"gzipped_message"`
	TextTombstoneFilePath         *string            `json:"text_tombstone_file_path"`
	TextTombstoneLastModifiedTime *int64             `json:"text_tombstone_last_modified_time"`
	ErrorType                     *string            `json:"error_type"`
	SourcePackage                 *string            `json:"source_package"`
	Title                         *string            `json:"title"`
	ShowReportButton              bool               `json:"show_report_button"`
	BugReport                     *model.ErrorReport `json:"bug_report"`
	Text                          *string            `json:"text"`
}

// Parser turns event documents into validated model.Event values.
type Parser struct {
	concurrency int
}

// ParseResult is the outcome of parsing one event file.
type ParseResult struct {
	File  string
	Event model.Event
	Error error
}

// NewParser creates a Parser reading at most concurrency files at once.
func NewParser(concurrency int) *Parser {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Parser{concurrency: concurrency}
}

// Parse decodes and validates a single event document.
func (p *Parser) Parse(data []byte) (model.Event, error) {
	var raw rawEvent
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if raw.Extras == nil {
		return nil, fmt.Errorf("%w: no extras", ErrMalformedEvent)
	}

	switch raw.Action {
	case model.ActionErrorReport:
		return toErrorReportEvent(raw.Extras)
	case model.ActionAppError:
		return toAppErrorEvent(raw.Extras)
	case "":
		return nil, fmt.Errorf("%w: no action", ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrMalformedEvent, raw.Action)
	}
}

func toErrorReportEvent(x *rawExtras) (model.Event, error) {
	if !x.PreferTextTombstone && x.GzippedMessage == nil {
		return nil, fmt.Errorf("%w: no gzipped_message", ErrMalformedEvent)
	}

	errorType := model.DefaultErrorType
	if x.ErrorType != nil {
		errorType = *x.ErrorType
	}

	return &model.ErrorReportEvent{
		PreferTextTombstone: x.PreferTextTombstone,
		GzippedMessage:      x.GzippedMessage,
		Tombstone:           tombstoneRef(x),
		ErrorType:           errorType,
		SourcePackage:       x.SourcePackage,
		Title:               x.Title,
		ShowReportButton:    x.ShowReportButton,
	}, nil
}

func toAppErrorEvent(x *rawExtras) (model.Event, error) {
	if x.BugReport == nil {
		return nil, fmt.Errorf("%w: no bug_report", ErrMalformedEvent)
	}

	return &model.AppErrorEvent{
		Report:              x.BugReport,
		ExtraText:           x.Text,
		PreferTextTombstone: x.PreferTextTombstone,
		Tombstone:           tombstoneRef(x),
	}, nil
}

// tombstoneRef is set only when both the path and its time are present.
func tombstoneRef(x *rawExtras) *model.TombstoneRef {
	if x.TextTombstoneFilePath == nil || x.TextTombstoneLastModifiedTime == nil {
		return nil
	}
	return &model.TombstoneRef{
		Path:         *x.TextTombstoneFilePath,
		LastModified: *x.TextTombstoneLastModifiedTime,
	}
}

// ParseReader reads r to the end and parses it as one event.
func (p *Parser) ParseReader(r io.Reader) (model.Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read event: %w", err)
	}
	return p.Parse(data)
}

// ParseFile parses the event stored at path.
func (p *Parser) ParseFile(path string) (model.Event, error) {
	util.LogDebug(fmt.Sprintf("Start parsing event file: %s", path))

	data, err := os.ReadFile(path)
	if err != nil {
		util.LogDebug(fmt.Sprintf("Failed to read event file: %s - %v", path, err))
		return nil, err
	}

	ev, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ev, nil
}

// ParseFiles parses files concurrently. Results arrive in completion order.
func (p *Parser) ParseFiles(files []string) <-chan ParseResult {
	start := time.Now()
	results := make(chan ParseResult, len(files))
	var wg sync.WaitGroup

	util.LogDebug(fmt.Sprintf("Start concurrent parsing of %d event files, concurrency: %d", len(files), p.concurrency))

	semaphore := make(chan struct{}, p.concurrency)

	for _, file := range files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			ev, err := p.ParseFile(f)
			results <- ParseResult{File: f, Event: ev, Error: err}
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
		util.LogDebug(fmt.Sprintf("Concurrent event parsing finished, total duration: %v", time.Since(start)))
	}()

	return results
}
