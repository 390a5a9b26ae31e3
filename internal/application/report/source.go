package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/penwyp/go-logviewer/internal/core/constants"
	"github.com/penwyp/go-logviewer/internal/core/host"
	"github.com/penwyp/go-logviewer/internal/core/model"
	"github.com/penwyp/go-logviewer/internal/data/tombstone"
	"github.com/penwyp/go-logviewer/internal/presentation/formatter"
	"github.com/penwyp/go-logviewer/internal/util"
)

var (
	// ErrRejected means the event carried nothing displayable.
	ErrRejected = errors.New("event rejected")
	// ErrMoreInfoUnavailable means the detailed text tombstone could not be read.
	ErrMoreInfoUnavailable = errors.New("more info unavailable")
	// ErrInvalidReport means the structured report could not be formatted.
	ErrInvalidReport = errors.New("invalid error report")
)

const osVersionPrefix = "osVersion: "

// Source builds display models from inbound events. Load performs blocking
// file I/O and belongs on a worker.
type Source struct {
	host      host.Host
	finder    *tombstone.Finder
	formatter *formatter.ReportFormatter
}

// NewSource creates a Source looking up tombstones through finder.
func NewSource(h host.Host, finder *tombstone.Finder) *Source {
	return &Source{
		host:      h,
		finder:    finder,
		formatter: formatter.NewReportFormatter(h),
	}
}

// Load turns ev into a display model. A failure leaves nothing to display;
// the error tells the caller whether the user should hear about it.
func (s *Source) Load(ev model.Event) (*model.DisplayModel, error) {
	switch e := ev.(type) {
	case *model.ErrorReportEvent:
		return s.loadErrorReport(e)
	case *model.AppErrorEvent:
		return s.loadAppError(e)
	default:
		return nil, fmt.Errorf("%w: unsupported event %T", ErrRejected, ev)
	}
}

func (s *Source) loadErrorReport(e *model.ErrorReportEvent) (*model.DisplayModel, error) {
	var msg []byte
	if e.PreferTextTombstone {
		data, err := s.readReferencedTombstone(e.Tombstone)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMoreInfoUnavailable, err)
		}
		msg = data
	} else {
		if e.GzippedMessage == nil {
			return nil, fmt.Errorf("%w: no message", ErrRejected)
		}
		data, err := gunzip(e.GzippedMessage)
		if err != nil {
			util.LogDebug(fmt.Sprintf("Failed to decompress message: %v", err))
			return nil, fmt.Errorf("%w: %v", ErrRejected, err)
		}
		msg = data
	}

	errorType := e.ErrorType
	if errorType == "" {
		errorType = model.DefaultErrorType
	}

	return &model.DisplayModel{
		SourcePackage:     e.SourcePackage,
		Title:             s.title(e.Title, e.SourcePackage),
		Body:              s.prependMessageHeader(string(msg), errorType),
		ShowReportButton:  e.ShowReportButton,
		MoreInfoAvailable: !e.PreferTextTombstone && s.referenceResolves(e.Tombstone),
	}, nil
}

// prependMessageHeader adds the type line and, unless msg already names the
// build, the osVersion line.
func (s *Source) prependMessageHeader(msg, errorType string) string {
	fingerprint := s.host.Fingerprint()

	var sb strings.Builder
	sb.Grow(len(msg) + 200)
	sb.WriteString("type: ")
	sb.WriteString(errorType)
	sb.WriteByte('\n')
	if !strings.Contains(msg, fingerprint) {
		sb.WriteString(osVersionPrefix)
		sb.WriteString(fingerprint)
		sb.WriteByte('\n')
	}
	if !strings.HasPrefix(msg, "\n") && !strings.HasPrefix(msg, osVersionPrefix) {
		sb.WriteByte('\n')
	}
	sb.WriteString(msg)
	return sb.String()
}

func (s *Source) loadAppError(e *model.AppErrorEvent) (*model.DisplayModel, error) {
	r := e.Report
	if r == nil {
		return nil, fmt.Errorf("%w: no error report", ErrRejected)
	}

	var body string
	if e.PreferTextTombstone {
		tf, ok := s.resolveTombstone(r, e.Tombstone)
		if !ok {
			return nil, fmt.Errorf("%w: no matching tombstone", ErrMoreInfoUnavailable)
		}
		data, err := s.finder.Read(*tf)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMoreInfoUnavailable, err)
		}
		body = string(data)
	} else {
		formatted, ok := s.formatter.FormatBody(r)
		if !ok {
			util.LogError(fmt.Sprintf("Invalid error report: type %d, package %s", r.Type, r.PackageName))
			return nil, fmt.Errorf("%w: type %s", ErrInvalidReport, formatter.TypeLabel(r.Type))
		}
		body = formatted
	}

	header := s.formatter.FormatHeader(r, !strings.Contains(body, s.host.Fingerprint()))
	if e.ExtraText != nil {
		header += "\n" + *e.ExtraText
	}

	var sourcePkg *string
	if r.PackageName != "" {
		pkg := r.PackageName
		sourcePkg = &pkg
	}

	moreInfo := false
	if !e.PreferTextTombstone {
		_, moreInfo = s.resolveTombstone(r, e.Tombstone)
	}

	return &model.DisplayModel{
		SourcePackage:     sourcePkg,
		Title:             s.title(nil, sourcePkg),
		Header:            header,
		Body:              body,
		MoreInfoAvailable: moreInfo,
	}, nil
}

// resolveTombstone looks for the text tombstone of r, first by the header
// embedded in a native crash stack trace, then by the explicit reference.
func (s *Source) resolveTombstone(r *model.ErrorReport, ref *model.TombstoneRef) (*model.TimestampedFile, bool) {
	if r.Type == model.TypeCrash && r.CrashInfo != nil {
		if header, ok := tombstone.HeaderFromStackTrace(r.CrashInfo.StackTrace); ok {
			if tf, ok := s.finder.Find(header); ok {
				return tf, true
			}
		}
	}
	if ref == nil {
		return nil, false
	}
	tf, err := s.finder.Resolve(ref.Path, ref.LastModified)
	if err != nil {
		return nil, false
	}
	return tf, true
}

func (s *Source) readReferencedTombstone(ref *model.TombstoneRef) ([]byte, error) {
	if ref == nil {
		return nil, tombstone.ErrNotFound
	}
	tf, err := s.finder.Resolve(ref.Path, ref.LastModified)
	if err != nil {
		return nil, err
	}
	return s.finder.Read(*tf)
}

func (s *Source) referenceResolves(ref *model.TombstoneRef) bool {
	if ref == nil {
		return false
	}
	_, err := s.finder.Resolve(ref.Path, ref.LastModified)
	return err == nil
}

func (s *Source) title(explicit, sourcePkg *string) string {
	if explicit != nil {
		return *explicit
	}
	if sourcePkg != nil {
		return fmt.Sprintf(constants.ErrorReportTitleFormat, s.host.AppLabel(*sourcePkg))
	}
	return ""
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
