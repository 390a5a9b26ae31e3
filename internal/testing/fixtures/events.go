// Package fixtures writes event files and text tombstones for tests.
package fixtures

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"github.com/penwyp/go-logviewer/internal/core/model"
)

// TombstoneHeader returns the banner block of a text tombstone, ending with
// its Timestamp line.
func TombstoneHeader(fingerprint, timestamp string) string {
	return "*** *** *** *** *** *** *** *** *** *** *** *** *** *** *** ***\n" +
		"Build fingerprint: '" + fingerprint + "'\n" +
		"Revision: '0'\n" +
		"ABI: 'arm64'\n" +
		"Timestamp: " + timestamp + "\n"
}

// NativeCrash returns a native crash stack trace as found in crash reports.
func NativeCrash(header, abortMessage string) string {
	return header +
		"Process uptime: 2s\n" +
		"Cmdline: com.example.app\n" +
		"pid: 4242, tid: 4242, name: example  >>> com.example.app <<<\n" +
		"signal 6 (SIGABRT), code -1 (SI_QUEUE), fault addr --------\n" +
		"Abort message: '" + abortMessage + "'\n" +
		"\n" +
		"backtrace:\n" +
		"      #00 pc 000000000005b6a4  /apex/com.android.runtime/lib64/bionic/libc.so (abort+164)\n"
}

// ErrorReportOptions are the optional extras of a pre-rendered report event.
type ErrorReportOptions struct {
	ErrorType           string
	SourcePackage       string
	Title               string
	TombstonePath       string
	TombstoneModified   time.Time
	PreferTextTombstone bool
	ShowReportButton    bool
}

// Generator writes fixtures below baseDir.
type Generator struct {
	baseDir string
}

func NewGenerator(baseDir string) *Generator {
	return &Generator{baseDir: baseDir}
}

// Gzip compresses msg the way senders compress inline messages.
func Gzip(msg string) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(msg)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteErrorReportEvent writes a pre-rendered report event carrying message.
func (g *Generator) WriteErrorReportEvent(name, message string, opts ErrorReportOptions) (string, error) {
	extras := map[string]interface{}{
		"prefer_text_tombstone": opts.PreferTextTombstone,
		"show_report_button":    opts.ShowReportButton,
	}
	if message != "" || !opts.PreferTextTombstone {
		gz, err := Gzip(message)
		if err != nil {
			return "", err
		}
		extras["gzipped_message"] = gz
	}
	setIfNotEmpty(extras, "error_type", opts.ErrorType)
	setIfNotEmpty(extras, "source_package", opts.SourcePackage)
	setIfNotEmpty(extras, "title", opts.Title)
	if opts.TombstonePath != "" {
		extras["text_tombstone_file_path"] = opts.TombstonePath
		extras["text_tombstone_last_modified_time"] = opts.TombstoneModified.UnixMilli()
	}

	return g.writeEvent(name, model.ActionErrorReport, extras)
}

// WriteAppErrorEvent writes a structured report event.
func (g *Generator) WriteAppErrorEvent(name string, report *model.ErrorReport, text string) (string, error) {
	extras := map[string]interface{}{"bug_report": report}
	setIfNotEmpty(extras, "text", text)
	return g.writeEvent(name, model.ActionAppError, extras)
}

// WriteTombstone writes a text tombstone and sets its modification time.
func (g *Generator) WriteTombstone(name, content string, modified time.Time) (string, error) {
	path := filepath.Join(g.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	if err := os.Chtimes(path, modified, modified); err != nil {
		return "", err
	}
	return path, nil
}

func (g *Generator) writeEvent(name, action string, extras map[string]interface{}) (string, error) {
	data, err := sonic.Marshal(map[string]interface{}{
		"action": action,
		"extras": extras,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode event: %w", err)
	}

	path := filepath.Join(g.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func setIfNotEmpty(m map[string]interface{}, key, value string) {
	if value != "" {
		m[key] = value
	}
}
