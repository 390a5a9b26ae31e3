package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

// ConsoleOutput writes log lines to a writer, stderr by default
type ConsoleOutput struct {
	mu     sync.Mutex
	writer io.Writer
	format LogFormat
}

// NewConsoleOutput creates a console output; a nil writer means os.Stderr
func NewConsoleOutput(writer io.Writer, format LogFormat) Output {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleOutput{writer: writer, format: format}
}

func (c *ConsoleOutput) Write(entry LogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return writeEntry(c.writer, c.format, entry)
}

func (c *ConsoleOutput) Close() error {
	return nil
}

// FileOutput appends log lines to a file
type FileOutput struct {
	mu     sync.Mutex
	file   *os.File
	format LogFormat
}

// NewFileOutput opens path for appending, creating parent directories
func NewFileOutput(path string, format LogFormat) (Output, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileOutput{file: file, format: format}, nil
}

func (f *FileOutput) Write(entry LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return writeEntry(f.file, f.format, entry)
}

func (f *FileOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}

func writeEntry(w io.Writer, format LogFormat, entry LogEntry) error {
	if format == FormatJSON {
		data, err := sonic.Marshal(entry)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprintln(w, formatText(entry))
	return err
}
