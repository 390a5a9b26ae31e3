package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/penwyp/go-logviewer/internal/core/model"
)

const (
	MimeTypeText = "text/plain"
	MimeTypeJSON = "application/json"

	defaultSnapshotName = "error-report"
	snapshotTimeLayout  = "20060102-150405"
)

// SnapshotEncoder serializes a DisplayModel for export.
type SnapshotEncoder interface {
	Encode(m *model.DisplayModel) ([]byte, error)
	MimeType() string
	Extension() string
}

// TextEncoder exports the displayed text verbatim.
type TextEncoder struct{}

func NewTextEncoder() *TextEncoder {
	return &TextEncoder{}
}

func (e *TextEncoder) Encode(m *model.DisplayModel) ([]byte, error) {
	return []byte(m.Text()), nil
}

func (e *TextEncoder) MimeType() string  { return MimeTypeText }
func (e *TextEncoder) Extension() string { return ".txt" }

// JSONEncoder exports the DisplayModel fields as an indented JSON document.
type JSONEncoder struct{}

func NewJSONEncoder() *JSONEncoder {
	return &JSONEncoder{}
}

func (e *JSONEncoder) Encode(m *model.DisplayModel) ([]byte, error) {
	return sonic.ConfigStd.MarshalIndent(m, "", "  ")
}

func (e *JSONEncoder) MimeType() string  { return MimeTypeJSON }
func (e *JSONEncoder) Extension() string { return ".json" }

// NewSnapshotEncoder returns the encoder for a format name (text or json).
func NewSnapshotEncoder(format string) (SnapshotEncoder, error) {
	switch strings.ToLower(format) {
	case "", "text", "txt":
		return NewTextEncoder(), nil
	case "json":
		return NewJSONEncoder(), nil
	default:
		return nil, fmt.Errorf("unsupported snapshot format: %s", format)
	}
}

// NewSnapshot serializes m with enc and names the result after its title and now.
func NewSnapshot(m *model.DisplayModel, enc SnapshotEncoder, now time.Time) (*model.Snapshot, error) {
	data, err := enc.Encode(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return &model.Snapshot{
		ID:        uuid.NewString(),
		FileName:  SnapshotFileName(m.Title, now, enc.Extension()),
		MimeType:  enc.MimeType(),
		TextBytes: data,
	}, nil
}

// SnapshotFileName builds "<title>-<YYYYMMDD-HHMMSS><ext>", keeping only
// filename-safe characters from the title.
func SnapshotFileName(title string, now time.Time, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		default:
			return -1
		}
	}, strings.TrimSpace(title))
	name = strings.Trim(name, "._")
	if name == "" {
		name = defaultSnapshotName
	}
	return name + "-" + now.Format(snapshotTimeLayout) + ext
}
