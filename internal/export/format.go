package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Format identifies an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTXT  Format = "txt"
	FormatMD   Format = "md"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// ErrUnsupportedFormat is returned for unknown formats and for
// format/mode combinations that are explicitly not supported.
var ErrUnsupportedFormat = errors.New("export: unsupported format")

// File is a rendered export ready for download.
type File struct {
	Content  string `json:"content"`
	MIMEType string `json:"mimeType"`
	Filename string `json:"filename"`
}

// exporter renders one encoding. Mirrors of this interface exist per
// format below.
type exporter interface {
	Export(exp ExportableSession, w io.Writer) error
	Extension() string
	MIMEType() string
}

func newExporter(format Format) (exporter, error) {
	switch format {
	case FormatJSON:
		return jsonExporter{}, nil
	case FormatTXT:
		return textExporter{}, nil
	case FormatMD:
		return markdownExporter{}, nil
	case FormatCSV:
		return csvExporter{}, nil
	case FormatHTML:
		return htmlExporter{}, nil
	default:
		return nil, fmt.Errorf("%w: %s (supported: json, txt, md, csv, html)", ErrUnsupportedFormat, format)
	}
}

// As renders a prepared session in the given format, stamping the
// filename with the current instant.
func As(exp ExportableSession, format Format) (File, error) {
	return AsAt(exp, format, time.Now())
}

// AsAt is As with an explicit instant, so the filename is deterministic.
func AsAt(exp ExportableSession, format Format, at time.Time) (File, error) {
	e, err := newExporter(format)
	if err != nil {
		return File{}, err
	}

	var b strings.Builder
	if err := e.Export(exp, &b); err != nil {
		return File{}, err
	}
	return File{
		Content:  b.String(),
		MIMEType: e.MIMEType(),
		Filename: Filename(exp.Title, format, at),
	}, nil
}

// timeLayout is the human-readable stamp used by the txt, md and html
// renderings.
const timeLayout = "Jan 2, 2006 15:04:05"

func roleLabel(role string) string {
	if role == "" {
		return role
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

func roleEmoji(role string) string {
	if role == "user" {
		return "\U0001F464" // 👤
	}
	return "\U0001F916" // 🤖
}

func fileNames(exp ExportableSession, idx int) []string {
	msg := exp.Messages[idx]
	if len(msg.Files) == 0 {
		return nil
	}
	names := make([]string, 0, len(msg.Files))
	for _, f := range msg.Files {
		names = append(names, f.Name)
	}
	return names
}
