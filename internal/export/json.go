package export

import (
	"encoding/json"
	"io"
)

type jsonExporter struct{}

func (jsonExporter) Export(exp ExportableSession, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exp)
}

func (jsonExporter) Extension() string { return "json" }
func (jsonExporter) MIMEType() string  { return "application/json" }
