package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"
)

type csvExporter struct{}

// Export writes one row per message. encoding/csv quotes fields and
// doubles embedded quotes, so the output stays parseable by standard
// CSV readers.
func (csvExporter) Export(exp ExportableSession, w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Index", "Role", "Timestamp", "Content", "Files", "Message_ID"}); err != nil {
		return err
	}

	for i, msg := range exp.Messages {
		row := []string{
			strconv.Itoa(i + 1),
			msg.Role,
			msg.Timestamp.UTC().Format(time.RFC3339),
			msg.Content,
			strings.Join(fileNames(exp, i), "; "),
			msg.ID,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func (csvExporter) Extension() string { return "csv" }
func (csvExporter) MIMEType() string  { return "text/csv" }
