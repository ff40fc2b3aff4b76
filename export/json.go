package export

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/multitest/report-harness/report"
)

// WriteJSON writes r in its interchange form, indented if indent is true.
func WriteJSON(w io.Writer, r *report.Report, indent bool) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if indent {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
