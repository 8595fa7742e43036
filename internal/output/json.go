package output

import (
	"encoding/json"
	"io"

	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
)

// RenderJSON writes the report as indented JSON to w.
func RenderJSON(w io.Writer, report *models.ScanReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
