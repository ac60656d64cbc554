package blogs

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Export writes records as a pretty-printed JSON array of
// {uri, cid, value} objects, the durable interchange format. Import on
// the same bytes reproduces the records.
func Export(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}

	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	return nil
}

// Import parses a JSON export back into records.
func Import(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	return records, nil
}

// ExportFilename returns the timestamped filename exports are written
// under, e.g. "blog-export-20260901-154233.json".
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("blog-export-%s.json", now.Format("20060102-150405"))
}
