package results

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Write encodes a report as indented JSON to w.
func Write(report *Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// Read decodes a report from r.
func Read(r io.Reader) (*Report, error) {
	var report Report
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

// WriteJSON writes a report to a JSON file.
func WriteJSON(report *Report, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := Write(report, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadJSON reads a report from a JSON file.
func ReadJSON(filename string) (*Report, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return Read(f)
}
