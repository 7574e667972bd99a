package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// LoadCSV reads a table from CSV. The first record is the header. Empty fields
// become NULL unless keepEmpty is set, in which case they stay empty strings.
func LoadCSV(r io.Reader, keepEmpty bool) (*Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv has no header")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	var rows [][]any
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		row := make([]any, len(rec))
		for i, v := range rec {
			if v == "" && !keepEmpty {
				continue // NULL
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	return NewTable(header, rows)
}

// LoadCSVFile opens path and reads it with LoadCSV.
func LoadCSVFile(path string, keepEmpty bool) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCSV(f, keepEmpty)
}
