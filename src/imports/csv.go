package imports

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// RawRow is one data line beneath the header. Columns preserves the file's
// column order so the "first non-empty wins" merge is deterministic;
// Values is the header→cell mapping retained verbatim on the normalized
// trade for provenance.
type RawRow struct {
	Columns []string
	Values  map[string]string
}

// readRows tokenizes delimited text into trimmed rows. Any RFC 4180-ish
// tokenizer would do; the pipeline's own logic starts at the header→cell
// mapping this produces.
func readRows(r io.Reader, delimiter rune) ([]string, []RawRow, error) {
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, ErrNoDataRows
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	headers := make([]string, 0, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers = append(headers, strings.TrimSpace(h))
	}

	var rows []RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		values := make(map[string]string, len(headers))
		empty := true
		for i, h := range headers {
			var cell string
			if i < len(record) {
				cell = strings.TrimSpace(record[i])
			}
			values[h] = cell
			if cell != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, RawRow{Columns: headers, Values: values})
	}

	return headers, rows, nil
}
