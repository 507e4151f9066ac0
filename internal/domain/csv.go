package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Row maps header names to the trimmed field values of one CSV line.
type Row map[string]string

// Table is a parsed CSV document.
type Table struct {
	Header []string
	Rows   []Row
}

// ParseCSV reads a header row followed by data rows. Input is split on line
// feeds first, so a quote never continues onto the next line; an unterminated
// quote ends at the end of its line. Quoted fields may contain commas and
// doubled quotes. Every returned row carries exactly one value per header
// name: short lines are padded with empty strings and surplus fields are
// ignored. Rows whose first column is empty are dropped.
func ParseCSV(r io.Reader) (Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}

	var table Table
	for n, line := range strings.Split(string(data), "\n") {
		fields, err := parseLine(strings.TrimSuffix(line, "\r"))
		if err != nil {
			return Table{}, fmt.Errorf("read csv line %d: %w", n+1, err)
		}
		if len(fields) == 0 {
			continue
		}

		if table.Header == nil {
			table.Header = make([]string, len(fields))
			for i, h := range fields {
				table.Header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
			}
			continue
		}

		row := make(Row, len(table.Header))
		for i, h := range table.Header {
			if i < len(fields) {
				row[h] = strings.TrimSpace(fields[i])
			} else {
				row[h] = ""
			}
		}
		if row[table.Header[0]] == "" {
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// parseLine splits one line into fields. A blank line yields no fields.
func parseLine(line string) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	fields, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	return fields, err
}
