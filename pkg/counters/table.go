package counters

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Table is a raw counter sample table: a header naming the sampled
// counters and one row per sampling interval. The first column is the
// sample timestamp.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ParseTable reads a CSV-like counter table (header + rows).
func ParseTable(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return Table{}, errors.New("counter table is empty")
	}
	if err != nil {
		return Table{}, errors.Wrap(err, "cannot read counter table header")
	}

	table := Table{Columns: header}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, errors.Wrap(err, "cannot read counter table row")
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// Column extracts the numeric values of one column. Blank cells are
// skipped silently; unparsable cells are skipped and reported.
func (t Table) Column(index int) (values []float64, issues []error) {
	for _, row := range t.Rows {
		if index >= len(row) {
			continue
		}
		cell := strings.Trim(strings.TrimSpace(row[index]), `"`)
		if cell == "" {
			continue
		}
		value, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			issues = append(issues, errors.Errorf("cannot parse sample %q", cell))
			continue
		}
		values = append(values, value)
	}
	return values, issues
}
