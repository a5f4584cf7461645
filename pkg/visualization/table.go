package visualization

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// Table is a model for tabular data.
type Table struct {
	headers []string
	data    [][]string
}

// NewTable creates new model of data representation.
func NewTable(headers []string, data [][]string) *Table {
	return &Table{
		headers,
		data,
	}
}

// Draw renders the headers and data rows to given writer.
func (table *Table) Draw(w io.Writer) {
	output := tablewriter.NewWriter(w)
	output.SetHeader(table.headers)
	for _, row := range table.data {
		output.Append(row)
	}
	output.Render()
}
