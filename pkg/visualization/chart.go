// Package visualization reduces collected result records into the rows a
// throughput chart needs and renders human readable tables.
package visualization

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/jackjozwik/IO-StressTest/pkg/run"
)

// ChartFileName is the reduced chart data file written at the output root.
const ChartFileName = "chart.json"

var (
	bytesPerMB  = decimal.NewFromInt(1024 * 1024)
	peakFactor  = decimal.NewFromFloat(1.1)
	roundPlaces = int32(2)
)

// ChartRow is one plotted point: a target's measured throughput at its
// position in the staggered schedule. Missing measurements stay null so
// chart consumers can render gaps instead of zeroes.
type ChartRow struct {
	Target            string             `json:"target"`
	ConcurrencyIndex  int                `json:"concurrency_index"`
	RunID             string             `json:"run_id,omitempty"`
	ThroughputMBs     *float64           `json:"throughput_mbs"`
	PeakThroughputMBs *float64           `json:"peak_throughput_mbs"`
	IOPS              *float64           `json:"iops"`
	CounterAverages   map[string]float64 `json:"counter_averages,omitempty"`
}

// BuildChart reduces result records into chart rows, one per record, in
// record order. The concurrency index is taken from the records, which
// carry the target's position in the original schedule.
func BuildChart(records []run.ResultRecord) []ChartRow {
	rows := make([]ChartRow, 0, len(records))
	for _, record := range records {
		row := ChartRow{
			Target:           record.Target,
			ConcurrencyIndex: record.ConcurrencyIndex,
			RunID:            record.RunID,
			IOPS:             record.IOPS,
		}
		if record.ThroughputMBs != nil {
			throughput := round(decimal.NewFromFloat(*record.ThroughputMBs))
			peak := round(decimal.NewFromFloat(*record.ThroughputMBs).Mul(peakFactor))
			row.ThroughputMBs = &throughput
			row.PeakThroughputMBs = &peak
		}
		row.CounterAverages = normalizeAverages(record.CounterAverages)
		rows = append(rows, row)
	}
	return rows
}

// normalizeAverages converts byte-rate counters to MB/s, rounded to two
// decimal places. Other counters pass through untouched. Counters that
// merely mention bytes without being a rate, such as available memory,
// must not be rescaled.
func normalizeAverages(averages map[string]float64) map[string]float64 {
	if averages == nil {
		return nil
	}
	normalized := make(map[string]float64, len(averages))
	for key, value := range averages {
		if strings.Contains(key, "bytessec") {
			normalized[key] = round(decimal.NewFromFloat(value).Div(bytesPerMB))
			continue
		}
		normalized[key] = value
	}
	return normalized
}

func round(d decimal.Decimal) float64 {
	value, _ := d.Round(roundPlaces).Float64()
	return value
}

// WriteChart persists chart rows as indented JSON at path.
func WriteChart(path string, rows []ChartRow) error {
	content, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot encode chart rows")
	}
	return errors.Wrapf(os.WriteFile(path, content, 0644), "cannot write %q", path)
}

// DrawChart renders chart rows as a table to given writer.
func DrawChart(rows []ChartRow, w io.Writer) {
	counterKeys := collectCounterKeys(rows)

	headers := []string{"target", "index", "throughput (MB/s)", "peak (MB/s)", "IOPS"}
	headers = append(headers, counterKeys...)

	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells := []string{
			row.Target,
			fmt.Sprintf("%d", row.ConcurrencyIndex),
			formatCell(row.ThroughputMBs),
			formatCell(row.PeakThroughputMBs),
			formatCell(row.IOPS),
		}
		for _, key := range counterKeys {
			if value, ok := row.CounterAverages[key]; ok {
				cells = append(cells, fmt.Sprintf("%.2f", value))
			} else {
				cells = append(cells, "")
			}
		}
		data = append(data, cells)
	}

	NewTable(headers, data).Draw(w)
}

// DrawSummary renders collection outcomes as a table to given writer.
func DrawSummary(records []run.ResultRecord, w io.Writer) {
	headers := []string{"target", "run id", "throughput (MB/s)", "IOPS", "status", "error"}
	data := make([][]string, 0, len(records))
	for _, record := range records {
		data = append(data, []string{
			record.Target,
			record.RunID,
			formatCell(record.ThroughputMBs),
			formatCell(record.IOPS),
			string(record.Status),
			record.Err,
		})
	}
	NewTable(headers, data).Draw(w)
}

func collectCounterKeys(rows []ChartRow) []string {
	seen := map[string]bool{}
	for _, row := range rows {
		for key := range row.CounterAverages {
			seen[key] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func formatCell(value *float64) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *value)
}
