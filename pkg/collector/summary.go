package collector

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/jackjozwik/IO-StressTest/pkg/run"
)

// SummaryFileName is the cumulative result table at the output root.
const SummaryFileName = "summary.csv"

var summaryHeader = []string{"target", "run_id", "throughput_mbs", "iops", "status", "error"}

// WriteSummary merges result records into the summary CSV under the output
// root and returns its path. Rows for a (target, run id) pair already
// present are replaced, so re-collecting the same run is idempotent; rows
// from other runs are preserved.
func WriteSummary(outputRoot string, records []run.ResultRecord) (string, error) {
	summaryPath := filepath.Join(outputRoot, SummaryFileName)

	existing, err := readSummaryRows(summaryPath)
	if err != nil {
		return "", err
	}

	replaced := map[string]bool{}
	for _, record := range records {
		replaced[record.Target+"\x00"+record.RunID] = true
	}

	var rows [][]string
	for _, row := range existing {
		if len(row) >= 2 && replaced[row[0]+"\x00"+row[1]] {
			continue
		}
		rows = append(rows, row)
	}
	for _, record := range records {
		rows = append(rows, summaryRow(record))
	}

	file, err := os.OpenFile(summaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return "", errors.Wrapf(err, "cannot open %q", summaryPath)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(summaryHeader); err != nil {
		return "", errors.Wrapf(err, "cannot write %q", summaryPath)
	}
	if err := writer.WriteAll(rows); err != nil {
		return "", errors.Wrapf(err, "cannot write %q", summaryPath)
	}
	writer.Flush()
	return summaryPath, errors.Wrapf(writer.Error(), "cannot write %q", summaryPath)
}

// ReadSummary loads previously collected records from a summary CSV.
// Counter averages are not part of the summary table and stay nil.
func ReadSummary(summaryPath string) ([]run.ResultRecord, error) {
	rows, err := readSummaryRows(summaryPath)
	if err != nil {
		return nil, err
	}

	var records []run.ResultRecord
	for _, row := range rows {
		if len(row) < 6 {
			return nil, errors.Errorf("malformed summary row in %q: %v", summaryPath, row)
		}
		record := run.ResultRecord{
			Target: row[0],
			RunID:  row[1],
			Status: run.CollectionStatus(row[4]),
			Err:    row[5],
		}
		record.ThroughputMBs = parseOptionalFloat(row[2])
		record.IOPS = parseOptionalFloat(row[3])
		records = append(records, record)
	}
	return records, nil
}

func readSummaryRows(summaryPath string) ([][]string, error) {
	file, err := os.Open(summaryPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %q", summaryPath)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse %q", summaryPath)
	}
	if len(rows) > 0 && len(rows[0]) > 0 && rows[0][0] == summaryHeader[0] {
		rows = rows[1:]
	}
	return rows, nil
}

func summaryRow(record run.ResultRecord) []string {
	return []string{
		record.Target,
		record.RunID,
		formatOptionalFloat(record.ThroughputMBs),
		formatOptionalFloat(record.IOPS),
		string(record.Status),
		record.Err,
	}
}

func formatOptionalFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

func parseOptionalFloat(cell string) *float64 {
	if cell == "" {
		return nil
	}
	value, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil
	}
	return &value
}
