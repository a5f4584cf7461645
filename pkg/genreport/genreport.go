// Package genreport extracts the two aggregate scalars (throughput and
// IOPS) from the load generator's textual report. The report format is
// tool-specific and inherently fragile to scrape, so all the scraping
// lives behind this one interface; orchestration code never touches raw
// report text.
package genreport

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Report holds the extracted aggregate numbers. Nil fields mean the
// corresponding pattern was absent from the report, which is tolerated,
// not an error.
type Report struct {
	ThroughputMBs *float64
	IOPS          *float64
}

var (
	totalLinePattern = regexp.MustCompile(`^\s*total:`)
	iopsLinePattern  = regexp.MustCompile(`(?i)i/os? per second`)
	numberPattern    = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?`)
)

// Parse scans the generator report and extracts aggregate throughput and
// IOPS. For each scalar the LAST matching line wins, mirroring reports
// that print per-thread sections before the aggregate one.
func Parse(r io.Reader) Report {
	var lastTotalLine, lastIOPSLine string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if totalLinePattern.MatchString(line) {
			lastTotalLine = line
		}
		if iopsLinePattern.MatchString(line) {
			lastIOPSLine = line
		}
	}

	return Report{
		ThroughputMBs: parseTotalThroughput(lastTotalLine),
		IOPS:          parseLeadingNumber(lastIOPSLine),
	}
}

// parseTotalThroughput extracts the third pipe-delimited numeric column of
// a `total:` summary row, which the generator reports in MB/s.
func parseTotalThroughput(line string) *float64 {
	if line == "" {
		return nil
	}

	fields := strings.Split(line, "|")
	if len(fields) < 3 {
		return nil
	}

	throughput, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return nil
	}
	return &throughput
}

// parseLeadingNumber extracts the first numeric field of a matching line.
func parseLeadingNumber(line string) *float64 {
	if line == "" {
		return nil
	}

	match := numberPattern.FindString(line)
	if match == "" {
		return nil
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &value
}
