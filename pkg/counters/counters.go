// Package counters reduces raw performance counter samples into
// per-counter averages. The set of interesting metrics is fixed and typed;
// each metric carries an ordered list of acceptable raw column suffixes so
// instance-qualified counter names (e.g.
// `\\HOST\Process(diskload)\Handle Count`) resolve to the same metric.
package counters

import (
	"regexp"
	"strings"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// Metric is one performance counter the summary reports on.
type Metric struct {
	// Name is the canonical display name of the metric.
	Name string
	// Suffixes are acceptable raw column name endings, tried in order.
	// Matching is case-insensitive.
	Suffixes []string
}

// Key returns the normalized (alphanumeric-only, lowercase) metric name
// used as the summary map key.
func (m Metric) Key() string {
	return NormalizeKey(m.Name)
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeKey strips a metric name down to lowercase alphanumerics.
func NormalizeKey(name string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "")
}

// Defaults is the fixed metric set sampled during a stress run.
var Defaults = []Metric{
	{Name: "IO Read Operations/sec", Suffixes: []string{"io read operations/sec", "read operations/sec"}},
	{Name: "IO Write Operations/sec", Suffixes: []string{"io write operations/sec", "write operations/sec"}},
	{Name: "Handle Count", Suffixes: []string{"handle count"}},
	{Name: "Working Set", Suffixes: []string{"working set"}},
	{Name: "% Processor Time", Suffixes: []string{"% processor time", "processor time"}},
	{Name: "Available MBytes", Suffixes: []string{"available mbytes"}},
	{Name: "Disk Read Bytes/sec", Suffixes: []string{"disk read bytes/sec", "read bytes/sec"}},
	{Name: "Disk Write Bytes/sec", Suffixes: []string{"disk write bytes/sec", "write bytes/sec"}},
}

// Resolve binds each metric to the index of the first column whose name
// ends with one of the metric's suffixes. Metrics without a matching
// column are simply absent from the result; that is not an error.
// Resolution happens once per table, not per sample.
func Resolve(metrics []Metric, columns []string) map[string]int {
	cleaned := make([]string, len(columns))
	for i, column := range columns {
		cleaned[i] = strings.ToLower(strings.Trim(strings.TrimSpace(column), `"`))
	}

	bound := map[string]int{}
	for _, metric := range metrics {
	suffixes:
		for _, suffix := range metric.Suffixes {
			for i, column := range cleaned {
				if strings.HasSuffix(column, suffix) {
					bound[metric.Key()] = i
					break suffixes
				}
			}
		}
	}

	return bound
}

// Reduce computes the arithmetic mean of every resolvable metric over all
// samples in the table. A column that is missing or contains no parsable
// values yields no entry, never a zero. Unparsable cells are reported as
// issues but do not fail the reduction; partial metrics are acceptable.
func Reduce(metrics []Metric, table Table) (averages map[string]float64, issues []error) {
	averages = map[string]float64{}

	for key, column := range Resolve(metrics, table.Columns) {
		values, parseIssues := table.Column(column)
		for _, issue := range parseIssues {
			issues = append(issues, errors.Wrapf(issue, "metric %q", key))
		}
		if len(values) == 0 {
			continue
		}

		mean, err := stats.Mean(values)
		if err != nil {
			issues = append(issues, errors.Wrapf(err, "cannot average metric %q", key))
			continue
		}
		averages[key] = mean
	}

	return averages, issues
}
