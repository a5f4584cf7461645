// Package run holds the data model shared between the stress dispatcher
// and the result collector: test run parameters, per-target execution
// lifecycle and the normalized result records consumed by reporting.
package run

import (
	"regexp"
	"sort"
	"time"
)

// RunIDLayout is the time layout used for run identifiers and remote
// artifact directory names.
const RunIDLayout = "20060102_150405"

var runIDPattern = regexp.MustCompile(`^\d{8}_\d{6}$`)

// NewRunID derives a run identifier from given wall-clock time.
func NewRunID(t time.Time) string {
	return t.Format(RunIDLayout)
}

// IsRunID tells whether name matches the run identifier pattern
// (8 digits, underscore, 6 digits).
func IsRunID(name string) bool {
	return runIDPattern.MatchString(name)
}

// SortRunIDsDescending orders run identifiers newest first. The layout is
// chosen so that lexicographical order equals chronological order.
func SortRunIDsDescending(runIDs []string) {
	sort.Sort(sort.Reverse(sort.StringSlice(runIDs)))
}

// TestRun describes one invocation of the whole stress test.
// It is immutable once dispatch has started.
type TestRun struct {
	RunID            string
	BaselineDuration time.Duration
	StaggerDelay     time.Duration
	FileSizeGB       int
}

// State is an enum presenting current execution state of one target.
type State int

const (
	// PENDING means the unit was created but has not started its work yet.
	PENDING State = iota
	// RUNNING means the load generator and sampler are active on the target.
	RUNNING
	// COMPLETED means both the generator and the sampler reached their
	// terminal state and artifacts were persisted.
	COMPLETED
	// FAILED means an infrastructure-level fault stopped the unit.
	FAILED
)

// String returns human readable state name.
func (s State) String() string {
	switch s {
	case PENDING:
		return "Pending"
	case RUNNING:
		return "Running"
	case COMPLETED:
		return "Completed"
	case FAILED:
		return "Failed"
	}
	return "Unknown"
}

// ExecutionRecord tracks the lifecycle of one target's execution.
// It is mutated only by the dispatching goroutine that owns it and is
// terminal once Status is COMPLETED or FAILED.
type ExecutionRecord struct {
	Target               string
	ConcurrencyIndex     int
	ScheduledStartOffset time.Duration
	Status               State
	ArtifactPath         string
	Err                  error
}

// CollectionStatus tags the outcome of collecting one target's results.
type CollectionStatus string

const (
	// CollectionSuccess means artifacts were fetched and parsed.
	CollectionSuccess CollectionStatus = "Success"
	// CollectionFailed means no results were found on the target or the
	// execution itself had failed.
	CollectionFailed CollectionStatus = "Failed"
	// CollectionError means fetching artifacts hit an infrastructure fault.
	CollectionError CollectionStatus = "Error"
)

// ResultRecord is the reduction of one target's artifacts into reportable
// fields. Built once per target after collection, immutable thereafter.
// Nil metric pointers mean the corresponding pattern was absent from the
// generator report, which is not an error.
type ResultRecord struct {
	Target           string
	ConcurrencyIndex int
	RunID            string
	ThroughputMBs    *float64
	IOPS             *float64
	CounterAverages  map[string]float64
	Status           CollectionStatus
	Err              string
}
