// Package uploader publishes collected result records to an external
// results database. The backend is selected with the results_db flag and
// defaults to none, which disables publishing entirely.
package uploader

import (
	"github.com/pkg/errors"

	"github.com/jackjozwik/IO-StressTest/pkg/conf"
	"github.com/jackjozwik/IO-StressTest/pkg/run"
)

var (
	resultsDBFlag = conf.NewStringFlag("results_db", "Results database backend (none, influxdb or cassandra)", "none")
)

// Uploader publishes result records tagged with their run id.
type Uploader interface {
	SendResults(runID string, records []run.ResultRecord) error
}

// NewDefault initializes the uploader selected via flags and environment.
func NewDefault() (Uploader, error) {
	switch resultsDBFlag.Value() {
	case "none":
		return disabled{}, nil
	case "influxdb":
		return NewInfluxDB(DefaultInfluxDBConfig())
	case "cassandra":
		return NewCassandra(DefaultCassandraConfig())
	}
	return nil, errors.Errorf("unsupported results database %q", resultsDBFlag.Value())
}

// disabled swallows results when no database is configured.
type disabled struct{}

func (disabled) SendResults(string, []run.ResultRecord) error {
	return nil
}
