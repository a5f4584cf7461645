package uploader

import (
	"fmt"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/pkg/errors"

	"github.com/jackjozwik/IO-StressTest/pkg/conf"
	"github.com/jackjozwik/IO-StressTest/pkg/run"
)

const influxMeasurement = "iostress_results"

var (
	influxDBAddressFlag  = conf.NewStringFlag("influxdb_addr", "Address of InfluxDB results endpoint", "127.0.0.1")
	influxDBPortFlag     = conf.NewIntFlag("influxdb_port", "Port of InfluxDB results endpoint", 8086)
	influxDBNameFlag     = conf.NewStringFlag("influxdb_name", "Name of the InfluxDB results database", "iostress")
	influxDBUsernameFlag = conf.NewStringFlag("influxdb_username", "InfluxDB username", "")
	influxDBPasswordFlag = conf.NewStringFlag("influxdb_password", "InfluxDB password", "")
	influxDBCreateDBFlag = conf.NewBoolFlag("influxdb_create_database", "Create the results database if it does not exist", true)
)

// InfluxDBConfig holds connection settings for the InfluxDB backend.
type InfluxDBConfig struct {
	httpConfig client.HTTPConfig
	dbName     string
	createDB   bool
}

// DefaultInfluxDBConfig applies the InfluxDB settings from the command
// line flags and environment variables.
func DefaultInfluxDBConfig() InfluxDBConfig {
	return InfluxDBConfig{
		dbName:   influxDBNameFlag.Value(),
		createDB: influxDBCreateDBFlag.Value(),
		httpConfig: client.HTTPConfig{
			Addr:     fmt.Sprintf("http://%s:%d", influxDBAddressFlag.Value(), influxDBPortFlag.Value()),
			Username: influxDBUsernameFlag.Value(),
			Password: influxDBPasswordFlag.Value(),
		},
	}
}

// InfluxDB keeps the InfluxDB session alive and holds the active
// configuration.
type InfluxDB struct {
	session client.Client
	config  InfluxDBConfig
}

// NewInfluxDB returns the Uploader backed by an InfluxDB database.
func NewInfluxDB(config InfluxDBConfig) (Uploader, error) {
	uploader := &InfluxDB{config: config}

	var err error
	uploader.session, err = client.NewHTTPClient(config.httpConfig)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create influx client")
	}

	if config.createDB {
		response, err := uploader.session.Query(client.Query{
			Command: fmt.Sprintf("CREATE DATABASE %s", config.dbName)})
		if err != nil {
			return nil, errors.Wrap(err, "cannot create influx database")
		}
		if response.Error() != nil {
			return nil, errors.Wrap(response.Error(), "cannot create influx database")
		}
	}

	return uploader, nil
}

// SendResults writes one point per record, tagged with the run id, target
// and collection status.
func (u *InfluxDB) SendResults(runID string, records []run.ResultRecord) error {
	batchPoints, err := resultPoints(runID, records, time.Now())
	if err != nil {
		return err
	}
	batchPoints.SetDatabase(u.config.dbName)
	return errors.Wrapf(u.session.Write(batchPoints), "cannot publish results of run %s", runID)
}

// resultPoints maps result records to InfluxDB points. Null measurements
// are omitted from the fields so the database never stores fake zeroes.
func resultPoints(runID string, records []run.ResultRecord, at time.Time) (client.BatchPoints, error) {
	batchPoints, err := client.NewBatchPoints(client.BatchPointsConfig{})
	if err != nil {
		return nil, errors.Wrap(err, "cannot create batch points")
	}

	for _, record := range records {
		tags := map[string]string{
			"run_id": runID,
			"target": record.Target,
			"status": string(record.Status),
		}

		fields := map[string]interface{}{
			"concurrency_index": int64(record.ConcurrencyIndex),
		}
		if record.ThroughputMBs != nil {
			fields["throughput_mbs"] = *record.ThroughputMBs
		}
		if record.IOPS != nil {
			fields["iops"] = *record.IOPS
		}
		for counter, average := range record.CounterAverages {
			fields["counter_"+counter] = average
		}
		if record.Err != "" {
			fields["error"] = record.Err
		}

		point, err := client.NewPoint(influxMeasurement, tags, fields, at)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot create point for target %q", record.Target)
		}
		batchPoints.AddPoint(point)
	}

	return batchPoints, nil
}
