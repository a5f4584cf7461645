package uploader

import (
	"time"

	"github.com/gocql/gocql"
	"github.com/pkg/errors"

	"github.com/jackjozwik/IO-StressTest/pkg/conf"
	"github.com/jackjozwik/IO-StressTest/pkg/run"
)

var (
	cassandraAddressFlag        = conf.NewStringFlag("cassandra_addr", "Address of Cassandra results endpoint", "127.0.0.1")
	cassandraPortFlag           = conf.NewIntFlag("cassandra_port", "Port of Cassandra results endpoint", 9042)
	cassandraUsernameFlag       = conf.NewStringFlag("cassandra_username", "Cassandra username", "")
	cassandraPasswordFlag       = conf.NewStringFlag("cassandra_password", "Cassandra password", "")
	cassandraKeyspaceFlag       = conf.NewStringFlag("cassandra_keyspace", "Keyspace holding the results table", "iostress")
	cassandraCreateKeyspaceFlag = conf.NewBoolFlag("cassandra_create_keyspace", "Create the keyspace if it does not exist", true)
	cassandraTimeoutFlag        = conf.NewDurationFlag("cassandra_timeout", "Cassandra request timeout", 5*time.Second)
)

// CassandraConfig encodes the settings for connecting to the database.
type CassandraConfig struct {
	Address        string
	Port           int
	Username       string
	Password       string
	KeyspaceName   string
	CreateKeyspace bool
	Timeout        time.Duration
}

// DefaultCassandraConfig applies the Cassandra settings from the command
// line flags and environment variables.
func DefaultCassandraConfig() CassandraConfig {
	return CassandraConfig{
		Address:        cassandraAddressFlag.Value(),
		Port:           cassandraPortFlag.Value(),
		Username:       cassandraUsernameFlag.Value(),
		Password:       cassandraPasswordFlag.Value(),
		KeyspaceName:   cassandraKeyspaceFlag.Value(),
		CreateKeyspace: cassandraCreateKeyspaceFlag.Value(),
		Timeout:        cassandraTimeoutFlag.Value(),
	}
}

// Cassandra keeps the Cassandra session alive and holds the active
// configuration.
type Cassandra struct {
	config  CassandraConfig
	session *gocql.Session
}

// NewCassandra returns the Uploader backed by a Cassandra results table.
func NewCassandra(config CassandraConfig) (Uploader, error) {
	uploader := &Cassandra{config: config}
	if err := uploader.connect(); err != nil {
		return nil, err
	}
	return uploader, nil
}

func clusterConfig(config CassandraConfig) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(config.Address)
	cluster.Port = config.Port
	cluster.ProtoVersion = 4
	cluster.Consistency = gocql.LocalOne
	cluster.Timeout = config.Timeout

	if config.Username != "" && config.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}
	return cluster
}

// connect creates the session and prepares the schema. It should only be
// called once.
func (u *Cassandra) connect() error {
	cluster := clusterConfig(u.config)

	if u.config.CreateKeyspace {
		if err := createKeyspace(cluster, u.config.KeyspaceName); err != nil {
			return err
		}
	}

	cluster.Keyspace = u.config.KeyspaceName
	session, err := cluster.CreateSession()
	if err != nil {
		return errors.Wrap(err, "cannot connect to cassandra")
	}
	u.session = session

	err = session.Query("CREATE TABLE IF NOT EXISTS results (run_id text, target text, concurrency_index int, throughput_mbs double, iops double, counters map<text,double>, status text, error text, time timestamp, PRIMARY KEY ((run_id), target));").Exec()
	return errors.Wrap(err, "cannot create results table")
}

func createKeyspace(cluster *gocql.ClusterConfig, keyspace string) error {
	session, err := cluster.CreateSession()
	if err != nil {
		return errors.Wrap(err, "cannot create session for creating keyspace")
	}
	defer session.Close()

	query := "CREATE KEYSPACE IF NOT EXISTS " + keyspace +
		" WITH REPLICATION = {'class': 'SimpleStrategy', 'replication_factor': 1};"
	return errors.Wrap(session.Query(query).Exec(), "cannot create keyspace")
}

// SendResults inserts one row per record keyed by run id and target, so
// re-uploading the same run overwrites instead of duplicating.
func (u *Cassandra) SendResults(runID string, records []run.ResultRecord) error {
	for _, record := range records {
		err := u.session.Query(
			`INSERT INTO results (run_id, target, concurrency_index, throughput_mbs, iops, counters, status, error, time) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID,
			record.Target,
			record.ConcurrencyIndex,
			optionalFloat(record.ThroughputMBs),
			optionalFloat(record.IOPS),
			record.CounterAverages,
			string(record.Status),
			record.Err,
			time.Now(),
		).Exec()
		if err != nil {
			return errors.Wrapf(err, "cannot publish results of target %q", record.Target)
		}
	}
	return nil
}

// optionalFloat keeps null measurements null in the database.
func optionalFloat(value *float64) interface{} {
	if value == nil {
		return nil
	}
	return *value
}
