package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/jackjozwik/IO-StressTest/pkg/collector"
	"github.com/jackjozwik/IO-StressTest/pkg/conf"
	"github.com/jackjozwik/IO-StressTest/pkg/executor"
	"github.com/jackjozwik/IO-StressTest/pkg/run"
	"github.com/jackjozwik/IO-StressTest/pkg/stress"
	"github.com/jackjozwik/IO-StressTest/pkg/target"
	"github.com/jackjozwik/IO-StressTest/pkg/uploader"
	"github.com/jackjozwik/IO-StressTest/pkg/utils/errutil"
	"github.com/jackjozwik/IO-StressTest/pkg/visualization"
)

var (
	targetFileFlag = conf.NewFileFlag(
		"target_file",
		"CSV file with target hostnames in the first column.",
		"targets.csv")
	targetFileHeaderFlag = conf.NewBoolFlag(
		"target_file_header",
		"Treat the first row of the target file as a header.",
		false)
	targetsFlag = conf.NewSliceFlag(
		"target",
		"Target hostname. Can be repeated; takes precedence over the target file.")

	runIDFlag = conf.NewStringFlag(
		"run_id",
		"Collect this run instead of the most recent one found on each target.",
		"")
	historyFlag = conf.NewIntFlag(
		"history",
		"Number of recent runs to fetch per target when no run id is given (at most 2).",
		1)
	outputDirFlag = conf.NewStringFlag(
		"output_dir",
		"Local directory receiving fetched artifacts and the summary table.",
		".")
	chartFlag = conf.NewBoolFlag(
		"chart",
		"Reduce the collected results into chart rows and write them next to the summary.",
		true)
)

func newRemote(host string) (executor.Executor, error) {
	currentUser, err := user.Current()
	if err != nil {
		return nil, err
	}

	sshConfig, err := executor.NewSSHConfig(host, executor.DefaultSSHPort, currentUser)
	if err != nil {
		return nil, err
	}
	return executor.NewRemote(sshConfig), nil
}

func loadTargets() []string {
	if len(targetsFlag.Value()) > 0 {
		return targetsFlag.Value()
	}

	provider := target.CSVProvider{
		Path:      targetFileFlag.Value(),
		HasHeader: targetFileHeaderFlag.Value(),
	}
	targets, err := provider.Targets()
	errutil.CheckWithContext(err, "Cannot load target list")
	return targets
}

func history() int {
	h := historyFlag.Value()
	if h < 1 {
		return 1
	}
	if h > 2 {
		return 2
	}
	return h
}

func main() {
	conf.SetAppName("iostress-collect")
	conf.SetHelp(`Result collector for distributed disk I/O stress runs.
It fetches the artifact directories left on each target, parses the generator reports and
counter summaries into normalized result records, renders a summary table and optionally
publishes the results to a database.`)

	errutil.Check(conf.ParseFlags())
	log.SetLevel(conf.LogLevel())
	log.Debug(conf.DumpConfig())

	targets := loadTargets()

	gatherer := collector.Collector{
		Targets:      targets,
		Factory:      newRemote,
		RemoteRoot:   stress.RemoteRoot(),
		OutputRoot:   outputDirFlag.Value(),
		RunID:        runIDFlag.Value(),
		History:      history(),
		ShowProgress: true,
	}

	records := gatherer.Collect()

	summaryPath, err := collector.WriteSummary(outputDirFlag.Value(), records)
	errutil.CheckWithContext(err, "Cannot write summary table")
	log.Infof("Summary table written to %q", summaryPath)

	visualization.DrawSummary(records, os.Stdout)

	if chartFlag.Value() {
		rows := visualization.BuildChart(records)
		chartPath := filepath.Join(outputDirFlag.Value(), visualization.ChartFileName)
		errutil.CheckWithContext(visualization.WriteChart(chartPath, rows), "Cannot write chart rows")
		log.Infof("Chart rows written to %q", chartPath)
		visualization.DrawChart(rows, os.Stdout)
	}

	publisher, err := uploader.NewDefault()
	errutil.CheckWithContext(err, "Cannot initialize results database")
	if err := publisher.SendResults(collectedRunID(records), records); err != nil {
		// Publishing is best effort, the local artifacts already hold the results.
		log.Errorf("Cannot publish results: %v", err)
	}

	failed := 0
	for _, record := range records {
		if record.Status != run.CollectionSuccess {
			failed++
		}
	}
	if failed > 0 {
		log.Errorf("Collection finished with %d of %d target(s) incomplete", failed, len(records))
		os.Exit(1)
	}
	fmt.Printf("Collected %d target(s)\n", len(records))
}

// collectedRunID picks the run id to tag published results with. Explicit
// selection wins, otherwise the first collected record that carries one.
func collectedRunID(records []run.ResultRecord) string {
	if runIDFlag.Value() != "" {
		return runIDFlag.Value()
	}
	for _, record := range records {
		if record.RunID != "" {
			return record.RunID
		}
	}
	return ""
}
