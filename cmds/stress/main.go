package main

import (
	"fmt"
	"os"
	"os/user"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jackjozwik/IO-StressTest/pkg/conf"
	"github.com/jackjozwik/IO-StressTest/pkg/executor"
	"github.com/jackjozwik/IO-StressTest/pkg/run"
	"github.com/jackjozwik/IO-StressTest/pkg/rundir"
	"github.com/jackjozwik/IO-StressTest/pkg/scheduler"
	"github.com/jackjozwik/IO-StressTest/pkg/stress"
	"github.com/jackjozwik/IO-StressTest/pkg/target"
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

	durationFlag = conf.NewDurationFlag(
		"duration",
		"Baseline duration of the load on each target.",
		10*time.Minute)
	fileSizeFlag = conf.NewIntFlag(
		"file_size_gb",
		"Size of the generated test file in GB.",
		10)
	staggerDelayFlag = conf.NewDurationFlag(
		"stagger_delay",
		"Delay between consecutive target starts.",
		30*time.Second)

	outputDirFlag = conf.NewStringFlag(
		"output_dir",
		"Local directory under which run-scoped working directories are created.",
		".")
	assumeYesFlag = conf.NewBoolFlag(
		"yes",
		"Skip the interactive dispatch confirmation.",
		false)
)

// newRemote is a helper for creating remotes with the default ssh config.
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

func drawExecutionTable(records []*run.ExecutionRecord) {
	data := make([][]string, 0, len(records))
	for _, record := range records {
		errMessage := ""
		if record.Err != nil {
			errMessage = record.Err.Error()
		}
		data = append(data, []string{
			record.Target,
			fmt.Sprintf("%d", record.ConcurrencyIndex),
			record.ScheduledStartOffset.String(),
			record.Status.String(),
			record.ArtifactPath,
			errMessage,
		})
	}
	visualization.NewTable(
		[]string{"target", "index", "start offset", "status", "artifacts", "error"},
		data).Draw(os.Stdout)
}

func main() {
	conf.SetAppName("iostress")
	conf.SetHelp(`Distributed disk I/O stress runner.
It dispatches a disk load generator to every target over SSH with staggered starts, samples
performance counters for the whole load window and leaves a run-scoped artifact directory
on each machine for later collection.`)

	errutil.Check(conf.ParseFlags())
	log.SetLevel(conf.LogLevel())

	runID := run.NewRunID(time.Now())
	_, err := rundir.Initialize(conf.AppName(), runID, outputDirFlag.Value())
	errutil.CheckWithContext(err, "Cannot create run directory")
	log.Debug(conf.DumpConfig())

	targets := loadTargets()
	if len(targets) == 0 {
		errutil.Check(run.NewError(run.KindProvider, "", errors.New("target list is empty")))
	}

	schedule := scheduler.Schedule{
		Targets:          targets,
		StaggerDelay:     staggerDelayFlag.Value(),
		BaselineDuration: durationFlag.Value(),
		ShowProgress:     true,
	}

	if !assumeYesFlag.Value() && !schedule.Confirm(os.Stdin, os.Stdout) {
		log.Info("Dispatch aborted by operator")
		os.Exit(1)
	}

	config := stress.DefaultConfig(durationFlag.Value(), fileSizeFlag.Value())

	log.Infof("Dispatching run %s to %d target(s), projected runtime %s",
		runID, len(targets), schedule.ProjectedRuntime())

	records := schedule.Dispatch(func(target string, concurrencyIndex int) *run.ExecutionRecord {
		remote, err := newRemote(target)
		if err != nil {
			return &run.ExecutionRecord{
				Target: target,
				Status: run.FAILED,
				Err:    run.NewError(run.KindRemoteUnreachable, target, err),
			}
		}
		return stress.New(target, remote, runID, config).Run()
	})

	drawExecutionTable(records)

	failed := 0
	for _, record := range records {
		if record.Status != run.COMPLETED {
			failed++
		}
	}
	if failed > 0 {
		log.Errorf("Run %s finished with %d of %d target(s) failed", runID, failed, len(records))
	} else {
		log.Infof("Run %s finished, all %d target(s) completed", runID, len(records))
	}

	fmt.Println(runID)
	if failed > 0 {
		os.Exit(1)
	}
}
