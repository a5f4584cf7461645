// Package collector visits every target of a finished run, fetches its
// artifact set, and reduces it into normalized result records. Collection
// is strictly per-target: one unreachable machine never short-circuits the
// rest of the fleet, and the outcome always covers every input target
// exactly once.
package collector

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/jackjozwik/IO-StressTest/pkg/executor"
	"github.com/jackjozwik/IO-StressTest/pkg/genreport"
	"github.com/jackjozwik/IO-StressTest/pkg/run"
	"github.com/jackjozwik/IO-StressTest/pkg/stress"
)

// ExecutorFactory builds the remote execution surface for one target.
// Factored out so tests can substitute fakes for SSH.
type ExecutorFactory func(target string) (executor.Executor, error)

// Collector gathers artifacts from a fleet after a test run.
type Collector struct {
	Targets    []string
	Factory    ExecutorFactory
	RemoteRoot string
	OutputRoot string
	// RunID pins collection to an explicit run. When empty, the most
	// recent run found on each target is collected.
	RunID string
	// History is the number of recent runs to fetch per target when RunID
	// is empty. Only the most recent one populates the result record.
	History int
	// ShowProgress enables a terminal progress bar over targets.
	ShowProgress bool
}

// Collect visits every target and returns exactly one result record per
// input target, in target-list order. Per-target faults are captured in
// the record, never propagated.
func (c *Collector) Collect() []run.ResultRecord {
	records := make([]run.ResultRecord, len(c.Targets))

	var bar *pb.ProgressBar
	if c.ShowProgress {
		bar = pb.StartNew(len(c.Targets))
	}

	for i, target := range c.Targets {
		records[i] = c.collectTarget(target)
		records[i].ConcurrencyIndex = i + 1
		if bar != nil {
			bar.Increment()
		}
	}

	if bar != nil {
		bar.Finish()
	}
	return records
}

func (c *Collector) collectTarget(target string) run.ResultRecord {
	record := run.ResultRecord{Target: target, Status: run.CollectionSuccess}

	exec, err := c.Factory(target)
	if err != nil {
		return collectionError(record, run.CollectionError, err)
	}

	runIDs, err := c.discoverRuns(exec, target)
	if err != nil {
		if run.KindOf(err) == run.KindArtifactMissing {
			return collectionError(record, run.CollectionFailed, err)
		}
		return collectionError(record, run.CollectionError, err)
	}

	// Fetch every requested run; only the most recent populates metrics.
	for i, runID := range runIDs {
		artifacts, err := c.fetchRun(exec, target, runID)
		if err != nil {
			return collectionError(record, run.CollectionError, err)
		}
		if i > 0 {
			continue
		}

		record.RunID = runID
		if artifacts.fetched == 0 {
			cause := run.NewError(run.KindArtifactMissing, target,
				errors.Errorf("no test results found for run %s", runID))
			return collectionError(record, run.CollectionFailed, cause)
		}

		report := genreport.Parse(strings.NewReader(artifacts.generatorOut))
		record.ThroughputMBs = report.ThroughputMBs
		record.IOPS = report.IOPS
		record.CounterAverages = artifacts.counterAverages
	}

	return record
}

// discoverRuns lists artifact directories on the target matching the run
// timestamp pattern, newest first, limited to the requested history.
// An explicit RunID bypasses discovery.
func (c *Collector) discoverRuns(exec executor.Executor, target string) ([]string, error) {
	if c.RunID != "" {
		return []string{c.RunID}, nil
	}

	// The listing must exit zero even for an absent root: executors reject
	// fast nonzero exits as failed launches, which would misclassify an
	// empty machine as unreachable.
	handle, err := exec.Execute(fmt.Sprintf("ls -1 %s 2>/dev/null || true", c.RemoteRoot))
	if err != nil {
		return nil, run.NewError(run.KindRemoteUnreachable, target, err)
	}
	listing, err := executor.ReadOutput(handle)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list artifact directories on %q", target)
	}

	var runIDs []string
	for _, line := range strings.Split(listing, "\n") {
		name := strings.TrimSpace(line)
		if run.IsRunID(name) {
			runIDs = append(runIDs, name)
		}
	}
	if len(runIDs) == 0 {
		return nil, run.NewError(run.KindArtifactMissing, target, errors.New("no test results found"))
	}

	run.SortRunIDsDescending(runIDs)
	history := c.History
	if history < 1 {
		history = 1
	}
	if len(runIDs) > history {
		runIDs = runIDs[:history]
	}
	return runIDs, nil
}

// runArtifacts is the fetched artifact set of one (target, run) pair.
// fetched counts the artifact files actually present on the target; a
// whole set of zero means the run left nothing behind there.
type runArtifacts struct {
	generatorOut    string
	counterAverages map[string]float64
	fetched         int
}

// fetchRun copies one run's artifacts into the local output root and
// returns the parsed pieces the result record needs. Individual artifact
// files may be absent (their metrics degrade to null); only transport
// level faults and an unwritable output root are errors.
func (c *Collector) fetchRun(exec executor.Executor, target string, runID string) (runArtifacts, error) {
	localDir := filepath.Join(c.OutputRoot, runID, target)
	if err := os.MkdirAll(localDir, 0755); err != nil {
		return runArtifacts{}, errors.Wrapf(err, "cannot create %q", localDir)
	}

	artifacts := runArtifacts{}
	remoteDir := path.Join(c.RemoteRoot, runID)

	for _, name := range []string{
		stress.LogFileName,
		stress.GeneratorOutFileName,
		stress.CountersFileName,
		stress.SummaryFileName,
	} {
		content, err := fetchFile(exec, path.Join(remoteDir, name))
		if err != nil {
			return runArtifacts{}, errors.Wrapf(err, "cannot fetch %q from %q", name, target)
		}
		if content == nil {
			log.Debugf("Artifact %q absent on %q for run %s", name, target, runID)
			continue
		}
		artifacts.fetched++

		if err := os.WriteFile(filepath.Join(localDir, name), content, 0644); err != nil {
			return runArtifacts{}, errors.Wrapf(err, "cannot write %q", filepath.Join(localDir, name))
		}

		switch name {
		case stress.GeneratorOutFileName:
			artifacts.generatorOut = string(content)
		case stress.SummaryFileName:
			averages := map[string]float64{}
			if err := json.Unmarshal(content, &averages); err != nil {
				// A garbled summary degrades to missing counter averages.
				log.Warnf("Cannot decode %q from %q: %v", name, target, err)
				continue
			}
			artifacts.counterAverages = averages
		}
	}

	return artifacts, nil
}

// fetchFile reads one remote file. A missing or empty file yields
// (nil, nil); only transport faults are errors. The command must exit
// zero either way, since executors reject fast nonzero exits as failed
// launches.
func fetchFile(exec executor.Executor, remotePath string) ([]byte, error) {
	handle, err := exec.Execute(fmt.Sprintf("test -f %s && cat %s || true", remotePath, remotePath))
	if err != nil {
		return nil, err
	}

	content, err := executor.ReadOutput(handle)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, nil
	}
	return []byte(content), nil
}

// collectionError finalizes a record with a status and the first line of
// the underlying cause, which is enough to diagnose without re-running.
func collectionError(record run.ResultRecord, status run.CollectionStatus, err error) run.ResultRecord {
	record.Status = status
	record.Err = firstLine(err.Error())
	log.Warnf("Collection for %q: %s: %s", record.Target, status, record.Err)
	return record
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
