// Package stress runs one load-generation and counter-sampling session on
// one target. A session owns its whole lifecycle: it creates the run-scoped
// artifact directory on the target, launches the external disk load
// generator without waiting for it, samples a fixed set of performance
// counters at 1-second granularity for the same duration, waits until BOTH
// the sampler and the generator reached a terminal state, and persists a
// derived per-counter-average summary next to the raw artifacts.
package stress

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jackjozwik/IO-StressTest/pkg/conf"
	"github.com/jackjozwik/IO-StressTest/pkg/counters"
	"github.com/jackjozwik/IO-StressTest/pkg/executor"
	"github.com/jackjozwik/IO-StressTest/pkg/run"
	"github.com/jackjozwik/IO-StressTest/pkg/utils/errcollection"
)

const (
	// LogFileName is the append-only event log in the artifact directory.
	LogFileName = "stress.log"
	// GeneratorOutFileName captures the generator's stdout (its report).
	GeneratorOutFileName = "generator.out"
	// CountersFileName is the raw counter sample table.
	CountersFileName = "counters.csv"
	// SummaryFileName is the derived per-counter-average summary.
	SummaryFileName = "summary.json"
)

var (
	remoteRootFlag = conf.NewStringFlag(
		"remote_root",
		"Directory on targets under which run-scoped artifact directories are created.",
		"/var/tmp/iostress")
	generatorPathFlag = conf.NewStringFlag(
		"generator_path",
		"Path to the disk load generator binary on targets.",
		"diskspd")
	generatorArgsFlag = conf.NewStringFlag(
		"generator_args",
		"Generator argument template; expands file size (GB), duration (seconds) and the test file path, in this order.",
		"-c%dG -d%d -r -w40 -t4 -o8 -b64K %s")
	samplerCommandFlag = conf.NewStringFlag(
		"sampler_command",
		"Counter sampler command template; expands sample count, output CSV path and the counter list, in this order. The default targets the typeperf CLI; override it for fleets with a different counter tool.",
		"typeperf -si 1 -sc %d -f CSV -o %s %s")
	counterPathsFlag = conf.NewSliceFlag(
		"counter_path",
		"Raw performance counter path to sample. Can be repeated.",
		defaultCounterPaths()...)
)

// RemoteRoot returns the configured artifact root on targets. The
// collector shares it so both binaries agree on where artifacts live.
func RemoteRoot() string {
	return remoteRootFlag.Value()
}

func defaultCounterPaths() []string {
	return []string{
		`\Process(diskspd*)\IO Read Operations/sec`,
		`\Process(diskspd*)\IO Write Operations/sec`,
		`\Process(diskspd*)\Handle Count`,
		`\Process(diskspd*)\Working Set`,
		`\Processor(_Total)\% Processor Time`,
		`\Memory\Available MBytes`,
		`\PhysicalDisk(_Total)\Disk Read Bytes/sec`,
		`\PhysicalDisk(_Total)\Disk Write Bytes/sec`,
	}
}

// Config holds all parameters of one execution unit.
type Config struct {
	RemoteRoot     string
	GeneratorPath  string
	GeneratorArgs  string
	SamplerCommand string
	CounterPaths   []string
	Metrics        []counters.Metric
	Duration       time.Duration
	FileSizeGB     int
}

// DefaultConfig returns a Config instance filled from conf flags, with the
// fixed default metric set.
func DefaultConfig(duration time.Duration, fileSizeGB int) Config {
	return Config{
		RemoteRoot:     remoteRootFlag.Value(),
		GeneratorPath:  generatorPathFlag.Value(),
		GeneratorArgs:  generatorArgsFlag.Value(),
		SamplerCommand: samplerCommandFlag.Value(),
		CounterPaths:   counterPathsFlag.Value(),
		Metrics:        counters.Defaults,
		Duration:       duration,
		FileSizeGB:     fileSizeGB,
	}
}

// Session is one target's load-generation and sampling run.
type Session struct {
	target string
	exec   executor.Executor
	runID  string
	config Config
}

// New prepares an execution unit for one target.
func New(target string, exec executor.Executor, runID string, config Config) *Session {
	return &Session{
		target: target,
		exec:   exec,
		runID:  runID,
		config: config,
	}
}

// ArtifactDir returns the run-scoped artifact directory on the target.
func (s *Session) ArtifactDir() string {
	return path.Join(s.config.RemoteRoot, s.runID)
}

// Run executes the whole session and returns its terminal record.
// Only infrastructure-level faults fail the unit; metric parse problems
// degrade to partial summaries.
func (s *Session) Run() *run.ExecutionRecord {
	record := &run.ExecutionRecord{Target: s.target, Status: run.PENDING}

	if err := s.validate(); err != nil {
		return fail(record, run.NewError(run.KindLaunch, s.target, err))
	}

	dir := s.ArtifactDir()

	handle, err := s.exec.Execute(fmt.Sprintf("mkdir -p %s", dir))
	if err != nil {
		return fail(record, run.NewError(run.KindRemoteUnreachable, s.target, err))
	}
	if err := waitForSuccess(handle); err != nil {
		return fail(record, run.NewError(run.KindDirectoryCreate, s.target, err))
	}

	record.Status = run.RUNNING
	s.logEvent(dir, fmt.Sprintf("run %s started (duration %s, file size %dGB)",
		s.runID, s.config.Duration, s.config.FileSizeGB))

	generator, err := s.exec.Execute(s.generatorCommand(dir))
	if err != nil {
		s.logEvent(dir, "generator launch failed")
		return fail(record, run.NewError(run.KindLaunch, s.target, err))
	}

	s.logEvent(dir, fmt.Sprintf("sampling started (%d counters, 1s interval)", len(s.config.CounterPaths)))
	sampler, err := s.exec.Execute(s.samplerCommand(dir))
	if err != nil {
		// Best effort: do not leave the generator running on a unit that
		// is about to be declared failed.
		generator.Stop()
		return fail(record, run.NewError(run.KindSampling, s.target, err))
	}

	// Sampling duration and generator duration are nominally equal but not
	// guaranteed to finish simultaneously. The unit is done only when both
	// reached a terminal state, whichever finishes later.
	samplerErr := waitForSuccess(sampler)
	generator.Wait(0)
	if samplerErr != nil {
		return fail(record, run.NewError(run.KindSampling, s.target, samplerErr))
	}

	s.logEvent(dir, "load generation and sampling completed")

	if err := s.summarize(dir); err != nil {
		return fail(record, run.NewError(run.KindSampling, s.target, err))
	}

	record.Status = run.COMPLETED
	record.ArtifactPath = dir
	log.Infof("Execution on %q completed, artifacts in %q", s.target, dir)
	return record
}

func (s *Session) validate() error {
	if s.config.Duration <= 0 {
		return errors.Errorf("duration must be positive, got %s", s.config.Duration)
	}
	if s.config.FileSizeGB <= 0 {
		return errors.Errorf("file size must be positive, got %dGB", s.config.FileSizeGB)
	}
	if !run.IsRunID(s.runID) {
		return errors.Errorf("malformed run id %q", s.runID)
	}
	return nil
}

// generatorCommand renders the full remote generator invocation with its
// stdout captured into the artifact directory.
func (s *Session) generatorCommand(dir string) string {
	args := fmt.Sprintf(s.config.GeneratorArgs,
		s.config.FileSizeGB,
		int(s.config.Duration.Seconds()),
		path.Join(dir, "testfile.dat"))
	return fmt.Sprintf("%s %s > %s 2>&1",
		s.config.GeneratorPath, args, path.Join(dir, GeneratorOutFileName))
}

// samplerCommand renders the full remote sampler invocation.
func (s *Session) samplerCommand(dir string) string {
	quoted := make([]string, 0, len(s.config.CounterPaths))
	for _, counter := range s.config.CounterPaths {
		quoted = append(quoted, fmt.Sprintf("%q", counter))
	}
	return fmt.Sprintf(s.config.SamplerCommand,
		int(s.config.Duration.Seconds()),
		path.Join(dir, CountersFileName),
		strings.Join(quoted, " "))
}

// logEvent appends one timestamped line to the on-target event log.
// Logging failures are reported locally but never fail the unit.
func (s *Session) logEvent(dir string, message string) {
	line := fmt.Sprintf("%s %s", time.Now().Format(time.RFC3339), message)
	command := fmt.Sprintf("echo '%s' >> %s", shellEscape(line), path.Join(dir, LogFileName))

	handle, err := s.exec.Execute(command)
	if err == nil {
		err = waitForSuccess(handle)
	}
	if err != nil {
		log.Warnf("Cannot append event to %s on %q: %v", LogFileName, s.target, err)
	}
}

// summarize fetches the raw counter table, reduces it to per-counter
// averages and writes the summary back next to the raw artifacts.
// Per-metric parse problems are appended to the event log and the metric
// is omitted; only failures to read or write artifacts are errors.
func (s *Session) summarize(dir string) error {
	handle, err := s.exec.Execute(fmt.Sprintf("cat %s", path.Join(dir, CountersFileName)))
	if err != nil {
		return errors.Wrap(err, "cannot fetch counter samples")
	}
	raw, err := executor.ReadOutput(handle)
	if err != nil {
		return errors.Wrap(err, "cannot read counter samples")
	}

	table, err := counters.ParseTable(strings.NewReader(raw))
	if err != nil {
		return errors.Wrap(err, "cannot parse counter samples")
	}

	averages, issues := counters.Reduce(s.config.Metrics, table)
	parseProblems := &errcollection.ErrorCollection{}
	for _, issue := range issues {
		parseProblems.Add(issue)
	}
	if problems := parseProblems.GetErrIfAny(); problems != nil {
		s.logEvent(dir, fmt.Sprintf("metric parse errors: %v", problems))
	}

	encoded, err := json.MarshalIndent(averages, "", "  ")
	if err != nil {
		return errors.Wrap(err, "cannot encode counter summary")
	}

	command := fmt.Sprintf("printf '%%s\\n' '%s' > %s",
		shellEscape(string(encoded)), path.Join(dir, SummaryFileName))
	handle, err = s.exec.Execute(command)
	if err != nil {
		return errors.Wrap(err, "cannot write counter summary")
	}
	if err := waitForSuccess(handle); err != nil {
		return errors.Wrap(err, "cannot write counter summary")
	}

	return nil
}

// fail marks the record terminal with given cause.
func fail(record *run.ExecutionRecord, err error) *run.ExecutionRecord {
	record.Status = run.FAILED
	record.Err = err
	log.Errorf("Execution on %q failed: %v", record.Target, err)
	return record
}

// waitForSuccess blocks until the task terminates and checks its exit code.
func waitForSuccess(handle executor.TaskHandle) error {
	handle.Wait(0)
	exitCode, err := handle.ExitCode()
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return errors.Errorf("command on %q failed with exit code %d", handle.Address(), exitCode)
	}
	return nil
}

// shellEscape makes s safe inside single quotes in a remote sh command.
func shellEscape(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}
