package stress

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"

	"github.com/jackjozwik/IO-StressTest/pkg/counters"
	"github.com/jackjozwik/IO-StressTest/pkg/executor"
	"github.com/jackjozwik/IO-StressTest/pkg/executor/mocks"
	"github.com/jackjozwik/IO-StressTest/pkg/run"
)

const testRunID = "20250826_120000"

func testConfig() Config {
	return Config{
		RemoteRoot:     "/var/tmp/iostress",
		GeneratorPath:  "diskspd",
		GeneratorArgs:  "-c%dG -d%d %s",
		SamplerCommand: "typeperf -si 1 -sc %d -f CSV -o %s %s",
		CounterPaths:   []string{`\Process(diskspd*)\Handle Count`},
		Metrics:        counters.Defaults,
		Duration:       600 * time.Second,
		FileSizeGB:     10,
	}
}

func successHandle() *mocks.TaskHandle {
	handle := new(mocks.TaskHandle)
	handle.On("Wait", mock.Anything).Return(true)
	handle.On("ExitCode").Return(0, nil)
	handle.On("Address").Return("HOST-A")
	handle.On("Stop").Return(nil)
	return handle
}

func fileHandle(t *testing.T, content string) *mocks.TaskHandle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stdout")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}

	handle := successHandle()
	handle.On("StdoutFile").Return(file, nil)
	return handle
}

func commandWithPrefix(prefix string) interface{} {
	return mock.MatchedBy(func(command string) bool {
		return strings.HasPrefix(command, prefix)
	})
}

func commandContaining(substring string) interface{} {
	return mock.MatchedBy(func(command string) bool {
		return strings.Contains(command, substring)
	})
}

const counterCSV = `"time","\\HOST-A\Process(diskspd)\Handle Count"
"10:00:01",50
"10:00:02",70
`

func TestSessionRun(t *testing.T) {
	Convey("While running a stress session", t, func() {
		Convey("A clean run completes with the artifact path set", func() {
			exec := new(mocks.Executor)
			exec.On("Execute", commandWithPrefix("mkdir -p")).Return(successHandle(), nil).Once()
			exec.On("Execute", commandContaining(LogFileName)).Return(successHandle(), nil)
			exec.On("Execute", commandWithPrefix("diskspd")).Return(successHandle(), nil).Once()
			exec.On("Execute", commandWithPrefix("typeperf")).Return(successHandle(), nil).Once()
			exec.On("Execute", commandWithPrefix("cat")).Return(fileHandle(t, counterCSV), nil).Once()
			exec.On("Execute", commandWithPrefix("printf")).Return(successHandle(), nil).Once()

			record := New("HOST-A", exec, testRunID, testConfig()).Run()

			So(record.Status, ShouldEqual, run.COMPLETED)
			So(record.ArtifactPath, ShouldEqual, "/var/tmp/iostress/"+testRunID)
			So(record.Err, ShouldBeNil)
			exec.AssertExpectations(t)
		})

		Convey("Unreachable target fails with remote-unreachable cause", func() {
			exec := new(mocks.Executor)
			exec.On("Execute", mock.Anything).Return(nil, errors.New("connection refused"))

			record := New("HOST-A", exec, testRunID, testConfig()).Run()

			So(record.Status, ShouldEqual, run.FAILED)
			So(run.KindOf(record.Err), ShouldEqual, run.KindRemoteUnreachable)
		})

		Convey("Directory creation exit code failure is classified", func() {
			failed := new(mocks.TaskHandle)
			failed.On("Wait", mock.Anything).Return(true)
			failed.On("ExitCode").Return(1, nil)
			failed.On("Address").Return("HOST-A")

			exec := new(mocks.Executor)
			exec.On("Execute", commandWithPrefix("mkdir -p")).Return(failed, nil).Once()

			record := New("HOST-A", exec, testRunID, testConfig()).Run()

			So(record.Status, ShouldEqual, run.FAILED)
			So(run.KindOf(record.Err), ShouldEqual, run.KindDirectoryCreate)
		})

		Convey("Generator launch failure is classified and does not panic", func() {
			exec := new(mocks.Executor)
			exec.On("Execute", commandWithPrefix("mkdir -p")).Return(successHandle(), nil).Once()
			exec.On("Execute", commandContaining(LogFileName)).Return(successHandle(), nil)
			exec.On("Execute", commandWithPrefix("diskspd")).Return(nil, errors.New("no such file")).Once()

			record := New("HOST-A", exec, testRunID, testConfig()).Run()

			So(record.Status, ShouldEqual, run.FAILED)
			So(run.KindOf(record.Err), ShouldEqual, run.KindLaunch)
		})

		Convey("Sampler launch failure stops the generator and is classified", func() {
			generator := successHandle()

			exec := new(mocks.Executor)
			exec.On("Execute", commandWithPrefix("mkdir -p")).Return(successHandle(), nil).Once()
			exec.On("Execute", commandContaining(LogFileName)).Return(successHandle(), nil)
			exec.On("Execute", commandWithPrefix("diskspd")).Return(generator, nil).Once()
			exec.On("Execute", commandWithPrefix("typeperf")).Return(nil, errors.New("sampler missing")).Once()

			record := New("HOST-A", exec, testRunID, testConfig()).Run()

			So(record.Status, ShouldEqual, run.FAILED)
			So(run.KindOf(record.Err), ShouldEqual, run.KindSampling)
			generator.AssertCalled(t, "Stop")
		})

		Convey("Invalid parameters fail before any remote operation", func() {
			exec := new(mocks.Executor)

			config := testConfig()
			config.Duration = 0
			record := New("HOST-A", exec, testRunID, config).Run()

			So(record.Status, ShouldEqual, run.FAILED)
			exec.AssertNumberOfCalls(t, "Execute", 0)
		})
	})
}

func TestSessionCommands(t *testing.T) {
	Convey("While rendering remote commands", t, func() {
		session := New("HOST-A", executor.NewLocal(), testRunID, testConfig())
		dir := session.ArtifactDir()

		Convey("Generator command captures stdout into the artifact directory", func() {
			command := session.generatorCommand(dir)
			So(command, ShouldContainSubstring, "-c10G -d600")
			So(command, ShouldContainSubstring, dir+"/"+GeneratorOutFileName)
		})

		Convey("Sampler command samples once per second for the whole duration", func() {
			command := session.samplerCommand(dir)
			So(command, ShouldContainSubstring, "-si 1 -sc 600")
			So(command, ShouldContainSubstring, dir+"/"+CountersFileName)
			So(command, ShouldContainSubstring, "Handle Count")
		})
	})
}
