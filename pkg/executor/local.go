package executor

import (
	"os"
	"os/exec"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/pkg/errors"
)

// Local provisioning is responsible for providing the execution environment
// on local machine via exec.Command.
// It runs command as current user.
type Local struct {
}

// NewLocal returns a Local instance.
func NewLocal() Local {
	return Local{}
}

// Name returns user-friendly name of executor.
func (l Local) Name() string {
	return "Local Executor"
}

// Execute runs the command given as input.
// Returned TaskHandle is able to stop & monitor the provisioned process.
func (l Local) Execute(command string) (TaskHandle, error) {
	log.Debugf("Starting %q locally", command)

	stdoutFile, stderrFile, err := createOutputFiles("local")
	if err != nil {
		return nil, err
	}

	cmd := exec.Command("sh", "-c", command)
	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile
	// Additional process group for the command and its children gives
	// ability to kill the whole tree at once.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		removeOutputFiles(stdoutFile, stderrFile)
		return nil, errors.Wrapf(err, "cannot start %q locally", command)
	}

	log.Debugf("Started %q with pid %d", command, cmd.Process.Pid)

	t := &localTaskHandle{
		cmd:            cmd,
		command:        command,
		stdoutFile:     stdoutFile,
		stderrFile:     stderrFile,
		waitEndChannel: make(chan struct{}),
	}

	// Wait for the task in a goroutine so Execute never blocks on completion.
	go func() {
		defer close(t.waitEndChannel)
		cmd.Wait()

		waitStatus := cmd.ProcessState.Sys().(syscall.WaitStatus)
		if waitStatus.Exited() {
			t.exitCode = waitStatus.ExitStatus()
		} else {
			// Show what signal caused the termination.
			t.exitCode = -int(waitStatus.Signal())
		}

		log.Debugf("Ended %q with exit code %d; stdout in %q, stderr in %q",
			command, t.exitCode, stdoutFile.Name(), stderrFile.Name())
	}()

	return checkIfProcessFailedToExecute(command, l.Name(), t)
}

// localTaskHandle implements the TaskHandle interface.
type localTaskHandle struct {
	cmd        *exec.Cmd
	command    string
	stdoutFile *os.File
	stderrFile *os.File

	// waitEndChannel is closed by the waiting goroutine once the process
	// reached its terminal state; exitCode is valid only after that.
	waitEndChannel chan struct{}
	exitCode       int
}

// isTerminated checks if the process has reached its terminal state.
func (t *localTaskHandle) isTerminated() bool {
	select {
	case <-t.waitEndChannel:
		return true
	default:
		return false
	}
}

// Stop terminates the local task and all its children.
func (t *localTaskHandle) Stop() error {
	if t.isTerminated() {
		return nil
	}

	// The kill syscall interprets a negated PID as a process group.
	log.Debugf("Sending SIGKILL to process group %d", t.cmd.Process.Pid)
	if err := syscall.Kill(-t.cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return errors.Wrapf(err, "cannot signal process group %d", t.cmd.Process.Pid)
	}

	t.Wait(0)
	return nil
}

// Status returns a state of the task.
func (t *localTaskHandle) Status() TaskState {
	if t.isTerminated() {
		return TERMINATED
	}
	return RUNNING
}

// ExitCode returns an exitCode. If task is not terminated it returns error.
func (t *localTaskHandle) ExitCode() (int, error) {
	if !t.isTerminated() {
		return 0, errors.Errorf("task %q is still running", t.command)
	}
	return t.exitCode, nil
}

// StdoutFile returns a file handle to the task's stdout file.
func (t *localTaskHandle) StdoutFile() (*os.File, error) {
	return openForReading(t.stdoutFile)
}

// StderrFile returns a file handle to the task's stderr file.
func (t *localTaskHandle) StderrFile() (*os.File, error) {
	return openForReading(t.stderrFile)
}

// Wait blocks until the process terminates or timeout elapses.
// Returns true when the process terminated before the timeout, otherwise false.
func (t *localTaskHandle) Wait(timeout time.Duration) bool {
	if t.isTerminated() {
		return true
	}

	if timeout == 0 {
		<-t.waitEndChannel
		return true
	}

	select {
	case <-t.waitEndChannel:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Clean closes the task's stdout & stderr files.
func (t *localTaskHandle) Clean() error {
	if err := t.stdoutFile.Close(); err != nil {
		return errors.Wrapf(err, "cannot close %q", t.stdoutFile.Name())
	}
	if err := t.stderrFile.Close(); err != nil {
		return errors.Wrapf(err, "cannot close %q", t.stderrFile.Name())
	}
	return nil
}

// EraseOutput removes task's stdout & stderr files.
func (t *localTaskHandle) EraseOutput() error {
	return removeOutputFiles(t.stdoutFile, t.stderrFile)
}

// Address returns address where the task was located.
func (t *localTaskHandle) Address() string {
	return "127.0.0.1"
}
