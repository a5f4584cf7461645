package executor

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// Remote provisioning is responsible for providing the execution environment
// on a remote machine via ssh.
type Remote struct {
	sshConfig SSHConfig
}

// NewRemote returns a Remote instance.
func NewRemote(sshConfig SSHConfig) Remote {
	return Remote{
		sshConfig: sshConfig,
	}
}

// Name returns user-friendly name of executor.
func (r Remote) Name() string {
	return fmt.Sprintf("Remote Executor on %s", r.sshConfig.Host)
}

// Execute runs the command given as input on the configured host.
// Returned TaskHandle is able to stop & monitor the provisioned process.
func (r Remote) Execute(command string) (TaskHandle, error) {
	address := fmt.Sprintf("%s:%d", r.sshConfig.Host, r.sshConfig.Port)

	connection, err := ssh.Dial("tcp", address, r.sshConfig.ClientConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "ssh connection to %q failed", address)
	}

	session, err := connection.NewSession()
	if err != nil {
		connection.Close()
		return nil, errors.Wrapf(err, "cannot create ssh session on %q", address)
	}

	terminal := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm", 80, 40, terminal); err != nil {
		session.Close()
		connection.Close()
		return nil, errors.Wrapf(err, "cannot request pty on %q", address)
	}

	stdoutFile, stderrFile, err := createOutputFiles("remote")
	if err != nil {
		session.Close()
		connection.Close()
		return nil, err
	}

	session.Stdout = stdoutFile
	session.Stderr = stderrFile

	log.Debugf("Starting %q remotely on %q", command, r.sshConfig.Host)
	if err := session.Start(command); err != nil {
		session.Close()
		connection.Close()
		removeOutputFiles(stdoutFile, stderrFile)
		return nil, errors.Wrapf(err, "cannot start %q on %q", command, address)
	}

	t := &remoteTaskHandle{
		session:        session,
		command:        command,
		host:           r.sshConfig.Host,
		stdoutFile:     stdoutFile,
		stderrFile:     stderrFile,
		waitEndChannel: make(chan struct{}),
	}

	// Wait for the remote task in a goroutine so Execute never blocks on completion.
	go func() {
		defer close(t.waitEndChannel)
		defer connection.Close()
		defer session.Close()

		err := session.Wait()
		if err == nil {
			t.exitCode = 0
		} else if exitError, ok := err.(*ssh.ExitError); ok {
			t.exitCode = exitError.Waitmsg.ExitStatus()
		} else {
			// Connection-level failure; no exit status is available.
			t.exitCode = -1
			log.Debugf("Remote session for %q on %q broke: %v", command, r.sshConfig.Host, err)
		}

		log.Debugf("Ended %q on %q with exit code %d", command, r.sshConfig.Host, t.exitCode)
	}()

	return checkIfProcessFailedToExecute(command, r.Name(), t)
}

// remoteTaskHandle implements the TaskHandle interface.
type remoteTaskHandle struct {
	session    *ssh.Session
	command    string
	host       string
	stdoutFile *os.File
	stderrFile *os.File

	// waitEndChannel is closed by the waiting goroutine once the remote
	// process reached its terminal state; exitCode is valid only after that.
	waitEndChannel chan struct{}
	exitCode       int
}

// isTerminated checks if the remote process has reached its terminal state.
func (t *remoteTaskHandle) isTerminated() bool {
	select {
	case <-t.waitEndChannel:
		return true
	default:
		return false
	}
}

// Stop terminates the remote task.
func (t *remoteTaskHandle) Stop() error {
	if t.isTerminated() {
		return nil
	}

	if err := t.session.Signal(ssh.SIGKILL); err != nil {
		return errors.Wrapf(err, "cannot signal %q on %q", t.command, t.host)
	}

	t.Wait(0)
	return nil
}

// Status returns a state of the task.
func (t *remoteTaskHandle) Status() TaskState {
	if t.isTerminated() {
		return TERMINATED
	}
	return RUNNING
}

// ExitCode returns an exitCode. If task is not terminated it returns error.
func (t *remoteTaskHandle) ExitCode() (int, error) {
	if !t.isTerminated() {
		return 0, errors.Errorf("task %q on %q is still running", t.command, t.host)
	}
	return t.exitCode, nil
}

// StdoutFile returns a file handle to the task's stdout file.
func (t *remoteTaskHandle) StdoutFile() (*os.File, error) {
	return openForReading(t.stdoutFile)
}

// StderrFile returns a file handle to the task's stderr file.
func (t *remoteTaskHandle) StderrFile() (*os.File, error) {
	return openForReading(t.stderrFile)
}

// Wait blocks until the remote process terminates or timeout elapses.
func (t *remoteTaskHandle) Wait(timeout time.Duration) bool {
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
func (t *remoteTaskHandle) Clean() error {
	if err := t.stdoutFile.Close(); err != nil {
		return errors.Wrapf(err, "cannot close %q", t.stdoutFile.Name())
	}
	if err := t.stderrFile.Close(); err != nil {
		return errors.Wrapf(err, "cannot close %q", t.stderrFile.Name())
	}
	return nil
}

// EraseOutput removes task's stdout & stderr files.
func (t *remoteTaskHandle) EraseOutput() error {
	return removeOutputFiles(t.stdoutFile, t.stderrFile)
}

// Address returns address where the task was located.
func (t *remoteTaskHandle) Address() string {
	return t.host
}
