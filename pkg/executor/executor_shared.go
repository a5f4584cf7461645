package executor

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// checkIfProcessFailedToExecute should be called at the end of every
// Execute(command) implementation.
// If the task already terminated with a non-zero exit code, it returns a
// nil handle and an error; a still running task (or exit code 0) passes
// through untouched.
//
// Commands usually fail this early because of wrong parameters or a binary
// that is not installed on the execution target.
func checkIfProcessFailedToExecute(command string, executorName string, handle TaskHandle) (TaskHandle, error) {
	if handle.Status() == TERMINATED {
		exitCode, err := handle.ExitCode()
		if err != nil {
			log.Errorf("task %q launched on %q failed, cannot get exit code: %s", command, executorName, err.Error())
			logOutput(handle)
			return nil, errors.Errorf("task %q launched on %q failed, cannot get exit code: %s", command, executorName, err.Error())
		}
		if exitCode != 0 {
			log.Errorf("task %q launched on %q failed: exit code %d", command, executorName, exitCode)
			logOutput(handle)
			return nil, errors.Errorf("task %q launched on %q failed: exit code %d", command, executorName, exitCode)
		}

		log.Debugf("task %q launched on %q has ended successfully", command, executorName)
	}

	return handle, nil
}

// ReadOutput waits for the task to terminate and returns the whole content
// of its stdout file.
func ReadOutput(handle TaskHandle) (string, error) {
	handle.Wait(0)

	stdoutFile, err := handle.StdoutFile()
	if err != nil {
		return "", err
	}
	defer stdoutFile.Close()

	output, err := io.ReadAll(stdoutFile)
	if err != nil {
		return "", errors.Wrapf(err, "cannot read stdout of task on %q", handle.Address())
	}

	return string(output), nil
}

// logOutput logs the tail of stdout and stderr of a failed task.
func logOutput(handle TaskHandle) {
	stdoutFile, err := handle.StdoutFile()
	if err == nil {
		defer stdoutFile.Close()
		log.Errorf("Last lines of stdout (%q):", stdoutFile.Name())
		logLines(stdoutFile)
	}

	stderrFile, err := handle.StderrFile()
	if err == nil {
		defer stderrFile.Close()
		log.Errorf("Last lines of stderr (%q):", stderrFile.Name())
		logLines(stderrFile)
	}
}

const outputTailLines = 3

// logLines prints the last few lines from reader in separate log entries;
// logrus does not support multi-line logs.
func logLines(r io.Reader) {
	var tail []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		tail = append(tail, scanner.Text())
		if len(tail) > outputTailLines {
			tail = tail[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		log.Errorf("Printing from reader failed: %q", err.Error())
		return
	}
	log.Error(strings.Join(tail, "\n"))
}
