package executor

import (
	"os"

	"github.com/pkg/errors"
)

// createOutputFiles creates temporary files for stdout and stderr of an
// executed command. The caller owns both files.
func createOutputFiles(prefix string) (stdout *os.File, stderr *os.File, err error) {
	stdout, err = os.CreateTemp("", prefix+"_stdout_")
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot create stdout file")
	}

	stderr, err = os.CreateTemp("", prefix+"_stderr_")
	if err != nil {
		stdout.Close()
		os.Remove(stdout.Name())
		return nil, nil, errors.Wrap(err, "cannot create stderr file")
	}

	return stdout, stderr, nil
}

// openForReading reopens an output file so reads start at the beginning,
// independent of the writer's position.
func openForReading(file *os.File) (*os.File, error) {
	if file == nil {
		return nil, errors.New("output file is not available")
	}
	reader, err := os.Open(file.Name())
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open %q for reading", file.Name())
	}
	return reader, nil
}

// removeOutputFiles closes and removes both output files of a task.
func removeOutputFiles(stdout *os.File, stderr *os.File) error {
	for _, file := range []*os.File{stdout, stderr} {
		if file == nil {
			continue
		}
		file.Close()
		if err := os.Remove(file.Name()); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "cannot remove %q", file.Name())
		}
	}
	return nil
}
