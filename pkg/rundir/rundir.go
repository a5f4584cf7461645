// Package rundir manages the local working directory of one run and wires
// application logging into it.
package rundir

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LogFileName is the application log kept inside the run directory.
const LogFileName = "iostress.log"

// Create prepares <outputRoot>/<runID> and opens the application log file
// inside it. The caller owns the returned file.
func Create(outputRoot, runID string) (string, *os.File, error) {
	dir := filepath.Join(outputRoot, runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, errors.Wrapf(err, "cannot create run directory %q", dir)
	}

	logFile, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return "", nil, errors.Wrapf(err, "cannot open log file in %q", dir)
	}
	return dir, logFile, nil
}

// Initialize creates the run directory and configures logrus to write to
// both the run's log file and stderr.
func Initialize(appName, runID, outputRoot string) (string, error) {
	dir, logFile, err := Create(outputRoot, runID)
	if err != nil {
		return "", err
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05.100"})
	logrus.SetOutput(io.MultiWriter(logFile, os.Stderr))
	logrus.Infof("Working directory %q", dir)
	logrus.Info("Starting ", appName, " run ", runID)
	return dir, nil
}
