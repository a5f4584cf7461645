// Package conf is a helper for IO-StressTest configuration for both command
// line interface and environment variables.
// It gives ability to register arguments which will be fetched from
// CLI input OR environment variable.
// By default it registers following options:
// <IOST_LOG> --log <Log level: debug, info, warn, error, fatal, panic> Default: error
//
// When `ParseEnv` is executed, only the environment arguments are parsed and
// ready to be used in registered flag variables. It can be run multiple times.
//
// When `ParseFlags` is executed, the arguments from both CLI and Env are
// parsed. In case of --help option it prints help.
package conf

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"
)

const envPrefix = "IOST"

var (
	app = kingpin.New("iostress", "No help available")

	// Default flags and values.
	logLevelFlag = NewStringFlag(
		"log",
		"Log level: debug, info, warn, error, fatal, panic",
		"error",
	)
	isEnvParsed = false
)

// SetHelp sets the help message for the CLI.
func SetHelp(help string) {
	app.Help = help
}

// SetAppName sets application name for CLI output.
func SetAppName(name string) {
	app.Name = name
}

// AppName returns specified app name.
func AppName() string {
	return app.Name
}

// LogLevel returns configured logLevel from input option or env variable.
// If it cannot parse the configured value, it falls back to the default one.
func LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(logLevelFlag.Value())
	if err == nil {
		return level
	}

	level, err = logrus.ParseLevel(logLevelFlag.defaultValue)
	if err == nil {
		return level
	}

	// Programmer error.
	panic(errors.Wrap(err, "parsing log level failed"))
}

// ParseFlags parses both the command line flags of the process and
// environment variables.
func ParseFlags() error {
	parseGeneration++
	_, err := app.Parse(os.Args[1:])
	if err == nil {
		isEnvParsed = true
		return nil
	}

	return errors.Wrap(err, "could not parse command line flags")
}

// ParseEnv parses the environment for arguments.
func ParseEnv() error {
	parseGeneration++
	_, err := app.Parse([]string{})
	if err == nil {
		isEnvParsed = true
		return nil
	}

	return errors.Wrap(err, "could not parse environment flags")
}

// GetFlags returns defined flags as a map with current values serialized
// to strings. Used for run metadata dumps.
func GetFlags() map[string]string {
	flagsMap := map[string]string{}
	for _, name := range definedFlagsOrder {
		flagsMap[name] = definedFlags[name].stringValue()
	}
	return flagsMap
}

// DumpConfig dumps environment based configuration with current values of
// flags, in definition order. Includes "allexport" directives for bash so
// the output can be sourced to reproduce a run.
func DumpConfig() string {
	buffer := &bytes.Buffer{}

	buffer.WriteString("# Exported values.\n")
	buffer.WriteString("set -o allexport\n")

	for _, name := range definedFlagsOrder {
		flag := definedFlags[name]
		fmt.Fprintf(buffer, "\n# %s\n", flag.help())
		fmt.Fprintf(buffer, "%s=%v\n", flag.envName(), flag.stringValue())
	}

	buffer.WriteString("set +o allexport")
	return buffer.String()
}
