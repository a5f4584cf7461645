package conf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"
)

// flagType is an internal interface for all flags.
// Every flag exposes its environment variable name, a method for clearing
// the corresponding environment variable and the current value serialized
// to string (for configuration dumps).
type flagType interface {
	envName() string
	help() string
	clear()
	stringValue() string
}

// definedFlags stores all the defined flags. It helps to find duplicates
// when defining a flag with the same name. definedFlagsOrder keeps the
// definition order for deterministic dumps.
var (
	definedFlags      = map[string]flagType{}
	definedFlagsOrder []string
)

// cliAndEnvFlag represents option's definition from CLI and environment
// variable. It stores generic data for each defined flag.
type cliAndEnvFlag struct {
	*kingpin.FlagClause
}

func newCliAndEnvFlag(flagName string, description string, defaultValue string) *cliAndEnvFlag {
	if definedFlags[flagName] != nil {
		panic(fmt.Sprintf("flag %q was already defined", flagName))
	}

	c := &cliAndEnvFlag{FlagClause: app.Flag(flagName, description)}
	c.OverrideDefaultFromEnvar(c.envName())

	if defaultValue != "" {
		c.Default(defaultValue)
	}

	return c
}

func registerFlag(flagName string, flag flagType) {
	definedFlags[flagName] = flag
	definedFlagsOrder = append(definedFlagsOrder, flagName)
	isEnvParsed = false
}

// envName returns the flag name converted to an environment variable name:
// uppercased with the IOST prefix. For instance "stagger_delay" becomes
// "IOST_STAGGER_DELAY".
func (f *cliAndEnvFlag) envName() string {
	return fmt.Sprintf("%s_%s", envPrefix, strings.ToUpper(f.Model().Name))
}

// help returns the flag description.
func (f *cliAndEnvFlag) help() string {
	return f.Model().Help
}

// clear unsets the corresponding environment variable.
func (f *cliAndEnvFlag) clear() {
	os.Unsetenv(f.envName())
}

// StringFlag represents flag with string value.
type StringFlag struct {
	*cliAndEnvFlag
	defaultValue string
	value        *string
}

// NewStringFlag is a constructor of StringFlag struct.
func NewStringFlag(flagName string, description string, defaultValue string) *StringFlag {
	flagDef := &StringFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, defaultValue),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.String()
	registerFlag(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (s StringFlag) Value() string {
	if !isEnvParsed {
		return s.defaultValue
	}

	return *s.value
}

func (s StringFlag) stringValue() string {
	return s.Value()
}

// FileFlag represents flag with a path to an existing file.
type FileFlag struct {
	*StringFlag
}

// NewFileFlag is a constructor of FileFlag struct which checks if file exists.
func NewFileFlag(flagName string, description string, defaultValue string) *FileFlag {
	flagDef := &FileFlag{
		StringFlag: &StringFlag{
			cliAndEnvFlag: newCliAndEnvFlag(flagName, description, defaultValue),
			defaultValue:  defaultValue,
		},
	}
	flagDef.value = flagDef.ExistingFile()
	registerFlag(flagName, flagDef)
	return flagDef
}

// IntFlag represents flag with int value.
type IntFlag struct {
	*cliAndEnvFlag
	defaultValue int
	value        *int
}

// NewIntFlag is a constructor of IntFlag struct.
func NewIntFlag(flagName string, description string, defaultValue int) *IntFlag {
	flagDef := &IntFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, fmt.Sprintf("%d", defaultValue)),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.Int()
	registerFlag(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (i IntFlag) Value() int {
	if !isEnvParsed {
		return i.defaultValue
	}

	return *i.value
}

func (i IntFlag) stringValue() string {
	return fmt.Sprintf("%d", i.Value())
}

// BoolFlag represents flag with bool value.
type BoolFlag struct {
	*cliAndEnvFlag
	defaultValue bool
	value        *bool
}

// NewBoolFlag is a constructor of BoolFlag struct.
func NewBoolFlag(flagName string, description string, defaultValue bool) *BoolFlag {
	flagDef := &BoolFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, fmt.Sprintf("%v", defaultValue)),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.Bool()
	registerFlag(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (b BoolFlag) Value() bool {
	if !isEnvParsed {
		return b.defaultValue
	}

	return *b.value
}

func (b BoolFlag) stringValue() string {
	return fmt.Sprintf("%v", b.Value())
}

// DurationFlag represents flag with duration value.
type DurationFlag struct {
	*cliAndEnvFlag
	defaultValue time.Duration
	value        *time.Duration
}

// NewDurationFlag is a constructor of DurationFlag struct.
func NewDurationFlag(flagName string, description string, defaultValue time.Duration) *DurationFlag {
	flagDef := &DurationFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, defaultValue.String()),
		defaultValue:  defaultValue,
	}
	flagDef.value = flagDef.Duration()
	registerFlag(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (d DurationFlag) Value() time.Duration {
	if !isEnvParsed {
		return d.defaultValue
	}

	return *d.value
}

func (d DurationFlag) stringValue() string {
	return d.Value().String()
}

// SliceFlag represents flag with slice value.
type SliceFlag struct {
	*cliAndEnvFlag
	defaultValue []string
	value        *[]string
}

// NewSliceFlag is a constructor of SliceFlag struct.
func NewSliceFlag(flagName string, description string, elemsInDefaultSlice ...string) *SliceFlag {
	flagDef := &SliceFlag{
		cliAndEnvFlag: newCliAndEnvFlag(flagName, description, strings.Join(elemsInDefaultSlice, stringListDelimiter)),
		defaultValue:  elemsInDefaultSlice,
	}
	flagDef.value = StringList(flagDef)
	registerFlag(flagName, flagDef)
	return flagDef
}

// Value returns value of defined flag after parse.
// NOTE: If conf is not parsed it returns default value (!)
func (s SliceFlag) Value() []string {
	if !isEnvParsed {
		return s.defaultValue
	}

	return *s.value
}

func (s SliceFlag) stringValue() string {
	return strings.Join(s.Value(), stringListDelimiter)
}
