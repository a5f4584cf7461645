package conf

import (
	"fmt"
	"strings"

	"gopkg.in/alecthomas/kingpin.v2"
)

const stringListDelimiter = ","

// parseGeneration counts Parse invocations. Cumulative list values reset
// themselves on their first Set of each generation; kingpin re-applies
// flag defaults (and env overrides) on every Parse, so without the reset
// repeated ParseEnv/ParseFlags calls would keep appending them.
var parseGeneration = 1

// listValue is a custom kingpin parser which resolves flag's parameters
// consisting of a string slice delimited by `stringListDelimiter`.
// For a flag defined like this:
// `flag = StringList(kingpin.Flag("flag_name", "help"))`
//
// specifying `--flag_name=A,B,C --flag_name=D` yields a slice with
// A,B,C,D items.
type listValue struct {
	target *[]string
	gen    int
}

// Set parses the input string and appends it to the slice, clearing items
// left over from a previous parse first. Implements kingpin.Value.
func (l *listValue) Set(value string) error {
	if l.gen != parseGeneration {
		l.gen = parseGeneration
		*l.target = nil
	}
	*l.target = append(*l.target, strings.Split(value, stringListDelimiter)...)
	return nil
}

// String returns the accumulated items. Implements kingpin.Value.
func (l *listValue) String() string {
	return fmt.Sprintf("%v", *l.target)
}

// IsCumulative implements optional interface (kingpin.repeatableFlag) for flags that can be repeated.
func (l *listValue) IsCumulative() bool {
	return true
}

// StringList is a helper for defining kingpin flags holding string slices.
func StringList(s kingpin.Settings) (target *[]string) {
	target = new([]string)
	s.SetValue(&listValue{target: target})
	return
}
