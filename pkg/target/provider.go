// Package target supplies the ordered list of machines a test run operates
// on. The position of a target on the list defines its 1-based concurrency
// index in the staggered start sequence.
package target

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/jackjozwik/IO-StressTest/pkg/run"
)

// Provider supplies an ordered, deduplicated, non-empty sequence of
// machine identifiers.
type Provider interface {
	Targets() ([]string, error)
}

// CSVProvider reads machine names from the first column of a CSV (or plain
// one-column) file. The header name is irrelevant: when HasHeader is set
// the first row is skipped regardless of its content.
type CSVProvider struct {
	Path      string
	HasHeader bool
}

// Targets returns the ordered, trimmed, deduplicated machine list.
// An unreadable file or an empty result is a provider failure which must
// abort the run before any dispatch.
func (p CSVProvider) Targets() ([]string, error) {
	file, err := os.Open(p.Path)
	if err != nil {
		return nil, run.NewError(run.KindProvider, "", errors.Wrapf(err, "cannot open target list %q", p.Path))
	}
	defer file.Close()

	targets, err := parse(file, p.HasHeader)
	if err != nil {
		return nil, run.NewError(run.KindProvider, "", errors.Wrapf(err, "cannot parse target list %q", p.Path))
	}
	if len(targets) == 0 {
		return nil, run.NewError(run.KindProvider, "", errors.Errorf("target list %q is empty", p.Path))
	}

	return targets, nil
}

func parse(r io.Reader, hasHeader bool) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var targets []string
	seen := map[string]bool{}
	first := true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if first && hasHeader {
			first = false
			continue
		}
		first = false

		if len(record) == 0 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		targets = append(targets, name)
	}

	return targets, nil
}
