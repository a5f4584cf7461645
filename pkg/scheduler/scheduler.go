// Package scheduler staggers per-target work: target i starts no earlier
// than i×delay after dispatch begins, all targets run concurrently once
// their delay elapsed, and the only synchronization point is the final
// wait-for-all barrier.
package scheduler

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/jackjozwik/IO-StressTest/pkg/run"
)

// WorkFunc runs one target's execution unit and returns its terminal
// record. concurrencyIndex is the 1-based position in stagger order.
type WorkFunc func(target string, concurrencyIndex int) *run.ExecutionRecord

// Schedule describes a staggered dispatch over an ordered target list.
type Schedule struct {
	Targets          []string
	StaggerDelay     time.Duration
	BaselineDuration time.Duration
	// ShowProgress enables a terminal progress bar ticking as units reach
	// their terminal states.
	ShowProgress bool
}

// OffsetFor returns the start offset of the target at 0-based index i.
// Negative stagger delays collapse to simultaneous starts.
func (s Schedule) OffsetFor(i int) time.Duration {
	if s.StaggerDelay <= 0 {
		return 0
	}
	return time.Duration(i) * s.StaggerDelay
}

// ProjectedRuntime computes the total projected runtime:
// baseline + (N-1)×delay. An empty schedule projects to zero.
func (s Schedule) ProjectedRuntime() time.Duration {
	if len(s.Targets) == 0 {
		return 0
	}
	return s.BaselineDuration + s.OffsetFor(len(s.Targets)-1)
}

// Confirm prints the dispatch plan and reads an explicit operator
// acknowledgement from in. Only "y" or "yes" (case-insensitive) proceed;
// any other answer aborts the run with zero dispatches made.
func (s Schedule) Confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprintf(out, "About to dispatch %d target(s):\n", len(s.Targets))
	for i, target := range s.Targets {
		fmt.Fprintf(out, "  %3d. %-20s start offset %s\n", i+1, target, s.OffsetFor(i))
	}
	fmt.Fprintf(out, "Projected total runtime: %s\n", s.ProjectedRuntime())
	fmt.Fprint(out, "Proceed? [y/N]: ")

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// Dispatch fans out work over all targets. Each target gets its own
// goroutine which sleeps its stagger offset first; the dispatcher never
// blocks on one target's work before starting another's timer. It blocks
// only at the very end, until every unit reached a terminal state, and
// returns records in target-list order regardless of completion order.
// A unit's failure (or panic) never affects its siblings.
func (s Schedule) Dispatch(work WorkFunc) []*run.ExecutionRecord {
	records := make([]*run.ExecutionRecord, len(s.Targets))
	if len(s.Targets) == 0 {
		return records
	}

	var bar *pb.ProgressBar
	if s.ShowProgress {
		bar = pb.StartNew(len(s.Targets))
	}

	done := make(chan struct{})
	for i, target := range s.Targets {
		go func(i int, target string) {
			defer func() { done <- struct{}{} }()
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("execution unit for %q panicked: %v", target, r)
					records[i] = &run.ExecutionRecord{
						Target: target,
						Status: run.FAILED,
						Err:    errors.Errorf("execution unit panicked: %v", r),
					}
				}
				records[i].ConcurrencyIndex = i + 1
				records[i].ScheduledStartOffset = s.OffsetFor(i)
				if bar != nil {
					bar.Increment()
				}
			}()

			offset := s.OffsetFor(i)
			if offset > 0 {
				log.Debugf("Delaying %q by %s (concurrency index %d)", target, offset, i+1)
				time.Sleep(offset)
			}

			record := work(target, i+1)
			if record == nil {
				record = &run.ExecutionRecord{
					Target: target,
					Status: run.FAILED,
					Err:    errors.New("execution unit returned no record"),
				}
			}
			records[i] = record
		}(i, target)
	}

	// The single barrier: wait for every unit's terminal state.
	for range s.Targets {
		<-done
	}
	if bar != nil {
		bar.Finish()
	}

	return records
}
