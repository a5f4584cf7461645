package run

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRunIDs(t *testing.T) {
	Convey("While working with run identifiers", t, func() {
		Convey("Identifiers derive from wall-clock time", func() {
			at := time.Date(2025, 8, 26, 12, 0, 0, 0, time.UTC)
			So(NewRunID(at), ShouldEqual, "20250826_120000")
		})

		Convey("Only the timestamp pattern is accepted", func() {
			So(IsRunID("20250826_120000"), ShouldBeTrue)
			So(IsRunID("20250826-120000"), ShouldBeFalse)
			So(IsRunID("20250826_12000"), ShouldBeFalse)
			So(IsRunID("lost+found"), ShouldBeFalse)
			So(IsRunID(""), ShouldBeFalse)
			So(IsRunID("x20250826_120000"), ShouldBeFalse)
		})

		Convey("Sorting orders newest first", func() {
			runIDs := []string{"20250826_110000", "20250827_090000", "20250826_120000"}
			SortRunIDsDescending(runIDs)
			So(runIDs, ShouldResemble, []string{"20250827_090000", "20250826_120000", "20250826_110000"})
		})
	})
}

func TestStateString(t *testing.T) {
	Convey("Execution states have readable names", t, func() {
		So(PENDING.String(), ShouldEqual, "Pending")
		So(RUNNING.String(), ShouldEqual, "Running")
		So(COMPLETED.String(), ShouldEqual, "Completed")
		So(FAILED.String(), ShouldEqual, "Failed")
		So(State(42).String(), ShouldEqual, "Unknown")
	})
}

func TestKindOf(t *testing.T) {
	Convey("Failure classification survives wrapping", t, func() {
		classified := NewError(KindSampling, "HOST-A", errors.New("typeperf exited with code 1"))
		So(KindOf(classified), ShouldEqual, KindSampling)
		So(KindOf(errors.Wrap(classified, "while watching HOST-A")), ShouldEqual, KindSampling)
		So(KindOf(errors.New("unclassified")), ShouldEqual, FailureKind(""))
		So(KindOf(nil), ShouldEqual, FailureKind(""))
	})
}
