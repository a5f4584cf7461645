package counters

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const sampleTable = `"(PDH-CSV 4.0)","\\HOST-A\Process(diskload)\IO Read Operations/sec","\\HOST-A\Process(diskload)\Handle Count","\\HOST-A\Memory\Available MBytes"
"08/12/2025 10:00:01",100.0,50,2048
"08/12/2025 10:00:02",200.0,52,2040
"08/12/2025 10:00:03",300.0,54,2032
`

func TestNormalizeKey(t *testing.T) {
	Convey("Metric names normalize to lowercase alphanumerics", t, func() {
		So(NormalizeKey("IO Read Operations/sec"), ShouldEqual, "ioreadoperationssec")
		So(NormalizeKey("% Processor Time"), ShouldEqual, "processortime")
		So(NormalizeKey("Handle Count"), ShouldEqual, "handlecount")
	})
}

func TestResolve(t *testing.T) {
	Convey("While resolving metric columns", t, func() {
		table, err := ParseTable(strings.NewReader(sampleTable))
		So(err, ShouldBeNil)

		Convey("Instance-qualified counter names match by suffix", func() {
			bound := Resolve(Defaults, table.Columns)
			So(bound[NormalizeKey("IO Read Operations/sec")], ShouldEqual, 1)
			So(bound[NormalizeKey("Handle Count")], ShouldEqual, 2)
			So(bound[NormalizeKey("Available MBytes")], ShouldEqual, 3)
		})

		Convey("Metrics without a matching column are absent", func() {
			bound := Resolve(Defaults, table.Columns)
			_, ok := bound[NormalizeKey("Working Set")]
			So(ok, ShouldBeFalse)
		})
	})
}

func TestReduce(t *testing.T) {
	Convey("While reducing counter samples", t, func() {
		Convey("Averages are arithmetic means over all samples", func() {
			table, err := ParseTable(strings.NewReader(sampleTable))
			So(err, ShouldBeNil)

			averages, issues := Reduce(Defaults, table)
			So(issues, ShouldBeEmpty)
			So(averages[NormalizeKey("IO Read Operations/sec")], ShouldAlmostEqual, 200.0)
			So(averages[NormalizeKey("Handle Count")], ShouldAlmostEqual, 52.0)
		})

		Convey("A column with no parsable values yields no entry, never zero", func() {
			empty := `"time","\\HOST-A\Process(x)\Handle Count"
"08/12/2025 10:00:01",
"08/12/2025 10:00:02"," "
`
			table, err := ParseTable(strings.NewReader(empty))
			So(err, ShouldBeNil)

			averages, issues := Reduce(Defaults, table)
			So(issues, ShouldBeEmpty)
			_, ok := averages[NormalizeKey("Handle Count")]
			So(ok, ShouldBeFalse)
		})

		Convey("Unparsable cells are reported but do not fail the reduction", func() {
			garbled := `"time","\\HOST-A\Process(x)\Handle Count"
"08/12/2025 10:00:01",50
"08/12/2025 10:00:02",garbage
"08/12/2025 10:00:03",70
`
			table, err := ParseTable(strings.NewReader(garbled))
			So(err, ShouldBeNil)

			averages, issues := Reduce(Defaults, table)
			So(len(issues), ShouldEqual, 1)
			So(averages[NormalizeKey("Handle Count")], ShouldAlmostEqual, 60.0)
		})

		Convey("Empty table is an error on parse, not on reduce", func() {
			_, err := ParseTable(strings.NewReader(""))
			So(err, ShouldNotBeNil)
		})
	})
}
