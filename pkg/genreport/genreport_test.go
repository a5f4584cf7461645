package genreport

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("While parsing generator reports", t, func() {
		Convey("Throughput comes from the third pipe-delimited column of the total row", func() {
			report := Parse(strings.NewReader("total:    100    |    200    |   123.45   |\n"))
			So(report.ThroughputMBs, ShouldNotBeNil)
			So(*report.ThroughputMBs, ShouldAlmostEqual, 123.45)
		})

		Convey("The last total row wins over per-thread rows", func() {
			input := strings.Join([]string{
				"thread 0 | 10 | 11.0 |",
				"total:   50 | 100 | 55.5 |",
				"write summary:",
				"total:   100 | 200 | 123.45 |",
			}, "\n")
			report := Parse(strings.NewReader(input))
			So(*report.ThroughputMBs, ShouldAlmostEqual, 123.45)
		})

		Convey("IOPS comes from the leading numeric field of the matching row", func() {
			report := Parse(strings.NewReader("avg I/O per second |   456.78   |   0.013 |\n"))
			So(report.IOPS, ShouldNotBeNil)
			So(*report.IOPS, ShouldAlmostEqual, 456.78)
		})

		Convey("Both marker spellings are accepted", func() {
			report := Parse(strings.NewReader("avg I/Os per second: 1024.5\n"))
			So(report.IOPS, ShouldNotBeNil)
			So(*report.IOPS, ShouldAlmostEqual, 1024.5)
		})

		Convey("Absent patterns yield nil fields, not an error", func() {
			report := Parse(strings.NewReader("nothing interesting here\n"))
			So(report.ThroughputMBs, ShouldBeNil)
			So(report.IOPS, ShouldBeNil)
		})

		Convey("A malformed total row yields nil throughput", func() {
			report := Parse(strings.NewReader("total: broken row without pipes\n"))
			So(report.ThroughputMBs, ShouldBeNil)
		})

		Convey("Both scalars extract from a full report", func() {
			input := strings.Join([]string{
				"Command Line: diskload -c10G -d600",
				"",
				"total:   1048576000 | 16000 | 123.45 |",
				"avg I/O per second | 456.78 | 0.0",
			}, "\n")
			report := Parse(strings.NewReader(input))
			So(*report.ThroughputMBs, ShouldAlmostEqual, 123.45)
			So(*report.IOPS, ShouldAlmostEqual, 456.78)
		})
	})
}
