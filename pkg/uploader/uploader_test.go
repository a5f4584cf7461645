package uploader

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/jackjozwik/IO-StressTest/pkg/run"
)

func floatPtr(v float64) *float64 { return &v }

func TestNewDefault(t *testing.T) {
	Convey("Without a configured results database the uploader is disabled", t, func() {
		uploader, err := NewDefault()
		So(err, ShouldBeNil)
		So(uploader.SendResults("20250826_120000", nil), ShouldBeNil)
	})
}

func TestResultPoints(t *testing.T) {
	Convey("While mapping result records to InfluxDB points", t, func() {
		records := []run.ResultRecord{
			{
				Target:           "HOST-A",
				ConcurrencyIndex: 1,
				ThroughputMBs:    floatPtr(123.45),
				IOPS:             floatPtr(456.78),
				CounterAverages:  map[string]float64{"handlecount": 60.5},
				Status:           run.CollectionSuccess,
			},
			{
				Target:           "HOST-B",
				ConcurrencyIndex: 2,
				Status:           run.CollectionError,
				Err:              "connection refused",
			},
		}

		batchPoints, err := resultPoints("20250826_120000", records, time.Now())
		So(err, ShouldBeNil)

		points := batchPoints.Points()
		So(points, ShouldHaveLength, 2)

		Convey("Measured targets carry tags and metric fields", func() {
			tags := points[0].Tags()
			So(tags["run_id"], ShouldEqual, "20250826_120000")
			So(tags["target"], ShouldEqual, "HOST-A")
			So(tags["status"], ShouldEqual, "Success")

			fields, err := points[0].Fields()
			So(err, ShouldBeNil)
			So(fields["throughput_mbs"], ShouldEqual, 123.45)
			So(fields["iops"], ShouldEqual, 456.78)
			So(fields["counter_handlecount"], ShouldEqual, 60.5)
			So(fields["concurrency_index"], ShouldEqual, int64(1))
		})

		Convey("Unmeasured targets omit metric fields instead of storing zeroes", func() {
			fields, err := points[1].Fields()
			So(err, ShouldBeNil)
			So(fields, ShouldNotContainKey, "throughput_mbs")
			So(fields, ShouldNotContainKey, "iops")
			So(fields["error"], ShouldEqual, "connection refused")
		})
	})
}
