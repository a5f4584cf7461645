package conf

import (
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

var (
	strFlag      = NewStringFlag("string_flag", "string flag", "string")
	intFlag      = NewIntFlag("int_flag", "int flag", 2128)
	boolFlag     = NewBoolFlag("bool_flag", "bool flag", false)
	durationFlag = NewDurationFlag("duration_flag", "duration flag", 10*time.Second)
	sliceFlag    = NewSliceFlag("slice_flag", "slice flag", "A", "B")
)

func TestFlags(t *testing.T) {
	Convey("While using typed flags", t, func() {
		Convey("String flag parses environment value", func() {
			defer strFlag.clear()
			os.Setenv(strFlag.envName(), "other")
			So(ParseEnv(), ShouldBeNil)
			So(strFlag.Value(), ShouldEqual, "other")
		})

		Convey("Int flag parses environment value", func() {
			defer intFlag.clear()
			os.Setenv(intFlag.envName(), "1000")
			So(ParseEnv(), ShouldBeNil)
			So(intFlag.Value(), ShouldEqual, 1000)
		})

		Convey("Bool flag parses environment value", func() {
			defer boolFlag.clear()
			os.Setenv(boolFlag.envName(), "true")
			So(ParseEnv(), ShouldBeNil)
			So(boolFlag.Value(), ShouldBeTrue)
		})

		Convey("Duration flag parses environment value", func() {
			defer durationFlag.clear()
			os.Setenv(durationFlag.envName(), "20s")
			So(ParseEnv(), ShouldBeNil)
			So(durationFlag.Value(), ShouldEqual, 20*time.Second)
		})

		Convey("Slice flag splits environment value on commas", func() {
			defer sliceFlag.clear()
			os.Setenv(sliceFlag.envName(), "C,D,E")
			So(ParseEnv(), ShouldBeNil)
			So(sliceFlag.Value(), ShouldResemble, []string{"C", "D", "E"})

			Convey("And repeated parses replace items instead of appending", func() {
				So(ParseEnv(), ShouldBeNil)
				So(ParseEnv(), ShouldBeNil)
				So(sliceFlag.Value(), ShouldResemble, []string{"C", "D", "E"})
			})
		})

		Convey("Slice flag keeps its default across repeated parses", func() {
			So(ParseEnv(), ShouldBeNil)
			So(ParseEnv(), ShouldBeNil)
			So(sliceFlag.Value(), ShouldResemble, []string{"A", "B"})
		})

		Convey("Defining flag with duplicated name panics", func() {
			So(func() { NewIntFlag("int_flag", "duplicate", 1) }, ShouldPanic)
		})
	})
}
