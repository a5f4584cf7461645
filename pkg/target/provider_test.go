package target

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/jackjozwik/IO-StressTest/pkg/run"
)

func writeTargetFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "machines.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCSVProvider(t *testing.T) {
	Convey("While using CSV target provider", t, func() {
		Convey("Targets come from the first column, trimmed, in file order", func() {
			path := writeTargetFile(t, "MachineName,Location\nHOST-A ,lab1\n HOST-B,lab2\nHOST-C,lab1\n")
			targets, err := CSVProvider{Path: path, HasHeader: true}.Targets()
			So(err, ShouldBeNil)
			So(targets, ShouldResemble, []string{"HOST-A", "HOST-B", "HOST-C"})
		})

		Convey("Header row is skipped regardless of its name", func() {
			path := writeTargetFile(t, "whatever\nHOST-A\n")
			targets, err := CSVProvider{Path: path, HasHeader: true}.Targets()
			So(err, ShouldBeNil)
			So(targets, ShouldResemble, []string{"HOST-A"})
		})

		Convey("Plain one-column files without header work as well", func() {
			path := writeTargetFile(t, "HOST-A\nHOST-B\n")
			targets, err := CSVProvider{Path: path}.Targets()
			So(err, ShouldBeNil)
			So(targets, ShouldResemble, []string{"HOST-A", "HOST-B"})
		})

		Convey("Duplicates and blank rows are dropped, first occurrence wins", func() {
			path := writeTargetFile(t, "HOST-A\n\nHOST-B\nHOST-A\n   \nHOST-C\n")
			targets, err := CSVProvider{Path: path}.Targets()
			So(err, ShouldBeNil)
			So(targets, ShouldResemble, []string{"HOST-A", "HOST-B", "HOST-C"})
		})

		Convey("Empty list is a provider failure", func() {
			path := writeTargetFile(t, "MachineName\n")
			_, err := CSVProvider{Path: path, HasHeader: true}.Targets()
			So(err, ShouldNotBeNil)
			So(run.KindOf(err), ShouldEqual, run.KindProvider)
		})

		Convey("Unreadable file is a provider failure", func() {
			_, err := CSVProvider{Path: "/nonexistent/machines.csv"}.Targets()
			So(err, ShouldNotBeNil)
			So(run.KindOf(err), ShouldEqual, run.KindProvider)
		})
	})
}
