package config_test

import (
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/veristep/veristep/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.ReassignQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*4)
			convey.So(cfg.TokenTTLHours, convey.ShouldEqual, 24)
			convey.So(cfg.RequiredApprovals, convey.ShouldEqual, 1)
			convey.So(cfg.MaxReassignments, convey.ShouldEqual, 3)
			convey.So(cfg.DefaultMaxConcurrent, convey.ShouldEqual, 5)
		})

		convey.Convey("Then the SLA windows should cover every priority bucket", func() {
			convey.So(cfg.SLAHours["URGENT"], convey.ShouldEqual, 24)
			convey.So(cfg.SLAHours["HIGH"], convey.ShouldEqual, 48)
			convey.So(cfg.SLAHours["MEDIUM"], convey.ShouldEqual, 96)
			convey.So(cfg.SLAHours["LOW"], convey.ShouldEqual, 168)
			convey.So(cfg.SLAHours["MINIMAL"], convey.ShouldEqual, 336)
		})

		convey.Convey("Then the scoring weight sets should sum to one", func() {
			convey.So(cfg.Scoring.CPS.Sum(), convey.ShouldAlmostEqual, 1.0, 1e-9)
			convey.So(cfg.Scoring.ERSS.Sum(), convey.ShouldAlmostEqual, 1.0, 1e-9)
			convey.So(cfg.Scoring.UCI.Sum(), convey.ShouldAlmostEqual, 1.0, 1e-9)
		})
	})
}
