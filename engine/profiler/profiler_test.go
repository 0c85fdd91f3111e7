package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/spinquad/engine/controller"
	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func TestTickReportsPerInterval(t *testing.T) {
	c := qt.New(t)

	logger, hook := test.NewNullLogger()
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := NewProfiler(WithLogger(logger), WithInterval(2*time.Second), withClock(clock.now))

	clock.t = clock.t.Add(time.Second)
	c.Assert(p.Tick(controller.FrameStats{Presented: 60}), qt.IsFalse)
	c.Assert(hook.AllEntries(), qt.HasLen, 0)

	clock.t = clock.t.Add(time.Second)
	c.Assert(p.Tick(controller.FrameStats{Presented: 120, Dropped: 3, Reconfigured: 1}), qt.IsTrue)

	entry := hook.LastEntry()
	c.Assert(entry.Level, qt.Equals, logrus.InfoLevel)
	c.Assert(entry.Data["component"], qt.Equals, "profiler")
	c.Assert(entry.Data["fps"], qt.Equals, 60.0)
	c.Assert(entry.Data["iterations"], qt.Equals, 2)
	c.Assert(entry.Data["dropped"], qt.Equals, uint64(3))
	c.Assert(entry.Data["reconfigured"], qt.Equals, uint64(1))

	// counts are reported relative to the previous report
	clock.t = clock.t.Add(2 * time.Second)
	c.Assert(p.Tick(controller.FrameStats{Presented: 180, Dropped: 3, Reconfigured: 2}), qt.IsTrue)
	entry = hook.LastEntry()
	c.Assert(entry.Data["fps"], qt.Equals, 30.0)
	c.Assert(entry.Data["iterations"], qt.Equals, 1)
	c.Assert(entry.Data["dropped"], qt.Equals, uint64(0))
	c.Assert(entry.Data["reconfigured"], qt.Equals, uint64(1))
}

func TestWithIntervalIgnoresNonPositive(t *testing.T) {
	c := qt.New(t)

	p := NewProfiler(WithInterval(0), WithInterval(-time.Second))
	c.Assert(p.updateInterval, qt.Equals, time.Second)
}
