package renderer

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestParseWGPULogLevel(t *testing.T) {
	c := qt.New(t)

	level, err := ParseWGPULogLevel("warn")
	c.Assert(err, qt.IsNil)
	c.Assert(level, qt.Equals, wgpu.LogLevelWarn)

	level, err = ParseWGPULogLevel("TRACE")
	c.Assert(err, qt.IsNil)
	c.Assert(level, qt.Equals, wgpu.LogLevelTrace)

	_, err = ParseWGPULogLevel("loud")
	c.Assert(err, qt.ErrorMatches, `unknown wgpu log level "loud"`)
}

func TestApplyWGPULogLevelRejectsUnknown(t *testing.T) {
	c := qt.New(t)

	logger, hook := test.NewNullLogger()
	ApplyWGPULogLevel("loud", logger)

	c.Assert(hook.LastEntry(), qt.IsNotNil)
	c.Assert(hook.LastEntry().Level, qt.Equals, logrus.WarnLevel)

	hook.Reset()
	ApplyWGPULogLevel("", logger)
	c.Assert(hook.AllEntries(), qt.HasLen, 0)
}
