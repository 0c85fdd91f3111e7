package renderer

import (
	"fmt"
	"os"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/sirupsen/logrus"
)

// WGPULogLevelEnv names the environment variable read by ApplyWGPULogLevelFromEnv.
const WGPULogLevelEnv = "WGPU_LOG_LEVEL"

// ParseWGPULogLevel maps a level name to the wgpu-native log level.
//
// Parameters:
//   - s: one of OFF, ERROR, WARN, INFO, DEBUG, TRACE (case-insensitive)
//
// Returns:
//   - wgpu.LogLevel: the parsed level
//   - error: an error if the name is unknown
func ParseWGPULogLevel(s string) (wgpu.LogLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OFF":
		return wgpu.LogLevelOff, nil
	case "ERROR":
		return wgpu.LogLevelError, nil
	case "WARN", "WARNING":
		return wgpu.LogLevelWarn, nil
	case "INFO":
		return wgpu.LogLevelInfo, nil
	case "DEBUG":
		return wgpu.LogLevelDebug, nil
	case "TRACE":
		return wgpu.LogLevelTrace, nil
	default:
		return wgpu.LogLevelOff, fmt.Errorf("unknown wgpu log level %q", s)
	}
}

// ApplyWGPULogLevel sets the wgpu-native log level by name. An empty name leaves the level unchanged.
//
// Parameters:
//   - name: the level name
//   - logger: receives a warning if the name is not recognised
func ApplyWGPULogLevel(name string, logger logrus.FieldLogger) {
	if strings.TrimSpace(name) == "" {
		return
	}
	level, err := ParseWGPULogLevel(name)
	if err != nil {
		logger.WithError(err).Warn("ignoring wgpu log level")
		return
	}
	wgpu.SetLogLevel(level)
	logger.WithField("level", strings.ToUpper(name)).Debug("wgpu log level set")
}

// ApplyWGPULogLevelFromEnv applies the level named by WGPU_LOG_LEVEL, if set.
func ApplyWGPULogLevelFromEnv(logger logrus.FieldLogger) {
	ApplyWGPULogLevel(os.Getenv(WGPULogLevelEnv), logger)
}
