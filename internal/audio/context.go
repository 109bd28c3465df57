package audio

import (
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	globalContext Context
	globalOnce    sync.Once
	globalErr     error
)

// isHeadless reports whether the process is running somewhere without a real
// audio device, such as CI.
func isHeadless() bool {
	ciVars := []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"BUILDKITE",
	}
	for _, v := range ciVars {
		if val := os.Getenv(v); val != "" && val != "false" {
			log.Debug("CI environment detected", "variable", v)
			return true
		}
	}
	return os.Getenv("STILLPOINT_MOCK_AUDIO") == "true"
}

// Get returns the process-wide audio context, creating it lazily on first
// call. The context is shared across coordinator instances and survives track
// changes; callers pair Acquire/Release around their use of it.
func Get() (Context, error) {
	globalOnce.Do(func() {
		if isHeadless() {
			log.Info("Using fake audio context", "reason", "no audio device")
			globalContext = NewFakeContext()
			return
		}
		globalContext, globalErr = newOtoContext(DefaultFormat())
		if globalErr != nil {
			log.Warn("Falling back to fake audio context", "err", globalErr)
			globalContext = NewFakeContext()
			globalErr = nil
		}
	})
	return globalContext, globalErr
}

// SetGlobal replaces the process-wide context. Test hook.
func SetGlobal(ctx Context) {
	globalOnce.Do(func() {})
	globalContext = ctx
	globalErr = nil
}

// ResetGlobal closes and forgets the process-wide context so the next Get
// constructs a fresh one. Test hook.
func ResetGlobal() {
	if globalContext != nil {
		_ = globalContext.Close()
	}
	globalContext = nil
	globalOnce = sync.Once{}
	globalErr = nil
}

// Format describes the PCM layout the context runs at.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat returns the playback format used by the production context.
func DefaultFormat() Format {
	return Format{
		SampleRate: 44100,
		Channels:   2,
		BitDepth:   16,
	}
}

// BytesPerSecond returns the PCM data rate for the format.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * f.BitDepth / 8
}
