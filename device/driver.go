package device

import "github.com/robmorgan/halo-scheduler/cuelist"

// Driver is the playback device the scheduler drives. Implementations may block on I/O;
// callers must not hold locks that other goroutines need while calling them.
type Driver interface {
	// Startup is called once before the first cue is started.
	Startup() error

	// Shutdown is called when the scheduler stops.
	Shutdown() error

	// StartCue makes the device play the cue, replacing whatever was playing.
	StartCue(c cuelist.Cue) error

	// StopAll halts playback.
	StopAll() error

	// GetCurrentCue reports the cue the device is playing, if any.
	GetCurrentCue() (cuelist.Cue, bool)
}
