package audio

import "errors"

var (
	// ErrInitializationFailed wraps any device or decode failure during Initialize.
	ErrInitializationFailed = errors.New("audio initialization failed")
	// ErrUnsupportedFormat is returned for files the backend cannot decode.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrActorStopped is reported when a command is sent after Shutdown.
	ErrActorStopped = errors.New("audio actor stopped")
	// ErrMailboxFull is reported when a command is dropped because the mailbox is full.
	ErrMailboxFull = errors.New("audio actor mailbox full")
)

// MaxVolume is the upper bound for volume multipliers. Values above 1.0 boost.
const MaxVolume = 1.5

// Backend opens sound files as looping, paused streams on an output device.
type Backend interface {
	Open(path string) (Stream, error)
}

// Stream is a decoded, infinitely looping source attached to an output device.
// A Stream is only ever touched by the actor goroutine that opened it.
type Stream interface {
	Play()
	Pause()
	SetVolume(volume float64)
	// Err reports a failure of the underlying source after it was opened.
	Err() error
	// Close detaches the source from the device and releases the file.
	Close() error
}

// clampVolume limits volume to [0, MaxVolume].
func clampVolume(volume float64) float64 {
	if volume < 0 {
		return 0
	}
	if volume > MaxVolume {
		return MaxVolume
	}
	return volume
}
