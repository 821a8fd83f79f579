package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Default actor settings.
const (
	DefaultPollInterval = 10 * time.Millisecond
	DefaultMailboxSize  = 64
)

// Phase is the playback state of an Actor.
type Phase int

const (
	// PhaseUninitialized means no stream is bound yet.
	PhaseUninitialized Phase = iota
	// PhaseIdle means a stream is bound and paused.
	PhaseIdle
	// PhasePlaying means the bound stream is audible.
	PhasePlaying
	// PhaseFailed means the last Initialize or the bound stream failed.
	// It behaves like PhaseUninitialized for Play, Pause and SetVolume.
	PhaseFailed
	// PhaseTerminated means Shutdown completed.
	PhaseTerminated
)

// String returns the string representation of Phase.
func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseIdle:
		return "idle"
	case PhasePlaying:
		return "playing"
	case PhaseFailed:
		return "failed"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Status is a snapshot of an actor's health, published after every command.
type Status struct {
	Phase  Phase
	Path   string  // Path of the last Initialize
	Volume float64 // Current volume multiplier
	Err    error   // Wraps ErrInitializationFailed when Phase is PhaseFailed
}

type commandKind int

const (
	cmdInitialize commandKind = iota
	cmdPlay
	cmdPause
	cmdSetVolume
)

func (k commandKind) String() string {
	switch k {
	case cmdInitialize:
		return "initialize"
	case cmdPlay:
		return "play"
	case cmdPause:
		return "pause"
	case cmdSetVolume:
		return "set_volume"
	default:
		return "unknown"
	}
}

type command struct {
	kind   commandKind
	path   string
	volume float64
}

// Option configures an Actor.
type Option func(*Actor)

// WithPollInterval sets the bounded wait of the command loop.
func WithPollInterval(interval time.Duration) Option {
	return func(a *Actor) {
		if interval > 0 {
			a.pollInterval = interval
		}
	}
}

// WithMailboxSize sets how many commands may be queued before sends are dropped.
func WithMailboxSize(size int) Option {
	return func(a *Actor) {
		if size > 0 {
			a.mailboxSize = size
		}
	}
}

// WithVolume sets the volume applied to the first stream.
func WithVolume(volume float64) Option {
	return func(a *Actor) {
		a.volume = clampVolume(volume)
	}
}

// Actor owns one sound channel. All stream access happens on its goroutine;
// the exported methods only enqueue commands and never block.
type Actor struct {
	name         string
	logger       *slog.Logger
	backend      Backend
	pollInterval time.Duration
	mailboxSize  int

	cmds     chan command
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	statusMu sync.RWMutex
	status   Status

	// Loop-owned state. stream is non-nil exactly in PhaseIdle and PhasePlaying.
	phase  Phase
	stream Stream
	volume float64
	path   string
	err    error
}

// NewActor creates an actor for the named channel and starts its goroutine.
func NewActor(name string, backend Backend, logger *slog.Logger, opts ...Option) *Actor {
	if logger == nil {
		logger = slog.Default()
	}

	a := &Actor{
		name:         name,
		logger:       logger.With("channel", name),
		backend:      backend,
		pollInterval: DefaultPollInterval,
		mailboxSize:  DefaultMailboxSize,
		volume:       1.0,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.cmds = make(chan command, a.mailboxSize)
	a.publish()

	go a.run()

	return a
}

// Name returns the channel name.
func (a *Actor) Name() string {
	return a.name
}

// Initialize asks the actor to open path as a looping, paused stream.
// Any previously bound stream is released first.
func (a *Actor) Initialize(path string) {
	a.send(command{kind: cmdInitialize, path: path})
}

// Play resumes the bound stream. It is a no-op unless the actor is idle.
func (a *Actor) Play() {
	a.send(command{kind: cmdPlay})
}

// Pause pauses the bound stream. It is a no-op unless the actor is playing.
func (a *Actor) Pause() {
	a.send(command{kind: cmdPause})
}

// SetVolume sets the volume multiplier, clamped to [0, MaxVolume].
// The value is kept and applied to streams bound later.
func (a *Actor) SetVolume(volume float64) {
	a.send(command{kind: cmdSetVolume, volume: volume})
}

// Status returns the most recently published status.
func (a *Actor) Status() Status {
	a.statusMu.RLock()
	defer a.statusMu.RUnlock()
	return a.status
}

// Shutdown stops the command loop, releases the stream and waits for the
// goroutine to exit. Commands still queued are discarded. Safe to call twice.
func (a *Actor) Shutdown() {
	a.stopOnce.Do(func() {
		close(a.stopCh)
	})
	<-a.doneCh
}

// send enqueues cmd without blocking.
func (a *Actor) send(cmd command) {
	select {
	case <-a.stopCh:
		a.logger.Error("dropping audio command", "command", cmd.kind, "error", ErrActorStopped)
		return
	default:
	}

	select {
	case a.cmds <- cmd:
	default:
		a.logger.Error("dropping audio command", "command", cmd.kind, "error", ErrMailboxFull)
	}
}

// run is the command loop. Each iteration waits at most pollInterval and
// applies at most one command.
func (a *Actor) run() {
	defer close(a.doneCh)

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	a.logger.Debug("audio actor started", "poll_interval", a.pollInterval)

	for {
		select {
		case <-a.stopCh:
			a.terminate()
			return
		case cmd := <-a.cmds:
			a.apply(cmd)
		case <-ticker.C:
			a.checkStream()
		}
	}
}

// apply executes one command against the loop-owned state.
func (a *Actor) apply(cmd command) {
	switch cmd.kind {
	case cmdInitialize:
		a.initialize(cmd.path)

	case cmdPlay:
		if a.phase != PhaseIdle {
			a.logger.Debug("ignoring play", "phase", a.phase)
			return
		}
		a.stream.Play()
		a.setPhase(PhasePlaying)

	case cmdPause:
		if a.phase != PhasePlaying {
			a.logger.Debug("ignoring pause", "phase", a.phase)
			return
		}
		a.stream.Pause()
		a.setPhase(PhaseIdle)

	case cmdSetVolume:
		a.volume = clampVolume(cmd.volume)
		if a.stream != nil {
			a.stream.SetVolume(a.volume)
		}
		a.logger.Debug("volume set", "volume", a.volume)
		a.publish()
	}
}

// initialize replaces the bound stream with a freshly opened one.
func (a *Actor) initialize(path string) {
	a.release()
	a.path = path
	a.err = nil

	stream, err := a.backend.Open(path)
	if err != nil {
		a.err = fmt.Errorf("%w: %s: %w", ErrInitializationFailed, path, err)
		a.logger.Warn("failed to initialize audio channel", "path", path, "error", err)
		a.setPhase(PhaseFailed)
		return
	}

	stream.SetVolume(a.volume)
	stream.Pause()
	a.stream = stream

	a.logger.Debug("audio channel initialized", "path", path, "volume", a.volume)
	a.setPhase(PhaseIdle)
}

// checkStream runs on idle polls and retires a stream whose source failed.
func (a *Actor) checkStream() {
	if a.stream == nil {
		return
	}

	err := a.stream.Err()
	if err == nil {
		return
	}

	a.logger.Warn("audio stream failed", "path", a.path, "error", err)
	a.release()
	a.err = fmt.Errorf("%w: %s: %w", ErrInitializationFailed, a.path, err)
	a.setPhase(PhaseFailed)
}

// terminate releases resources on shutdown.
func (a *Actor) terminate() {
	if pending := len(a.cmds); pending > 0 {
		a.logger.Debug("discarding queued audio commands", "count", pending)
	}
	a.release()
	a.setPhase(PhaseTerminated)
	a.logger.Debug("audio actor stopped")
}

// release closes the bound stream, if any.
func (a *Actor) release() {
	if a.stream == nil {
		return
	}
	if err := a.stream.Close(); err != nil {
		a.logger.Warn("failed to close audio stream", "path", a.path, "error", err)
	}
	a.stream = nil
	a.phase = PhaseUninitialized
}

func (a *Actor) setPhase(phase Phase) {
	if phase != a.phase {
		a.logger.Debug("audio phase changed", "from", a.phase, "to", phase)
	}
	a.phase = phase
	a.publish()
}

// publish copies the loop-owned state into the shared status.
func (a *Actor) publish() {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	a.status = Status{
		Phase:  a.phase,
		Path:   a.path,
		Volume: a.volume,
		Err:    a.err,
	}
}
