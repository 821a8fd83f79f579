// Package timer implements the countdown state machine that drives the
// music and alert channels.
package timer

import (
	"log/slog"
	"sync"
	"time"
)

// Increments offered by the "+1m" and "+10m" controls.
const (
	OneMinute  = time.Minute
	TenMinutes = 10 * time.Minute
)

// Phase is the lifecycle state of the countdown.
type Phase int

const (
	// PhaseStopped means the countdown is frozen and no music plays.
	PhaseStopped Phase = iota
	// PhaseRunning means the countdown decreases and music plays.
	PhaseRunning
	// PhaseAlerting means the countdown hit zero and the alert loops.
	PhaseAlerting
)

// String returns the string representation of Phase.
func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "stopped"
	case PhaseRunning:
		return "running"
	case PhaseAlerting:
		return "alerting"
	default:
		return "unknown"
	}
}

// Label returns the affordance shown on the start/stop control for the phase.
func (p Phase) Label() string {
	switch p {
	case PhaseStopped:
		return "Start"
	case PhaseRunning:
		return "Stop"
	case PhaseAlerting:
		return "Alert"
	default:
		return ""
	}
}

// Channel is a sound channel the controller sends commands to.
// Implementations must not block.
type Channel interface {
	Play()
	Pause()
	SetVolume(volume float64)
}

// Clock returns the current time.
type Clock func() time.Time

// State is a snapshot of the countdown.
type State struct {
	Phase     Phase
	Remaining time.Duration
	Reference time.Time // Last point at which Remaining was exact
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithInitial loads d onto the countdown at construction.
func WithInitial(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.remaining = d
		}
	}
}

// WithOnAlert registers a hook called when the countdown expires.
// It runs on the goroutine that called Advance, after the lock is released.
func WithOnAlert(hook func(State)) Option {
	return func(c *Controller) {
		c.onAlert = hook
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller owns the countdown and issues play/pause commands to the music
// and alert channels. It is safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	logger *slog.Logger
	now    Clock

	music Channel
	alert Channel

	phase     Phase
	remaining time.Duration
	reference time.Time

	onAlert func(State)
}

// New creates a stopped controller for the given channels.
func New(music, alert Channel, opts ...Option) *Controller {
	c := &Controller{
		logger: slog.Default(),
		now:    time.Now,
		music:  music,
		alert:  alert,
		phase:  PhaseStopped,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.reference = c.now()
	return c
}

// Start begins the countdown and resumes the music. Valid from PhaseStopped.
func (c *Controller) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseStopped {
		return false
	}

	c.setPhase(PhaseRunning)
	c.music.Play()
	c.reference = c.now()
	return true
}

// Stop freezes the countdown and pauses both channels. Valid from PhaseRunning.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseRunning {
		return false
	}

	c.setPhase(PhaseStopped)
	c.music.Pause()
	c.alert.Pause()

	now := c.now()
	c.remaining = subtractElapsed(c.remaining, now.Sub(c.reference))
	c.reference = now
	return true
}

// AcknowledgeAlert silences the alert. Valid from PhaseAlerting.
func (c *Controller) AcknowledgeAlert() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseAlerting {
		return false
	}

	c.setPhase(PhaseStopped)
	c.music.Pause()
	c.alert.Pause()
	c.reference = c.now()
	return true
}

// Reset clears the countdown. Only valid from PhaseStopped, so a running
// countdown can't be lost by accident.
func (c *Controller) Reset() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseStopped {
		c.logger.Debug("ignoring reset", "phase", c.phase)
		return false
	}

	c.reference = c.now()
	c.remaining = 0
	return true
}

// AddDuration extends the countdown in any phase. Negative deltas are
// ignored; the countdown only shrinks while running.
func (c *Controller) AddDuration(delta time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if delta < 0 {
		c.logger.Debug("ignoring negative duration", "delta", delta)
		return
	}

	c.remaining += delta
	c.logger.Debug("duration added", "delta", delta, "remaining", c.remaining)
}

// Advance charges the time elapsed since the last reference against the
// countdown. When it reaches zero the music pauses and the alert starts.
// It is a no-op outside PhaseRunning and reports whether the alert fired.
func (c *Controller) Advance() bool {
	c.mu.Lock()

	if c.phase != PhaseRunning {
		c.mu.Unlock()
		return false
	}

	now := c.now()
	elapsed := now.Sub(c.reference)
	expired := c.remaining == 0 || c.remaining <= elapsed
	c.remaining = subtractElapsed(c.remaining, elapsed)
	c.reference = now

	if !expired {
		c.mu.Unlock()
		return false
	}

	c.setPhase(PhaseAlerting)
	c.music.Pause()
	c.alert.Play()

	hook := c.onAlert
	state := c.stateLocked()
	c.mu.Unlock()

	c.logger.Info("countdown expired")
	if hook != nil {
		hook(state)
	}
	return true
}

// Toggle performs the action offered by the phase label: Start, Stop or
// AcknowledgeAlert.
func (c *Controller) Toggle() Phase {
	switch c.Phase() {
	case PhaseStopped:
		c.Start()
	case PhaseRunning:
		c.Stop()
	case PhaseAlerting:
		c.AcknowledgeAlert()
	}
	return c.Phase()
}

// SetMusicVolume forwards volume to the music channel only.
func (c *Controller) SetMusicVolume(volume float64) {
	c.music.SetVolume(volume)
}

// State returns a snapshot of the countdown.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Remaining returns the time left as of the last reference point.
func (c *Controller) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Controller) stateLocked() State {
	return State{
		Phase:     c.phase,
		Remaining: c.remaining,
		Reference: c.reference,
	}
}

func (c *Controller) setPhase(phase Phase) {
	c.logger.Debug("timer phase changed", "from", c.phase, "to", phase, "remaining", c.remaining)
	c.phase = phase
}

// subtractElapsed returns remaining-elapsed clamped to zero. Negative elapsed
// (a clock step backwards) charges nothing.
func subtractElapsed(remaining, elapsed time.Duration) time.Duration {
	if elapsed < 0 {
		return remaining
	}
	if remaining <= elapsed {
		return 0
	}
	return remaining - elapsed
}
