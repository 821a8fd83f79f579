package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/worktimer/internal/audio"
	"github.com/jmylchreest/worktimer/internal/config"
	"github.com/jmylchreest/worktimer/internal/notify"
	"github.com/jmylchreest/worktimer/internal/timer"
)

// Options configures an App beyond its config file.
type Options struct {
	// Backend opens sound files. Nil selects the beep backend.
	Backend audio.Backend
	// Sender delivers desktop notifications. Nil disables them.
	Sender Sender
	// ConfigPath is watched for changes when non-empty.
	ConfigPath string
	// Clock replaces time.Now in the controller.
	Clock timer.Clock
}

// actionListener is implemented by senders that report notification actions.
type actionListener interface {
	SetActionHandler(handler notify.ActionHandler)
	Listen(ctx context.Context) error
}

// App owns the music and alert channels and the controller driving them.
type App struct {
	mu     sync.RWMutex
	cfg    *config.Config
	logger *slog.Logger
	sender Sender

	music *audio.Actor
	alert *audio.Actor
	ctrl  *timer.Controller

	alerts  *AlertNotifier
	watcher *ConfigWatcher

	// Requested music volume, ahead of what the actor has applied
	volume float64

	// Last failure reported per channel
	reported map[string]error

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    bool
	closeOnce sync.Once
}

// New builds the channels and the controller, and starts loading both sound
// files. Load failures don't fail New; they show up in Channels.
func New(cfg *config.Config, opts Options, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	backend := opts.Backend
	if backend == nil {
		backend = audio.NewBeepBackend(cfg.Audio.SampleRate, cfg.Audio.Buffer.Duration(), logger)
	}

	a := &App{
		cfg:      cfg,
		logger:   logger,
		sender:   opts.Sender,
		volume:   cfg.Audio.Volume(),
		reported: make(map[string]error),
	}

	a.alerts = NewAlertNotifier(opts.Sender, logger)
	a.alerts.SetEnabled(cfg.Notify.Enabled)

	poll := audio.WithPollInterval(cfg.Audio.PollInterval.Duration())
	a.music = audio.NewActor("music", backend, logger, poll, audio.WithVolume(a.volume))
	a.alert = audio.NewActor("alert", backend, logger, poll)

	a.ctrl = timer.New(a.music, a.alert,
		timer.WithClock(opts.Clock),
		timer.WithInitial(cfg.Timer.Initial.Duration()),
		timer.WithLogger(logger),
		timer.WithOnAlert(a.onAlert),
	)

	a.music.Initialize(cfg.Audio.ChannelPaths.MusicPath())
	a.alert.Initialize(cfg.Audio.ChannelPaths.AlertPath())

	if opts.ConfigPath != "" {
		watcher, err := NewConfigWatcher(opts.ConfigPath, logger)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		watcher.SetReloadCallback(a.ApplyConfig)
		watcher.SetErrorCallback(func(err error) {
			a.async(func() { a.alerts.NotifyConfigError(err) })
		})
		a.watcher = watcher
	}

	logger.Debug("app created",
		"music", cfg.Audio.ChannelPaths.MusicPath(),
		"alert", cfg.Audio.ChannelPaths.AlertPath(),
		"initial", cfg.Timer.Initial.Duration(),
	)
	return a, nil
}

// Start runs the background services: the config watcher and the listener
// for notification actions. Both stop on Close. Failures are logged, the
// timer works without them.
func (a *App) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.cancel = cancel
	cfg := a.cfg
	a.mu.Unlock()

	if a.watcher != nil {
		if err := a.watcher.Start(cfg); err != nil {
			a.logger.Warn("config hot-reload disabled", "error", err)
		}
	}

	if l, ok := a.sender.(actionListener); ok {
		l.SetActionHandler(a.handleAction)
		a.async(func() {
			if err := l.Listen(ctx); err != nil {
				a.logger.Warn("notification actions disabled", "error", err)
			}
		})
	}
}

// Run drives the controller from a ticker until ctx is done. It is the
// headless tick source; the TUI calls Advance from its own ticks instead.
func (a *App) Run(ctx context.Context) error {
	interval := a.tickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info("timer running", "tick", interval, "remaining", a.ctrl.Remaining())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.Advance()
			if next := a.tickInterval(); next != interval {
				interval = next
				ticker.Reset(interval)
				a.logger.Debug("tick interval changed", "tick", interval)
			}
		}
	}
}

// Close stops the background services and shuts down both channels,
// waiting for their goroutines to exit. It is safe to call more than once.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		cancel := a.cancel
		a.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if a.watcher != nil {
			err = a.watcher.Stop()
		}
		a.wg.Wait()

		a.music.Shutdown()
		a.alert.Shutdown()
		a.logger.Debug("app closed")
	})
	return err
}

// Controller returns the timer controller.
func (a *App) Controller() *timer.Controller {
	return a.ctrl
}

// Config returns the configuration currently in effect.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Toggle performs the start/stop/alert action and dismisses the expiry
// notification when it acknowledges the alert.
func (a *App) Toggle() timer.Phase {
	before := a.ctrl.Phase()
	after := a.ctrl.Toggle()
	if before == timer.PhaseAlerting && after == timer.PhaseStopped {
		a.async(a.alerts.Dismiss)
	}
	return after
}

// Reset clears the countdown while stopped.
func (a *App) Reset() bool {
	return a.ctrl.Reset()
}

// AddDuration extends the countdown.
func (a *App) AddDuration(d time.Duration) {
	a.ctrl.AddDuration(d)
}

// State returns the countdown snapshot.
func (a *App) State() timer.State {
	return a.ctrl.State()
}

// Advance charges elapsed time against the countdown and reports channels
// that failed since the last call.
func (a *App) Advance() bool {
	fired := a.ctrl.Advance()
	a.checkChannels()
	return fired
}

// SetMusicVolume clamps volume to [0, audio.MaxVolume] and sends it to the
// music channel.
func (a *App) SetMusicVolume(volume float64) {
	volume = max(0, min(volume, audio.MaxVolume))

	a.mu.Lock()
	a.volume = volume
	a.mu.Unlock()

	a.ctrl.SetMusicVolume(volume)
}

// MusicVolume returns the last requested music volume.
func (a *App) MusicVolume() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.volume
}

// Channels returns the status of the music and alert channels.
func (a *App) Channels() []audio.Status {
	return []audio.Status{a.music.Status(), a.alert.Status()}
}

// ApplyConfig switches to cfg: volume, notification and channel path
// changes take effect immediately, audio device settings on restart.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.mu.Lock()
	old := a.cfg
	a.cfg = cfg
	a.mu.Unlock()

	a.alerts.SetEnabled(cfg.Notify.Enabled)

	if cfg.Audio.DefaultVolume != old.Audio.DefaultVolume {
		a.SetMusicVolume(cfg.Audio.Volume())
	}

	phase := a.ctrl.Phase()
	if path := cfg.Audio.ChannelPaths.MusicPath(); path != old.Audio.ChannelPaths.MusicPath() {
		a.logger.Info("music channel changed", "path", path)
		a.music.Initialize(path)
		if phase == timer.PhaseRunning {
			a.music.Play()
		}
	}
	if path := cfg.Audio.ChannelPaths.AlertPath(); path != old.Audio.ChannelPaths.AlertPath() {
		a.logger.Info("alert channel changed", "path", path)
		a.alert.Initialize(path)
		if phase == timer.PhaseAlerting {
			a.alert.Play()
		}
	}

	if cfg.Audio.SampleRate != old.Audio.SampleRate ||
		cfg.Audio.Buffer != old.Audio.Buffer ||
		cfg.Audio.PollInterval != old.Audio.PollInterval {
		a.logger.Info("audio device settings take effect after restart")
	}

	a.async(func() { a.alerts.NotifyConfigReloaded() })
}

func (a *App) tickInterval() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg.Timer.TickInterval.Duration()
}

func (a *App) onAlert(state timer.State) {
	a.async(func() { a.alerts.NotifyExpired(state.Reference) })
}

func (a *App) handleAction(id uint32, key string) {
	switch key {
	case ActionStop, "default":
		if a.ctrl.AcknowledgeAlert() {
			a.logger.Info("alert acknowledged from notification", "id", id)
			// Resident notifications stay open after an action.
			a.async(a.alerts.Dismiss)
		}
	}
}

// checkChannels reports each new channel failure once.
func (a *App) checkChannels() {
	for _, ch := range []*audio.Actor{a.music, a.alert} {
		name := ch.Name()
		status := ch.Status()

		a.mu.Lock()
		last := a.reported[name]
		if status.Err == last {
			a.mu.Unlock()
			continue
		}
		a.reported[name] = status.Err
		a.mu.Unlock()

		if status.Err == nil {
			continue
		}

		err := status.Err
		a.logger.Warn("audio channel failed", "channel", name, "error", err)
		a.async(func() { a.alerts.NotifyAudioError(name, err) })
	}
}

// async runs fn on a goroutine that Close waits for. It does nothing once
// the app is closing.
func (a *App) async(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}
