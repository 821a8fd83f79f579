package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/worktimer/internal/notify"
)

// ActionStop is the notification action key that acknowledges the alert.
const ActionStop = "stop"

// keyExpired is never rate-limited; each expiry replaces the previous one.
const keyExpired = "expired"

// AlertLevel indicates the urgency of a desktop alert.
type AlertLevel int

const (
	// AlertLevelInfo is for informational messages (low urgency).
	AlertLevelInfo AlertLevel = iota
	// AlertLevelWarning is for warning messages (normal urgency).
	AlertLevelWarning
	// AlertLevelCritical is for the expired countdown (critical urgency).
	AlertLevelCritical
)

// Sender delivers desktop notifications.
type Sender interface {
	Notify(ctx context.Context, msg notify.Notification) (uint32, error)
	Dismiss(ctx context.Context) error
}

// AlertNotifier turns timer and audio events into desktop notifications.
// Repeats of the same key within minInterval are dropped.
type AlertNotifier struct {
	mu     sync.Mutex
	logger *slog.Logger
	sender Sender

	lastNotifyTime map[string]time.Time
	minInterval    time.Duration
	timeout        time.Duration

	enabled bool
}

// NewAlertNotifier creates an AlertNotifier. A nil sender disables it.
func NewAlertNotifier(sender Sender, logger *slog.Logger) *AlertNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertNotifier{
		logger:         logger,
		sender:         sender,
		lastNotifyTime: make(map[string]time.Time),
		minInterval:    5 * time.Second,
		timeout:        2 * time.Second,
		enabled:        sender != nil,
	}
}

// SetEnabled enables or disables notifications.
func (n *AlertNotifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled && n.sender != nil
}

// SetMinInterval sets the minimum interval between duplicate notifications.
func (n *AlertNotifier) SetMinInterval(interval time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.minInterval = interval
}

// Notify sends a notification unless it is rate-limited. It reports whether
// the notification was delivered.
func (n *AlertNotifier) Notify(key string, msg notify.Notification, level AlertLevel) bool {
	n.mu.Lock()
	if !n.enabled {
		n.mu.Unlock()
		return false
	}
	if lastTime, ok := n.lastNotifyTime[key]; ok && key != keyExpired && time.Since(lastTime) < n.minInterval {
		n.mu.Unlock()
		n.logger.Debug("notification rate-limited", "key", key, "summary", msg.Summary)
		return false
	}
	n.lastNotifyTime[key] = time.Now()
	timeout := n.timeout
	n.mu.Unlock()

	switch level {
	case AlertLevelInfo:
		msg.Urgency = notify.UrgencyLow
		msg.Icon = "dialog-information"
	case AlertLevelWarning:
		msg.Urgency = notify.UrgencyNormal
		msg.Icon = "dialog-warning"
	case AlertLevelCritical:
		msg.Urgency = notify.UrgencyCritical
		msg.Icon = "alarm-symbolic"
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := n.sender.Notify(ctx, msg); err != nil {
		n.logger.Warn("failed to send notification", "key", key, "error", err)
		return false
	}
	return true
}

// NotifyExpired announces the end of the countdown with a stop action.
func (n *AlertNotifier) NotifyExpired(at time.Time) bool {
	return n.Notify(keyExpired, notify.Notification{
		Summary:       "Time is up",
		Body:          "Countdown finished at " + at.Format("15:04") + ".",
		Category:      "x-worktimer.alert",
		Actions:       []notify.Action{{Key: ActionStop, Label: "Stop alert"}},
		Resident:      true,
		ExpireTimeout: 0, // Stays until stopped
	}, AlertLevelCritical)
}

// NotifyAudioError reports a channel that failed to load or play.
func (n *AlertNotifier) NotifyAudioError(channel string, err error) bool {
	return n.Notify("audio-error-"+channel, notify.Notification{
		Summary:       "Audio Error",
		Body:          "The " + channel + " channel is silent: " + err.Error(),
		Category:      "device.error",
		Transient:     true,
		ExpireTimeout: 5000,
	}, AlertLevelWarning)
}

// NotifyConfigError reports a config file that failed to reload.
func (n *AlertNotifier) NotifyConfigError(err error) bool {
	return n.Notify("config-error", notify.Notification{
		Summary:       "Configuration Error",
		Body:          "Failed to reload configuration: " + err.Error(),
		Transient:     true,
		ExpireTimeout: 5000,
	}, AlertLevelWarning)
}

// NotifyConfigReloaded confirms a successful reload.
func (n *AlertNotifier) NotifyConfigReloaded() bool {
	return n.Notify("config-reload", notify.Notification{
		Summary:       "Configuration Reloaded",
		Body:          "worktimer configuration has been reloaded.",
		Transient:     true,
		ExpireTimeout: 5000,
	}, AlertLevelInfo)
}

// Dismiss closes the notification on screen, used once the alert is acknowledged.
func (n *AlertNotifier) Dismiss() {
	n.mu.Lock()
	enabled := n.enabled
	timeout := n.timeout
	n.mu.Unlock()

	if !enabled {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := n.sender.Dismiss(ctx); err != nil {
		n.logger.Debug("failed to dismiss notification", "error", err)
	}
}
