package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

// ErrNotConnected is returned by Listen on a notifier without a bus connection.
var ErrNotConnected = errors.New("not connected to D-Bus")

// ActionHandler is called when the user invokes an action on one of our notifications.
type ActionHandler func(id uint32, key string)

// CloseHandler is called when one of our notifications is closed.
type CloseHandler func(id uint32, reason CloseReason)

// Notifier is a client of the desktop notification server. Each notification
// replaces the previous one, so at most one is on screen at a time.
type Notifier struct {
	conn    *dbus.Conn
	obj     dbus.BusObject
	logger  *slog.Logger
	appName string

	mu     sync.Mutex
	open   map[uint32]bool
	lastID uint32

	onAction ActionHandler
	onClose  CloseHandler
}

// Connect connects to the session bus. The connection is shared and is not
// closed by the notifier.
func Connect(appName string, logger *slog.Logger) (*Notifier, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	n := newNotifier(conn.Object(BusName, dbus.ObjectPath(Path)), appName, logger)
	n.conn = conn
	return n, nil
}

func newNotifier(obj dbus.BusObject, appName string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		obj:     obj,
		logger:  logger,
		appName: appName,
		open:    make(map[uint32]bool),
	}
}

// SetActionHandler sets the handler called when an action is invoked.
func (n *Notifier) SetActionHandler(handler ActionHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onAction = handler
}

// SetCloseHandler sets the handler called when a notification closes.
func (n *Notifier) SetCloseHandler(handler CloseHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onClose = handler
}

// Notify shows msg and returns the server-assigned ID.
func (n *Notifier) Notify(ctx context.Context, msg Notification) (uint32, error) {
	n.mu.Lock()
	replaces := n.lastID
	n.mu.Unlock()

	var id uint32
	call := n.obj.CallWithContext(ctx, Interface+".Notify", 0,
		n.appName,
		replaces,
		msg.Icon,
		msg.Summary,
		msg.Body,
		msg.actionList(),
		msg.Hints(),
		msg.ExpireTimeout,
	)
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", err)
	}

	n.mu.Lock()
	delete(n.open, replaces)
	n.open[id] = true
	n.lastID = id
	n.mu.Unlock()

	n.logger.Debug("notification sent", "id", id, "replaces", replaces, "summary", msg.Summary)
	return id, nil
}

// Dismiss closes the last notification if it is still open.
func (n *Notifier) Dismiss(ctx context.Context) error {
	n.mu.Lock()
	id := n.lastID
	open := n.open[id]
	n.mu.Unlock()

	if id == 0 || !open {
		return nil
	}

	if err := n.obj.CallWithContext(ctx, Interface+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("failed to close notification %d: %w", id, err)
	}
	return nil
}

// Listen dispatches ActionInvoked and NotificationClosed signals for our
// notifications until ctx is done.
func (n *Notifier) Listen(ctx context.Context) error {
	if n.conn == nil {
		return ErrNotConnected
	}

	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(dbus.ObjectPath(Path)),
		dbus.WithMatchInterface(Interface),
	}
	if err := n.conn.AddMatchSignal(match...); err != nil {
		return fmt.Errorf("failed to add signal match: %w", err)
	}
	defer func() {
		if err := n.conn.RemoveMatchSignal(match...); err != nil {
			n.logger.Debug("failed to remove signal match", "error", err)
		}
	}()

	ch := make(chan *dbus.Signal, 16)
	n.conn.Signal(ch)
	defer n.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return nil
			}
			n.handleSignal(sig)
		}
	}
}

func (n *Notifier) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case Interface + ".ActionInvoked":
		if len(sig.Body) < 2 {
			return
		}
		id, ok := sig.Body[0].(uint32)
		if !ok {
			return
		}
		key, ok := sig.Body[1].(string)
		if !ok {
			return
		}

		n.mu.Lock()
		owned := n.open[id]
		handler := n.onAction
		n.mu.Unlock()

		if !owned {
			return
		}
		n.logger.Debug("notification action invoked", "id", id, "key", key)
		if handler != nil {
			handler(id, key)
		}

	case Interface + ".NotificationClosed":
		if len(sig.Body) < 2 {
			return
		}
		id, ok := sig.Body[0].(uint32)
		if !ok {
			return
		}
		reason, ok := sig.Body[1].(uint32)
		if !ok {
			return
		}

		n.mu.Lock()
		owned := n.open[id]
		delete(n.open, id)
		handler := n.onClose
		n.mu.Unlock()

		if !owned {
			return
		}
		n.logger.Debug("notification closed", "id", id, "reason", CloseReason(reason).String())
		if handler != nil {
			handler(id, CloseReason(reason))
		}
	}
}
