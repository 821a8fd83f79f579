package notify

import (
	"github.com/godbus/dbus/v5"
)

const (
	// Interface is the notification interface name.
	Interface = "org.freedesktop.Notifications"
	// Path is the notification object path.
	Path = "/org/freedesktop/Notifications"
	// BusName is the well-known name of the notification server.
	BusName = "org.freedesktop.Notifications"
)

// Urgency levels from the freedesktop.org notification specification.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// CloseReason represents the reason the server closed a notification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification expired (timeout reached).
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates the notification was closed via CloseNotification.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved/undefined.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Action is a button offered on a notification.
type Action struct {
	Key   string
	Label string
}

// Notification is the content of a Notify call.
type Notification struct {
	Summary  string
	Body     string
	Icon     string
	Urgency  byte
	Category string
	Actions  []Action

	// Resident notifications stay open after an action is invoked.
	Resident bool
	// Transient notifications bypass the server's history.
	Transient bool
	// ExpireTimeout in milliseconds: -1 = server default, 0 = never expire.
	ExpireTimeout int32
}

// Hints builds the hints dictionary for the Notify call.
func (n Notification) Hints() map[string]dbus.Variant {
	hints := map[string]dbus.Variant{
		"urgency": dbus.MakeVariant(n.Urgency),
	}
	if n.Category != "" {
		hints["category"] = dbus.MakeVariant(n.Category)
	}
	if n.Resident {
		hints["resident"] = dbus.MakeVariant(true)
	}
	if n.Transient {
		hints["transient"] = dbus.MakeVariant(true)
	}
	return hints
}

// actionList flattens actions into the alternating key, label array D-Bus expects.
func (n Notification) actionList() []string {
	list := make([]string, 0, len(n.Actions)*2)
	for _, a := range n.Actions {
		list = append(list, a.Key, a.Label)
	}
	return list
}
