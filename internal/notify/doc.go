// Package notify sends desktop notifications through the
// org.freedesktop.Notifications D-Bus interface and reports the actions
// the user invokes on them.
package notify
