package realtime

import "github.com/gen2brain/beeep"

// Notifier raises a local device alert for an inbound notification.
// Fire-and-forget: there is no acknowledgment channel back.
type Notifier interface {
	Notify(title, message string) error
}

// DesktopNotifier shows alerts through the platform notification
// surface.
type DesktopNotifier struct{}

// Notify displays a desktop notification.
func (DesktopNotifier) Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}

// NopNotifier discards alerts. Used when local alerts are disabled in
// the client configuration.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(title, message string) error {
	return nil
}
