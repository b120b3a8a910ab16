package model

import "time"

// DefaultNotificationTitle is used when a push event arrives without a title.
const DefaultNotificationTitle = "New notification"

// Notification represents a single push event surfaced to the user.
// Notifications exist only in memory for the lifetime of the process;
// ids are locally generated on arrival since the push source does not
// guarantee one.
type Notification struct {
	// ID is the locally assigned unique identifier for this notification.
	ID string `json:"id"`

	// Title is the human-readable heading. Falls back to
	// DefaultNotificationTitle when the push payload carries none.
	Title string `json:"title"`

	// Message is the notification body text.
	Message string `json:"message"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`

	// CreatedAt is the local receipt time. The push source provides no
	// server timestamp.
	CreatedAt time.Time `json:"created_at"`

	// Data carries the raw push payload for downstream routing.
	Data map[string]any `json:"data,omitempty"`
}
