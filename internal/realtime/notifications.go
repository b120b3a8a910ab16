package realtime

import "github.com/ndthang/campusfind/internal/model"

// Notifications returns a snapshot of the collection, most recent
// first.
func (c *Channel) Notifications() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Notification, len(c.notifications))
	copy(out, c.notifications)
	return out
}

// MarkRead flips the read flag for a single notification. Idempotent;
// an unknown id is a no-op.
func (c *Channel) MarkRead(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.notifications {
		if c.notifications[i].ID == id {
			c.notifications[i].Read = true
			return
		}
	}
}

// MarkAllRead flips the read flag for every notification.
func (c *Channel) MarkAllRead() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.notifications {
		c.notifications[i].Read = true
	}
}

// ClearAll empties the collection. Irreversible; there is no undo and
// no server-side replay.
func (c *Channel) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = nil
}

// UnreadCount counts the notifications not yet read. Always computed
// live from the collection, never a stored counter.
func (c *Channel) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for i := range c.notifications {
		if !c.notifications[i].Read {
			count++
		}
	}
	return count
}
