// Package notification defines user-facing event records.
package notification

import "time"

// Notification is a single inbox entry, produced by trades and alert
// triggers.
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Type      string            `json:"type"` // "trade", "alert", "system"
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}
