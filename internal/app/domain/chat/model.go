// Package chat defines assistant conversation records.
package chat

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a user's assistant conversation. Feedback is nil
// until the user rates the reply (+1 / -1).
type Message struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Feedback  *int      `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
