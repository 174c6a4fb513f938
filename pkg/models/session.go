package models

import "time"

// Session groups the chat messages and workflows of one conversation.
type Session struct {
	ID        string    `json:"id" db:"id"`                 // UUID
	Title     string    `json:"title" db:"title"`           // Display title (derived from the first task if empty)
	CreatedAt time.Time `json:"created_at" db:"created_at"` // Creation timestamp
}

// Message is a single entry in a session's append-only chat log.
type Message struct {
	ID        string            `json:"id" db:"id"`                   // UUID
	SessionID string            `json:"session_id" db:"session_id"`   // Foreign key to Session
	Role      string            `json:"role" db:"role"`               // "user" or "assistant"
	Content   string            `json:"content" db:"content"`         // Message text
	Metadata  map[string]string `json:"metadata,omitempty" db:"-"`    // Free-form annotations (agent type, workflow id)
	CreatedAt time.Time         `json:"created_at" db:"created_at"`   // Creation timestamp
}
