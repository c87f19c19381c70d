package model

import "time"

// ChatRole identifies who authored a chat turn.
type ChatRole string

const (
	RoleUser    ChatRole = "user"
	RoleAdvisor ChatRole = "advisor"
)

// ChatMessage is one turn of an advisory conversation. Messages are immutable once
// created and Position is their zero-based index in the transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	Position  int       `json:"position"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdvisorySuggestion is a pre-computed recommendation shown next to the chat.
type AdvisorySuggestion struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}
