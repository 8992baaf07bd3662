package models

import "time"

// Registration statuses as stored by the platform. Status transitions are
// performed by the review flow, not by this client.
const (
	RegistrationPending  = "pending"
	RegistrationApproved = "approved"
	RegistrationRejected = "rejected"
)

// Registration represents one participant's event signup. Immutable once
// created except for status transitions.
type Registration struct {
	ID        string            `json:"id"`
	EventID   string            `json:"event_id"`
	UserID    string            `json:"user_id"`
	User      *User             `json:"user,omitempty"`
	Status    string            `json:"status"`
	Answers   map[string]string `json:"answers"` // question id -> answer
	CreatedAt time.Time         `json:"created_at"`
}

// User is the participant behind a registration.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Answer returns the answer for a question id, or "" when the participant
// never saw that question (schema changed after signup).
func (r *Registration) Answer(questionID string) string {
	if r.Answers == nil {
		return ""
	}
	return r.Answers[questionID]
}
