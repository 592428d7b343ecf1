// Package models defines the data structures for conversation turns and
// transcript events.
package models

import "time"

// Turn roles. Seed persona turns use RoleSystem and are excluded from
// caller-facing transcripts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one utterance in a conversation. Immutable once created.
type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn stamped with the current time.
func NewTurn(role, text string) Turn {
	return Turn{Role: role, Text: text, Timestamp: time.Now().UTC()}
}

// TurnEvent is published for every user/assistant turn appended to a live call.
type TurnEvent struct {
	EventType string `json:"eventType"`
	CallID    string `json:"callId"`
	StreamID  string `json:"streamId"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// CallEndedEvent is published once when a call is archived.
type CallEndedEvent struct {
	EventType string `json:"eventType"`
	CallID    string `json:"callId"`
	StreamID  string `json:"streamId"`
	Turns     int    `json:"turns"`
	StartedAt int64  `json:"startedAt"`
	EndedAt   int64  `json:"endedAt"`
}
