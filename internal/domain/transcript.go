package domain

import "time"

// Transcript is one finished transcription kept in the store.
type Transcript struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	SessionID string    `json:"sessionId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
