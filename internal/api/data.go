package api

// Hypothesis is one recognition variant sent to the websocket client.
type Hypothesis struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type Result struct {
	Hypotheses []Hypothesis `json:"hypotheses"`
	Final      bool         `json:"final"`
}

// FullResult is one message on the client websocket - either a recognition
// result or a lifecycle event.
type FullResult struct {
	Status          int    `json:"status"`
	Result          Result `json:"result,omitempty"`
	SessionID       string `json:"session-id,omitempty"`
	TranscriptionID string `json:"transcription-id,omitempty"`
	Event           string `json:"event,omitempty"`
	Error           string `json:"error,omitempty"`
}

const (
	EventStarted = "TRANSCRIPTION_STARTED"
	EventStop    = "STOP_TRANSCRIPTION"
	EventStopped = "TRANSCRIPTION_STOPPED"
	EventError   = "TRANSCRIPTION_ERROR"
)
