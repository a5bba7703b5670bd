package types

import "time"

// ReadingMessage is the queue payload for asynchronous reading evaluation.
// The API publishes it to the readings queue; the reading worker consumes it.
type ReadingMessage struct {
	ReadingID   string    `json:"reading_id"`
	Reading     Reading   `json:"reading"`
	Location    string    `json:"location,omitempty"`
	Coordinates string    `json:"coordinates,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
	TraceID     string    `json:"trace_id,omitempty"`
}
