package comm

import (
	"encoding/json"
)

const (
	// EventsTopic carries analytics and domain events from the web service.
	EventsTopic = "kidzone.events"
	// EventsQueue is the queue group of the analytics consumers.
	EventsQueue = "analytics"
)

// WSMessage is the envelope used on websockets and on NATS subjects.
type WSMessage struct {
	Type     string          `json:"type"` // e.g. "event", "chat", "chat-response"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

type ChatRequest struct {
	FriendID string `json:"friend_id"`
	Message  string `json:"message"`
}

type ChatResponse struct {
	FriendID string `json:"friend_id"`
	Reply    string `json:"reply"`
	Source   string `json:"source"`
}

type ErrorData struct {
	Error string `json:"error"`
}

// Envelope marshals data into a WSMessage of type t.
func Envelope(t string, data interface{}, socketId string) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&WSMessage{Type: t, Data: raw, SocketId: socketId})
}
