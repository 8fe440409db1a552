package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewErrorMessage encodes an error reply.
func NewErrorMessage(msg string) []byte {
	return encode(Message{Action: "error", Payload: map[string]string{"error": msg}})
}

// NewPongMessage encodes the reply to a client ping.
func NewPongMessage() []byte {
	return encode(Message{Action: "pong"})
}

func encode(m Message) []byte {
	b, _ := json.Marshal(m)
	return b
}
