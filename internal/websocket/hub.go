package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Topics clients may subscribe to. A client without a topic receives everything.
const (
	TopicManuscripts = "manuscripts"
	TopicContacts    = "contacts"
	TopicEvents      = "events"
)

type topicMessage struct {
	topic string
	data  []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound messages tagged with their topic.
	broadcast chan topicMessage

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	done chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan topicMessage, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Str("topic", client.Topic).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				log.Info().Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				if client.Topic != "" && client.Topic != msg.topic {
					continue
				}
				if !client.Enqueue(msg.data) {
					// Slow consumer; disconnect instead of blocking the hub.
					h.drop(client)
				}
			}
		case <-h.done:
			for client := range h.clients {
				h.drop(client)
			}
			return
		}
	}
}

// Stop terminates Run and closes every client's send channel. Call it once.
func (h *Hub) Stop() {
	close(h.done)
}

// Publish encodes a Message and queues it for every client interested in topic.
// It never blocks the caller; messages are dropped when the queue is full.
func (h *Hub) Publish(topic, action string, payload interface{}) {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket message")
		return
	}
	select {
	case h.broadcast <- topicMessage{topic: topic, data: data}:
	case <-h.done:
	default:
		log.Warn().Str("action", action).Msg("Websocket broadcast queue full, dropping message")
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	client.close()
}

// Join registers client with a running hub. It reports false once the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}
