package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHubPublishRespectsTopics(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	all := NewClient(hub, nil, "", "u1")
	manuscripts := NewClient(hub, nil, TopicManuscripts, "u2")
	contacts := NewClient(hub, nil, TopicContacts, "u3")
	for _, c := range []*Client{all, manuscripts, contacts} {
		require.True(t, hub.Join(c))
	}

	hub.Publish(TopicManuscripts, "manuscript_created", map[string]string{"id": "m1"})

	m := receive(t, all)
	assert.Equal(t, "manuscript_created", m.Action)
	m = receive(t, manuscripts)
	assert.Equal(t, "manuscript_created", m.Action)
	assert.Equal(t, map[string]interface{}{"id": "m1"}, m.Payload)

	select {
	case <-contacts.Send:
		t.Fatal("contacts subscriber must not receive manuscript events")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub()
	stopped := make(chan struct{})
	go func() {
		hub.Run()
		close(stopped)
	}()

	c := NewClient(hub, nil, "", "u1")
	require.True(t, hub.Join(c))
	hub.Stop()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	_, ok := <-c.Send
	assert.False(t, ok)
	assert.False(t, c.Enqueue([]byte("late")))
	assert.False(t, hub.Join(NewClient(hub, nil, "", "u2")))

	// Publishing after stop must not block or panic.
	hub.Publish(TopicEvents, "noop", nil)
}

func TestMessages(t *testing.T) {
	var m Message
	require.NoError(t, json.Unmarshal(NewErrorMessage("bad"), &m))
	assert.Equal(t, "error", m.Action)
	assert.Equal(t, map[string]interface{}{"error": "bad"}, m.Payload)

	require.NoError(t, json.Unmarshal(NewPongMessage(), &m))
	assert.Equal(t, "pong", m.Action)
}
