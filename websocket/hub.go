package websocket

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// Conn is the slice of a websocket connection the hub needs.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// sendBuffer bounds how many undelivered events a slow consumer can hold
// before further events are dropped.
const sendBuffer = 16

// Client pairs a connection with its account. The underlying websocket
// connection tolerates at most one concurrent writer, so every outbound
// event goes through the send channel and is written by a single goroutine.
type Client struct {
	UserID uuid.UUID
	Conn   Conn
	send   chan Event
}

func NewClient(userID uuid.UUID, conn Conn) *Client {
	return &Client{UserID: userID, Conn: conn, send: make(chan Event, sendBuffer)}
}

// writePump is the connection's only writer. It drains the send channel
// until the hub closes it, or tears the client down on a failed write.
func (c *Client) writePump(h *Hub) {
	for event := range c.send {
		if err := c.Conn.WriteJSON(event); err != nil {
			log.Printf("Error sending event to client %s: %v", c.UserID, err)
			c.Conn.Close()
			h.Remove(c)
			return
		}
	}
}

type Event struct {
	Event   string      `json:"event"`
	ChatID  uuid.UUID   `json:"chat_id"`
	Payload interface{} `json:"payload"`
}

// Hub maps connected clients to account identities and chat channels. It is
// an ephemeral routing cache, never a source of truth: clients re-identify
// and re-subscribe on reconnect, so losing it on restart is acceptable.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
	rooms   map[uuid.UUID]map[uuid.UUID]*Client
}

var DefaultHub = NewHub()

func NewHub() *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*Client),
		rooms:   make(map[uuid.UUID]map[uuid.UUID]*Client),
	}
}

// Add registers a client under its account id and starts its writer. Any
// previous connection for the same account is detached.
func (h *Hub) Add(client *Client) {
	h.mu.Lock()
	if prev, ok := h.clients[client.UserID]; ok {
		h.detach(prev)
	}
	h.clients[client.UserID] = client
	h.mu.Unlock()
	go client.writePump(h)
}

// detach unregisters a client, drops its channel subscriptions and closes
// its send channel, stopping the writer. Caller must hold the write lock;
// holding it while closing ensures no sender can race the close.
func (h *Hub) detach(client *Client) {
	delete(h.clients, client.UserID)
	for chatID, members := range h.rooms {
		if members[client.UserID] == client {
			delete(members, client.UserID)
			if len(members) == 0 {
				delete(h.rooms, chatID)
			}
		}
	}
	close(client.send)
}

// Remove unregisters a client. A stale client whose connection was already
// replaced is left alone.
func (h *Hub) Remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	current, ok := h.clients[client.UserID]
	if !ok || current != client {
		return
	}
	h.detach(client)
}

// Join subscribes a connected account to a chat channel. Returns false when
// the account has no live connection.
func (h *Hub) Join(chatID, userID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[userID]
	if !ok {
		return false
	}
	members, ok := h.rooms[chatID]
	if !ok {
		members = make(map[uuid.UUID]*Client)
		h.rooms[chatID] = members
	}
	members[userID] = client
	return true
}

// Leave unsubscribes an account from a chat channel.
func (h *Hub) Leave(chatID, userID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[chatID]
	if !ok {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(h.rooms, chatID)
	}
}

// Broadcast queues an event for every account subscribed to the chat channel
// except the sender. A client whose buffer is full has the event dropped; it
// catches up from the conversation history on its next fetch.
func (h *Hub) Broadcast(chatID, senderID uuid.UUID, event string, payload interface{}) {
	msg := Event{Event: event, ChatID: chatID, Payload: payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for userID, client := range h.rooms[chatID] {
		if userID == senderID {
			continue
		}
		h.enqueue(client, msg)
	}
}

// Notify queues an event for one account's connection, if any.
func (h *Hub) Notify(userID uuid.UUID, msg Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, ok := h.clients[userID]; ok {
		h.enqueue(client, msg)
	}
}

// enqueue hands an event to a client's writer. Caller must hold at least the
// read lock, which guarantees the send channel is still open.
func (h *Hub) enqueue(client *Client, msg Event) {
	select {
	case client.send <- msg:
	default:
		log.Printf("⚠️ Dropping %q event for client %s: send buffer full", msg.Event, client.UserID)
	}
}

// Subscribers returns the accounts currently subscribed to a chat channel.
func (h *Hub) Subscribers(chatID uuid.UUID) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(h.rooms[chatID]))
	for userID := range h.rooms[chatID] {
		ids = append(ids, userID)
	}
	return ids
}
