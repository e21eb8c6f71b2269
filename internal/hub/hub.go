package hub

import (
	"encoding/json"
	"sync"

	"github.com/letscodeshivansh/taskchat/internal/logging"
)

// Hub maps every live connection to the task rooms it observes and fans
// events out to room members. All membership mutations are synchronous under
// one lock: when Unregister returns, no room still references the client.
type Hub struct {
	clients map[string]*Client            // connID -> client
	rooms   map[string]map[string]*Client // taskID -> connID -> client
	mu      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

// Register adds the client to the global connection set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	l := logging.L()
	l.Debug().Str(logging.FieldConnID, c.ID).Msg("client registered")
}

// Unregister removes the client from every room and the global set, and
// closes its send channel. Idempotent: a second call is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	if ok {
		for taskID, members := range h.rooms {
			delete(members, c.ID)
			if len(members) == 0 {
				delete(h.rooms, taskID)
			}
		}
		delete(h.clients, c.ID)
		c.closeSend()
	}
	h.mu.Unlock()

	if ok {
		l := logging.L()
		l.Debug().Str(logging.FieldConnID, c.ID).Msg("client unregistered")
	}
}

// JoinRoom subscribes the client to a task's room. Idempotent.
func (h *Hub) JoinRoom(c *Client, taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	if _, ok := h.rooms[taskID]; !ok {
		h.rooms[taskID] = make(map[string]*Client)
	}
	h.rooms[taskID][c.ID] = c
}

// LeaveRoom unsubscribes the client from a task's room. Idempotent.
func (h *Hub) LeaveRoom(c *Client, taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[taskID]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, taskID)
		}
	}
}

// LeaveAll unsubscribes the client from every room it joined.
func (h *Hub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for taskID, members := range h.rooms {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, taskID)
		}
	}
}

// BroadcastToTask delivers the event to every member of the task's room
// except the excluded connection. A member with a full send buffer misses
// the event and is torn down without affecting the remaining members.
func (h *Hub) BroadcastToTask(taskID string, event interface{}, excludeConnID string) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	members, ok := h.rooms[taskID]
	if !ok {
		h.mu.RUnlock()
		return nil
	}
	var stalled []*Client
	for connID, client := range members {
		if connID == excludeConnID {
			continue
		}
		select {
		case client.Send <- data:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		go client.Teardown()
	}
	return nil
}

// BroadcastToIdentity delivers the event only to room members whose session
// identity matches. Used by the recipient-only delivery mode.
func (h *Hub) BroadcastToIdentity(taskID, identity string, event interface{}, excludeConnID string) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	members, ok := h.rooms[taskID]
	if !ok {
		h.mu.RUnlock()
		return nil
	}
	var stalled []*Client
	for connID, client := range members {
		if connID == excludeConnID || client.Session.Identity != identity {
			continue
		}
		select {
		case client.Send <- data:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		go client.Teardown()
	}
	return nil
}

// BroadcastAll delivers the event to every live connection, rooms or not.
func (h *Hub) BroadcastAll(event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var stalled []*Client
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stalled {
		go client.Teardown()
	}
	return nil
}

// RoomMembers returns the connection IDs currently subscribed to the task.
func (h *Hub) RoomMembers(taskID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.rooms[taskID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(members))
	for connID := range members {
		out = append(out, connID)
	}
	return out
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
