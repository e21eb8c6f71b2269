package domain

import (
	"sync"
	"time"
)

// Session is the per-connection state. The identity is resolved once at
// accept time and never re-derived per event; an empty identity means the
// connection is counted for presence only and may not join rooms.
type Session struct {
	ID           string
	Identity     string
	rooms        map[string]struct{}
	CreatedAt    time.Time
	LastActiveAt time.Time
	mu           sync.RWMutex
}

func NewSession(id, identity string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Identity:     identity,
		rooms:        make(map[string]struct{}),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

func (s *Session) IsAuthenticated() bool {
	return s.Identity != ""
}

func (s *Session) JoinRoom(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[taskID] = struct{}{}
	s.LastActiveAt = time.Now()
}

func (s *Session) LeaveRoom(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, taskID)
	s.LastActiveAt = time.Now()
}

func (s *Session) LeaveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = make(map[string]struct{})
}

func (s *Session) InRoom(taskID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[taskID]
	return ok
}

// Rooms returns a snapshot of the joined task IDs.
func (s *Session) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rooms))
	for taskID := range s.rooms {
		out = append(out, taskID)
	}
	return out
}

func (s *Session) RoomCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
