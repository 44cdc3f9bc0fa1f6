// Package memory provides per-session conversational history for the
// info handler.
package memory

import (
	"sync"
	"time"
)

// Turn is one question/answer exchange.
type Turn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// Store keeps ordered turns keyed by session identifier. Writes for a
// session only ever come from requests carrying that identifier; the store
// itself serializes concurrent access.
type Store interface {
	// Append records one completed turn.
	Append(sessionID, question, answer string)

	// History returns the session's turns in order, oldest first.
	History(sessionID string) []Turn
}

// InMemoryStore is the process-local Store. Sessions are created on first
// append and live for the process lifetime.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]Turn)}
}

func (s *InMemoryStore) Append(sessionID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], Turn{
		Question:  question,
		Answer:    answer,
		Timestamp: time.Now(),
	})
}

func (s *InMemoryStore) History(sessionID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
