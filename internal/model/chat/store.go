package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store persists messages. Insert assigns the id and timestamp.
type Store interface {
	Insert(ctx context.Context, sender, receiver, content string) (Message, error)
	QueryByParticipant(ctx context.Context, identity string) ([]Message, error)
}

// MemoryStore implements Store with an in-memory slice, suitable for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []Message
	last     time.Time
	now      func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make([]Message, 0, 64),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Insert appends a new message.
func (s *MemoryStore) Insert(_ context.Context, sender, receiver, content string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// wall clock may step backwards; keep createdAt non-decreasing
	createdAt := s.now()
	if createdAt.Before(s.last) {
		createdAt = s.last
	}
	s.last = createdAt

	msg := Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		CreatedAt: createdAt,
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

// QueryByParticipant returns every message sent or received by identity in insertion order.
func (s *MemoryStore) QueryByParticipant(_ context.Context, identity string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Message, 0)
	for _, msg := range s.messages {
		if msg.Involves(identity) {
			result = append(result, msg)
		}
	}
	return result, nil
}

// Len returns the number of stored messages.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
