package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tabletalk/tabletalk/internal/chat"
)

// Session owns one live conversation. The embedded mutex serializes turns:
// a conversation is never worked on by two goroutines at once, so a second
// request for the same session simply waits its turn.
type Session struct {
	ID string

	mu   sync.Mutex
	conv *chat.Conversation
}

// WithConversation runs fn with exclusive access to the session's
// conversation state.
func (s *Session) WithConversation(fn func(conv *chat.Conversation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.conv)
}

// Registry tracks live sessions by ID.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*Session{}}
}

func (r *Registry) Create() *Session {
	id := uuid.NewString()
	session := &Session{ID: id, conv: chat.NewConversation(id)}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = session
	return session
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
