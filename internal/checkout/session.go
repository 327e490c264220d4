package checkout

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("checkout: session not found")

// Session is a persisted checkout: the machine plus what the client needs
// to drive the gateway SDK.
type Session struct {
	Machine
	ID          string    `json:"id"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	UserID      string    `json:"userId,omitempty"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	RedirectURL string    `json:"redirectUrl"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store persists sessions. Update runs fn against the stored session and
// saves the result atomically; if fn returns an error nothing is saved.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
}

type memEntry struct {
	session Session
	expires time.Time
}

// MemoryStore keeps sessions in process. Expired sessions are dropped
// lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, entries: map[string]memEntry{}, now: time.Now}
}

func (s *MemoryStore) get(id string) (memEntry, bool) {
	e, ok := s.entries[id]
	if !ok {
		return e, false
	}
	if s.ttl > 0 && s.now().After(e.expires) {
		delete(s.entries, id)
		return e, false
	}
	return e, true
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	out := e.session
	return &out, nil
}

func (s *MemoryStore) Put(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.UpdatedAt = s.now()
	s.entries[sess.ID] = memEntry{session: *sess, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fn func(*Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess := e.session
	if err := fn(&sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = s.now()
	s.entries[id] = memEntry{session: sess, expires: s.now().Add(s.ttl)}
	out := sess
	return &out, nil
}
