package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"sky-trace/internal/models"
)

// Store keeps live sessions in memory with a sliding idle TTL. Nothing is
// persisted: when a session expires or the process restarts, the
// conversation is gone, which is the intended product behavior.
type Store struct {
	c   *cache.Cache
	ttl time.Duration
}

// NewStore creates a store whose sessions expire after ttl of idleness.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		c:   cache.New(ttl, 10*time.Minute),
		ttl: ttl,
	}
}

// Create opens a fresh session in the COLLECTING state.
func (s *Store) Create() *Session {
	sess := newSession(uuid.NewString())
	s.c.Set(sess.ID, sess, cache.DefaultExpiration)
	return sess
}

// Get returns a live session and slides its expiry forward.
func (s *Store) Get(id string) (*Session, error) {
	v, ok := s.c.Get(id)
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	sess := v.(*Session)
	// Any access counts as activity.
	s.c.Set(id, sess, cache.DefaultExpiration)
	return sess, nil
}

// Count reports the number of stored sessions. Expired entries may linger
// until the next cleanup sweep.
func (s *Store) Count() int {
	return s.c.ItemCount()
}
