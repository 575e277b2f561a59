package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound indicates an unknown or already torn down session.
var ErrSessionNotFound = errors.New("swap session not found")

// Store keeps in-progress walk-in sessions in memory. There is exactly one
// writer per session (the wizard instance driving it); the lock only protects
// the map against concurrent wizards for different sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*SwapSession
}

// NewStore returns initialized store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*SwapSession)}
}

// Create registers a fresh walk-in session at the first wizard step.
func (s *Store) Create() *SwapSession {
	now := time.Now().UTC()
	sess := &SwapSession{
		ID:                 uuid.NewString(),
		IsWalkin:           true,
		BatteryCheckStatus: CheckUnchecked,
		Step:               StepCheckIn,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return snapshot(sess)
}

// Get returns a copy of the accumulated record.
func (s *Store) Get(id string) (*SwapSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return snapshot(sess), nil
}

// Update merges one field into the record under the store lock.
func (s *Store) Update(id, key string, value interface{}) (*SwapSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := sess.Set(key, value); err != nil {
		return nil, err
	}
	sess.UpdatedAt = time.Now().UTC()
	return snapshot(sess), nil
}

// Apply runs fn against the live record, for step handlers that mutate several
// fields as one unit. fn must not retain the pointer.
func (s *Store) Apply(id string, fn func(*SwapSession) error) (*SwapSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if err := fn(sess); err != nil {
		return nil, err
	}
	sess.UpdatedAt = time.Now().UTC()
	return snapshot(sess), nil
}

// SetPaymentOutcome writes the derived payment outcome into the session's
// payment slot. Paid requires a compatible battery check and a created
// invoice; a paid outcome never regresses. Unknown sessions are ignored, so a
// late delivery for a torn-down session is a no-op.
func (s *Store) SetPaymentOutcome(sessionID, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	if sess.PaymentOutcome == OutcomePaid {
		return
	}
	if outcome == OutcomePaid && (sess.BatteryCheckStatus != CheckCompatible || sess.InvoiceID == "") {
		return
	}
	sess.PaymentOutcome = outcome
	sess.UpdatedAt = time.Now().UTC()
}

// Delete discards the session. Further lookups return ErrSessionNotFound.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// List returns copies of all in-progress sessions.
func (s *Store) List() []*SwapSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*SwapSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		result = append(result, snapshot(sess))
	}
	return result
}

func snapshot(sess *SwapSession) *SwapSession {
	copySess := *sess
	return &copySess
}
