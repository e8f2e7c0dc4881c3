package control

import (
	"sync"

	"github.com/afroash/storm-antenna/internal/models"
)

// OverrideStore holds the manual override flags. Flags never expire; only
// ResetAll or a process restart clears them.
type OverrideStore struct {
	mutex sync.RWMutex
	state models.OverrideState
}

// NewOverrideStore creates a store with every flag cleared
func NewOverrideStore() *OverrideStore {
	return &OverrideStore{}
}

// Get returns a copy of the current flags
func (s *OverrideStore) Get() models.OverrideState {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

// SetFlag marks a channel as manually controlled
func (s *OverrideStore) SetFlag(ch models.Channel) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.state = s.state.With(ch, true)
}

// ResetAll clears every flag in one step
func (s *OverrideStore) ResetAll() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.state = models.OverrideState{}
}
