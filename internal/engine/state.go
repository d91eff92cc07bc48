package engine

import (
	"sync"
	"time"

	"trapline/internal/broker"
	"trapline/internal/oracle"
)

// TriggerOrder is an armed-but-unconfirmed conditional order. A nil pointer
// means no trigger is pending; ArmedAt is set exactly when a trigger exists.
type TriggerOrder struct {
	Action  broker.Side
	Price   float64
	Reason  string
	ArmedAt time.Time
}

// RuntimeState is the per-profile state the core owns across cycles. It lives
// in process memory only: a restart drops any armed trap.
type RuntimeState struct {
	Relevance int
	Memory    string
	Trigger   *TriggerOrder
}

func defaultState() RuntimeState {
	return RuntimeState{Relevance: 1, Memory: oracle.FirstRunMemory}
}

// StateStore holds runtime state keyed by profile ID. All access goes through
// the mutex: the trading cycle mutates, background loops may read.
type StateStore struct {
	mu     sync.Mutex
	states map[string]RuntimeState
}

func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]RuntimeState)}
}

// Snapshot returns a copy of the profile's state, creating the default on
// first sight.
func (s *StateStore) Snapshot(profileID string) RuntimeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[profileID]
	if !ok {
		st = defaultState()
		s.states[profileID] = st
	}
	if st.Trigger != nil {
		cp := *st.Trigger
		st.Trigger = &cp
	}
	return st
}

// SetMemory overwrites memory and relevance unconditionally.
func (s *StateStore) SetMemory(profileID, memory string, relevance int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[profileID]
	if !ok {
		st = defaultState()
	}
	st.Memory = memory
	st.Relevance = relevance
	s.states[profileID] = st
}

// SetTrigger arms a trigger, replacing any pending one.
func (s *StateStore) SetTrigger(profileID string, t *TriggerOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[profileID]
	if !ok {
		st = defaultState()
	}
	st.Trigger = t
	s.states[profileID] = st
}

// ClearTrigger drops the pending trigger, if any.
func (s *StateStore) ClearTrigger(profileID string) {
	s.SetTrigger(profileID, nil)
}
