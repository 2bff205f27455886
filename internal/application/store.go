package application

import (
	"sync"

	"github.com/seesaw/mfses/internal/report"
)

// ResultStore holds the most recent run payload for the HTTP layer. It
// satisfies handlers.ResultSource.
type ResultStore struct {
	mu      sync.RWMutex
	payload report.Payload
	set     bool
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) Publish(p report.Payload) {
	s.mu.Lock()
	s.payload = p
	s.set = true
	s.mu.Unlock()
}

func (s *ResultStore) LatestPayload() (report.Payload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.payload, s.set
}
