// Package runlog keeps an in-memory record of reconciliation passes for the
// status UI. Records are not persisted; a restart starts the history empty.
package runlog

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

type PassStatus string

const (
	StatusRunning   PassStatus = "running"
	StatusCompleted PassStatus = "completed"
	StatusFailed    PassStatus = "failed"
)

// Pass is one execution of the deadline reconciler.
type Pass struct {
	ID         string
	Status     PassStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Rows       int // task rows fetched
	Fired      int // milestone keys that triggered this pass
	Sent       int // direct messages delivered
	Logs       []LogEntry
}

type LogEntry struct {
	Timestamp time.Time
	Level     string // info, error, success
	Message   string
}

// Store holds pass records with thread-safe access.
type Store struct {
	mu     sync.RWMutex
	passes map[string]*Pass
}

func NewStore() *Store {
	return &Store{
		passes: make(map[string]*Pass),
	}
}

// Begin records the start of a pass and returns its ID. When a pass with the
// same ID already exists the ID gets a numeric suffix so the earlier record
// survives.
func (s *Store) Begin(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	unique := id
	for n := 2; ; n++ {
		if _, taken := s.passes[unique]; !taken {
			break
		}
		unique = fmt.Sprintf("%s-%d", id, n)
	}
	s.passes[unique] = &Pass{
		ID:        unique,
		Status:    StatusRunning,
		StartedAt: time.Now(),
	}
	return unique
}

// Get retrieves a pass by ID.
func (s *Store) Get(id string) (*Pass, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.passes[id]
	return p, ok
}

// List returns all passes sorted by start time descending.
func (s *Store) List() []*Pass {
	s.mu.RLock()
	defer s.mu.RUnlock()
	passes := make([]*Pass, 0, len(s.passes))
	for _, p := range s.passes {
		passes = append(passes, p)
	}
	sort.Slice(passes, func(i, j int) bool {
		return passes[i].StartedAt.After(passes[j].StartedAt)
	})
	return passes
}

// AddLog appends a log entry to a pass.
func (s *Store) AddLog(id, level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.passes[id]; ok {
		p.Logs = append(p.Logs, LogEntry{
			Timestamp: time.Now(),
			Level:     level,
			Message:   message,
		})
	}
}

// Finish closes a pass with its final status and counters.
func (s *Store) Finish(id string, status PassStatus, rows, fired, sent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.passes[id]; ok {
		p.Status = status
		p.Rows = rows
		p.Fired = fired
		p.Sent = sent
		p.FinishedAt = time.Now()
	}
}
