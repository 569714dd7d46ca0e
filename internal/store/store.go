// Package store keeps a log of provider exchanges.
//
// DESIGN: One Exchange row per Dispatch call: provider, model, outcome kind,
// latency. Message text and credentials are never stored (the gateway keeps
// no conversation memory). Rows expire after a TTL.
//
// Implementations:
//   - MemoryStore: in-process map with periodic TTL cleanup
//   - SQLiteStore: modernc.org/sqlite file, survives restarts
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/compresr/chat-gateway/internal/config"
)

// DefaultTTL is the retention used when none is configured.
const DefaultTTL = 24 * time.Hour

// Exchange is one recorded provider exchange.
type Exchange struct {
	RequestID  string    `json:"request_id"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model,omitempty"`
	Success    bool      `json:"success"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Retryable  bool      `json:"retryable,omitempty"`
	StatusCode int       `json:"status_code,omitempty"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines the interface for exchange storage.
type Store interface {
	// Record stores an exchange.
	Record(ex *Exchange) error

	// Recent returns up to limit unexpired exchanges, newest first.
	Recent(limit int) ([]Exchange, error)

	// Prune removes expired exchanges and returns how many were removed.
	Prune() (int, error)

	// Close cleans up resources.
	Close() error
}

// New creates the store selected by cfg.Type.
func New(cfg config.StoreConfig) (Store, error) {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(ttl), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path, ttl)
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Type)
	}
}

// MemoryStore is a simple in-memory implementation of Store.
type MemoryStore struct {
	rows     []Exchange
	mu       sync.RWMutex
	ttl      time.Duration
	stopChan chan struct{}
	stopped  bool
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}

	go s.cleanup()

	return s
}

// Record stores an exchange.
func (s *MemoryStore) Record(ex *Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}

	row := *ex
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	s.rows = append(s.rows, row)
	return nil
}

// Recent returns up to limit unexpired exchanges, newest first.
func (s *MemoryStore) Recent(limit int) ([]Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-s.ttl)
	out := make([]Exchange, 0, len(s.rows))
	for _, row := range s.rows {
		if row.CreatedAt.After(cutoff) {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Prune removes expired exchanges.
func (s *MemoryStore) Prune() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(time.Now()), nil
}

func (s *MemoryStore) pruneLocked(now time.Time) int {
	cutoff := now.Add(-s.ttl)
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.CreatedAt.After(cutoff) {
			kept = append(kept, row)
		}
	}
	removed := len(s.rows) - len(kept)
	s.rows = kept
	return removed
}

// Close stops the cleanup goroutine and clears data.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.stopped {
		s.stopped = true
		close(s.stopChan)
		s.rows = nil
	}
	return nil
}

// cleanup periodically removes expired entries.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			if !s.stopped {
				s.pruneLocked(now)
			}
			s.mu.Unlock()
		}
	}
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
