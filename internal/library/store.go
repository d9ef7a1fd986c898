// File: internal/library/store.go
// Package library maintains the client-side view of the saved phishlet
// collection: remote CRUD, most-recent-first ordering, search filtering,
// and the confirmation gate in front of deletes.
package library

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rtlsec/phishletgen-cli/api/schemas"
)

// Remote is the slice of the transport client the store drives.
type Remote interface {
	ListPhishlets(ctx context.Context) (*schemas.SavedPhishletList, error)
	SavePhishlet(ctx context.Context, create schemas.SavedPhishletCreate) (*schemas.SavedPhishlet, error)
	GetPhishlet(ctx context.Context, id string) (*schemas.SavedPhishlet, error)
	DeletePhishlet(ctx context.Context, id string) error
}

// ErrDeleteNotRequested means ConfirmDelete was called without a prior
// RequestDelete for that id. Deletes are destructive and require the
// explicit two-step protocol.
var ErrDeleteNotRequested = fmt.Errorf("delete was not requested for this entry")

// Store is the in-memory library collection. Safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	entries       []schemas.SavedPhishlet
	pendingDelete map[string]struct{}

	remote Remote
	logger *zap.Logger
}

// New builds an empty store; call Refresh to populate it.
func New(remote Remote, logger *zap.Logger) *Store {
	return &Store{
		pendingDelete: make(map[string]struct{}),
		remote:        remote,
		logger:        logger.Named("library"),
	}
}

// Refresh replaces the entire local collection with the server's. The
// server list is authoritative; no local ordering survives it.
func (s *Store) Refresh(ctx context.Context) error {
	list, err := s.remote.ListPhishlets(ctx)
	if err != nil {
		return fmt.Errorf("refreshing library: %w", err)
	}

	s.mu.Lock()
	s.entries = append([]schemas.SavedPhishlet(nil), list.Phishlets...)
	s.pendingDelete = make(map[string]struct{})
	s.mu.Unlock()

	s.logger.Debug("library refreshed", zap.Int("total", list.Total))
	return nil
}

// Save persists a new entry and prepends the server-returned entity, so
// the newest save displays first.
func (s *Store) Save(ctx context.Context, create schemas.SavedPhishletCreate) (*schemas.SavedPhishlet, error) {
	saved, err := s.remote.SavePhishlet(ctx, create)
	if err != nil {
		return nil, fmt.Errorf("saving phishlet: %w", err)
	}

	s.mu.Lock()
	s.entries = append([]schemas.SavedPhishlet{*saved}, s.entries...)
	s.mu.Unlock()
	return saved, nil
}

// RequestDelete marks an entry for deletion. Nothing is sent to the
// server until ConfirmDelete.
func (s *Store) RequestDelete(id string) {
	s.mu.Lock()
	s.pendingDelete[id] = struct{}{}
	s.mu.Unlock()
}

// CancelDelete clears a pending delete without issuing any call.
func (s *Store) CancelDelete(id string) {
	s.mu.Lock()
	delete(s.pendingDelete, id)
	s.mu.Unlock()
}

// ConfirmDelete issues the remote delete for a previously requested id and
// removes the entry locally only after the server confirms. A failing
// remote delete leaves the local collection untouched.
func (s *Store) ConfirmDelete(ctx context.Context, id string) error {
	s.mu.Lock()
	_, requested := s.pendingDelete[id]
	s.mu.Unlock()
	if !requested {
		return ErrDeleteNotRequested
	}

	if err := s.remote.DeletePhishlet(ctx, id); err != nil {
		return fmt.Errorf("deleting phishlet %s: %w", id, err)
	}

	s.mu.Lock()
	delete(s.pendingDelete, id)
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// Get returns the entry with the given id, if present.
func (s *Store) Get(id string) (schemas.SavedPhishlet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return schemas.SavedPhishlet{}, false
}

// All returns a copy of the full collection in display order.
func (s *Store) All() []schemas.SavedPhishlet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]schemas.SavedPhishlet(nil), s.entries...)
}

// Len reports the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Filter returns the entries matching the query: a case-insensitive
// substring match against name, target URL, or any tag. The empty query
// matches everything. Filtering is a pure read-side projection.
func (s *Store) Filter(query string) []schemas.SavedPhishlet {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s.All()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []schemas.SavedPhishlet
	for _, e := range s.entries {
		if matches(e, query) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e schemas.SavedPhishlet, query string) bool {
	if strings.Contains(strings.ToLower(e.Name), query) {
		return true
	}
	if strings.Contains(strings.ToLower(e.TargetURL), query) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}
