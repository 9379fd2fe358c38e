// Package ratings mirrors the signed-in user's star ratings in memory.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"reelwatch/internal/backend"
	"reelwatch/internal/media"
)

// ErrSignedOut is returned by writes when no user is bound.
var ErrSignedOut = errors.New("sign in to rate titles")

// Store caches ratings keyed by title.
type Store struct {
	table backend.RatingTable

	mu     sync.RWMutex
	userID string
	byKey  map[string]media.Rating
}

// New creates an unbound store.
func New(table backend.RatingTable) *Store {
	return &Store{table: table, byKey: make(map[string]media.Rating)}
}

// SetUser binds the store to a user, dropping the snapshot on change.
func (s *Store) SetUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != id {
		s.byKey = make(map[string]media.Rating)
	}
	s.userID = id
}

func (s *Store) user() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Get returns the user's rating for ref, or 0 when unrated.
func (s *Store) Get(ref media.Ref) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byKey[ref.Key()].Value
}

// List returns all cached ratings in no particular order.
func (s *Store) List() []media.Rating {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]media.Rating, 0, len(s.byKey))
	for _, r := range s.byKey {
		out = append(out, r)
	}
	return out
}

// Set rates ref. value must be within 0-5 in half steps.
func (s *Store) Set(ctx context.Context, ref media.Ref, value float64) error {
	if err := media.ValidateRating(value); err != nil {
		return err
	}
	uid := s.user()
	if uid == "" {
		return ErrSignedOut
	}

	saved, err := s.table.UpsertRating(ctx, media.Rating{UserID: uid, Media: ref, Value: value})
	if err != nil {
		log.Printf("[ratings] rating %s: %v", ref, err)
		return fmt.Errorf("saving rating: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == uid {
		s.byKey[ref.Key()] = saved
	}
	return nil
}

// Remove clears the user's rating for ref so it reads as unrated again.
func (s *Store) Remove(ctx context.Context, ref media.Ref) error {
	uid := s.user()
	if uid == "" {
		return ErrSignedOut
	}

	if err := s.table.DeleteRating(ctx, uid, ref); err != nil {
		log.Printf("[ratings] removing %s: %v", ref, err)
		return fmt.Errorf("removing rating: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == uid {
		delete(s.byKey, ref.Key())
	}
	return nil
}

// Refresh reloads the snapshot. Failures are logged and the snapshot kept.
func (s *Store) Refresh(ctx context.Context) {
	uid := s.user()
	if uid == "" {
		return
	}
	rows, err := s.table.ListRatings(ctx, uid)
	if err != nil {
		log.Printf("[ratings] refreshing: %v", err)
		return
	}

	byKey := make(map[string]media.Rating, len(rows))
	for _, r := range rows {
		byKey[r.Media.Key()] = r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == uid {
		s.byKey = byKey
	}
}
