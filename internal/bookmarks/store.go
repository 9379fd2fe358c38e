// Package bookmarks mirrors the signed-in user's bookmarks in memory.
// Membership checks are synchronous against the snapshot; writes patch it
// once the backend confirms them.
package bookmarks

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
var ErrSignedOut = errors.New("sign in to manage bookmarks")

// Store caches bookmarks, newest first.
type Store struct {
	table backend.BookmarkTable

	mu     sync.RWMutex
	userID string
	rows   []media.Bookmark
}

// New creates an unbound store.
func New(table backend.BookmarkTable) *Store {
	return &Store{table: table}
}

// SetUser binds the store to a user, dropping the snapshot on change.
func (s *Store) SetUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != id {
		s.rows = nil
	}
	s.userID = id
}

func (s *Store) user() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// List returns a copy of the snapshot.
func (s *Store) List() []media.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]media.Bookmark, len(s.rows))
	copy(out, s.rows)
	return out
}

// Contains reports whether ref is bookmarked.
func (s *Store) Contains(ref media.Ref) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(ref) >= 0
}

func (s *Store) indexOf(ref media.Ref) int {
	for i, b := range s.rows {
		if b.Media.Same(ref) {
			return i
		}
	}
	return -1
}

// Add bookmarks ref. Bookmarking an already bookmarked title succeeds
// without creating a second row.
func (s *Store) Add(ctx context.Context, ref media.Ref) error {
	uid := s.user()
	if uid == "" {
		return ErrSignedOut
	}

	saved, err := s.table.InsertBookmark(ctx, media.Bookmark{UserID: uid, Media: ref})
	if errors.Is(err, backend.ErrDuplicate) {
		// Someone else (another device) added it; make sure we show it.
		s.Refresh(ctx)
		return nil
	}
	if err != nil {
		log.Printf("[bookmarks] adding %s: %v", ref, err)
		return fmt.Errorf("adding bookmark: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == uid && s.indexOf(ref) < 0 {
		s.rows = append([]media.Bookmark{saved}, s.rows...)
	}
	return nil
}

// Remove deletes the bookmark for ref.
func (s *Store) Remove(ctx context.Context, ref media.Ref) error {
	uid := s.user()
	if uid == "" {
		return ErrSignedOut
	}

	if err := s.table.DeleteBookmark(ctx, uid, ref); err != nil {
		log.Printf("[bookmarks] removing %s: %v", ref, err)
		return fmt.Errorf("removing bookmark: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == uid {
		if i := s.indexOf(ref); i >= 0 {
			s.rows = append(s.rows[:i:i], s.rows[i+1:]...)
		}
	}
	return nil
}

// Toggle adds or removes ref and reports whether it is now bookmarked.
func (s *Store) Toggle(ctx context.Context, ref media.Ref) (bool, error) {
	if s.Contains(ref) {
		if err := s.Remove(ctx, ref); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := s.Add(ctx, ref); err != nil {
		return false, err
	}
	return true, nil
}

// Refresh reloads the snapshot. Failures are logged and the snapshot kept.
func (s *Store) Refresh(ctx context.Context) {
	uid := s.user()
	if uid == "" {
		return
	}
	rows, err := s.table.ListBookmarks(ctx, uid)
	if err != nil {
		log.Printf("[bookmarks] refreshing: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == uid {
		s.rows = rows
	}
}
