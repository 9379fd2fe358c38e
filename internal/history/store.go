// Package history is the Progress Store: an in-memory snapshot of the
// signed-in user's most recent watch positions, backed by the history table.
//
// Reads never touch the network. A write patches the snapshot once the
// backend confirms it, so Get reflects the last completed write rather than
// the last one issued; overlapping writes for the same title may land out
// of order and that is accepted. Refresh is the reconciliation point.
// Backend failures are logged and swallowed and the snapshot keeps its
// last good state.
package history

import (
	"context"
	"log"
	"sync"

	"reelwatch/internal/backend"
	"reelwatch/internal/media"
)

// Position is a season/episode pair.
type Position struct {
	Season  int
	Episode int
}

// Start is where every title begins.
var Start = Position{Season: 1, Episode: 1}

// Store caches the user's progress rows, newest first.
type Store struct {
	table backend.HistoryTable

	mu     sync.RWMutex
	userID string
	rows   []media.Progress
}

// New creates an unbound store.
func New(table backend.HistoryTable) *Store {
	return &Store{table: table}
}

// SetUser binds the store to a user. Switching users (or passing "") drops
// the snapshot; call Refresh to load the new user's rows.
func (s *Store) SetUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != id {
		s.rows = nil
	}
	s.userID = id
}

// UserID returns the bound user.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Get returns the saved position for ref, or Start.
func (s *Store) Get(ref media.Ref) Position {
	if p, ok := s.Lookup(ref); ok {
		return Position{Season: p.Season, Episode: p.Episode}
	}
	return Start
}

// Lookup returns the snapshot row for ref.
func (s *Store) Lookup(ref media.Ref) (media.Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.rows {
		if p.Media.Same(ref) {
			return p, true
		}
	}
	return media.Progress{}, false
}

// List returns a copy of the snapshot, most recently watched first.
func (s *Store) List() []media.Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]media.Progress, len(s.rows))
	copy(out, s.rows)
	return out
}

// Upsert records that the user reached season/episode of ref.
func (s *Store) Upsert(ctx context.Context, ref media.Ref, season, episode int) {
	uid := s.UserID()
	if uid == "" {
		return
	}
	if season < 1 {
		season = 1
	}
	if episode < 1 {
		episode = 1
	}

	saved, err := s.table.UpsertProgress(ctx, media.Progress{
		UserID:  uid,
		Media:   ref,
		Season:  season,
		Episode: episode,
	})
	if err != nil {
		log.Printf("[history] saving %s S%dE%d: %v", ref, season, episode, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != uid {
		return
	}

	rows := make([]media.Progress, 0, len(s.rows)+1)
	rows = append(rows, saved)
	for _, p := range s.rows {
		if p.Media.Same(ref) {
			if rows[0].Media.Title == "" {
				rows[0].Media.Title = p.Media.Title
			}
			if rows[0].Media.PosterPath == "" {
				rows[0].Media.PosterPath = p.Media.PosterPath
			}
			continue
		}
		rows = append(rows, p)
	}
	if len(rows) > backend.HistoryLimit {
		rows = rows[:backend.HistoryLimit]
	}
	s.rows = rows
}

// Remove deletes the user's row for ref.
func (s *Store) Remove(ctx context.Context, ref media.Ref) {
	uid := s.UserID()
	if uid == "" {
		return
	}

	if err := s.table.DeleteProgress(ctx, uid, ref); err != nil {
		log.Printf("[history] removing %s: %v", ref, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != uid {
		return
	}
	rows := s.rows[:0:0]
	for _, p := range s.rows {
		if !p.Media.Same(ref) {
			rows = append(rows, p)
		}
	}
	s.rows = rows
}

// Refresh replaces the snapshot with the latest rows from the backend.
func (s *Store) Refresh(ctx context.Context) {
	uid := s.UserID()
	if uid == "" {
		return
	}

	rows, err := s.table.ListProgress(ctx, uid, backend.HistoryLimit)
	if err != nil {
		log.Printf("[history] refreshing: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == uid {
		s.rows = rows
	}
}

// Counts returns how many distinct movies and shows the user has watched,
// across the whole history rather than just the snapshot.
func (s *Store) Counts(ctx context.Context) (movies, shows int, err error) {
	uid := s.UserID()
	if uid == "" {
		return 0, 0, nil
	}
	rows, err := s.table.ListProgress(ctx, uid, 0)
	if err != nil {
		return 0, 0, err
	}
	for _, p := range rows {
		if p.Media.Type == media.TV {
			shows++
		} else {
			movies++
		}
	}
	return movies, shows, nil
}
