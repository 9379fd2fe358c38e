// Package player keeps one resumable {source, season, episode} state per
// open title and launches embed URLs in a browser.
//
// States live in a keyed Cache (key "player_{type}_{id}"). An entry is
// created on first access and seeded from, in order: the session snapshot,
// the signed-in user's saved progress, or the defaults. Every mutation is
// written straight back to session storage. Cache.Clear drops them all.
package player

import (
	"context"
	"log"
	"sync"

	"reelwatch/internal/embed"
	"reelwatch/internal/media"
	"reelwatch/internal/session"
)

// DefaultEpisodeCount is assumed for a season until its episode list arrives.
const DefaultEpisodeCount = 20

// State is the persisted part of a player.
type State struct {
	Source  embed.Source `json:"source"`
	Season  int          `json:"season"`
	Episode int          `json:"episode"`
}

// Progress is the slice of the Progress Store the cache needs.
type Progress interface {
	UserID() string
	Lookup(ref media.Ref) (media.Progress, bool)
	Upsert(ctx context.Context, ref media.Ref, season, episode int)
}

// SeasonFetcher loads a season's episode list.
type SeasonFetcher interface {
	Season(ctx context.Context, showID, number int) (media.Season, error)
}

// Cache owns the per-title player states.
type Cache struct {
	storage  *session.Storage
	progress Progress
	seasons  SeasonFetcher

	mu      sync.Mutex
	titles  map[string]*Title
	primary embed.Source

	// wg tracks background season fetches and progress syncs.
	wg sync.WaitGroup
}

// NewCache creates a cache. seasons may be nil, in which case episode
// counts stay at DefaultEpisodeCount.
func NewCache(storage *session.Storage, progress Progress, seasons SeasonFetcher) *Cache {
	if storage == nil {
		storage = session.Memory()
	}
	return &Cache{
		storage:  storage,
		progress: progress,
		seasons:  seasons,
		titles:   make(map[string]*Title),
		primary:  embed.Primary,
	}
}

// SetDefaultSource changes the source new titles start on.
func (c *Cache) SetDefaultSource(src embed.Source) error {
	if _, err := embed.ParseSource(string(src)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.primary = src
	return nil
}

// Open returns the player for ref, creating and seeding it on first access.
func (c *Cache) Open(ref media.Ref) *Title {
	key := ref.Key()

	c.mu.Lock()
	if t, ok := c.titles[key]; ok {
		c.mu.Unlock()
		return t
	}
	t := &Title{cache: c, ref: ref, state: c.initial(ref, c.primary), episodes: make(map[int]int)}
	c.titles[key] = t
	c.mu.Unlock()

	t.mu.Lock()
	t.persist()
	t.fetchEpisodes(t.state.Season)
	t.mu.Unlock()
	return t
}

// Get returns the player for ref if it is open.
func (c *Cache) Get(ref media.Ref) (*Title, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.titles[ref.Key()]
	return t, ok
}

// Len returns the number of open players.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.titles)
}

// Clear drops every player and its session snapshot. Background work that
// is still in flight finishes but no longer affects anything.
func (c *Cache) Clear() {
	c.mu.Lock()
	titles := c.titles
	c.titles = make(map[string]*Title)
	c.mu.Unlock()

	for _, t := range titles {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()
	}
	if err := c.storage.RemovePrefix(session.PlayerPrefix); err != nil {
		log.Printf("[player] clearing session state: %v", err)
	}
}

// Wait blocks until background season fetches and progress syncs finish.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func (c *Cache) authenticated() bool {
	return c.progress != nil && c.progress.UserID() != ""
}

// initial picks the starting state for ref. Callers hold mu.
func (c *Cache) initial(ref media.Ref, primary embed.Source) State {
	var saved State
	ok, err := c.storage.Get(ref.Key(), &saved)
	if err != nil {
		log.Printf("[player] reading %s: %v", ref.Key(), err)
	}
	if ok && saved.Season >= 1 && saved.Episode >= 1 {
		if _, err := embed.ParseSource(string(saved.Source)); err != nil {
			saved.Source = primary
		}
		return saved
	}

	if c.authenticated() {
		if p, ok := c.progress.Lookup(ref); ok && p.Season >= 1 && p.Episode >= 1 {
			return State{Source: primary, Season: p.Season, Episode: p.Episode}
		}
	}

	return State{Source: primary, Season: 1, Episode: 1}
}

func (c *Cache) background(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(context.Background())
	}()
}
