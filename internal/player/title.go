package player

import (
	"context"
	"log"
	"sync"

	"reelwatch/internal/embed"
	"reelwatch/internal/media"
)

// Title is the player state of one open title.
type Title struct {
	cache *Cache
	ref   media.Ref

	mu          sync.Mutex
	state       State
	seasonCount int
	// episodes maps season number to its authoritative episode count.
	episodes map[int]int
	closed   bool
}

// Patch is a partial state update. Nil fields are left alone.
type Patch struct {
	Source  *embed.Source
	Season  *int
	Episode *int
}

// Ref returns the title this player belongs to.
func (t *Title) Ref() media.Ref {
	return t.ref
}

// State returns a snapshot of the current state.
func (t *Title) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetSource switches the embed provider.
func (t *Title) SetSource(src embed.Source) error {
	return t.SetAll(Patch{Source: &src})
}

// SetSeason moves to season n, episode 1.
func (t *Title) SetSeason(n int) {
	t.SetAll(Patch{Season: &n})
}

// SetEpisode moves to episode n of the current season.
func (t *Title) SetEpisode(n int) {
	t.SetAll(Patch{Episode: &n})
}

// SetAll applies p. Setting a season always resets the episode to 1, even
// when the season stays the same, unless p also carries an episode. Values below 1 are raised to 1 and values above a
// known season or episode count are lowered to it. Movies have no
// seasons, so only the source applies to them.
func (t *Title) SetAll(p Patch) error {
	if p.Source != nil {
		if _, err := embed.ParseSource(string(*p.Source)); err != nil {
			return err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.state
	next := prev
	if p.Source != nil {
		next.Source = *p.Source
	}
	if t.ref.Type == media.TV {
		if p.Season != nil {
			next.Season = t.clampSeason(*p.Season)
			next.Episode = 1
		}
		if p.Episode != nil {
			next.Episode = t.clampEpisode(next.Season, *p.Episode)
		}
	}

	t.apply(prev, next)
	return nil
}

// Next advances to the following episode, rolling over into the next
// season after the last episode. It reports whether anything changed;
// at the end of the final season it does nothing.
func (t *Title) Next() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, ok := t.nextState()
	if !ok {
		return false
	}
	t.apply(t.state, next)
	return true
}

// HasNext reports whether Next would move.
func (t *Title) HasNext() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.nextState()
	return ok
}

// EpisodeCount returns the episode count of the current season.
func (t *Title) EpisodeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.episodeCount(t.state.Season)
}

// SeasonCount returns the number of seasons, or 0 when unknown.
func (t *Title) SeasonCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seasonCount
}

// SetSeasonCount records the number of seasons from the title's details.
func (t *Title) SetSeasonCount(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > 0 {
		t.seasonCount = n
	}
}

// SetEpisodeCount records the authoritative episode count of a season.
func (t *Title) SetEpisodeCount(season, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if season >= 1 && n > 0 {
		t.episodes[season] = n
	}
}

// EmbedURL returns the provider URL for the current state.
func (t *Title) EmbedURL() (string, error) {
	s := t.State()
	return embed.URL(s.Source, t.ref, s.Season, s.Episode)
}

func (t *Title) episodeCount(season int) int {
	if n, ok := t.episodes[season]; ok {
		return n
	}
	return DefaultEpisodeCount
}

func (t *Title) clampSeason(n int) int {
	if n < 1 {
		return 1
	}
	if t.seasonCount > 0 && n > t.seasonCount {
		return t.seasonCount
	}
	return n
}

// clampEpisode only caps against a fetched count; the default is a guess.
func (t *Title) clampEpisode(season, n int) int {
	if n < 1 {
		return 1
	}
	if known, ok := t.episodes[season]; ok && n > known {
		return known
	}
	return n
}

func (t *Title) nextState() (State, bool) {
	if t.ref.Type != media.TV {
		return t.state, false
	}
	next := t.state
	switch {
	case next.Episode < t.episodeCount(next.Season):
		next.Episode++
	case next.Season < t.seasonCount:
		next.Season++
		next.Episode = 1
	default:
		return t.state, false
	}
	return next, true
}

// apply stores next, persists it and kicks off the follow-up work a
// position change needs. Callers hold mu.
func (t *Title) apply(prev, next State) {
	t.state = next
	if t.closed {
		return
	}
	t.persist()

	if next.Season != prev.Season {
		t.fetchEpisodes(next.Season)
	}
	if t.ref.Type == media.TV && (next.Season != prev.Season || next.Episode != prev.Episode) && t.cache.authenticated() {
		ref, s, e := t.ref, next.Season, next.Episode
		t.cache.background(func(ctx context.Context) {
			t.cache.progress.Upsert(ctx, ref, s, e)
		})
	}
}

// persist mirrors the state into session storage. Callers hold mu.
func (t *Title) persist() {
	if err := t.cache.storage.Set(t.ref.Key(), t.state); err != nil {
		log.Printf("[player] saving %s: %v", t.ref.Key(), err)
	}
}

// fetchEpisodes loads season's episode count in the background unless it
// is already known. Callers hold mu.
func (t *Title) fetchEpisodes(season int) {
	if t.cache.seasons == nil || t.ref.Type != media.TV {
		return
	}
	if _, known := t.episodes[season]; known {
		return
	}

	ref := t.ref
	t.cache.background(func(ctx context.Context) {
		s, err := t.cache.seasons.Season(ctx, ref.ID, season)
		if err != nil {
			log.Printf("[player] loading %s season %d: %v", ref, season, err)
			return
		}
		if n := s.EpisodeCount(); n > 0 {
			t.SetEpisodeCount(season, n)
		}
	})
}
