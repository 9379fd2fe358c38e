// Package media defines shared types for the reelwatch application.
package media

import (
	"fmt"
	"strings"
	"time"
)

// MediaType represents whether content is a movie or TV show.
type MediaType int

const (
	Movie MediaType = iota
	TV
)

func (m MediaType) String() string {
	switch m {
	case Movie:
		return "movie"
	case TV:
		return "tv"
	default:
		return "unknown"
	}
}

// ParseMediaType converts a user or API supplied string into a MediaType.
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies", "film":
		return Movie, nil
	case "tv", "show", "shows", "series":
		return TV, nil
	default:
		return Movie, fmt.Errorf("unknown media type %q (valid: movie, tv)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m MediaType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MediaType) UnmarshalText(text []byte) error {
	parsed, err := ParseMediaType(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Ref identifies a title from the metadata catalog. Identity is (ID, Type);
// Title and PosterPath ride along for display.
type Ref struct {
	ID         int       `json:"id"`
	Type       MediaType `json:"media_type"`
	Title      string    `json:"title"`
	PosterPath string    `json:"poster_path,omitempty"`
}

// Key returns the per-title session key, e.g. "player_tv_1399".
func (r Ref) Key() string {
	return fmt.Sprintf("player_%s_%d", r.Type, r.ID)
}

// Same reports whether two refs point at the same catalog entry.
func (r Ref) Same(o Ref) bool {
	return r.ID == o.ID && r.Type == o.Type
}

func (r Ref) String() string {
	return fmt.Sprintf("%s/%d", r.Type, r.ID)
}

// Kind is the raw result type reported by a multi-type catalog search.
type Kind string

const (
	KindMovie      Kind = "movie"
	KindTV         Kind = "tv"
	KindPerson     Kind = "person"
	KindCollection Kind = "collection"
	KindUnknown    Kind = "unknown"
)

// Playable reports whether results of this kind can be opened in a player.
func (k Kind) Playable() bool {
	return k == KindMovie || k == KindTV
}

// Result is a single multi-search hit. Title is nil for kinds that are not playable.
type Result struct {
	Kind  Kind
	Name  string
	Title Title
}

// Season represents a TV show season.
type Season struct {
	Number   int
	Name     string
	Episodes []Episode
}

// EpisodeCount returns the number of episodes listed for the season.
func (s Season) EpisodeCount() int {
	return len(s.Episodes)
}

// Episode represents a TV show episode.
type Episode struct {
	Number   int
	Name     string
	Overview string
	AirDate  string
	Runtime  int // minutes
}

// Progress is the last known season/episode a user reached in a title.
type Progress struct {
	UserID    string    `json:"user_id"`
	Media     Ref       `json:"media"`
	Season    int       `json:"season"`
	Episode   int       `json:"episode"`
	WatchedAt time.Time `json:"watched_at"`
}

// Bookmark is a title saved by a user.
type Bookmark struct {
	UserID    string    `json:"user_id"`
	Media     Ref       `json:"media"`
	CreatedAt time.Time `json:"created_at"`
}

// Rating is a user's star rating for a title.
type Rating struct {
	UserID    string    `json:"user_id"`
	Media     Ref       `json:"media"`
	Value     float64   `json:"rating"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MaxRating is the top of the rating scale; ratings move in half steps.
const MaxRating = 5.0

// ValidateRating checks a rating is within [0, MaxRating] and a multiple of 0.5.
func ValidateRating(v float64) error {
	if v < 0 || v > MaxRating {
		return fmt.Errorf("rating %.1f out of range (0-%.0f)", v, MaxRating)
	}
	if v*2 != float64(int(v*2)) {
		return fmt.Errorf("rating %v must be a multiple of 0.5", v)
	}
	return nil
}

// User is an authenticated account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName prefers the nickname and falls back to the email.
func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Email
}
