package media

import (
	"fmt"
	"strings"
)

// Title is a catalog entry: either a *Film or a *TVShow. The catalog client
// normalises the API's optional title/name and release/air date fields once,
// so callers switch on the concrete type instead of probing fields.
type Title interface {
	Ref() Ref
	Year() string
	Score() float64
	Synopsis() string
	isTitle()
}

// Film is a movie from the catalog.
type Film struct {
	ID           int
	Name         string
	Overview     string
	PosterPath   string
	BackdropPath string
	ReleaseDate  string
	VoteAverage  float64
	VoteCount    int
	Genres       []string
	Runtime      int // minutes
}

// TVShow is a series from the catalog.
type TVShow struct {
	ID              int
	Name            string
	Overview        string
	PosterPath      string
	BackdropPath    string
	FirstAirDate    string
	VoteAverage     float64
	VoteCount       int
	Genres          []string
	NumberOfSeasons int
	EpisodeRunTime  int // minutes
}

func (*Film) isTitle()   {}
func (*TVShow) isTitle() {}

func (m *Film) Ref() Ref {
	return Ref{ID: m.ID, Type: Movie, Title: m.Name, PosterPath: m.PosterPath}
}

func (s *TVShow) Ref() Ref {
	return Ref{ID: s.ID, Type: TV, Title: s.Name, PosterPath: s.PosterPath}
}

func (m *Film) Year() string   { return yearOf(m.ReleaseDate) }
func (s *TVShow) Year() string { return yearOf(s.FirstAirDate) }

func (m *Film) Score() float64   { return m.VoteAverage }
func (s *TVShow) Score() float64 { return s.VoteAverage }

func (m *Film) Synopsis() string   { return m.Overview }
func (s *TVShow) Synopsis() string { return s.Overview }

func yearOf(date string) string {
	year, _, _ := strings.Cut(date, "-")
	if len(year) != 4 {
		return ""
	}
	return year
}

// FormatDisplayTitle creates a one-line label for selection lists.
func FormatDisplayTitle(t Title) string {
	ref := t.Ref()
	parts := []string{ref.Title}
	if y := t.Year(); y != "" {
		parts = append(parts, fmt.Sprintf("(%s)", y))
	}
	if ref.Type == TV {
		parts = append(parts, "[TV]")
	} else {
		parts = append(parts, "[Movie]")
	}
	if s := t.Score(); s > 0 {
		parts = append(parts, fmt.Sprintf("★ %.1f", s))
	}
	return strings.Join(parts, " ")
}
