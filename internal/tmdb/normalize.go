package tmdb

import (
	"reelwatch/internal/media"
)

type pageResponse struct {
	Page         int        `json:"page"`
	Results      []rawTitle `json:"results"`
	TotalPages   int        `json:"total_pages"`
	TotalResults int        `json:"total_results"`
}

type rawGenre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// rawTitle is the union of TMDB movie, tv and person list/detail payloads.
type rawTitle struct {
	ID              int        `json:"id"`
	MediaType       string     `json:"media_type"`
	Title           string     `json:"title"`
	Name            string     `json:"name"`
	OriginalTitle   string     `json:"original_title"`
	OriginalName    string     `json:"original_name"`
	Overview        string     `json:"overview"`
	PosterPath      string     `json:"poster_path"`
	BackdropPath    string     `json:"backdrop_path"`
	ReleaseDate     string     `json:"release_date"`
	FirstAirDate    string     `json:"first_air_date"`
	VoteAverage     float64    `json:"vote_average"`
	VoteCount       int        `json:"vote_count"`
	Genres          []rawGenre `json:"genres"`
	Runtime         int        `json:"runtime"`
	NumberOfSeasons int        `json:"number_of_seasons"`
	EpisodeRunTime  []int      `json:"episode_run_time"`
}

type rawEpisode struct {
	EpisodeNumber int    `json:"episode_number"`
	Name          string `json:"name"`
	Overview      string `json:"overview"`
	AirDate       string `json:"air_date"`
	Runtime       int    `json:"runtime"`
}

type rawSeason struct {
	SeasonNumber int          `json:"season_number"`
	Name         string       `json:"name"`
	Episodes     []rawEpisode `json:"episodes"`
}

func parseKind(s string) media.Kind {
	switch s {
	case "movie":
		return media.KindMovie
	case "tv":
		return media.KindTV
	case "person":
		return media.KindPerson
	case "collection":
		return media.KindCollection
	default:
		return media.KindUnknown
	}
}

func (r rawTitle) displayName() string {
	for _, s := range []string{r.Title, r.Name, r.OriginalTitle, r.OriginalName} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (r rawTitle) genreNames() []string {
	if len(r.Genres) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Genres))
	for _, g := range r.Genres {
		names = append(names, g.Name)
	}
	return names
}

// normalize converts a payload into a Title. The payload's media_type wins;
// fallback (or -1 for none) applies to endpoints that omit it. Payloads that
// are neither movies nor shows yield nil.
func (r rawTitle) normalize(fallback media.MediaType) media.Title {
	var typ media.MediaType
	switch parseKind(r.MediaType) {
	case media.KindMovie:
		typ = media.Movie
	case media.KindTV:
		typ = media.TV
	default:
		if r.MediaType != "" || (fallback != media.Movie && fallback != media.TV) {
			return nil
		}
		typ = fallback
	}
	if r.ID <= 0 {
		return nil
	}

	if typ == media.TV {
		s := &media.TVShow{
			ID:              r.ID,
			Name:            r.displayName(),
			Overview:        r.Overview,
			PosterPath:      r.PosterPath,
			BackdropPath:    r.BackdropPath,
			FirstAirDate:    firstNonEmpty(r.FirstAirDate, r.ReleaseDate),
			VoteAverage:     r.VoteAverage,
			VoteCount:       r.VoteCount,
			Genres:          r.genreNames(),
			NumberOfSeasons: r.NumberOfSeasons,
		}
		if len(r.EpisodeRunTime) > 0 {
			s.EpisodeRunTime = r.EpisodeRunTime[0]
		}
		return s
	}

	return &media.Film{
		ID:           r.ID,
		Name:         r.displayName(),
		Overview:     r.Overview,
		PosterPath:   r.PosterPath,
		BackdropPath: r.BackdropPath,
		ReleaseDate:  firstNonEmpty(r.ReleaseDate, r.FirstAirDate),
		VoteAverage:  r.VoteAverage,
		VoteCount:    r.VoteCount,
		Genres:       r.genreNames(),
		Runtime:      r.Runtime,
	}
}

func (r rawSeason) normalize(requested int) media.Season {
	s := media.Season{Number: r.SeasonNumber, Name: r.Name}
	if s.Number == 0 {
		s.Number = requested
	}
	for _, e := range r.Episodes {
		s.Episodes = append(s.Episodes, media.Episode{
			Number:   e.EpisodeNumber,
			Name:     e.Name,
			Overview: e.Overview,
			AirDate:  e.AirDate,
			Runtime:  e.Runtime,
		})
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
