package tmdb

import (
	"encoding/json"

	"reelwatch/internal/media"
)

type aggregateRating struct {
	Type        string  `json:"@type"`
	RatingValue float64 `json:"ratingValue"`
	BestRating  string  `json:"bestRating"`
	RatingCount int     `json:"ratingCount"`
}

type schemaDoc struct {
	Context         string           `json:"@context"`
	Type            string           `json:"@type"`
	Name            string           `json:"name"`
	Image           string           `json:"image"`
	Description     string           `json:"description,omitempty"`
	DatePublished   string           `json:"datePublished,omitempty"`
	NumberOfSeasons int              `json:"numberOfSeasons,omitempty"`
	Genre           []string         `json:"genre,omitempty"`
	AggregateRating *aggregateRating `json:"aggregateRating,omitempty"`
}

// JSONLD renders schema.org Movie / TVSeries metadata for t.
func JSONLD(t media.Title) ([]byte, error) {
	ref := t.Ref()
	doc := schemaDoc{
		Context:     "https://schema.org",
		Name:        ref.Title,
		Image:       ImageURL(ref.PosterPath, PosterSize),
		Description: t.Synopsis(),
	}

	var votes int
	switch v := t.(type) {
	case *media.Film:
		doc.Type = "Movie"
		doc.DatePublished = v.ReleaseDate
		doc.Genre = v.Genres
		votes = v.VoteCount
	case *media.TVShow:
		doc.Type = "TVSeries"
		doc.DatePublished = v.FirstAirDate
		doc.NumberOfSeasons = v.NumberOfSeasons
		doc.Genre = v.Genres
		votes = v.VoteCount
	}

	if score := t.Score(); score > 0 {
		doc.AggregateRating = &aggregateRating{
			Type:        "AggregateRating",
			RatingValue: score,
			BestRating:  "10",
			RatingCount: votes,
		}
	}

	return json.MarshalIndent(doc, "", "  ")
}
