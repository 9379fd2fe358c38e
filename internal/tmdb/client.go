// Package tmdb is a read-only client for The Movie Database. Responses are
// normalised once into media.Film / media.TVShow at this boundary.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"reelwatch/internal/httputil"
	"reelwatch/internal/media"
)

const (
	imageBaseURL = "https://image.tmdb.org/t/p"

	// PlaceholderImage stands in for titles without a poster.
	PlaceholderImage = "https://via.placeholder.com/500x750?text=No+Image"

	// PosterSize is the default poster width.
	PosterSize = "w500"
)

// ErrNoAPIKey is returned when no TMDB API key is configured.
var ErrNoAPIKey = errors.New("tmdb: no API key configured (set tmdb_api_key or TMDB_API_KEY)")

// Catalog is the metadata surface the application consumes.
type Catalog interface {
	Trending(ctx context.Context) ([]media.Title, error)
	PopularMovies(ctx context.Context) ([]media.Title, error)
	PopularTV(ctx context.Context) ([]media.Title, error)
	TopRatedTV(ctx context.Context) ([]media.Title, error)
	SearchMulti(ctx context.Context, query string) ([]media.Result, error)
	Details(ctx context.Context, ref media.Ref) (media.Title, error)
	Season(ctx context.Context, showID, number int) (media.Season, error)
	Home(ctx context.Context) (*Home, error)
}

// Client talks to the TMDB v3 API.
type Client struct {
	apiKey   string
	base     string
	language string
	httpc    *http.Client
}

var _ Catalog = (*Client)(nil)

// New creates a client. base may omit the scheme ("api.themoviedb.org/3").
// A nil httpc uses httputil.NewClient.
func New(apiKey, base, language string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = httputil.NewClient()
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return &Client{
		apiKey:   strings.TrimSpace(apiKey),
		base:     base,
		language: language,
		httpc:    httpc,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// get fetches base/segments?api_key=...&language=...&extra into v.
func (c *Client) get(ctx context.Context, v any, extra url.Values, segments ...string) error {
	if !c.Configured() {
		return ErrNoAPIKey
	}

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	if c.language != "" {
		q.Set("language", c.language)
	}
	for k, vs := range extra {
		for _, val := range vs {
			q.Add(k, val)
		}
	}

	endpoint := httputil.BuildURL(c.base, segments...) + "?" + q.Encode()
	if err := httputil.GetJSON(ctx, c.httpc, endpoint, v); err != nil {
		return fmt.Errorf("tmdb %s: %w", strings.Join(segments, "/"), err)
	}
	return nil
}

func (c *Client) list(ctx context.Context, fallback media.MediaType, segments ...string) ([]media.Title, error) {
	var resp pageResponse
	if err := c.get(ctx, &resp, nil, segments...); err != nil {
		return nil, err
	}
	titles := make([]media.Title, 0, len(resp.Results))
	for _, raw := range resp.Results {
		if t := raw.normalize(fallback); t != nil {
			titles = append(titles, t)
		}
	}
	return titles, nil
}

// Trending returns this week's trending movies and shows.
func (c *Client) Trending(ctx context.Context) ([]media.Title, error) {
	// trending/all mixes people in; normalize drops them.
	return c.list(ctx, -1, "trending", "all", "week")
}

// PopularMovies returns popular movies.
func (c *Client) PopularMovies(ctx context.Context) ([]media.Title, error) {
	return c.list(ctx, media.Movie, "movie", "popular")
}

// PopularTV returns popular TV shows.
func (c *Client) PopularTV(ctx context.Context) ([]media.Title, error) {
	return c.list(ctx, media.TV, "tv", "popular")
}

// TopRatedTV returns top rated TV shows.
func (c *Client) TopRatedTV(ctx context.Context) ([]media.Title, error) {
	return c.list(ctx, media.TV, "tv", "top_rated")
}

// SearchMulti runs a multi-type search. Every hit is returned with its kind,
// in the order TMDB ranked them; only movie and tv hits carry a Title.
// A blank query returns no results without a request.
func (c *Client) SearchMulti(ctx context.Context, query string) ([]media.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	extra := url.Values{}
	extra.Set("query", query)
	extra.Set("include_adult", "false")

	var resp pageResponse
	if err := c.get(ctx, &resp, extra, "search", "multi"); err != nil {
		return nil, err
	}

	results := make([]media.Result, 0, len(resp.Results))
	for _, raw := range resp.Results {
		kind := parseKind(raw.MediaType)
		r := media.Result{Kind: kind, Name: raw.displayName()}
		if kind.Playable() {
			r.Title = raw.normalize(-1)
		}
		results = append(results, r)
	}
	return results, nil
}

// Details fetches the full record for ref.
func (c *Client) Details(ctx context.Context, ref media.Ref) (media.Title, error) {
	if ref.ID <= 0 {
		return nil, fmt.Errorf("invalid catalog id %d", ref.ID)
	}
	var raw rawTitle
	if err := c.get(ctx, &raw, nil, ref.Type.String(), strconv.Itoa(ref.ID)); err != nil {
		return nil, err
	}
	t := raw.normalize(ref.Type)
	if t == nil {
		return nil, fmt.Errorf("tmdb %s: unexpected payload", ref)
	}
	return t, nil
}

// Season fetches a season's episode list.
func (c *Client) Season(ctx context.Context, showID, number int) (media.Season, error) {
	if showID <= 0 || number < 1 {
		return media.Season{}, fmt.Errorf("invalid season request %d/%d", showID, number)
	}
	var raw rawSeason
	if err := c.get(ctx, &raw, nil, "tv", strconv.Itoa(showID), "season", strconv.Itoa(number)); err != nil {
		return media.Season{}, err
	}
	return raw.normalize(number), nil
}

// Home is the landing page feed.
type Home struct {
	Featured      media.Title
	Trending      []media.Title
	PopularMovies []media.Title
	TopRatedTV    []media.Title
}

// Home loads the landing page rows concurrently. A failing row is logged and
// left empty; Home only fails when every row failed.
func (c *Client) Home(ctx context.Context) (*Home, error) {
	h := &Home{}
	var trendingErr, moviesErr, tvErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h.Trending, trendingErr = c.Trending(gctx)
		return nil
	})
	g.Go(func() error {
		h.PopularMovies, moviesErr = c.PopularMovies(gctx)
		return nil
	})
	g.Go(func() error {
		h.TopRatedTV, tvErr = c.TopRatedTV(gctx)
		return nil
	})
	_ = g.Wait()

	for _, err := range []error{trendingErr, moviesErr, tvErr} {
		if err != nil {
			log.Printf("[tmdb] home row failed: %v", err)
		}
	}
	if trendingErr != nil && moviesErr != nil && tvErr != nil {
		return nil, trendingErr
	}

	if len(h.Trending) > 0 {
		h.Featured = h.Trending[0]
	}
	return h, nil
}

// ImageURL returns the image URL for a poster or backdrop path, or the
// placeholder when path is empty.
func ImageURL(path, size string) string {
	if path == "" {
		return PlaceholderImage
	}
	if size == "" {
		size = PosterSize
	}
	return imageBaseURL + "/" + size + path
}
