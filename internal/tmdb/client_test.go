package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelwatch/internal/media"
)

// newTestServer serves testdata fixtures by path.
func newTestServer(t *testing.T, routes map[string]string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"status_code":7,"status_message":"Invalid API key"}`))
			return
		}
		fixture, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status_message":"The resource you requested could not be found."}`))
			return
		}
		data, err := os.ReadFile("testdata/" + fixture)
		if err != nil {
			t.Errorf("fixture %s: %v", fixture, err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return New("test-key", srv.URL, "en-US", srv.Client()), srv
}

func TestTrendingNormalises(t *testing.T) {
	c, _ := newTestServer(t, map[string]string{"/trending/all/week": "trending.json"})

	titles, err := c.Trending(context.Background())
	require.NoError(t, err)
	require.Len(t, titles, 2, "people must be dropped")

	show, ok := titles[0].(*media.TVShow)
	require.True(t, ok, "first title should be a show, got %T", titles[0])
	assert.Equal(t, "Game of Thrones", show.Name)
	assert.Equal(t, "2011", show.Year())

	film, ok := titles[1].(*media.Film)
	require.True(t, ok, "second title should be a film, got %T", titles[1])
	assert.Equal(t, "The Matrix", film.Ref().Title)
	assert.Empty(t, film.PosterPath)
	assert.Equal(t, PlaceholderImage, ImageURL(film.PosterPath, ""))
}

func TestSearchMultiKeepsKindsAndOrder(t *testing.T) {
	c, _ := newTestServer(t, map[string]string{"/search/multi": "search_multi.json"})

	results, err := c.SearchMulti(context.Background(), "breaking bad")
	require.NoError(t, err)
	require.Len(t, results, 4)

	kinds := []media.Kind{results[0].Kind, results[1].Kind, results[2].Kind, results[3].Kind}
	assert.Equal(t, []media.Kind{media.KindTV, media.KindPerson, media.KindMovie, media.KindCollection}, kinds)
	assert.NotNil(t, results[0].Title)
	assert.Nil(t, results[1].Title)
	assert.Equal(t, "Bryan Cranston", results[1].Name)
	assert.Nil(t, results[3].Title)
}

func TestSearchMultiBlankQuery(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := New("test-key", srv.URL, "", srv.Client())
	results, err := c.SearchMulti(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, hits.Load(), "blank queries must not hit the API")
}

func TestDetailsAndSeason(t *testing.T) {
	c, _ := newTestServer(t, map[string]string{
		"/tv/1396":          "tv_details.json",
		"/tv/1396/season/1": "season.json",
	})
	ctx := context.Background()

	title, err := c.Details(ctx, media.Ref{ID: 1396, Type: media.TV})
	require.NoError(t, err)
	show, ok := title.(*media.TVShow)
	require.True(t, ok)
	assert.Equal(t, 5, show.NumberOfSeasons)
	assert.Equal(t, 47, show.EpisodeRunTime)
	assert.Equal(t, []string{"Drama", "Crime"}, show.Genres)

	season, err := c.Season(ctx, 1396, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, season.Number)
	assert.Equal(t, 3, season.EpisodeCount())
	assert.Equal(t, "Pilot", season.Episodes[0].Name)
}

func TestErrorsRedactKey(t *testing.T) {
	c, _ := newTestServer(t, nil)

	_, err := c.Details(context.Background(), media.Ref{ID: 42, Type: media.Movie})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "test-key")
	assert.Contains(t, err.Error(), "could not be found")
}

func TestNoAPIKey(t *testing.T) {
	c := New("", "api.themoviedb.org/3", "en-US", nil)
	_, err := c.Trending(context.Background())
	assert.True(t, errors.Is(err, ErrNoAPIKey))
}

func TestHomePartialFailure(t *testing.T) {
	// Only trending is routed; the other rows 404 and are left empty.
	c, _ := newTestServer(t, map[string]string{"/trending/all/week": "trending.json"})

	home, err := c.Home(context.Background())
	require.NoError(t, err)
	require.NotNil(t, home.Featured)
	assert.Equal(t, 1399, home.Featured.Ref().ID)
	assert.Empty(t, home.PopularMovies)
	assert.Empty(t, home.TopRatedTV)
}

func TestHomeAllRowsFail(t *testing.T) {
	c, _ := newTestServer(t, nil)
	_, err := c.Home(context.Background())
	assert.Error(t, err)
}

func TestNewAddsScheme(t *testing.T) {
	c := New("k", "api.themoviedb.org/3/", "en-US", nil)
	assert.True(t, strings.HasPrefix(c.base, "https://"))
	assert.False(t, strings.HasSuffix(c.base, "/"))
}
