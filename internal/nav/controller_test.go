package nav

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"reelwatch/internal/auth"
	"reelwatch/internal/backend/sqlite"
	"reelwatch/internal/bookmarks"
	"reelwatch/internal/history"
	"reelwatch/internal/media"
	"reelwatch/internal/player"
	"reelwatch/internal/session"
)

type fakeAuth struct {
	signedIn bool
	signOuts int
	err      error
}

func (f *fakeAuth) Authenticated() bool { return f.signedIn }

func (f *fakeAuth) SignOut(ctx context.Context) error {
	f.signOuts++
	f.signedIn = false
	return f.err
}

type fakeSearcher struct {
	results []media.Result
	err     error
	queries []string
}

func (f *fakeSearcher) SearchMulti(ctx context.Context, query string) ([]media.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeProgress struct {
	upserts []media.Ref
}

func (f *fakeProgress) Get(ref media.Ref) history.Position { return history.Start }

func (f *fakeProgress) Upsert(ctx context.Context, ref media.Ref, season, episode int) {
	f.upserts = append(f.upserts, ref)
}

type fakePlayers struct{ cleared int }

func (f *fakePlayers) Clear() { f.cleared++ }

var (
	matrix = media.Ref{ID: 603, Type: media.Movie, Title: "The Matrix"}
	show   = media.Ref{ID: 1396, Type: media.TV, Title: "Breaking Bad"}
)

func TestParsePage(t *testing.T) {
	for _, p := range Pages() {
		got, err := ParsePage(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePage("settings")
	assert.Error(t, err)

	assert.True(t, Profile.Protected())
	assert.False(t, Player.Protected())
}

func TestNavigateGuardsProtectedPages(t *testing.T) {
	a := &fakeAuth{}
	c := New(Deps{Auth: a})

	for _, p := range []Page{Bookmarks, History, Profile} {
		assert.Equal(t, SignIn, c.Navigate(p), "anonymous %s", p)
	}

	a.signedIn = true
	assert.Equal(t, History, c.Navigate(History))
	assert.Equal(t, History, c.Page())
}

func TestNavigatePlayerNeedsSelection(t *testing.T) {
	c := New(Deps{})
	assert.Equal(t, Home, c.Navigate(Player))
}

func TestNavigateToActivePageKeepsState(t *testing.T) {
	s := &fakeSearcher{results: []media.Result{{Kind: media.KindMovie, Title: &media.Film{ID: 1}}}}
	c := New(Deps{Catalog: s})

	c.Search(context.Background(), "matrix")
	c.Navigate(Home)
	_, results := c.Results()
	assert.Len(t, results, 1, "no side effects when the page does not change")

	c.Navigate(SignIn)
	_, results = c.Results()
	assert.Empty(t, results)
}

func TestSelectMedia(t *testing.T) {
	storage := session.Memory()
	progress := &fakeProgress{}
	a := &fakeAuth{signedIn: true}
	c := New(Deps{Storage: storage, Auth: a, Progress: progress})
	ctx := context.Background()

	c.SetCursor(4)
	c.SelectMedia(ctx, matrix)
	assert.Equal(t, Player, c.Page())
	assert.Zero(t, c.Cursor())

	current, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, matrix, current)

	var saved media.Ref
	ok, err := storage.Get(session.KeySelectedMedia, &saved)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, matrix, saved)

	c.SelectMedia(ctx, matrix)
	assert.Len(t, progress.upserts, 1, "same title records once")

	c.SelectMedia(ctx, show)
	assert.Equal(t, []media.Ref{matrix, show}, progress.upserts)

	a.signedIn = false
	c.SelectMedia(ctx, matrix)
	assert.Len(t, progress.upserts, 2, "anonymous users have no history")
}

func TestSearchFiltersPlayable(t *testing.T) {
	s := &fakeSearcher{results: []media.Result{
		{Kind: media.KindPerson, Name: "Keanu Reeves"},
		{Kind: media.KindTV, Name: "Matrix", Title: &media.TVShow{ID: 2}},
		{Kind: media.KindCollection, Name: "The Matrix Collection"},
		{Kind: media.KindMovie, Name: "The Matrix", Title: &media.Film{ID: 603}},
	}}
	c := New(Deps{Catalog: s})

	got := c.Search(context.Background(), "  matrix ")
	require.Len(t, got, 2)
	assert.Equal(t, media.KindTV, got[0].Kind)
	assert.Equal(t, media.KindMovie, got[1].Kind)
	assert.Equal(t, []string{"matrix"}, s.queries)

	query, _ := c.Results()
	assert.Equal(t, "matrix", query)

	assert.Nil(t, c.Search(context.Background(), "   "))
	_, results := c.Results()
	assert.Empty(t, results)
	assert.Len(t, s.queries, 1, "blank queries never reach the catalog")
}

func TestSearchFailureClearsResults(t *testing.T) {
	s := &fakeSearcher{results: []media.Result{{Kind: media.KindMovie, Title: &media.Film{ID: 1}}}}
	c := New(Deps{Catalog: s})
	c.Search(context.Background(), "one")

	s.err = errors.New("offline")
	assert.Nil(t, c.Search(context.Background(), "two"))
	_, results := c.Results()
	assert.Empty(t, results)
}

func TestToggleBookmarkRequiresUser(t *testing.T) {
	c := New(Deps{Auth: &fakeAuth{}})
	_, err := c.ToggleBookmark(context.Background(), matrix)
	assert.ErrorIs(t, err, ErrSignInRequired)
	assert.Equal(t, SignIn, c.Page())
}

func TestSignOutWipesSession(t *testing.T) {
	storage := session.Memory()
	a := &fakeAuth{signedIn: true, err: errors.New("backend down")}
	players := &fakePlayers{}
	c := New(Deps{Storage: storage, Auth: a, Players: players, Progress: &fakeProgress{}})

	c.SelectMedia(context.Background(), show)
	require.NoError(t, storage.Set(show.Key(), map[string]int{"season": 2}))

	err := c.SignOut(context.Background())
	assert.Error(t, err, "backend error is reported")
	assert.Equal(t, 1, a.signOuts)
	assert.Equal(t, 1, players.cleared)
	assert.Equal(t, Home, c.Page())
	_, ok := c.Current()
	assert.False(t, ok)

	assert.False(t, storage.Has(session.KeySelectedMedia))
	assert.False(t, storage.Has(show.Key()))
}

func TestResetKeepsAuth(t *testing.T) {
	storage := session.Memory()
	a := &fakeAuth{signedIn: true}
	players := &fakePlayers{}
	c := New(Deps{Storage: storage, Auth: a, Players: players, Progress: &fakeProgress{}})

	c.SelectMedia(context.Background(), show)
	c.Reset()
	assert.Zero(t, a.signOuts, "the session itself is left alone")
	assert.Equal(t, 1, players.cleared)
	assert.Equal(t, Home, c.Page())
	_, ok := c.Current()
	assert.False(t, ok)
	assert.False(t, storage.Has(session.KeySelectedMedia))
}

func TestRestore(t *testing.T) {
	storage := session.Memory()
	require.NoError(t, storage.Set(session.KeyCurrentPage, Player))
	require.NoError(t, storage.Set(session.KeySelectedMedia, show))

	c := New(Deps{Storage: storage})
	c.Restore()
	assert.Equal(t, Player, c.Page())
	current, ok := c.Current()
	require.True(t, ok)
	assert.True(t, current.Same(show))

	require.NoError(t, storage.Remove(session.KeySelectedMedia))
	c.Restore()
	assert.Equal(t, Home, c.Page(), "player without a selection")

	require.NoError(t, storage.Set(session.KeyCurrentPage, Bookmarks))
	c.Restore()
	assert.Equal(t, SignIn, c.Page())

	require.NoError(t, storage.Set(session.KeyCurrentPage, "nowhere"))
	c.Restore()
	assert.Equal(t, Home, c.Page())
}

// world is one process: its own session storage over a shared backend.
type world struct {
	auth    *auth.Service
	history *history.Store
	players *player.Cache
	nav     *Controller
	storage *session.Storage
}

func newWorld(t *testing.T, store *sqlite.Store, creds *session.Storage) *world {
	t.Helper()
	w := &world{
		auth:    auth.New(store, creds),
		history: history.New(store),
		storage: session.Memory(),
	}
	marks := bookmarks.New(store)
	unsubscribe := w.auth.OnChange(func(u *media.User) {
		id := ""
		if u != nil {
			id = u.ID
		}
		w.history.SetUser(id)
		marks.SetUser(id)
		w.history.Refresh(context.Background())
		marks.Refresh(context.Background())
	})
	t.Cleanup(unsubscribe)

	w.players = player.NewCache(w.storage, w.history, nil)
	w.nav = New(Deps{
		Storage:   w.storage,
		Auth:      w.auth,
		Progress:  w.history,
		Bookmarks: marks,
		Players:   w.players,
	})
	return w
}

func TestResumeAcrossSessions(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "nav.db"), sqlite.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	creds := session.Memory()
	ctx := context.Background()

	first := newWorld(t, store, creds)
	_, err = first.auth.SignUp(ctx, auth.SignUpRequest{
		Email: "ana@example.com", Nickname: "ana", Password: "secret123", Confirm: "secret123",
	})
	require.NoError(t, err)

	first.nav.SelectMedia(ctx, show)
	assert.Equal(t, history.Start, first.history.Get(show), "opening records the title")

	p := first.players.Open(show)
	p.SetSeason(2)
	first.players.Wait()
	p.SetEpisode(3)
	first.players.Wait()
	assert.Equal(t, history.Position{Season: 2, Episode: 3}, first.history.Get(show))

	bookmarked, err := first.nav.ToggleBookmark(ctx, show)
	require.NoError(t, err)
	assert.True(t, bookmarked)

	// A new process: fresh session state, same credentials.
	second := newWorld(t, store, creds)
	_, err = second.auth.Restore(ctx)
	require.NoError(t, err)

	resumed := second.players.Open(show)
	assert.Equal(t, player.State{Source: "vidsrc", Season: 2, Episode: 3}, resumed.State())

	require.NoError(t, second.nav.SignOut(ctx))
	assert.Zero(t, second.players.Len())
	assert.Equal(t, []string{session.KeyCurrentPage}, second.storage.Keys(""), "only the home page is left")
	assert.Empty(t, second.history.List())
	assert.Equal(t, SignIn, second.nav.Navigate(History))
}
