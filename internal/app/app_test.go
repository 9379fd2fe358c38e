package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelwatch/internal/auth"
	"reelwatch/internal/config"
	"reelwatch/internal/media"
	"reelwatch/internal/nav"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	return cfg
}

var show = media.Ref{ID: 1396, Type: media.TV, Title: "Breaking Bad"}

func TestAppFollowsAuthChanges(t *testing.T) {
	cfg := newTestConfig(t)
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	_, err = a.RequireUser()
	assert.True(t, auth.IsAuthError(err))

	user, err := a.Auth.SignUp(ctx, auth.SignUpRequest{
		Email: "ana@example.com", Nickname: "ana", Password: "secret123", Confirm: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, a.History.UserID())

	require.NoError(t, a.Bookmarks.Add(ctx, show))
	require.NoError(t, a.Ratings.Set(ctx, show, 4.5))
	a.Nav.SelectMedia(ctx, show)
	assert.Len(t, a.History.List(), 1)

	require.NoError(t, a.Nav.SignOut(ctx))
	assert.Empty(t, a.History.UserID())
	assert.Empty(t, a.Bookmarks.List())
	assert.Zero(t, a.Ratings.Get(show))
}

func TestAppRestoresSession(t *testing.T) {
	cfg := newTestConfig(t)
	ctx := context.Background()

	first, err := New(cfg)
	require.NoError(t, err)
	_, err = first.Auth.SignUp(ctx, auth.SignUpRequest{
		Email: "ana@example.com", Nickname: "ana", Password: "secret123", Confirm: "secret123",
	})
	require.NoError(t, err)
	require.NoError(t, first.Bookmarks.Add(ctx, show))
	first.Nav.SelectMedia(ctx, show)
	require.NoError(t, first.Close())

	second, err := New(cfg)
	require.NoError(t, err)
	defer second.Close()
	second.Start(ctx)

	require.NotNil(t, second.Auth.User())
	assert.True(t, second.Bookmarks.Contains(show))
	assert.Equal(t, nav.Player, second.Nav.Page())
	current, ok := second.Nav.Current()
	require.True(t, ok)
	assert.True(t, current.Same(show))
}

func TestHistoryDisabled(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.History = false
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	_, err = a.Auth.SignUp(ctx, auth.SignUpRequest{
		Email: "ana@example.com", Nickname: "ana", Password: "secret123", Confirm: "secret123",
	})
	require.NoError(t, err)

	a.Nav.SelectMedia(ctx, show)
	a.Players.Open(show).SetEpisode(4)
	a.Players.Wait()
	assert.Empty(t, a.History.List())
}

func TestSwitchingUsersWithoutSignOut(t *testing.T) {
	cfg := newTestConfig(t)
	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	_, err = a.Auth.SignUp(ctx, auth.SignUpRequest{
		Email: "ana@example.com", Nickname: "ana", Password: "secret123", Confirm: "secret123",
	})
	require.NoError(t, err)
	a.Nav.SelectMedia(ctx, show)
	p := a.Players.Open(show)
	p.SetSeason(3)
	p.SetEpisode(7)
	a.Players.Wait()

	bob, err := a.Auth.SignUp(ctx, auth.SignUpRequest{
		Email: "bob@example.com", Nickname: "bob", Password: "secret123", Confirm: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, a.History.UserID())

	_, ok := a.Nav.Current()
	assert.False(t, ok, "previous selection is dropped")
	assert.Equal(t, nav.Home, a.Nav.Page())

	state := a.Players.Open(show).State()
	assert.Equal(t, 1, state.Season)
	assert.Equal(t, 1, state.Episode)
	a.Players.Wait()
	assert.Empty(t, a.History.List())
}
