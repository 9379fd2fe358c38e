package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"reelwatch/internal/backend"
	"reelwatch/internal/media"
)

// fakeClock advances one second per call so ordering by timestamp is stable.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s, err := Open(filepath.Join(t.TempDir(), "reelwatch.db"), WithClock(clock.Now), WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func signUp(t *testing.T, s *Store, email, nickname string) backend.Session {
	t.Helper()
	sess, err := s.SignUp(context.Background(), email, nickname, "secret123")
	require.NoError(t, err)
	return sess
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reelwatch.db")

	s, err := Open(path, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	_, err = s.SignUp(context.Background(), "a@example.com", "alice", "secret123")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	defer s.Close()

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 2, n)

	_, err = s.SignIn(context.Background(), "a@example.com", "secret123")
	assert.NoError(t, err, "data must survive reopening")
}

func TestMigrationVersion(t *testing.T) {
	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("12_more.sql"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}

func TestSignUpAndSignIn(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	sess := signUp(t, s, "Alice@Example.com", "Alice")
	assert.NotEmpty(t, sess.Token)
	assert.Len(t, sess.Token, 64)
	assert.Equal(t, "alice@example.com", sess.User.Email)
	assert.Equal(t, "Alice", sess.User.Nickname)

	byEmail, err := s.SignIn(ctx, "ALICE@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, byEmail.User.ID)

	byNick, err := s.SignIn(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, byNick.User.ID)
	assert.NotEqual(t, byEmail.Token, byNick.Token)

	_, err = s.SignIn(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, backend.ErrInvalidCredentials)

	_, err = s.SignIn(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, backend.ErrInvalidCredentials)
}

func TestSignUpConflicts(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	signUp(t, s, "zoe@example.com", "Zoë")

	_, err := s.SignUp(ctx, "ZOE@example.com", "other", "secret123")
	assert.ErrorIs(t, err, backend.ErrEmailTaken)

	_, err = s.SignUp(ctx, "z2@example.com", "ZOË", "secret123")
	assert.ErrorIs(t, err, backend.ErrNicknameTaken)

	// Decomposed form of the same nickname.
	_, err = s.SignUp(ctx, "z3@example.com", "Zoe\u0308", "secret123")
	assert.ErrorIs(t, err, backend.ErrNicknameTaken)
}

func TestSessionLifecycle(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	sess := signUp(t, s, "bob@example.com", "bob")

	got, err := s.SessionUser(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, got.User.ID)

	_, err = s.SessionUser(ctx, "")
	assert.ErrorIs(t, err, backend.ErrUnauthorized)
	_, err = s.SessionUser(ctx, "deadbeef")
	assert.ErrorIs(t, err, backend.ErrUnauthorized)

	require.NoError(t, s.SignOut(ctx, sess.Token))
	_, err = s.SessionUser(ctx, sess.Token)
	assert.ErrorIs(t, err, backend.ErrUnauthorized)

	sess2, err := s.SignIn(ctx, "bob", "secret123")
	require.NoError(t, err)
	clock.Advance(backend.SessionTTL)
	_, err = s.SessionUser(ctx, sess2.Token)
	assert.ErrorIs(t, err, backend.ErrSessionExpired)
	_, err = s.SessionUser(ctx, sess2.Token)
	assert.ErrorIs(t, err, backend.ErrUnauthorized, "expired sessions are deleted")
}

func TestChangePassword(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	sess := signUp(t, s, "carol@example.com", "carol")

	err := s.ChangePassword(ctx, sess.Token, "wrong", "newpass1")
	assert.ErrorIs(t, err, backend.ErrInvalidCredentials)

	require.NoError(t, s.ChangePassword(ctx, sess.Token, "secret123", "newpass1"))

	_, err = s.SignIn(ctx, "carol", "secret123")
	assert.ErrorIs(t, err, backend.ErrInvalidCredentials)
	_, err = s.SignIn(ctx, "carol", "newpass1")
	assert.NoError(t, err)
}

func TestProgressUpsertOneRow(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	uid := signUp(t, s, "dan@example.com", "dan").User.ID

	show := media.Ref{ID: 1396, Type: media.TV, Title: "Breaking Bad", PosterPath: "/bb.jpg"}
	movie := media.Ref{ID: 1396, Type: media.Movie, Title: "Same id, other space"}

	_, err := s.UpsertProgress(ctx, media.Progress{UserID: uid, Media: show, Season: 1, Episode: 1})
	require.NoError(t, err)
	_, err = s.UpsertProgress(ctx, media.Progress{UserID: uid, Media: movie, Season: 1, Episode: 1})
	require.NoError(t, err)
	_, err = s.UpsertProgress(ctx, media.Progress{UserID: uid, Media: media.Ref{ID: 1396, Type: media.TV}, Season: 2, Episode: 3})
	require.NoError(t, err)

	rows, err := s.ListProgress(ctx, uid, backend.HistoryLimit)
	require.NoError(t, err)
	require.Len(t, rows, 2, "movie and tv with the same id are distinct rows")

	assert.True(t, rows[0].Media.Same(show), "latest write first")
	assert.Equal(t, 2, rows[0].Season)
	assert.Equal(t, 3, rows[0].Episode)
	assert.Equal(t, "Breaking Bad", rows[0].Media.Title, "blank title must not overwrite")
	assert.Equal(t, "/bb.jpg", rows[0].Media.PosterPath)
	assert.True(t, rows[0].WatchedAt.After(rows[1].WatchedAt))

	require.NoError(t, s.DeleteProgress(ctx, uid, show))
	rows, err = s.ListProgress(ctx, uid, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, media.Movie, rows[0].Media.Type)
}

func TestProgressLimitAndValidation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	uid := signUp(t, s, "eve@example.com", "eve").User.ID

	for i := 1; i <= 55; i++ {
		_, err := s.UpsertProgress(ctx, media.Progress{UserID: uid, Media: media.Ref{ID: i, Type: media.Movie}, Season: 1, Episode: 1})
		require.NoError(t, err)
	}

	rows, err := s.ListProgress(ctx, uid, backend.HistoryLimit)
	require.NoError(t, err)
	assert.Len(t, rows, 50)
	assert.Equal(t, 55, rows[0].Media.ID)

	all, err := s.ListProgress(ctx, uid, 0)
	require.NoError(t, err)
	assert.Len(t, all, 55)

	_, err = s.UpsertProgress(ctx, media.Progress{UserID: uid, Media: media.Ref{ID: 1, Type: media.TV}, Season: 0, Episode: 1})
	assert.Error(t, err)

	_, err = s.UpsertProgress(ctx, media.Progress{Media: media.Ref{ID: 1, Type: media.TV}, Season: 1, Episode: 1})
	assert.ErrorIs(t, err, backend.ErrUnauthorized)
}

func TestBookmarks(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	uid := signUp(t, s, "fay@example.com", "fay").User.ID
	ref := media.Ref{ID: 603, Type: media.Movie, Title: "The Matrix"}

	_, err := s.InsertBookmark(ctx, media.Bookmark{UserID: uid, Media: ref})
	require.NoError(t, err)
	_, err = s.InsertBookmark(ctx, media.Bookmark{UserID: uid, Media: ref})
	assert.ErrorIs(t, err, backend.ErrDuplicate)

	list, err := s.ListBookmarks(ctx, uid)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "The Matrix", list[0].Media.Title)

	require.NoError(t, s.DeleteBookmark(ctx, uid, ref))
	require.NoError(t, s.DeleteBookmark(ctx, uid, ref), "deleting twice is fine")

	list, err = s.ListBookmarks(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRatings(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	uid := signUp(t, s, "gus@example.com", "gus").User.ID
	ref := media.Ref{ID: 1399, Type: media.TV}

	_, err := s.UpsertRating(ctx, media.Rating{UserID: uid, Media: ref, Value: 3.5})
	require.NoError(t, err)
	_, err = s.UpsertRating(ctx, media.Rating{UserID: uid, Media: ref, Value: 4.5})
	require.NoError(t, err)

	_, err = s.UpsertRating(ctx, media.Rating{UserID: uid, Media: ref, Value: 4.2})
	assert.Error(t, err)
	_, err = s.UpsertRating(ctx, media.Rating{UserID: uid, Media: ref, Value: 6})
	assert.Error(t, err)

	list, err := s.ListRatings(ctx, uid)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 4.5, list[0].Value)
	assert.Equal(t, media.TV, list[0].Media.Type)

	require.NoError(t, s.DeleteRating(ctx, uid, ref))
	require.NoError(t, s.DeleteRating(ctx, uid, ref), "deleting a missing row is fine")
	list, err = s.ListRatings(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRowsAreScopedToUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := signUp(t, s, "a@example.com", "aaa").User.ID
	b := signUp(t, s, "b@example.com", "bbb").User.ID
	ref := media.Ref{ID: 7, Type: media.Movie}

	_, err := s.InsertBookmark(ctx, media.Bookmark{UserID: a, Media: ref})
	require.NoError(t, err)
	_, err = s.InsertBookmark(ctx, media.Bookmark{UserID: b, Media: ref})
	require.NoError(t, err, "another user's bookmark is not a duplicate")

	require.NoError(t, s.DeleteBookmark(ctx, a, ref))
	list, err := s.ListBookmarks(ctx, b)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
