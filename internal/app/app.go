// Package app assembles the reelwatch components from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"reelwatch/internal/auth"
	"reelwatch/internal/backend"
	"reelwatch/internal/backend/remote"
	"reelwatch/internal/backend/sqlite"
	"reelwatch/internal/bookmarks"
	"reelwatch/internal/config"
	"reelwatch/internal/embed"
	"reelwatch/internal/history"
	"reelwatch/internal/httputil"
	"reelwatch/internal/media"
	"reelwatch/internal/nav"
	"reelwatch/internal/player"
	"reelwatch/internal/ratings"
	"reelwatch/internal/session"
	"reelwatch/internal/tmdb"
)

// App holds one process worth of wired components.
type App struct {
	Config    *config.Config
	Backend   backend.Backend
	Session   *session.Storage
	Auth      *auth.Service
	History   *history.Store
	Bookmarks *bookmarks.Store
	Ratings   *ratings.Store
	Players   *player.Cache
	Nav       *nav.Controller
	Catalog   *tmdb.Client
	Prober    *embed.Prober
	Launcher  player.Launcher

	mu          sync.Mutex
	userID      string
	unsubscribe func()
}

// New opens storage and the backend and wires everything together. It does
// not touch the network; call Start to restore the previous session.
func New(cfg *config.Config) (*App, error) {
	sessionPath, err := config.SessionPath()
	if err != nil {
		return nil, err
	}
	storage, err := session.Open(sessionPath)
	if err != nil {
		return nil, fmt.Errorf("opening session storage: %w", err)
	}
	credsPath, err := config.CredentialsPath()
	if err != nil {
		return nil, err
	}
	creds, err := session.Open(credsPath)
	if err != nil {
		return nil, fmt.Errorf("opening credentials: %w", err)
	}

	httpc := httputil.NewClient()
	b, err := openBackend(cfg, httpc)
	if err != nil {
		return nil, err
	}

	catalog := tmdb.New(cfg.TMDBAPIKey, cfg.TMDBBase, cfg.Language, httpc)
	a := &App{
		Config:    cfg,
		Backend:   b,
		Session:   storage,
		Auth:      auth.New(b, creds),
		History:   history.New(b),
		Bookmarks: bookmarks.New(b),
		Ratings:   ratings.New(b),
		Catalog:   catalog,
		Prober:    embed.NewProber(httpc),
		Launcher:  player.NewLauncher(cfg.Browser),
	}

	var progress interface {
		player.Progress
		nav.Progress
	} = a.History
	if !cfg.History {
		progress = readOnly{a.History}
	}

	var seasons player.SeasonFetcher
	if catalog.Configured() {
		seasons = catalog
	}
	a.Players = player.NewCache(storage, progress, seasons)
	if src, err := embed.ParseSource(cfg.Source); err == nil {
		_ = a.Players.SetDefaultSource(src)
	}
	a.Nav = nav.New(nav.Deps{
		Storage:   storage,
		Auth:      a.Auth,
		Catalog:   catalog,
		Progress:  progress,
		Bookmarks: a.Bookmarks,
		Players:   a.Players,
	})
	a.unsubscribe = a.Auth.OnChange(a.userChanged)
	return a, nil
}

func openBackend(cfg *config.Config, httpc *http.Client) (backend.Backend, error) {
	if cfg.Remote() {
		c, err := remote.New(cfg.Backend, httpc)
		if err != nil {
			return nil, fmt.Errorf("remote backend: %w", err)
		}
		return c, nil
	}

	path, err := cfg.DatabasePath()
	if err != nil {
		return nil, err
	}
	s, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("local backend: %w", err)
	}
	return s, nil
}

// userChanged rebinds the per-user stores and reloads their snapshots.
// When a different user takes over without signing out first, the
// previous user's selection and player states are wiped so the newcomer
// does not resume from them.
func (a *App) userChanged(u *media.User) {
	id := ""
	if u != nil {
		id = u.ID
	}
	a.mu.Lock()
	previous := a.userID
	a.userID = id
	a.mu.Unlock()
	if previous != "" && id != "" && previous != id {
		a.Nav.Reset()
	}

	a.History.SetUser(id)
	a.Bookmarks.SetUser(id)
	a.Ratings.SetUser(id)
	if id == "" {
		return
	}

	ctx := context.Background()
	a.History.Refresh(ctx)
	a.Bookmarks.Refresh(ctx)
	a.Ratings.Refresh(ctx)
}

// Start restores the signed-in user and the last page and selection. An
// unreachable backend is logged and the app carries on signed out.
func (a *App) Start(ctx context.Context) {
	if _, err := a.Auth.Restore(ctx); err != nil {
		log.Printf("[app] %v", err)
	}
	a.Nav.Restore()
}

// Close waits for background progress syncs and closes the backend.
func (a *App) Close() error {
	a.Players.Wait()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	return a.Backend.Close()
}

// RequireUser returns the signed-in user or an auth error.
func (a *App) RequireUser() (*media.User, error) {
	if u := a.Auth.User(); u != nil {
		return u, nil
	}
	return nil, &auth.Error{Msg: "Not signed in (run reelwatch signin)", Err: errors.New("no session")}
}

// readOnly keeps resume lookups but drops writes, for history = false.
type readOnly struct {
	*history.Store
}

func (readOnly) Upsert(context.Context, media.Ref, int, int) {}
