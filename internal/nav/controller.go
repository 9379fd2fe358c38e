// Package nav tracks which page is showing and which title is selected,
// and runs the side effects that go with moving between them.
package nav

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"reelwatch/internal/history"
	"reelwatch/internal/media"
	"reelwatch/internal/session"
)

// Page is a top-level screen.
type Page string

const (
	Home      Page = "home"
	Player    Page = "player"
	SignIn    Page = "signin"
	Bookmarks Page = "bookmarks"
	History   Page = "history"
	Profile   Page = "profile"
)

// Pages lists every page in menu order.
func Pages() []Page {
	return []Page{Home, Player, SignIn, Bookmarks, History, Profile}
}

// ParsePage validates a page name.
func ParsePage(s string) (Page, error) {
	p := Page(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Pages() {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown page %q", s)
}

// Protected reports whether the page needs a signed-in user.
func (p Page) Protected() bool {
	return p == Bookmarks || p == History || p == Profile
}

// ErrSignInRequired is returned by actions that sent the user to the
// sign-in page instead of running.
var ErrSignInRequired = errors.New("sign in required")

// Auth is the part of the auth service the controller uses.
type Auth interface {
	Authenticated() bool
	SignOut(ctx context.Context) error
}

// Searcher runs multi-type catalog searches.
type Searcher interface {
	SearchMulti(ctx context.Context, query string) ([]media.Result, error)
}

// Progress records that a title was opened.
type Progress interface {
	Get(ref media.Ref) history.Position
	Upsert(ctx context.Context, ref media.Ref, season, episode int)
}

// BookmarkToggler adds or removes a bookmark.
type BookmarkToggler interface {
	Toggle(ctx context.Context, ref media.Ref) (bool, error)
}

// Players is the player-state cache.
type Players interface {
	Clear()
}

// Deps bundles the collaborators of a Controller.
type Deps struct {
	Storage   *session.Storage
	Auth      Auth
	Catalog   Searcher
	Progress  Progress
	Bookmarks BookmarkToggler
	Players   Players
}

// Controller owns the current page, the selected title and the search
// results. It is safe for concurrent use.
type Controller struct {
	deps Deps

	mu      sync.Mutex
	page    Page
	current *media.Ref
	query   string
	results []media.Result
	cursor  int
}

// New creates a controller on the home page. Call Restore to pick up a
// previous session.
func New(deps Deps) *Controller {
	if deps.Storage == nil {
		deps.Storage = session.Memory()
	}
	return &Controller{deps: deps, page: Home}
}

// Page returns the active page.
func (c *Controller) Page() Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// Current returns the selected title.
func (c *Controller) Current() (media.Ref, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return media.Ref{}, false
	}
	return *c.current, true
}

// Results returns the last search query and its playable results.
func (c *Controller) Results() (string, []media.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query, append([]media.Result(nil), c.results...)
}

// Cursor is the highlighted row of the active list.
func (c *Controller) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// SetCursor moves the highlight.
func (c *Controller) SetCursor(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 {
		i = 0
	}
	c.cursor = i
}

// SelectMedia makes ref the current title and opens the player. Selecting
// the title that is already current only refreshes the view; otherwise the
// selection is persisted and, for a signed-in user, the title is recorded
// in the watch history at its saved position.
func (c *Controller) SelectMedia(ctx context.Context, ref media.Ref) {
	c.mu.Lock()
	changed := c.current == nil || !c.current.Same(ref)
	if changed {
		r := ref
		c.current = &r
	}
	c.results = nil
	c.query = ""
	c.cursor = 0
	c.setPage(Player)
	c.mu.Unlock()

	if !changed {
		return
	}

	if err := c.deps.Storage.Set(session.KeySelectedMedia, ref); err != nil {
		log.Printf("[nav] saving selection: %v", err)
	}
	if c.authenticated() && c.deps.Progress != nil {
		pos := c.deps.Progress.Get(ref)
		c.deps.Progress.Upsert(ctx, ref, pos.Season, pos.Episode)
	}
}

// ClearSelection drops the current title.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()

	if err := c.deps.Storage.Remove(session.KeySelectedMedia); err != nil {
		log.Printf("[nav] clearing selection: %v", err)
	}
}

// Navigate moves to page and returns the page actually shown. Protected
// pages redirect to sign-in when nobody is signed in, and the player needs
// a selected title. Navigating to the active page changes nothing.
func (c *Controller) Navigate(page Page) Page {
	if page.Protected() && !c.authenticated() {
		page = SignIn
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if page == Player && c.current == nil {
		page = Home
	}
	if page == c.page {
		return page
	}
	c.results = nil
	c.query = ""
	c.cursor = 0
	c.setPage(page)
	return page
}

// setPage switches and persists the page. Callers hold mu.
func (c *Controller) setPage(page Page) {
	if c.page == page {
		return
	}
	c.page = page
	if err := c.deps.Storage.Set(session.KeyCurrentPage, page); err != nil {
		log.Printf("[nav] saving page: %v", err)
	}
}

// Search runs a multi-search and keeps the movie and TV hits in the order
// the catalog returned them. A blank query clears the results.
func (c *Controller) Search(ctx context.Context, query string) []media.Result {
	query = strings.TrimSpace(query)
	if query == "" || c.deps.Catalog == nil {
		c.ClearSearch()
		return nil
	}

	found, err := c.deps.Catalog.SearchMulti(ctx, query)
	if err != nil {
		log.Printf("[nav] searching %q: %v", query, err)
		c.ClearSearch()
		return nil
	}

	var playable []media.Result
	for _, r := range found {
		if r.Kind.Playable() && r.Title != nil {
			playable = append(playable, r)
		}
	}

	c.mu.Lock()
	c.query = query
	c.results = playable
	c.cursor = 0
	c.mu.Unlock()
	return playable
}

// ClearSearch drops the search results.
func (c *Controller) ClearSearch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = ""
	c.results = nil
}

// ToggleBookmark bookmarks ref, or removes the bookmark if it exists, and
// reports the new state. Without a signed-in user it goes to the sign-in
// page and returns ErrSignInRequired.
func (c *Controller) ToggleBookmark(ctx context.Context, ref media.Ref) (bool, error) {
	if !c.authenticated() {
		c.Navigate(SignIn)
		return false, ErrSignInRequired
	}
	return c.deps.Bookmarks.Toggle(ctx, ref)
}

// AuthSucceeded returns to the home page after a sign-in or sign-up.
func (c *Controller) AuthSucceeded() {
	c.Navigate(Home)
}

// SignOut ends the session and wipes all session state: the selection,
// every player state and the persisted session storage. The returned
// error comes from the backend; local state is cleared regardless.
func (c *Controller) SignOut(ctx context.Context) error {
	var err error
	if c.deps.Auth != nil {
		err = c.deps.Auth.SignOut(ctx)
	}
	c.Reset()
	return err
}

// Reset wipes the session state of whoever was using the app: the
// selection, search results, every player state and the persisted session
// storage. The page goes back to home. It runs on sign-out and when one
// user replaces another without signing out.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.current = nil
	c.query = ""
	c.results = nil
	c.cursor = 0
	c.mu.Unlock()

	if c.deps.Players != nil {
		c.deps.Players.Clear()
	}
	if cerr := c.deps.Storage.Clear(); cerr != nil {
		log.Printf("[nav] clearing session storage: %v", cerr)
	}

	c.mu.Lock()
	c.page = Home
	c.mu.Unlock()
	if serr := c.deps.Storage.Set(session.KeyCurrentPage, Home); serr != nil {
		log.Printf("[nav] saving page: %v", serr)
	}
}

// Restore reloads the page and selection saved by a previous run. A saved
// player page without a selection falls back to home, and protected pages
// fall back to sign-in for anonymous users.
func (c *Controller) Restore() {
	var ref media.Ref
	ok, err := c.deps.Storage.Get(session.KeySelectedMedia, &ref)
	if err != nil {
		log.Printf("[nav] reading selection: %v", err)
	}

	var saved string
	if _, err := c.deps.Storage.Get(session.KeyCurrentPage, &saved); err != nil {
		log.Printf("[nav] reading page: %v", err)
	}
	page, err := ParsePage(saved)
	if err != nil {
		page = Home
	}
	if page.Protected() && !c.authenticated() {
		page = SignIn
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ok && ref.ID > 0 {
		c.current = &ref
	} else {
		c.current = nil
	}
	if page == Player && c.current == nil {
		page = Home
	}
	c.page = page
}

func (c *Controller) authenticated() bool {
	return c.deps.Auth != nil && c.deps.Auth.Authenticated()
}
