// Package remote implements backend.Backend against a `reelwatch serve`
// instance over JSON/HTTP.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"reelwatch/internal/backend"
	"reelwatch/internal/httputil"
	"reelwatch/internal/media"
)

// Client talks to a reelwatch server. The bearer token is adopted from
// successful sign-up, sign-in and session lookups and cleared on sign-out.
type Client struct {
	base  string
	httpc *http.Client

	mu    sync.RWMutex
	token string
}

var _ backend.Backend = (*Client)(nil)

// New creates a client for the server at base. A nil httpc uses
// httputil.NewClient.
func New(base string, httpc *http.Client) (*Client, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if err := httputil.ValidateServiceURL(base); err != nil {
		return nil, fmt.Errorf("backend URL: %w", err)
	}
	if httpc == nil {
		httpc = httputil.NewClient()
	}
	return &Client{base: base, httpc: httpc}, nil
}

// Token returns the adopted bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (c *Client) Close() error {
	return nil
}

var sentinels = []error{
	backend.ErrDuplicate,
	backend.ErrNotFound,
	backend.ErrInvalidCredentials,
	backend.ErrEmailTaken,
	backend.ErrNicknameTaken,
	backend.ErrUnauthorized,
	backend.ErrSessionExpired,
}

// mapError turns server error bodies back into backend sentinels.
func mapError(err error) error {
	var se *httputil.StatusError
	if !errors.As(err, &se) {
		return err
	}
	for _, s := range sentinels {
		if se.Message == s.Error() {
			return s
		}
	}
	if se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden {
		return fmt.Errorf("%w: %s", backend.ErrUnauthorized, se.Message)
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var header http.Header
	if token != "" {
		header = http.Header{"Authorization": []string{"Bearer " + token}}
	}
	return mapError(httputil.DoJSON(ctx, c.httpc, method, c.base+path, header, body, out))
}

// authed runs a table request with the adopted token.
func (c *Client) authed(ctx context.Context, method, path string, body, out any) error {
	token := c.Token()
	if token == "" {
		return backend.ErrUnauthorized
	}
	return c.do(ctx, method, path, token, body, out)
}

func userPath(userID string, parts ...string) string {
	p := "/users/" + url.PathEscape(userID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func refPath(userID, table string, ref media.Ref) string {
	return userPath(userID, table, ref.Type.String(), strconv.Itoa(ref.ID))
}

// SignUp registers and adopts the new session.
func (c *Client) SignUp(ctx context.Context, email, nickname, password string) (backend.Session, error) {
	var sess backend.Session
	body := map[string]string{"email": email, "nickname": nickname, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "", body, &sess); err != nil {
		return backend.Session{}, err
	}
	c.setToken(sess.Token)
	return sess, nil
}

// SignIn authenticates by email or nickname and adopts the session.
func (c *Client) SignIn(ctx context.Context, identifier, password string) (backend.Session, error) {
	var sess backend.Session
	body := map[string]string{"identifier": identifier, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/signin", "", body, &sess); err != nil {
		return backend.Session{}, err
	}
	c.setToken(sess.Token)
	return sess, nil
}

// SignOut ends the session on the server and forgets the token, even when
// the server could not be reached.
func (c *Client) SignOut(ctx context.Context, token string) error {
	defer c.setToken("")
	if token == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/auth/signout", token, nil, nil)
}

// SessionUser resolves token and adopts it on success.
func (c *Client) SessionUser(ctx context.Context, token string) (backend.Session, error) {
	if token == "" {
		return backend.Session{}, backend.ErrUnauthorized
	}
	var sess backend.Session
	if err := c.do(ctx, http.MethodGet, "/auth/session", token, nil, &sess); err != nil {
		return backend.Session{}, err
	}
	c.setToken(sess.Token)
	return sess, nil
}

// ChangePassword changes the password of token's user.
func (c *Client) ChangePassword(ctx context.Context, token, current, next string) error {
	body := map[string]string{"current": current, "next": next}
	return c.do(ctx, http.MethodPost, "/auth/password", token, body, nil)
}

func (c *Client) UpsertProgress(ctx context.Context, p media.Progress) (media.Progress, error) {
	var saved media.Progress
	if err := c.authed(ctx, http.MethodPut, userPath(p.UserID, "history"), p, &saved); err != nil {
		return p, err
	}
	return saved, nil
}

func (c *Client) DeleteProgress(ctx context.Context, userID string, ref media.Ref) error {
	return c.authed(ctx, http.MethodDelete, refPath(userID, "history", ref), nil, nil)
}

func (c *Client) ListProgress(ctx context.Context, userID string, limit int) ([]media.Progress, error) {
	var rows []media.Progress
	path := userPath(userID, "history") + "?limit=" + strconv.Itoa(limit)
	if err := c.authed(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) InsertBookmark(ctx context.Context, b media.Bookmark) (media.Bookmark, error) {
	var saved media.Bookmark
	if err := c.authed(ctx, http.MethodPost, userPath(b.UserID, "bookmarks"), b, &saved); err != nil {
		return b, err
	}
	return saved, nil
}

func (c *Client) DeleteBookmark(ctx context.Context, userID string, ref media.Ref) error {
	return c.authed(ctx, http.MethodDelete, refPath(userID, "bookmarks", ref), nil, nil)
}

func (c *Client) ListBookmarks(ctx context.Context, userID string) ([]media.Bookmark, error) {
	var rows []media.Bookmark
	if err := c.authed(ctx, http.MethodGet, userPath(userID, "bookmarks"), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) UpsertRating(ctx context.Context, r media.Rating) (media.Rating, error) {
	var saved media.Rating
	if err := c.authed(ctx, http.MethodPut, userPath(r.UserID, "ratings"), r, &saved); err != nil {
		return r, err
	}
	return saved, nil
}

func (c *Client) DeleteRating(ctx context.Context, userID string, ref media.Ref) error {
	return c.authed(ctx, http.MethodDelete, refPath(userID, "ratings", ref), nil, nil)
}

func (c *Client) ListRatings(ctx context.Context, userID string) ([]media.Rating, error) {
	var rows []media.Rating
	if err := c.authed(ctx, http.MethodGet, userPath(userID, "ratings"), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
