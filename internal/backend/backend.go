// Package backend defines the backend-as-a-service boundary: an auth/session
// subsystem plus row-level tables for watch history, bookmarks and ratings,
// all keyed by user id and media identity.
package backend

import (
	"context"
	"errors"
	"time"

	"reelwatch/internal/media"
)

var (
	ErrDuplicate          = errors.New("row already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNicknameTaken      = errors.New("nickname already taken")
	ErrUnauthorized       = errors.New("not authorized")
	ErrSessionExpired     = errors.New("session expired")
)

// SessionTTL is how long a sign-in stays valid.
const SessionTTL = 7 * 24 * time.Hour

// HistoryLimit is how many progress rows a history listing returns.
const HistoryLimit = 50

// Session is an authenticated session.
type Session struct {
	Token     string     `json:"token"`
	User      media.User `json:"user"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Auth is the sign-up / sign-in / session subsystem.
type Auth interface {
	SignUp(ctx context.Context, email, nickname, password string) (Session, error)
	// SignIn accepts an email address or a nickname as identifier.
	SignIn(ctx context.Context, identifier, password string) (Session, error)
	SignOut(ctx context.Context, token string) error
	SessionUser(ctx context.Context, token string) (Session, error)
	ChangePassword(ctx context.Context, token, current, next string) error
}

// HistoryTable stores one progress row per (user, media).
type HistoryTable interface {
	UpsertProgress(ctx context.Context, p media.Progress) (media.Progress, error)
	DeleteProgress(ctx context.Context, userID string, ref media.Ref) error
	// ListProgress returns rows newest first; limit <= 0 means all rows.
	ListProgress(ctx context.Context, userID string, limit int) ([]media.Progress, error)
}

// BookmarkTable stores one bookmark per (user, media).
type BookmarkTable interface {
	// InsertBookmark returns ErrDuplicate when the row exists.
	InsertBookmark(ctx context.Context, b media.Bookmark) (media.Bookmark, error)
	DeleteBookmark(ctx context.Context, userID string, ref media.Ref) error
	ListBookmarks(ctx context.Context, userID string) ([]media.Bookmark, error)
}

// RatingTable stores one rating per (user, media).
type RatingTable interface {
	UpsertRating(ctx context.Context, r media.Rating) (media.Rating, error)
	DeleteRating(ctx context.Context, userID string, ref media.Ref) error
	ListRatings(ctx context.Context, userID string) ([]media.Rating, error)
}

// Backend is the complete service.
type Backend interface {
	Auth
	HistoryTable
	BookmarkTable
	RatingTable
	Close() error
}
