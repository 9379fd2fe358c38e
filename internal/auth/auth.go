// Package auth manages the signed-in user: sign-up validation, sign-in by
// email or nickname, the persisted session token and change notifications.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"unicode/utf8"

	"reelwatch/internal/backend"
	"reelwatch/internal/media"
	"reelwatch/internal/session"
)

const (
	// MinPasswordLength is the shortest accepted password.
	MinPasswordLength = 6
	// MinNicknameLength is the shortest accepted nickname.
	MinNicknameLength = 3

	tokenKey = "token"
)

// Error is a user-facing authentication failure: bad input, bad
// credentials or a registration conflict. Callers show Error() inline.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Err }

// IsAuthError reports whether err is an *Error.
func IsAuthError(err error) bool {
	var ae *Error
	return errors.As(err, &ae)
}

func invalid(msg string) error {
	return &Error{Msg: msg}
}

// translate converts backend sentinels into user-facing errors and wraps
// everything else.
func translate(op string, err error) error {
	switch {
	case errors.Is(err, backend.ErrInvalidCredentials):
		return &Error{Msg: "Invalid nickname/email or password", Err: err}
	case errors.Is(err, backend.ErrEmailTaken):
		return &Error{Msg: "An account with this email already exists", Err: err}
	case errors.Is(err, backend.ErrNicknameTaken):
		return &Error{Msg: "This nickname is already taken", Err: err}
	case errors.Is(err, backend.ErrSessionExpired), errors.Is(err, backend.ErrUnauthorized):
		return &Error{Msg: "Your session has expired, please sign in again", Err: err}
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// SignUpRequest carries the registration form.
type SignUpRequest struct {
	Email    string
	Nickname string
	Password string
	Confirm  string
}

// Validate applies the registration rules.
func (r SignUpRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || strings.TrimSpace(r.Nickname) == "" || r.Password == "" || r.Confirm == "" {
		return invalid("All fields are required")
	}
	if !strings.Contains(r.Email, "@") {
		return invalid("Please enter a valid email address")
	}
	if r.Password != r.Confirm {
		return invalid("Passwords do not match")
	}
	if utf8.RuneCountInString(r.Password) < MinPasswordLength {
		return invalid(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if utf8.RuneCountInString(strings.TrimSpace(r.Nickname)) < MinNicknameLength {
		return invalid(fmt.Sprintf("Nickname must be at least %d characters", MinNicknameLength))
	}
	if strings.Contains(r.Nickname, "@") {
		return invalid("Nickname cannot contain @")
	}
	return nil
}

// Service holds the current session.
type Service struct {
	backend backend.Auth
	creds   *session.Storage

	mu   sync.RWMutex
	sess *backend.Session

	subsMu sync.Mutex
	subs   map[int]func(*media.User)
	nextID int
}

// New creates a service. creds persists the session token between runs.
func New(b backend.Auth, creds *session.Storage) *Service {
	if creds == nil {
		creds = session.Memory()
	}
	return &Service{
		backend: b,
		creds:   creds,
		subs:    make(map[int]func(*media.User)),
	}
}

// User returns the signed-in user, or nil.
func (s *Service) User() *media.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sess == nil {
		return nil
	}
	u := s.sess.User
	return &u
}

// UserID returns the signed-in user's id, or "".
func (s *Service) UserID() string {
	if u := s.User(); u != nil {
		return u.ID
	}
	return ""
}

// Authenticated reports whether a user is signed in.
func (s *Service) Authenticated() bool {
	return s.User() != nil
}

// OnChange registers fn to be called with the new user (nil on sign-out)
// whenever the session changes. The returned func unsubscribes.
func (s *Service) OnChange(fn func(*media.User)) func() {
	s.subsMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Service) notify() {
	user := s.User()

	s.subsMu.Lock()
	fns := make([]func(*media.User), 0, len(s.subs))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}

// adopt makes sess the current session. A different session that was
// still active is revoked on the backend.
func (s *Service) adopt(ctx context.Context, sess backend.Session) {
	s.mu.Lock()
	var previous string
	if s.sess != nil {
		previous = s.sess.Token
	}
	s.sess = &sess
	s.mu.Unlock()

	if previous != "" && previous != sess.Token {
		if err := s.backend.SignOut(ctx, previous); err != nil {
			log.Printf("[auth] revoking previous session: %v", err)
		}
	}

	if err := s.creds.Set(tokenKey, sess.Token); err != nil {
		log.Printf("[auth] saving session token: %v", err)
	}
	s.notify()
}

func (s *Service) drop() {
	s.mu.Lock()
	s.sess = nil
	s.mu.Unlock()

	if err := s.creds.Remove(tokenKey); err != nil {
		log.Printf("[auth] removing session token: %v", err)
	}
	s.notify()
}

// SignUp validates the form, registers the account and signs it in.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*media.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sess, err := s.backend.SignUp(ctx, strings.TrimSpace(req.Email), strings.TrimSpace(req.Nickname), req.Password)
	if err != nil {
		return nil, translate("sign up", err)
	}
	s.adopt(ctx, sess)
	return s.User(), nil
}

// SignIn authenticates with an email address or a nickname. Identifiers
// containing "@" are emails; the backend resolves nicknames directly.
func (s *Service) SignIn(ctx context.Context, identifier, password string) (*media.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, invalid("Email/Nickname and password are required")
	}
	sess, err := s.backend.SignIn(ctx, identifier, password)
	if err != nil {
		return nil, translate("sign in", err)
	}
	s.adopt(ctx, sess)
	return s.User(), nil
}

// SignOut ends the session. Local state is cleared even when the backend
// call fails; that error is returned for logging.
func (s *Service) SignOut(ctx context.Context) error {
	s.mu.RLock()
	var token string
	if s.sess != nil {
		token = s.sess.Token
	}
	s.mu.RUnlock()

	var err error
	if token != "" {
		err = s.backend.SignOut(ctx, token)
	}
	s.drop()
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Restore resumes the persisted session, if any. A rejected token is
// forgotten; a backend that cannot be reached leaves it in place.
func (s *Service) Restore(ctx context.Context) (*media.User, error) {
	var token string
	ok, err := s.creds.Get(tokenKey, &token)
	if err != nil {
		log.Printf("[auth] reading session token: %v", err)
	}
	if !ok || token == "" {
		return nil, nil
	}

	sess, err := s.backend.SessionUser(ctx, token)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, backend.ErrSessionExpired) {
			s.drop()
			return nil, nil
		}
		return nil, fmt.Errorf("restoring session: %w", err)
	}
	s.adopt(ctx, sess)
	return s.User(), nil
}

// ChangePassword verifies current and replaces it with next.
func (s *Service) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if current == "" || next == "" || confirm == "" {
		return invalid("All fields are required")
	}
	if next != confirm {
		return invalid("New passwords do not match")
	}
	if utf8.RuneCountInString(next) < MinPasswordLength {
		return invalid(fmt.Sprintf("New password must be at least %d characters", MinPasswordLength))
	}

	s.mu.RLock()
	var token string
	if s.sess != nil {
		token = s.sess.Token
	}
	s.mu.RUnlock()
	if token == "" {
		return invalid("You must be signed in to change your password")
	}

	if err := s.backend.ChangePassword(ctx, token, current, next); err != nil {
		if errors.Is(err, backend.ErrInvalidCredentials) {
			return &Error{Msg: "Current password is incorrect", Err: err}
		}
		return translate("change password", err)
	}
	return nil
}
