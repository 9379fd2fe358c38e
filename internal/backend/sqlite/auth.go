package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"reelwatch/internal/backend"
	"reelwatch/internal/media"
)

const defaultCost = bcrypt.DefaultCost

// NicknameKey is the uniqueness key for nicknames: NFKC-normalised and
// case-folded, so "Zoë", "ZOË" and "Zoë" collide.
func NicknameKey(nickname string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(nickname)))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a user and signs them in.
func (s *Store) SignUp(ctx context.Context, email, nickname, password string) (backend.Session, error) {
	email = normalizeEmail(email)
	nickname = strings.TrimSpace(nickname)
	key := NicknameKey(nickname)

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&n); err != nil {
		return backend.Session{}, fmt.Errorf("checking email: %w", err)
	}
	if n > 0 {
		return backend.Session{}, backend.ErrEmailTaken
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE nickname_key = ?`, key).Scan(&n); err != nil {
		return backend.Session{}, fmt.Errorf("checking nickname: %w", err)
	}
	if n > 0 {
		return backend.Session{}, backend.ErrNicknameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return backend.Session{}, fmt.Errorf("hashing password: %w", err)
	}

	user := media.User{
		ID:        uuid.NewString(),
		Email:     email,
		Nickname:  nickname,
		CreatedAt: fromMillis(toMillis(s.now())),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, nickname, nickname_key, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.Nickname, key, string(hash), toMillis(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "nickname_key") {
				return backend.Session{}, backend.ErrNicknameTaken
			}
			return backend.Session{}, backend.ErrEmailTaken
		}
		return backend.Session{}, fmt.Errorf("creating user: %w", err)
	}

	return s.createSession(ctx, user)
}

// SignIn verifies credentials. An identifier containing "@" is looked up as
// an email, anything else as a nickname.
func (s *Store) SignIn(ctx context.Context, identifier, password string) (backend.Session, error) {
	query := `SELECT id, email, nickname, password_hash, created_at FROM users WHERE nickname_key = ?`
	arg := NicknameKey(identifier)
	if strings.Contains(identifier, "@") {
		query = `SELECT id, email, nickname, password_hash, created_at FROM users WHERE email = ?`
		arg = normalizeEmail(identifier)
	}

	var (
		user    media.User
		hash    string
		created int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email, &user.Nickname, &hash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return backend.Session{}, backend.ErrInvalidCredentials
	}
	if err != nil {
		return backend.Session{}, fmt.Errorf("looking up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return backend.Session{}, backend.ErrInvalidCredentials
	}
	user.CreatedAt = fromMillis(created)

	return s.createSession(ctx, user)
}

// SignOut deletes the session. Unknown tokens are ignored.
func (s *Store) SignOut(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// SessionUser resolves a session token.
func (s *Store) SessionUser(ctx context.Context, token string) (backend.Session, error) {
	if token == "" {
		return backend.Session{}, backend.ErrUnauthorized
	}

	var (
		sess    = backend.Session{Token: token}
		created int64
		expires int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.nickname, u.created_at, s.expires_at
		 FROM sessions s JOIN users u ON u.id = s.user_id
		 WHERE s.token = ?`, token,
	).Scan(&sess.User.ID, &sess.User.Email, &sess.User.Nickname, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return backend.Session{}, backend.ErrUnauthorized
	}
	if err != nil {
		return backend.Session{}, fmt.Errorf("looking up session: %w", err)
	}

	sess.User.CreatedAt = fromMillis(created)
	sess.ExpiresAt = fromMillis(expires)
	if !s.now().Before(sess.ExpiresAt) {
		_ = s.SignOut(ctx, token)
		return backend.Session{}, backend.ErrSessionExpired
	}
	return sess, nil
}

// ChangePassword replaces the password of the session's user after
// verifying the current one.
func (s *Store) ChangePassword(ctx context.Context, token, current, next string) error {
	sess, err := s.SessionUser(ctx, token)
	if err != nil {
		return err
	}

	var hash string
	if err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id = ?`, sess.User.ID).Scan(&hash); err != nil {
		return fmt.Errorf("looking up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)) != nil {
		return backend.ErrInvalidCredentials
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, string(newHash), sess.User.ID); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

func (s *Store) createSession(ctx context.Context, user media.User) (backend.Session, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return backend.Session{}, fmt.Errorf("generating token: %w", err)
	}

	sess := backend.Session{
		Token:     hex.EncodeToString(tokenBytes),
		User:      user,
		ExpiresAt: fromMillis(toMillis(s.now().Add(backend.SessionTTL))),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		sess.Token, user.ID, toMillis(sess.ExpiresAt),
	)
	if err != nil {
		return backend.Session{}, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}
