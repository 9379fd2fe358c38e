package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"reelwatch/internal/backend"
	"reelwatch/internal/media"
)

func requireUser(userID string) error {
	if userID == "" {
		return backend.ErrUnauthorized
	}
	return nil
}

// UpsertProgress writes the single history row for (user, media). The last
// write wins; watched_at is stamped now unless the caller set it.
func (s *Store) UpsertProgress(ctx context.Context, p media.Progress) (media.Progress, error) {
	if err := requireUser(p.UserID); err != nil {
		return p, err
	}
	if p.Season < 1 || p.Episode < 1 {
		return p, fmt.Errorf("invalid position S%dE%d", p.Season, p.Episode)
	}
	if p.WatchedAt.IsZero() {
		p.WatchedAt = s.now()
	}
	p.WatchedAt = fromMillis(toMillis(p.WatchedAt))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watch_history (user_id, media_type, media_id, title, poster_path, season, episode, watched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, media_type, media_id) DO UPDATE SET
			title = CASE WHEN excluded.title != '' THEN excluded.title ELSE watch_history.title END,
			poster_path = CASE WHEN excluded.poster_path != '' THEN excluded.poster_path ELSE watch_history.poster_path END,
			season = excluded.season,
			episode = excluded.episode,
			watched_at = excluded.watched_at`,
		p.UserID, p.Media.Type.String(), p.Media.ID, p.Media.Title, p.Media.PosterPath,
		p.Season, p.Episode, toMillis(p.WatchedAt),
	)
	if err != nil {
		return p, fmt.Errorf("upserting progress: %w", err)
	}
	return p, nil
}

// DeleteProgress removes the history row. Missing rows are not an error.
func (s *Store) DeleteProgress(ctx context.Context, userID string, ref media.Ref) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM watch_history WHERE user_id = ? AND media_type = ? AND media_id = ?`,
		userID, ref.Type.String(), ref.ID,
	)
	if err != nil {
		return fmt.Errorf("deleting progress: %w", err)
	}
	return nil
}

// ListProgress returns the user's history, most recently watched first.
func (s *Store) ListProgress(ctx context.Context, userID string, limit int) ([]media.Progress, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT media_type, media_id, title, poster_path, season, episode, watched_at
		 FROM watch_history
		 WHERE user_id = ?
		 ORDER BY watched_at DESC, rowid DESC
		 LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing progress: %w", err)
	}
	defer rows.Close()

	ret := make([]media.Progress, 0)
	for rows.Next() {
		p := media.Progress{UserID: userID}
		var watched int64
		ref, err := scanRef(rows, &p.Season, &p.Episode, &watched)
		if err != nil {
			return nil, err
		}
		p.Media = ref
		p.WatchedAt = fromMillis(watched)
		ret = append(ret, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// InsertBookmark adds a bookmark, returning backend.ErrDuplicate when the
// user already bookmarked the title.
func (s *Store) InsertBookmark(ctx context.Context, b media.Bookmark) (media.Bookmark, error) {
	if err := requireUser(b.UserID); err != nil {
		return b, err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}
	b.CreatedAt = fromMillis(toMillis(b.CreatedAt))

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bookmarks (user_id, media_type, media_id, title, poster_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, media_type, media_id) DO NOTHING`,
		b.UserID, b.Media.Type.String(), b.Media.ID, b.Media.Title, b.Media.PosterPath, toMillis(b.CreatedAt),
	)
	if err != nil {
		return b, fmt.Errorf("inserting bookmark: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return b, backend.ErrDuplicate
	}
	return b, nil
}

// DeleteBookmark removes a bookmark. Missing rows are not an error.
func (s *Store) DeleteBookmark(ctx context.Context, userID string, ref media.Ref) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE user_id = ? AND media_type = ? AND media_id = ?`,
		userID, ref.Type.String(), ref.ID,
	)
	if err != nil {
		return fmt.Errorf("deleting bookmark: %w", err)
	}
	return nil
}

// ListBookmarks returns the user's bookmarks, newest first.
func (s *Store) ListBookmarks(ctx context.Context, userID string) ([]media.Bookmark, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT media_type, media_id, title, poster_path, created_at
		 FROM bookmarks
		 WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}
	defer rows.Close()

	ret := make([]media.Bookmark, 0)
	for rows.Next() {
		b := media.Bookmark{UserID: userID}
		var created int64
		ref, err := scanRef(rows, &created)
		if err != nil {
			return nil, err
		}
		b.Media = ref
		b.CreatedAt = fromMillis(created)
		ret = append(ret, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// UpsertRating sets the user's rating for a title.
func (s *Store) UpsertRating(ctx context.Context, r media.Rating) (media.Rating, error) {
	if err := requireUser(r.UserID); err != nil {
		return r, err
	}
	if err := media.ValidateRating(r.Value); err != nil {
		return r, err
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = s.now()
	}
	r.UpdatedAt = fromMillis(toMillis(r.UpdatedAt))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ratings (user_id, media_type, media_id, rating, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, media_type, media_id) DO UPDATE SET
			rating = excluded.rating,
			updated_at = excluded.updated_at`,
		r.UserID, r.Media.Type.String(), r.Media.ID, r.Value, toMillis(r.UpdatedAt),
	)
	if err != nil {
		return r, fmt.Errorf("upserting rating: %w", err)
	}
	return r, nil
}

// DeleteRating removes the user's rating for a title. Missing rows are not
// an error.
func (s *Store) DeleteRating(ctx context.Context, userID string, ref media.Ref) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM ratings WHERE user_id = ? AND media_type = ? AND media_id = ?`,
		userID, ref.Type.String(), ref.ID,
	)
	if err != nil {
		return fmt.Errorf("deleting rating: %w", err)
	}
	return nil
}

// ListRatings returns all of the user's ratings, most recently changed first.
func (s *Store) ListRatings(ctx context.Context, userID string) ([]media.Rating, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT media_type, media_id, rating, updated_at
		 FROM ratings
		 WHERE user_id = ?
		 ORDER BY updated_at DESC, rowid DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing ratings: %w", err)
	}
	defer rows.Close()

	ret := make([]media.Rating, 0)
	for rows.Next() {
		r := media.Rating{UserID: userID}
		var (
			typ     string
			updated int64
		)
		if err := rows.Scan(&typ, &r.Media.ID, &r.Value, &updated); err != nil {
			return nil, err
		}
		if r.Media.Type, err = media.ParseMediaType(typ); err != nil {
			return nil, err
		}
		r.UpdatedAt = fromMillis(updated)
		ret = append(ret, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// scanRef scans media_type, media_id, title, poster_path followed by rest.
func scanRef(rows *sql.Rows, rest ...any) (media.Ref, error) {
	var (
		ref media.Ref
		typ string
	)
	dest := append([]any{&typ, &ref.ID, &ref.Title, &ref.PosterPath}, rest...)
	if err := rows.Scan(dest...); err != nil {
		return ref, err
	}
	t, err := media.ParseMediaType(typ)
	if err != nil {
		return ref, err
	}
	ref.Type = t
	return ref, nil
}
