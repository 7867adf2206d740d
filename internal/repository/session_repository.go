package repository

import (
	"context"
	"database/sql"
)

// SessionRepo manages the single active refresh token stored on the user
// row. There is no session table: at most one refresh token is valid per
// user at any time, and issuing a new one replaces the old in a single
// UPDATE.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Begin stores token as the user's current refresh token, overwriting any
// previous value. Used at login, where the presented credential is the
// password rather than an old token.
func (r *SessionRepo) Begin(ctx context.Context, userID uint64, token string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=? WHERE id=?", token, userID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Replace rotates the stored refresh token with a compare-and-swap: the
// UPDATE only matches while the stored value still equals old. When two
// refresh calls race on the same user, exactly one matches a row; the
// loser gets ErrStaleSession and must be treated as token reuse.
func (r *SessionRepo) Replace(ctx context.Context, userID uint64, old, next string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=? WHERE id=? AND refresh_token=?",
		next, userID, old)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleSession
	}
	return nil
}

// End clears the stored refresh token. Clearing an already-empty value is
// not an error, so logout stays idempotent.
func (r *SessionRepo) End(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token='' WHERE id=?", userID)
	return err
}

// IsCurrent reports whether presented exactly equals the stored refresh
// token. An empty stored value never matches.
func (r *SessionRepo) IsCurrent(ctx context.Context, userID uint64, presented string) (bool, error) {
	var stored sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT refresh_token FROM users WHERE id=? LIMIT 1", userID).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return stored.Valid && stored.String != "" && stored.String == presented, nil
}
