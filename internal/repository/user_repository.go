package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iradmi/vidstream-backend/internal/model"
)

const userColumns = "id,username,email,full_name,password_hash,avatar_url,cover_url,COALESCE(refresh_token,''),created_at,updated_at"

// UserRepo persists user records in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUserInput carries the fields required to insert a user. PasswordHash
// must already be a bcrypt digest; the repository never hashes.
type NewUserInput struct {
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	AvatarURL    string
	CoverURL     string
}

// Create inserts a user and returns its ID. Username and email are
// normalized to lowercase. ErrDuplicate is returned when either value
// is already taken.
func (r *UserRepo) Create(ctx context.Context, in NewUserInput) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, full_name, password_hash, avatar_url, cover_url) VALUES (?,?,?,?,?,?)",
		normalize(in.Username), normalize(in.Email), in.FullName, in.PasswordHash, in.AvatarURL, in.CoverURL)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByIdentifier fetches a user whose username or email equals the
// normalized identifier.
func (r *UserRepo) GetByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	ident := normalize(identifier)
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? OR email=? LIMIT 1",
		ident, ident).Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash,
		&u.AvatarURL, &u.CoverURL, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1",
		id).Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash,
		&u.AvatarURL, &u.CoverURL, &u.RefreshToken, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// UpdateProfile rewrites the mutable identity fields. ErrDuplicate is
// returned when the new username or email collides with another user.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, fullName, username, email string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET full_name=?, username=?, email=? WHERE id=?",
		fullName, normalize(username), normalize(email), id)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return requireRow(res)
}

// UpdatePasswordHash replaces the stored bcrypt digest. The caller is the
// only place where hashing happens; this method must never be handed a
// plaintext value.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateAvatarURL stores a new avatar object URL.
func (r *UserRepo) UpdateAvatarURL(ctx context.Context, id uint64, url string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET avatar_url=? WHERE id=?", url, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateCoverURL stores a new cover image object URL.
func (r *UserRepo) UpdateCoverURL(ctx context.Context, id uint64, url string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET cover_url=? WHERE id=?", url, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// isDuplicateKey reports whether err is a MySQL 1062 duplicate-entry error.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// requireRow maps a zero-row update to ErrNotFound. The DSN sets
// clientFoundRows=true, so the count is rows matched, not rows changed;
// rewriting an existing row with identical values still counts as one.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
