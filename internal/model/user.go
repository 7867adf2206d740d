package model

import "time"

// User mirrors the `users` table. Username and email are unique and stored
// lowercase. PasswordHash holds the bcrypt digest; the plaintext never leaves
// the login/registration request. RefreshToken is the single currently valid
// refresh token for the account, or empty when the user is logged out;
// issuing a new one always replaces the previous value.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique handle (lowercase).
//  Email        – unique email address (lowercase).
//  FullName     – display name.
//  PasswordHash – bcrypt hashed password.
//  AvatarURL    – object-storage URL of the avatar image.
//  CoverURL     – object-storage URL of the cover image (may be empty).
//  RefreshToken – current refresh token; empty after logout.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	Email        string    // users.email
	FullName     string    // users.full_name
	PasswordHash string    // users.password_hash
	AvatarURL    string    // users.avatar_url
	CoverURL     string    // users.cover_url
	RefreshToken string    // users.refresh_token ('' when logged out)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
