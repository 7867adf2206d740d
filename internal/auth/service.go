package auth

import (
	"context"
	"errors"

	"github.com/iradmi/vidstream-backend/internal/model"
	"github.com/iradmi/vidstream-backend/internal/repository"
)

// UserStore is the credential-repository contract the service depends on.
// *repository.UserRepo satisfies it; tests substitute fakes.
type UserStore interface {
	Create(ctx context.Context, in repository.NewUserInput) (uint64, error)
	GetByIdentifier(ctx context.Context, identifier string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateProfile(ctx context.Context, id uint64, fullName, username, email string) error
	UpdatePasswordHash(ctx context.Context, id uint64, hash string) error
	UpdateAvatarURL(ctx context.Context, id uint64, url string) error
	UpdateCoverURL(ctx context.Context, id uint64, url string) error
}

// SessionStore manages the single stored refresh token per user.
// *repository.SessionRepo satisfies it.
type SessionStore interface {
	Begin(ctx context.Context, userID uint64, token string) error
	Replace(ctx context.Context, userID uint64, old, next string) error
	End(ctx context.Context, userID uint64) error
	IsCurrent(ctx context.Context, userID uint64, presented string) (bool, error)
}

// TokenPair bundles a short-lived access token and a long-lived refresh
// token, both freshly signed.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput carries the fields for account creation. Avatar and cover
// URLs are produced by the media storage before the core is involved; the
// service only persists them.
type RegisterInput struct {
	FullName  string
	Username  string
	Email     string
	Password  string
	AvatarURL string
	CoverURL  string
}

// Service orchestrates login, refresh, logout and password management
// over the hasher, codec and stores. Every operation returns either a
// sentinel from errors.go or ErrInternal; unexpected dependency faults
// never reach the caller in recognizable form.
type Service struct {
	users    UserStore
	sessions SessionStore
	hasher   *Hasher
	codec    *Codec
}

func NewService(users UserStore, sessions SessionStore, hasher *Hasher, codec *Codec) *Service {
	return &Service{users: users, sessions: sessions, hasher: hasher, codec: codec}
}

// Codec exposes the token codec for the transport layer (middleware needs
// access-scope verification, handlers need TTLs for cookies).
func (s *Service) Codec() *Codec { return s.codec }

// Register hashes the password, creates the user and returns the stored
// record. This is one of exactly two call sites that hash a password; the
// repositories only ever see digests.
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, ErrInternal
	}
	id, err := s.users.Create(ctx, repository.NewUserInput{
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		AvatarURL:    in.AvatarURL,
		CoverURL:     in.CoverURL,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.User{}, ErrDuplicate
		}
		return model.User{}, ErrInternal
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, ErrInternal
	}
	return u, nil
}

// Login verifies the password for the user matching identifier (username
// or email) and, on success, issues a fresh token pair and stores the
// refresh token as the user's current session.
func (s *Service) Login(ctx context.Context, identifier, password string) (model.User, TokenPair, error) {
	u, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, TokenPair{}, ErrNotFound
		}
		return model.User{}, TokenPair{}, ErrInternal
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return model.User{}, TokenPair{}, ErrInvalidCredentials
	}
	pair, err := s.issuePair(u)
	if err != nil {
		return model.User{}, TokenPair{}, ErrInternal
	}
	if err := s.sessions.Begin(ctx, u.ID, pair.RefreshToken); err != nil {
		return model.User{}, TokenPair{}, ErrInternal
	}
	return u, pair, nil
}

// Refresh validates a presented refresh token and rotates it: a brand-new
// pair is issued and the stored token is swapped to the new value in one
// compare-and-swap. A token that verifies cryptographically but is not
// the stored value is reuse of a rotated or revoked token; the call fails
// and the stale value is never resynchronized.
func (s *Service) Refresh(ctx context.Context, presented string) (TokenPair, error) {
	if presented == "" {
		return TokenPair{}, ErrMissingToken
	}
	claims, err := s.codec.VerifyRefresh(presented)
	if err != nil {
		return TokenPair{}, err
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, ErrInternal
	}
	current, err := s.sessions.IsCurrent(ctx, u.ID, presented)
	if err != nil {
		return TokenPair{}, ErrInternal
	}
	if !current {
		// Stale or revoked token: fail closed. The presented value is
		// never written back, so it stays dead forever; the currently
		// stored token (if any) remains the only valid one.
		return TokenPair{}, ErrTokenReuse
	}
	pair, err := s.issuePair(u)
	if err != nil {
		return TokenPair{}, ErrInternal
	}
	if err := s.sessions.Replace(ctx, u.ID, presented, pair.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrStaleSession) {
			// Lost a race against a concurrent refresh with the same token;
			// only the winner's new token is stored.
			return TokenPair{}, ErrTokenReuse
		}
		return TokenPair{}, ErrInternal
	}
	return pair, nil
}

// Logout clears the stored refresh token. It is idempotent: logging out
// an already logged-out user succeeds.
func (s *Service) Logout(ctx context.Context, userID uint64) error {
	if err := s.sessions.End(ctx, userID); err != nil {
		return ErrInternal
	}
	return nil
}

// ChangePassword verifies the old password and replaces the stored hash
// with a hash of the new one. The stored refresh token is left untouched,
// so the current session survives the change.
func (s *Service) ChangePassword(ctx context.Context, userID uint64, oldPassword, newPassword, confirm string) error {
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}
	if !s.hasher.Verify(oldPassword, u.PasswordHash) {
		return ErrWrongOldPassword
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return ErrInternal
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return ErrInternal
	}
	return nil
}

// CurrentUser returns the user record for an authenticated id.
func (s *Service) CurrentUser(ctx context.Context, userID uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, ErrInternal
	}
	return u, nil
}

// UpdateProfile rewrites fullname/username/email and returns the updated
// record. The password hash is deliberately not touched here, so profile
// updates can never re-hash an already hashed value.
func (s *Service) UpdateProfile(ctx context.Context, userID uint64, fullName, username, email string) (model.User, error) {
	if err := s.users.UpdateProfile(ctx, userID, fullName, username, email); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return model.User{}, ErrDuplicate
		case errors.Is(err, repository.ErrNotFound):
			return model.User{}, ErrNotFound
		}
		return model.User{}, ErrInternal
	}
	return s.CurrentUser(ctx, userID)
}

// SetAvatar persists a new avatar URL produced by the media storage.
func (s *Service) SetAvatar(ctx context.Context, userID uint64, url string) (model.User, error) {
	if err := s.users.UpdateAvatarURL(ctx, userID, url); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, ErrInternal
	}
	return s.CurrentUser(ctx, userID)
}

// SetCover persists a new cover image URL.
func (s *Service) SetCover(ctx context.Context, userID uint64, url string) (model.User, error) {
	if err := s.users.UpdateCoverURL(ctx, userID, url); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, ErrInternal
	}
	return s.CurrentUser(ctx, userID)
}

func (s *Service) issuePair(u model.User) (TokenPair, error) {
	access, err := s.codec.IssueAccess(u)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.codec.IssueRefresh(u)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
