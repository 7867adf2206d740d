// Package auth implements the authentication core: password hashing,
// token issuing and verification, and the login/refresh/logout/password
// flows. Handlers translate the sentinel errors defined here into HTTP
// status codes; no caller should ever branch on error text.
package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no user matched the identifier or id.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidCredentials means the password check failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrMissingToken means no refresh token was presented.
	ErrMissingToken = errors.New("missing refresh token")

	// ErrInvalidToken means the presented token failed signature, format
	// or expiry checks for its scope. The codec-level causes below wrap
	// into it, so errors.Is(err, ErrInvalidToken) covers all three.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrTokenExpired, ErrTokenMalformed and ErrTokenSignature are the
	// codec-level causes behind ErrInvalidToken. The flow layer never
	// reveals which one rejected a token.
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrTokenSignature = fmt.Errorf("%w: bad signature", ErrInvalidToken)

	// ErrTokenReuse means the token verified cryptographically but is not
	// the currently stored value: it was already rotated or the session
	// was ended. The stale value is rejected permanently, never
	// re-synchronized.
	ErrTokenReuse = errors.New("refresh token reuse detected")

	// ErrPasswordMismatch means the new password and its confirmation
	// differ.
	ErrPasswordMismatch = errors.New("password confirmation does not match")

	// ErrWrongOldPassword means the old password did not verify against
	// the stored hash.
	ErrWrongOldPassword = errors.New("old password is incorrect")

	// ErrDuplicate means the username or email is already taken.
	ErrDuplicate = errors.New("username or email already exists")

	// ErrInternal hides any unexpected dependency fault. Callers cannot
	// tell which internal step failed, only that none of the typed
	// failures above applies.
	ErrInternal = errors.New("internal error")
)
