// Package repository defines error values that are reused across
// repositories. These sentinel values allow higher layers such as the
// auth service to distinguish between failure scenarios without
// inspecting error text. For example, ErrDuplicate signals that a
// unique constraint (username or email) was violated, while
// ErrStaleSession signals that a compare-and-swap on the stored
// refresh token lost against a concurrent writer.
package repository

import "errors"

// ErrNotFound is returned when no row matches the given identifier.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates the
// unique constraint on username or email.
var ErrDuplicate = errors.New("duplicate username or email")

// ErrStaleSession is returned by SessionRepo.Replace when the stored
// refresh token no longer matches the expected value, meaning the
// presented token was already rotated or the session was ended.
var ErrStaleSession = errors.New("stale session token")
