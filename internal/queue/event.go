// Package queue defines message payloads exchanged over the message
// broker plus the background consumer that turns them into an audit log.
package queue

// Activity types published to the auth.activity queue.
const (
	ActivityRegistered      = "user.registered"
	ActivityLoggedIn        = "user.logged_in"
	ActivityLoggedOut       = "user.logged_out"
	ActivityPasswordChanged = "user.password_changed"
	ActivityTokenReuse      = "token.reuse_detected"
)

// AuthActivityEvent is published whenever an account-affecting operation
// completes. It carries enough for downstream consumers to audit or alert
// without querying the primary database. Token values are never included.
type AuthActivityEvent struct {
	Type       string `json:"type"`
	UserID     uint64 `json:"user_id"`
	Username   string `json:"username,omitempty"`
	Email      string `json:"email,omitempty"`
	RemoteIP   string `json:"remote_ip,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
