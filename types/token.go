package types

import "time"

// TokenKind distinguishes the collections tokens are persisted in.
type TokenKind string

const (
	// TokenRefresh tokens are exchanged for new access tokens.
	TokenRefresh TokenKind = "refresh_tokens"

	// TokenConfirm tokens confirm a user's email address.
	TokenConfirm TokenKind = "confirm_tokens"
)

// Token is a single-use opaque token bound to a user.
type Token struct {
	// Token is the opaque token value handed to the client.
	Token string `json:"token" db:"token"`

	// UserID is the id of the user the token was issued for.
	UserID string `json:"-" db:"user_id"`

	// UserEmail is the email the user had when the token was issued.
	UserEmail string `json:"-" db:"user_email"`

	// Expires is the moment after which the token is rejected.
	Expires time.Time `json:"expires" db:"expires"`
}

// Expired reports whether the token is no longer valid at now.
func (t Token) Expired(now time.Time) bool {
	return now.After(t.Expires)
}
