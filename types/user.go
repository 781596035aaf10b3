package types

import "time"

// User represents an account in the system.
// It contains identity, credential, session and external-profile data.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	Username string `json:"username" db:"username"`

	// FirstName is the user's display name.
	FirstName string `json:"firstName" db:"first_name"`

	// Email is the user's email address. It is unique across accounts
	// and is the join key for external identities.
	Email string `json:"email" db:"email"`

	// PasswordHash and PasswordSalt store the keyed-hash credential.
	// Both are nil for accounts provisioned via an external provider
	// that never set a password.
	PasswordHash []byte `json:"-" db:"password_hash"`
	PasswordSalt []byte `json:"-" db:"password_salt"`

	// IsLead is the sole role discriminator.
	IsLead bool `json:"isLead" db:"is_lead"`

	// VerifyToken is the last-issued bearer token and ExpiresAt its
	// expiry. Both are replaced together with the refresh pair.
	VerifyToken string    `json:"-" db:"verify_token"`
	ExpiresAt   time.Time `json:"-" db:"expires_at"`

	// RefreshToken is the opaque rotation credential paired with the
	// bearer token. A refresh always replaces both.
	RefreshToken   string    `json:"-" db:"refresh_token"`
	RefreshExpires time.Time `json:"-" db:"refresh_expires"`

	// ResetToken is set only while a password reset is pending.
	ResetToken   *string    `json:"-" db:"reset_token"`
	ResetExpires *time.Time `json:"-" db:"reset_expires"`

	// External profile fields, populated only for externally
	// provisioned accounts.
	GivenName     *string `json:"givenName,omitempty" db:"given_name"`
	FamilyName    *string `json:"familyName,omitempty" db:"family_name"`
	Picture       *string `json:"picture,omitempty" db:"picture"`
	EmailVerified bool    `json:"emailVerified" db:"email_verified"`
	Locale        *string `json:"locale,omitempty" db:"locale"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Role returns the typed role for the account.
func (u User) Role() Role {
	if u.IsLead {
		return RoleLead
	}
	return RoleMember
}

// HasPassword reports whether the account carries a local credential.
func (u User) HasPassword() bool {
	return len(u.PasswordHash) > 0 && len(u.PasswordSalt) > 0
}
