package services

import (
	"context"
	"errors"
	"time"

	"github.com/assigna-app/apiserver/internal/auth"
	"github.com/assigna-app/apiserver/internal/store"
	"github.com/assigna-app/apiserver/types"
)

// refreshLifetime is how long a refresh token stays usable after issue.
const refreshLifetime = 30 * 24 * time.Hour

// SessionPair is the bearer/refresh credential pair returned by every
// session issuance. The two tokens are always replaced together.
type SessionPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// SessionManager orchestrates login and token refresh over the user
// record. Logout is client-side token discard; there is no server-side
// revocation list, so a stolen bearer token stays valid until its
// natural expiry.
type SessionManager struct {
	repo   UserRepository
	issuer *auth.TokenIssuer
}

func NewSessionManager(repo UserRepository, issuer *auth.TokenIssuer) *SessionManager {
	return &SessionManager{repo: repo, issuer: issuer}
}

// Login verifies a username/password credential and issues a fresh
// bearer/refresh pair, persisting both with their expiries. Accounts
// provisioned externally with no local credential fail the same way a
// wrong password does.
func (s *SessionManager) Login(ctx context.Context, username, password string) (SessionPair, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SessionPair{}, ErrInvalidCredentials
		}
		return SessionPair{}, err
	}

	if !auth.VerifyPassword(password, user.PasswordHash, user.PasswordSalt) {
		return SessionPair{}, ErrInvalidCredentials
	}

	return s.IssueFor(ctx, user)
}

// Refresh rotates the bearer/refresh pair bound to the presented
// refresh token. The token itself is the lookup key. Rules, in order:
// an unexpired session refuses rotation, an expired refresh token
// forces re-authentication, otherwise both tokens are replaced behind
// a compare-and-swap so a concurrent rotation can win at most once —
// the loser observes the rotated value and gets ErrUserNotFound.
func (s *SessionManager) Refresh(ctx context.Context, refreshToken string) (SessionPair, error) {
	user, err := s.repo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SessionPair{}, ErrUserNotFound
		}
		return SessionPair{}, err
	}

	now := time.Now()
	if user.ExpiresAt.After(now) {
		return SessionPair{}, ErrSessionNotExpired
	}
	if user.RefreshExpires.Before(now) {
		return SessionPair{}, ErrRefreshExpired
	}

	token, err := s.issuer.Issue(user.Username, user.Email, user.Role())
	if err != nil {
		return SessionPair{}, err
	}
	newRefresh, err := auth.RandomToken(auth.OpaqueTokenLength)
	if err != nil {
		return SessionPair{}, err
	}

	err = s.repo.RotateSessionTokens(ctx, refreshToken, token,
		now.Add(s.issuer.Lifetime()), newRefresh, now.Add(refreshLifetime))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SessionPair{}, ErrUserNotFound
		}
		return SessionPair{}, err
	}

	return SessionPair{Token: token, RefreshToken: newRefresh}, nil
}

// IssueFor mints and persists a fresh pair for an already-authenticated
// user. Shared by login and external sign-in.
func (s *SessionManager) IssueFor(ctx context.Context, user types.User) (SessionPair, error) {
	token, err := s.issuer.Issue(user.Username, user.Email, user.Role())
	if err != nil {
		return SessionPair{}, err
	}
	refresh, err := auth.RandomToken(auth.OpaqueTokenLength)
	if err != nil {
		return SessionPair{}, err
	}

	now := time.Now()
	err = s.repo.UpdateSessionTokens(ctx, user.ID, token,
		now.Add(s.issuer.Lifetime()), refresh, now.Add(refreshLifetime))
	if err != nil {
		return SessionPair{}, err
	}
	return SessionPair{Token: token, RefreshToken: refresh}, nil
}

// stampNewPair fills the session fields of a not-yet-created user with
// a freshly issued pair.
func (s *SessionManager) stampNewPair(user *types.User) error {
	token, err := s.issuer.Issue(user.Username, user.Email, user.Role())
	if err != nil {
		return err
	}
	refresh, err := auth.RandomToken(auth.OpaqueTokenLength)
	if err != nil {
		return err
	}

	now := time.Now()
	user.VerifyToken = token
	user.ExpiresAt = now.Add(s.issuer.Lifetime())
	user.RefreshToken = refresh
	user.RefreshExpires = now.Add(refreshLifetime)
	return nil
}
