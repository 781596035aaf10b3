package services

import (
	"context"
	"errors"
	"time"

	"github.com/assigna-app/apiserver/internal/auth"
	"github.com/assigna-app/apiserver/internal/store"
	"github.com/assigna-app/apiserver/types"
)

// UserRepository defines persistence operations for users. Token
// rotation and reset consumption must be atomic compare-and-update
// statements; RotateSessionTokens and ConsumeResetToken return
// store.ErrNotFound when the guarding token no longer matches a row.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (types.User, error)
	GetByResetToken(ctx context.Context, resetToken string) (types.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateSessionTokens(ctx context.Context, userID int, verifyToken string, expiresAt time.Time, refreshToken string, refreshExpires time.Time) error
	RotateSessionTokens(ctx context.Context, oldRefreshToken, verifyToken string, expiresAt time.Time, newRefreshToken string, refreshExpires time.Time) error
	SetResetToken(ctx context.Context, email, resetToken string, resetExpires time.Time) error
	ConsumeResetToken(ctx context.Context, resetToken string, passwordHash, passwordSalt []byte) error
	ListMembers(ctx context.Context) ([]types.User, error)
}

// UserService encapsulates account use-cases outside the session state
// machine: registration and member listings.
type UserService struct {
	repo    UserRepository
	session *SessionManager
}

func NewUserService(repo UserRepository, session *SessionManager) *UserService {
	return &UserService{repo: repo, session: session}
}

// Register creates a password-credentialed account. Email uniqueness is
// checked at the application layer before the insert so no account can
// silently shadow another's address. The initial bearer/refresh pair is
// issued and persisted with the new row.
func (s *UserService) Register(ctx context.Context, username, firstName, email, password string, role types.Role) error {
	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailExists
	}

	hash, salt, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	user := types.User{
		Username:     username,
		FirstName:    firstName,
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
		IsLead:       role.IsLead(),
	}
	if err := s.session.stampNewPair(&user); err != nil {
		return err
	}

	if _, err := s.repo.Create(ctx, user); err != nil {
		return err
	}
	return nil
}

// Members lists every team-member account, for lead assignment pickers.
func (s *UserService) Members(ctx context.Context) ([]types.User, error) {
	return s.repo.ListMembers(ctx)
}

// GetByEmail resolves an account by email, mapping a miss to
// ErrUserNotFound.
func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, err
	}
	return user, nil
}
