package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/assigna-app/apiserver/types"
)

const userColumns = `id, username, first_name, email, password_hash, password_salt,
		is_lead, verify_token, expires_at, refresh_token, refresh_expires,
		reset_token, reset_expires, given_name, family_name, picture,
		email_verified, locale, created_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

// GetByRefreshToken looks a user up by the opaque refresh value. The
// refresh token itself is the lookup key, never a user id.
func (r *UserRepository) GetByRefreshToken(ctx context.Context, refreshToken string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE refresh_token = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, refreshToken))
}

func (r *UserRepository) GetByResetToken(ctx context.Context, resetToken string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE reset_token = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, resetToken))
}

// EmailExists reports whether any account already holds the email.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user.CreatedAt = time.Now()

	const query = `
		INSERT INTO users (username, first_name, email, password_hash, password_salt,
			is_lead, verify_token, expires_at, refresh_token, refresh_expires,
			given_name, family_name, picture, email_verified, locale, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.FirstName,
		user.Email,
		user.PasswordHash,
		user.PasswordSalt,
		user.IsLead,
		user.VerifyToken,
		user.ExpiresAt,
		user.RefreshToken,
		user.RefreshExpires,
		user.GivenName,
		user.FamilyName,
		user.Picture,
		user.EmailVerified,
		user.Locale,
		user.CreatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// UpdateSessionTokens replaces the bearer/refresh pair on a known user
// row. Used by authenticated issuance (login, external sign-in) where
// identity was already proven.
func (r *UserRepository) UpdateSessionTokens(ctx context.Context, userID int, verifyToken string, expiresAt time.Time, refreshToken string, refreshExpires time.Time) error {
	const query = `
		UPDATE users
		SET verify_token = $1,
			expires_at = $2,
			refresh_token = $3,
			refresh_expires = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, verifyToken, expiresAt, refreshToken, refreshExpires, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// RotateSessionTokens replaces the bearer/refresh pair guarded by the
// presented refresh token. When two rotations race, the WHERE clause
// matches zero rows for the loser and ErrNotFound is returned.
func (r *UserRepository) RotateSessionTokens(ctx context.Context, oldRefreshToken, verifyToken string, expiresAt time.Time, newRefreshToken string, refreshExpires time.Time) error {
	const query = `
		UPDATE users
		SET verify_token = $1,
			expires_at = $2,
			refresh_token = $3,
			refresh_expires = $4
		WHERE refresh_token = $5`
	result, err := r.db.ExecContext(ctx, query, verifyToken, expiresAt, newRefreshToken, refreshExpires, oldRefreshToken)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// SetResetToken stores a pending reset token for the account holding
// the email. The single column pair is the only place the raw token
// is ever persisted.
func (r *UserRepository) SetResetToken(ctx context.Context, email, resetToken string, resetExpires time.Time) error {
	const query = `
		UPDATE users
		SET reset_token = $1,
			reset_expires = $2
		WHERE email = $3`
	result, err := r.db.ExecContext(ctx, query, resetToken, resetExpires, email)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ConsumeResetToken overwrites the credential and clears both reset
// columns in one statement guarded by the token value. A concurrent
// completion leaves zero matching rows and ErrNotFound for the loser,
// so a token is never usable twice.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, resetToken string, passwordHash, passwordSalt []byte) error {
	const query = `
		UPDATE users
		SET password_hash = $1,
			password_salt = $2,
			reset_token = NULL,
			reset_expires = NULL
		WHERE reset_token = $3`
	result, err := r.db.ExecContext(ctx, query, passwordHash, passwordSalt, resetToken)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ListMembers returns every non-lead account ordered by id.
func (r *UserRepository) ListMembers(ctx context.Context) ([]types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE is_lead = FALSE
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.Email,
		&user.PasswordHash,
		&user.PasswordSalt,
		&user.IsLead,
		&user.VerifyToken,
		&user.ExpiresAt,
		&user.RefreshToken,
		&user.RefreshExpires,
		&user.ResetToken,
		&user.ResetExpires,
		&user.GivenName,
		&user.FamilyName,
		&user.Picture,
		&user.EmailVerified,
		&user.Locale,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
