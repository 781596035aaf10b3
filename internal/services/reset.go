package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/assigna-app/apiserver/internal/auth"
	"github.com/assigna-app/apiserver/internal/mail"
	"github.com/assigna-app/apiserver/internal/store"
)

// resetLifetime is how long a pending reset token stays consumable.
const resetLifetime = 24 * time.Hour

// ResetService issues single-use, time-bounded password reset tokens
// and consumes each exactly once.
type ResetService struct {
	repo     UserRepository
	notifier mail.Notifier
	resetURL string
}

func NewResetService(repo UserRepository, notifier mail.Notifier, resetURL string) *ResetService {
	return &ResetService{repo: repo, notifier: notifier, resetURL: resetURL}
}

// RequestReset stores a fresh opaque reset token on the account holding
// the email and delivers a reset link. The raw token lives only in the
// single column pair being replaced; there is no reset-token history.
func (s *ResetService) RequestReset(ctx context.Context, email string) (string, error) {
	if _, err := s.repo.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	token, err := auth.RandomToken(auth.OpaqueTokenLength)
	if err != nil {
		return "", err
	}

	if err := s.repo.SetResetToken(ctx, email, token, time.Now().Add(resetLifetime)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	if s.notifier != nil {
		link := fmt.Sprintf("%s=%s", s.resetURL, url.QueryEscape(token))
		body := fmt.Sprintf("Click <a href='%s'>here</a> to reset your password.", link)
		if err := s.notifier.Send(ctx, email, "Password Reset", body); err != nil {
			return "", err
		}
	}

	return token, nil
}

// CompleteReset consumes a pending reset token and overwrites the
// credential. The expiry check leaves the stored credential untouched;
// the consume itself clears both reset columns atomically with the
// credential update, so the token can never be used twice even when
// two completions race.
func (s *ResetService) CompleteReset(ctx context.Context, resetToken, newPassword string) error {
	user, err := s.repo.GetByResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if user.ResetExpires == nil || user.ResetExpires.Before(time.Now()) {
		return ErrResetExpired
	}

	hash, salt, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.repo.ConsumeResetToken(ctx, resetToken, hash, salt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, user.Email, "Password Reset", "Your password was reset successfully.")
	}
	return nil
}
