package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestRotateSessionTokens_StaleTokenMatchesNoRow(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE users").
		WithArgs("bearer", sqlmock.AnyArg(), "new-refresh", sqlmock.AnyArg(), "stale-refresh").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewUserRepository(db)
	err = repo.RotateSessionTokens(context.Background(), "stale-refresh", "bearer",
		time.Now().Add(10*time.Minute), "new-refresh", time.Now().Add(30*24*time.Hour))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for stale refresh token, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRotateSessionTokens_Success(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE users").
		WithArgs("bearer", sqlmock.AnyArg(), "new-refresh", sqlmock.AnyArg(), "current-refresh").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewUserRepository(db)
	err = repo.RotateSessionTokens(context.Background(), "current-refresh", "bearer",
		time.Now().Add(10*time.Minute), "new-refresh", time.Now().Add(30*24*time.Hour))
	if err != nil {
		t.Fatalf("RotateSessionTokens error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConsumeResetToken_SecondConsumerLoses(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	hash := []byte{1, 2, 3}
	salt := []byte{4, 5, 6}

	mock.ExpectExec("UPDATE users").
		WithArgs(hash, salt, "reset-token").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users").
		WithArgs(hash, salt, "reset-token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewUserRepository(db)
	if err := repo.ConsumeResetToken(context.Background(), "reset-token", hash, salt); err != nil {
		t.Fatalf("first ConsumeResetToken error: %v", err)
	}
	err = repo.ConsumeResetToken(context.Background(), "reset-token", hash, salt)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second consume, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEmailExists(t *testing.T) {
	t.Parallel()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("taken@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	repo := NewUserRepository(db)
	exists, err := repo.EmailExists(context.Background(), "taken@example.com")
	if err != nil {
		t.Fatalf("EmailExists error: %v", err)
	}
	if !exists {
		t.Fatal("expected email to exist")
	}
}
