package services

import (
	"context"
	"sync"
	"time"

	"github.com/assigna-app/apiserver/internal/store"
	"github.com/assigna-app/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository with the same
// compare-and-swap semantics as the SQL implementation: rotations and
// reset consumption succeed only while the guarding token still matches.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]*types.User)}
}

func (f *fakeUserRepo) add(user types.User) types.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = f.nextID
	f.nextID++
	copied := user
	f.users[user.ID] = &copied
	return user
}

func (f *fakeUserRepo) find(match func(*types.User) bool) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if match(user) {
			return *user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	return f.find(func(u *types.User) bool { return u.ID == id })
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	return f.find(func(u *types.User) bool { return u.Username == username })
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	return f.find(func(u *types.User) bool { return u.Email == email })
}

func (f *fakeUserRepo) GetByRefreshToken(_ context.Context, token string) (types.User, error) {
	return f.find(func(u *types.User) bool { return u.RefreshToken == token && token != "" })
}

func (f *fakeUserRepo) GetByResetToken(_ context.Context, token string) (types.User, error) {
	return f.find(func(u *types.User) bool {
		return u.ResetToken != nil && *u.ResetToken == token
	})
}

func (f *fakeUserRepo) EmailExists(_ context.Context, email string) (bool, error) {
	_, err := f.find(func(u *types.User) bool { return u.Email == email })
	return err == nil, nil
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	return f.add(user), nil
}

func (f *fakeUserRepo) UpdateSessionTokens(_ context.Context, userID int, verifyToken string, expiresAt time.Time, refreshToken string, refreshExpires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.VerifyToken = verifyToken
	user.ExpiresAt = expiresAt
	user.RefreshToken = refreshToken
	user.RefreshExpires = refreshExpires
	return nil
}

func (f *fakeUserRepo) RotateSessionTokens(_ context.Context, oldRefreshToken, verifyToken string, expiresAt time.Time, newRefreshToken string, refreshExpires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.RefreshToken == oldRefreshToken {
			user.VerifyToken = verifyToken
			user.ExpiresAt = expiresAt
			user.RefreshToken = newRefreshToken
			user.RefreshExpires = refreshExpires
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeUserRepo) SetResetToken(_ context.Context, email, resetToken string, resetExpires time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			token := resetToken
			expires := resetExpires
			user.ResetToken = &token
			user.ResetExpires = &expires
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeUserRepo) ConsumeResetToken(_ context.Context, resetToken string, passwordHash, passwordSalt []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ResetToken != nil && *user.ResetToken == resetToken {
			user.PasswordHash = passwordHash
			user.PasswordSalt = passwordSalt
			user.ResetToken = nil
			user.ResetExpires = nil
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeUserRepo) ListMembers(_ context.Context) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var members []types.User
	for _, user := range f.users {
		if !user.IsLead {
			members = append(members, *user)
		}
	}
	return members, nil
}

// recordingNotifier captures sent mail for assertions.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []struct{ To, Subject, Body string }
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, struct{ To, Subject, Body string }{to, subject, body})
	return nil
}
