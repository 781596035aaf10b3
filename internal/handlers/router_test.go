package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/assigna-app/apiserver/internal/auth"
	"github.com/assigna-app/apiserver/internal/services"
	"github.com/assigna-app/apiserver/internal/store"
	"github.com/assigna-app/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// fakeUserRepo is an in-memory services.UserRepository with the same
// compare-and-swap behavior as the SQL implementation.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]*types.User)}
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
	return f.find(func(u *types.User) bool { return token != "" && u.RefreshToken == token })
}

func (f *fakeUserRepo) GetByResetToken(_ context.Context, token string) (types.User, error) {
	return f.find(func(u *types.User) bool { return u.ResetToken != nil && *u.ResetToken == token })
}

func (f *fakeUserRepo) EmailExists(_ context.Context, email string) (bool, error) {
	_, err := f.find(func(u *types.User) bool { return u.Email == email })
	return err == nil, nil
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = f.nextID
	f.nextID++
	copied := user
	f.users[user.ID] = &copied
	return user, nil
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
	for id := 1; id < f.nextID; id++ {
		if user, ok := f.users[id]; ok && !user.IsLead {
			members = append(members, *user)
		}
	}
	return members, nil
}

// fakeTaskRepo is an in-memory services.TaskRepository.
type fakeTaskRepo struct {
	mu     sync.Mutex
	nextID int
	tasks  map[int]types.Task
}

func newFakeTaskRepo(tasks ...types.Task) *fakeTaskRepo {
	repo := &fakeTaskRepo{nextID: 1, tasks: make(map[int]types.Task)}
	for _, task := range tasks {
		repo.tasks[task.ID] = task
		if task.ID >= repo.nextID {
			repo.nextID = task.ID + 1
		}
	}
	return repo
}

func (f *fakeTaskRepo) GetByID(_ context.Context, id int) (types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return types.Task{}, store.ErrNotFound
	}
	return task, nil
}

func (f *fakeTaskRepo) List(_ context.Context) ([]types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tasks := make([]types.Task, 0, len(f.tasks))
	for id := 1; id < f.nextID; id++ {
		if task, ok := f.tasks[id]; ok {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (f *fakeTaskRepo) Create(_ context.Context, task types.Task) (types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task.ID = f.nextID
	f.nextID++
	f.tasks[task.ID] = task
	return task, nil
}

func (f *fakeTaskRepo) Update(_ context.Context, task types.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[task.ID]; !ok {
		return store.ErrNotFound
	}
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskRepo) MarkDone(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	task.Pending = false
	task.Complete = true
	f.tasks[id] = task
	return nil
}

func (f *fakeTaskRepo) SetUserNote(_ context.Context, id int, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return store.ErrNotFound
	}
	task.UserNote = &note
	f.tasks[id] = task
	return nil
}

func (f *fakeTaskRepo) ListCategories(_ context.Context) ([]types.Category, error) {
	return []types.Category{{ID: 1, Name: "Home"}, {ID: 2, Name: "Work"}}, nil
}

func (f *fakeTaskRepo) ListPriorities(_ context.Context) ([]types.Priority, error) {
	return []types.Priority{{ID: 1, Name: "High"}, {ID: 2, Name: "Medium"}, {ID: 3, Name: "Low"}}, nil
}

// testRouter wires the full route tree over in-memory repositories,
// mirroring the server's layout.
func testRouter(userRepo *fakeUserRepo, taskRepo *fakeTaskRepo) (*chi.Mux, *auth.TokenIssuer) {
	issuer := auth.NewTokenIssuer("test-secret", "assigna-api", "assigna-client", 10)
	sessions := services.NewSessionManager(userRepo, issuer)
	users := services.NewUserService(userRepo, sessions)
	external := services.NewExternalService(userRepo, sessions, nil)
	resets := services.NewResetService(userRepo, nil, "http://client/reset?token")
	tasks := services.NewTaskService(taskRepo, nil)
	avatars := services.NewAvatarService(nil, nil)

	userHandler := NewUserHandler(users, sessions, external, resets, tasks, avatars)
	taskHandler := NewTaskHandler(tasks, users)
	requireAuth := RequireAuth(issuer)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	router.Route("/user", func(r chi.Router) {
		UserRouter(r, userHandler, requireAuth)
	})
	router.Route("/lead", func(r chi.Router) {
		r.Use(requireAuth, RequireLead)
		LeadRouter(r, taskHandler)
	})
	router.Route("/member", func(r chi.Router) {
		r.Use(requireAuth, RequireMember)
		MemberRouter(r, taskHandler)
	})
	router.Route("/lookup", func(r chi.Router) {
		r.Use(requireAuth)
		LookupRouter(r, taskHandler)
	})
	return router, issuer
}
