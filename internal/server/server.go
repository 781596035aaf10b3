package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/assigna-app/apiserver/config"
	"github.com/assigna-app/apiserver/internal/auth"
	"github.com/assigna-app/apiserver/internal/db"
	"github.com/assigna-app/apiserver/internal/handlers"
	"github.com/assigna-app/apiserver/internal/mail"
	"github.com/assigna-app/apiserver/internal/mq"
	"github.com/assigna-app/apiserver/internal/services"
	"github.com/assigna-app/apiserver/internal/storage"
	"github.com/assigna-app/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
	log        *logrus.Logger
}

// New constructs a Server with all services wired. The message queue
// and object storage are optional; without them mail goes out inline
// over SMTP and avatar caching is disabled.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var queue *mq.MQ
	var notifier mail.Notifier
	if cfg.MQ.Backend != "" {
		queue, err = mq.NewFromConfig(ctx, cfg.MQ)
		if err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		notifier = mail.NewQueueNotifier(queue, cfg.MQ.MailJobs)
	} else if cfg.Mail.Host != "" {
		notifier = mail.NewSMTPSender(cfg.Mail)
	}

	var objects *storage.Storage
	if cfg.Storage.Backend != "" {
		objects, err = storage.NewFromConfig(ctx, cfg.Storage)
		if err != nil {
			log.WithError(err).Warn("object storage unavailable, avatar caching disabled")
			objects = nil
		}
	}

	userRepo := store.NewUserRepository(dbConn)
	taskRepo := store.NewTaskRepository(dbConn)

	issuer := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, cfg.JWT.ExpireMinutes)
	sessions := services.NewSessionManager(userRepo, issuer)
	users := services.NewUserService(userRepo, sessions)
	avatars := services.NewAvatarService(objects, log)
	external := services.NewExternalService(userRepo, sessions, avatars)
	resets := services.NewResetService(userRepo, notifier, cfg.Client.PasswordResetURL)
	tasks := services.NewTaskService(taskRepo, notifier)

	userHandler := handlers.NewUserHandler(users, sessions, external, resets, tasks, avatars)
	taskHandler := handlers.NewTaskHandler(tasks, users)
	requireAuth := handlers.RequireAuth(issuer)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/user", func(r chi.Router) {
		handlers.UserRouter(r, userHandler, requireAuth)
	})
	router.Route("/lead", func(r chi.Router) {
		r.Use(requireAuth, handlers.RequireLead)
		handlers.LeadRouter(r, taskHandler)
	})
	router.Route("/member", func(r chi.Router) {
		r.Use(requireAuth, handlers.RequireMember)
		handlers.MemberRouter(r, taskHandler)
	})
	router.Route("/lookup", func(r chi.Router) {
		r.Use(requireAuth)
		handlers.LookupRouter(r, taskHandler)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
		log:        log,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	return s.httpServer.Close()
}
