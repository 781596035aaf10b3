package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/assigna-app/apiserver/internal/services"
	"github.com/assigna-app/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// passwordSymbols is the set of symbols a password must draw from.
const passwordSymbols = "#$^+=!*()@%&"

// UserHandler provides account, session and password-reset endpoints.
type UserHandler struct {
	users    *services.UserService
	sessions *services.SessionManager
	external *services.ExternalService
	resets   *services.ResetService
	tasks    *services.TaskService
	avatars  *services.AvatarService
}

func NewUserHandler(
	users *services.UserService,
	sessions *services.SessionManager,
	external *services.ExternalService,
	resets *services.ResetService,
	tasks *services.TaskService,
	avatars *services.AvatarService,
) *UserHandler {
	return &UserHandler{
		users:    users,
		sessions: sessions,
		external: external,
		resets:   resets,
		tasks:    tasks,
		avatars:  avatars,
	}
}

// UserRouter registers account routes on the given router.
func UserRouter(r chi.Router, h *UserHandler, requireAuth func(http.Handler) http.Handler) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh-token", h.RefreshToken)
	r.Post("/forgot-password", h.ForgotPassword)
	r.Get("/send-reset-link", h.SendResetLink)
	r.Post("/reset-password", h.ResetPassword)
	r.Post("/external-login", h.ExternalLogin)
	r.With(requireAuth, RequireLead).Get("/members", h.Members)
	r.With(requireAuth).Get("/task-count", h.TaskCount)
	r.With(requireAuth).Get("/avatar", h.Avatar)
}

type registerRequest struct {
	Username  string `json:"userName"`
	FirstName string `json:"firstName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// Register creates a password-credentialed account.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.FirstName == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}
	if !validPassword(req.Password) {
		writeError(w, http.StatusBadRequest, "Passwords must contain at least five characters, including at least one digit and one symbol.")
		return
	}

	role, err := types.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Account type does not match with correct account type.")
		return
	}

	err = h.users.Register(r.Context(), req.Username, req.FirstName, req.Email, req.Password, role)
	if err != nil {
		if errors.Is(err, services.ErrEmailExists) {
			writeError(w, http.StatusConflict, "Email already exist.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	writeSuccess(w, http.StatusCreated, "Ok.")
}

type loginRequest struct {
	Username string `json:"userName"`
	Password string `json:"password"`
}

// Login verifies credentials and returns a fresh session pair.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	pair, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Username or password is incorrect.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	writeSession(w, pair)
}

type refreshRequest struct {
	TokenRefresh string `json:"tokenRefresh"`
}

// RefreshToken rotates the session pair bound to the presented refresh
// token.
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.TokenRefresh) == "" {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	pair, err := h.sessions.Refresh(r.Context(), req.TokenRefresh)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			writeError(w, http.StatusUnauthorized, "No user is found.")
		case errors.Is(err, services.ErrSessionNotExpired):
			writeError(w, http.StatusBadRequest, "Verify token is still not expired.")
		case errors.Is(err, services.ErrRefreshExpired):
			writeError(w, http.StatusUnauthorized, "Refresh token is expired.")
		default:
			writeError(w, http.StatusInternalServerError, "Server error.")
		}
		return
	}

	writeSession(w, pair)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword issues a reset token for the account holding the
// email. The token is delivered by mail, never in the response.
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	h.requestReset(w, r, strings.TrimSpace(req.Email), "Ok.")
}

// SendResetLink issues a reset token for the email query parameter and
// mails the reset link.
func (h *UserHandler) SendResetLink(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	h.requestReset(w, r, email, "Reset link sent to your email.")
}

func (h *UserHandler) requestReset(w http.ResponseWriter, r *http.Request, email, okMessage string) {
	if _, err := h.resets.RequestReset(r.Context(), email); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User is not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	writeSuccess(w, http.StatusOK, okMessage)
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	ResetToken      string `json:"resetToken"`
}

// ResetPassword consumes a pending reset token and replaces the
// credential.
func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ResetToken == "" {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	if !validPassword(req.Password) {
		writeError(w, http.StatusBadRequest, "Passwords must contain at least five characters, including at least one digit and one symbol.")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "Confirm password does not match.")
		return
	}

	err := h.resets.CompleteReset(r.Context(), req.ResetToken, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidResetToken):
			writeError(w, http.StatusBadRequest, "Reset token is not valid.")
		case errors.Is(err, services.ErrResetExpired):
			writeError(w, http.StatusBadRequest, "Reset token is expired.")
		default:
			writeError(w, http.StatusInternalServerError, "Server error.")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "Ok.")
}

type externalLoginRequest struct {
	Provider    string `json:"provider"`
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
}

// ExternalLogin signs in through a third-party identity provider,
// provisioning an account on first contact.
func (h *UserHandler) ExternalLogin(w http.ResponseWriter, r *http.Request) {
	var req externalLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "Required data is not found.")
		return
	}

	if req.Provider != "Google" {
		writeError(w, http.StatusBadRequest, "Sign in provider is not found.")
		return
	}

	profile, err := h.external.ResolveProfile(r.Context(), req.AccessToken)
	if err != nil {
		if errors.Is(err, services.ErrProvider) || errors.Is(err, services.ErrEmptyProfile) {
			writeError(w, http.StatusBadGateway, "Sign in information not found.")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	pair, err := h.external.SignInOrProvision(r.Context(), profile, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, "Account type does not match with correct account type.")
		case errors.Is(err, services.ErrEmailExists):
			writeError(w, http.StatusConflict, "Email already exist.")
		default:
			writeError(w, http.StatusInternalServerError, "Error occurred during the sign in process.")
		}
		return
	}

	writeSession(w, pair)
}

// Members lists every team-member account. Lead only.
func (h *UserHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.users.Members(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	writeData(w, http.StatusOK, "Ok.", members)
}

// TaskCount aggregates the caller's visible tasks by status and
// priority.
func (h *UserHandler) TaskCount(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	counts, err := h.tasks.Counts(r.Context(), claims)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	writeData(w, http.StatusOK, "Ok.", counts)
}

// Avatar streams the caller's cached profile picture.
func (h *UserHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token is not valid.")
		return
	}

	reader, err := h.avatars.Open(r.Context(), claims.Email)
	if err != nil {
		writeError(w, http.StatusNotFound, "Avatar is not found.")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func writeSession(w http.ResponseWriter, pair services.SessionPair) {
	writeJSON(w, http.StatusOK, sessionResponse{
		Envelope:     Envelope{Success: true, Message: "Ok."},
		Token:        pair.Token,
		RefreshToken: pair.RefreshToken,
	})
}

func validPassword(password string) bool {
	if len(password) < 5 {
		return false
	}
	var digit, symbol bool
	for _, r := range password {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	return digit && symbol
}
