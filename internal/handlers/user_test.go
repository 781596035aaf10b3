package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/assigna-app/apiserver/internal/auth"
	"github.com/assigna-app/apiserver/types"
	"github.com/go-chi/chi/v5"
)

func postJSON(t *testing.T, router *chi.Mux, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func getJSON(t *testing.T, router *chi.Mux, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func addAccount(t *testing.T, repo *fakeUserRepo, username, email, password string, lead bool) types.User {
	t.Helper()
	hash, salt, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := repo.Create(context.Background(), types.User{
		Username:     username,
		FirstName:    username,
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
		IsLead:       lead,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func TestRegister_RejectsWeakPassword(t *testing.T) {
	t.Parallel()

	router, _ := testRouter(newFakeUserRepo(), newFakeTaskRepo())

	for _, password := range []string{"a1#", "longenough", "digits123", "symbols#!"} {
		rec := postJSON(t, router, "/user/register", map[string]string{
			"userName":  "alice",
			"firstName": "Alice",
			"email":     "alice@example.com",
			"password":  password,
			"role":      "team-member",
		}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("password %q: expected 400, got %d", password, rec.Code)
		}
		if env := decodeEnvelope(t, rec); env.Success {
			t.Fatalf("password %q: expected failure envelope", password)
		}
	}
}

func TestRegister_RejectsInvalidRole(t *testing.T) {
	t.Parallel()

	router, _ := testRouter(newFakeUserRepo(), newFakeTaskRepo())

	rec := postJSON(t, router, "/user/register", map[string]string{
		"userName":  "alice",
		"firstName": "Alice",
		"email":     "alice@example.com",
		"password":  "pass1#",
		"role":      "admin",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRegisterThenLogin(t *testing.T) {
	t.Parallel()

	router, _ := testRouter(newFakeUserRepo(), newFakeTaskRepo())

	rec := postJSON(t, router, "/user/register", map[string]string{
		"userName":  "alice",
		"firstName": "Alice",
		"email":     "alice@example.com",
		"password":  "pass1#",
		"role":      "team-member",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Duplicate email is refused.
	rec = postJSON(t, router, "/user/register", map[string]string{
		"userName":  "alice2",
		"firstName": "Alice",
		"email":     "alice@example.com",
		"password":  "pass1#",
		"role":      "team-member",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", rec.Code)
	}

	rec = postJSON(t, router, "/user/login", map[string]string{
		"userName": "alice",
		"password": "pass1#",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if !resp.Success || resp.Token == "" || resp.RefreshToken == "" {
		t.Fatalf("expected session pair, got %+v", resp)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	addAccount(t, repo, "alice", "alice@example.com", "pass1#", false)
	router, _ := testRouter(repo, newFakeTaskRepo())

	rec := postJSON(t, router, "/user/login", map[string]string{
		"userName": "alice",
		"password": "wrong1#",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRefreshToken_RefusedWhileSessionActive(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	addAccount(t, repo, "alice", "alice@example.com", "pass1#", false)
	router, _ := testRouter(repo, newFakeTaskRepo())

	rec := postJSON(t, router, "/user/login", map[string]string{
		"userName": "alice",
		"password": "pass1#",
	}, nil)
	var resp sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}

	// The bearer issued a moment ago is still valid, so rotation is
	// refused.
	rec = postJSON(t, router, "/user/refresh-token", map[string]string{
		"tokenRefresh": resp.RefreshToken,
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRefreshToken_UnknownToken(t *testing.T) {
	t.Parallel()

	router, _ := testRouter(newFakeUserRepo(), newFakeTaskRepo())

	rec := postJSON(t, router, "/user/refresh-token", map[string]string{
		"tokenRefresh": "no-such-token",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	t.Parallel()

	router, _ := testRouter(newFakeUserRepo(), newFakeTaskRepo())

	rec := postJSON(t, router, "/user/forgot-password", map[string]string{
		"email": "ghost@example.com",
	}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestResetPassword_FullFlow(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	addAccount(t, repo, "alice", "alice@example.com", "pass1#", false)
	router, _ := testRouter(repo, newFakeTaskRepo())

	rec := postJSON(t, router, "/user/forgot-password", map[string]string{
		"email": "alice@example.com",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot-password: expected 200, got %d", rec.Code)
	}

	stored, err := repo.GetByEmail(context.Background(), "alice@example.com")
	if err != nil || stored.ResetToken == nil {
		t.Fatalf("expected stored reset token, got %v / %v", stored.ResetToken, err)
	}

	rec = postJSON(t, router, "/user/reset-password", map[string]string{
		"password":        "newpw2$",
		"confirmPassword": "newpw2$",
		"resetToken":      *stored.ResetToken,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset-password: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// The new credential works, the old one does not.
	rec = postJSON(t, router, "/user/login", map[string]string{
		"userName": "alice", "password": "newpw2$",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", rec.Code)
	}
	rec = postJSON(t, router, "/user/login", map[string]string{
		"userName": "alice", "password": "pass1#",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login with old password: expected 401, got %d", rec.Code)
	}
}

func TestResetPassword_ConfirmMismatch(t *testing.T) {
	t.Parallel()

	router, _ := testRouter(newFakeUserRepo(), newFakeTaskRepo())

	rec := postJSON(t, router, "/user/reset-password", map[string]string{
		"password":        "newpw2$",
		"confirmPassword": "different2$",
		"resetToken":      "whatever",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestExternalLogin_UnknownProvider(t *testing.T) {
	t.Parallel()

	router, _ := testRouter(newFakeUserRepo(), newFakeTaskRepo())

	rec := postJSON(t, router, "/user/external-login", map[string]string{
		"provider":    "Facebook",
		"accessToken": "tok",
		"role":        "team-member",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMembers_LeadOnly(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	addAccount(t, repo, "alice", "alice@example.com", "pass1#", false)
	lead := addAccount(t, repo, "bob", "bob@example.com", "pass1#", true)
	router, issuer := testRouter(repo, newFakeTaskRepo())

	memberToken, err := issuer.Issue("alice", "alice@example.com", types.RoleMember)
	if err != nil {
		t.Fatalf("issue member token: %v", err)
	}
	leadToken, err := issuer.Issue(lead.Username, lead.Email, types.RoleLead)
	if err != nil {
		t.Fatalf("issue lead token: %v", err)
	}

	if rec := getJSON(t, router, "/user/members", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rec.Code)
	}
	if rec := getJSON(t, router, "/user/members", memberToken); rec.Code != http.StatusForbidden {
		t.Fatalf("member: expected 403, got %d", rec.Code)
	}

	rec := getJSON(t, router, "/user/members", leadToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("lead: expected 200, got %d", rec.Code)
	}
	var resp struct {
		Envelope
		Data []types.User `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode members: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Username != "alice" {
		t.Fatalf("expected only member alice, got %+v", resp.Data)
	}
}
