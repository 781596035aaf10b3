package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/assigna-app/apiserver/internal/auth"
)

type contextKey string

const contextClaimsKey contextKey = "claims"

func claimsFromContext(ctx context.Context) (auth.Claims, error) {
	claims, ok := ctx.Value(contextClaimsKey).(auth.Claims)
	if !ok {
		return auth.Claims{}, errors.New("missing claims")
	}
	return claims, nil
}

// Envelope carried by every response. Handlers that return payloads
// embed it so success and message always come first.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type dataResponse struct {
	Envelope
	Data any `json:"data"`
}

type sessionResponse struct {
	Envelope
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeSuccess(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: true, Message: message})
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, dataResponse{
		Envelope: Envelope{Success: true, Message: message},
		Data:     data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Message: message})
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
