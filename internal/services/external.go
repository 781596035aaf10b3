package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/assigna-app/apiserver/internal/store"
	"github.com/assigna-app/apiserver/types"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	providerTimeout   = 10 * time.Second
)

// ExternalProfile is the normalized identity returned by a provider's
// userinfo endpoint.
type ExternalProfile struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Locale        string `json:"locale"`
}

// ExternalService bridges third-party identities onto local accounts.
type ExternalService struct {
	repo        UserRepository
	session     *SessionManager
	avatars     *AvatarService
	client      *http.Client
	userInfoURL string
}

func NewExternalService(repo UserRepository, session *SessionManager, avatars *AvatarService) *ExternalService {
	return &ExternalService{
		repo:        repo,
		session:     session,
		avatars:     avatars,
		client:      &http.Client{Timeout: providerTimeout},
		userInfoURL: googleUserInfoURL,
	}
}

// ResolveProfile exchanges a provider access token for a normalized
// profile. The provider call is time-bounded; a timeout or a non-200
// response surfaces ErrProvider, and a profile without an email is
// unusable and surfaces ErrEmptyProfile.
func (s *ExternalService) ResolveProfile(ctx context.Context, accessToken string) (ExternalProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return ExternalProfile{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return ExternalProfile{}, ErrProvider
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ExternalProfile{}, ErrProvider
	}

	var profile ExternalProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return ExternalProfile{}, ErrProvider
	}
	if profile.Email == "" {
		return ExternalProfile{}, ErrEmptyProfile
	}
	return profile, nil
}

// SignInOrProvision links the profile to the local account holding its
// email, or provisions a new passwordless account. The requested role
// only ever applies to brand-new accounts: an existing account keeps
// its stored role no matter what the caller asked for.
func (s *ExternalService) SignInOrProvision(ctx context.Context, profile ExternalProfile, requestedRole string) (SessionPair, error) {
	user, err := s.repo.GetByEmail(ctx, profile.Email)
	if err == nil {
		return s.session.IssueFor(ctx, user)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return SessionPair{}, err
	}

	// The one place an untrusted value controls privilege assignment;
	// it is validated strictly, not normalized.
	role, err := types.ParseRole(requestedRole)
	if err != nil {
		return SessionPair{}, err
	}

	exists, err := s.repo.EmailExists(ctx, profile.Email)
	if err != nil {
		return SessionPair{}, err
	}
	if exists {
		return SessionPair{}, ErrEmailExists
	}

	name := profile.GivenName
	if name == "" {
		name = profile.Name
	}
	user = types.User{
		Username:      name,
		FirstName:     name,
		Email:         profile.Email,
		IsLead:        role.IsLead(),
		GivenName:     optional(profile.GivenName),
		FamilyName:    optional(profile.FamilyName),
		Picture:       optional(profile.Picture),
		EmailVerified: profile.EmailVerified,
		Locale:        optional(profile.Locale),
	}
	if err := s.session.stampNewPair(&user); err != nil {
		return SessionPair{}, err
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return SessionPair{}, err
	}

	if s.avatars != nil {
		s.avatars.CacheFromURL(ctx, created.Email, profile.Picture)
	}

	return SessionPair{Token: created.VerifyToken, RefreshToken: created.RefreshToken}, nil
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
