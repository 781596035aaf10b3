package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/assigna-app/apiserver/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	avatarTimeout  = 10 * time.Second
	maxAvatarBytes = 5 << 20
)

// AvatarService caches external profile pictures in object storage so
// the client never hotlinks the provider's CDN. Caching is best-effort:
// a failed fetch is logged and sign-in proceeds without it.
type AvatarService struct {
	store  *storage.Storage
	client *http.Client
	log    *logrus.Logger
}

func NewAvatarService(store *storage.Storage, log *logrus.Logger) *AvatarService {
	return &AvatarService{
		store:  store,
		client: &http.Client{Timeout: avatarTimeout},
		log:    log,
	}
}

// CacheFromURL downloads the picture and stores it under the user's
// email key. Never fails the caller.
func (s *AvatarService) CacheFromURL(ctx context.Context, email, pictureURL string) {
	if s.store == nil || pictureURL == "" {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pictureURL, nil)
	if err != nil {
		s.log.WithError(err).Warn("avatar fetch request failed")
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.log.WithError(err).Warn("avatar fetch failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.WithField("status", resp.StatusCode).Warn("avatar fetch rejected")
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes))
	if err != nil {
		s.log.WithError(err).Warn("avatar read failed")
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := avatarKey(email)
	err = s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("avatar store failed")
	}
}

// Open streams a cached avatar. Callers translate a miss into 404.
func (s *AvatarService) Open(ctx context.Context, email string) (io.ReadCloser, error) {
	if s.store == nil {
		return nil, fmt.Errorf("avatar storage not configured")
	}
	return s.store.Get(ctx, avatarKey(email))
}

func avatarKey(email string) string {
	return "avatars/" + email
}
