// Package profile serves the member directory and each user's own profile.
package profile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tsudoi-app/tsudoi/internal/model"
	"github.com/tsudoi-app/tsudoi/internal/store"
)

// AvatarStore is implemented by the media package.
type AvatarStore interface {
	UploadAvatar(ctx context.Context, userID string, data []byte) (string, error)
	DeleteByURL(ctx context.Context, avatarURL string) error
}

type Service struct {
	profiles store.ProfileStore
	avatars  AvatarStore
	log      *zap.SugaredLogger
}

func NewService(profiles store.ProfileStore, avatars AvatarStore, log *zap.SugaredLogger) *Service {
	return &Service{profiles: profiles, avatars: avatars, log: log}
}

// Get returns the profile, creating a stub from the fallback username on
// first access so a fresh account always has a row.
func (s *Service) Get(ctx context.Context, userID, fallbackUsername string) (*model.Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err == store.ErrNotFound {
		p = &model.Profile{ID: userID, Username: fallbackUsername}
		if err := s.profiles.Upsert(ctx, p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return p, err
}

// Lookup returns the profile without creating one; missing profiles surface
// as store.ErrNotFound.
func (s *Service) Lookup(ctx context.Context, userID string) (*model.Profile, error) {
	return s.profiles.Get(ctx, userID)
}

func (s *Service) Update(ctx context.Context, p *model.Profile) error {
	p.Username = strings.TrimSpace(p.Username)
	if p.Username == "" {
		return fmt.Errorf("username required")
	}
	existing, err := s.profiles.Get(ctx, p.ID)
	if err == nil && p.AvatarURL == "" {
		p.AvatarURL = existing.AvatarURL
	}
	return s.profiles.Upsert(ctx, p)
}

func (s *Service) List(ctx context.Context) ([]*model.Profile, error) {
	return s.profiles.List(ctx)
}

// SetAvatar uploads the image, records its public URL on the profile and
// removes the replaced object. A failed delete leaves an orphan in storage,
// not a broken profile, so it is only logged.
func (s *Service) SetAvatar(ctx context.Context, userID string, data []byte) (string, error) {
	if s.avatars == nil {
		return "", fmt.Errorf("avatar storage not configured")
	}
	var old string
	if p, err := s.profiles.Get(ctx, userID); err == nil {
		old = p.AvatarURL
	}
	url, err := s.avatars.UploadAvatar(ctx, userID, data)
	if err != nil {
		return "", err
	}
	if err := s.profiles.SetAvatarURL(ctx, userID, url); err != nil {
		return "", err
	}
	if old != "" && old != url {
		if err := s.avatars.DeleteByURL(ctx, old); err != nil {
			s.log.Warnw("replaced avatar delete failed", "user", userID, "err", err)
		}
	}
	return url, nil
}
