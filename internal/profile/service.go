// Package profile serves the account's own profile mutations and the
// read-only channel and watch-history aggregations.
package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/ayush/videotube/backend/internal/apperror"
	"github.com/ayush/videotube/backend/internal/logging"
	"github.com/ayush/videotube/backend/internal/media"
	"github.com/ayush/videotube/backend/internal/models"
	"github.com/ayush/videotube/backend/internal/store"
)

const (
	avatarFolder = "avatars"
	coverFolder  = "covers"
)

// AccountStore defines the profile reads and writes.
type AccountStore interface {
	UpdateDetails(ctx context.Context, id, fullName, email string) (*models.Account, error)
	UpdateAvatar(ctx context.Context, id, url string) (*models.Account, error)
	UpdateCoverImage(ctx context.Context, id, url string) (*models.Account, error)
	ChannelProfile(ctx context.Context, username, requesterID string) (*models.ChannelProfile, error)
	WatchHistory(ctx context.Context, accountID string) ([]models.WatchedVideo, error)
}

// MediaStore uploads images and discards superseded ones.
type MediaStore interface {
	Upload(ctx context.Context, folder string, f media.File) (string, error)
	Discard(ctx context.Context, url string) <-chan error
}

// Invalidator drops cached copies of an account after it changes.
type Invalidator interface {
	Invalidate(ctx context.Context, id string) error
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, string) error { return nil }

type Service struct {
	accounts AccountStore
	uploads  MediaStore
	cache    Invalidator
}

func NewService(accounts AccountStore, uploads MediaStore, cache Invalidator) *Service {
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &Service{accounts: accounts, uploads: uploads, cache: cache}
}

func mapStoreErr(err error, notFound string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperror.NotFound(notFound)
	case errors.Is(err, store.ErrConflict):
		return apperror.Conflict("email is already in use")
	default:
		return apperror.Dependency("credential store unavailable", err)
	}
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("account cache invalidation failed", "account_id", id, "error", err)
	}
}

// UpdateAccount sets full name and email; both are required.
func (s *Service) UpdateAccount(ctx context.Context, accountID string, req models.UpdateAccountRequest) (*models.Account, error) {
	fullName := strings.TrimSpace(req.FullName)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if fullName == "" || email == "" {
		return nil, apperror.Validation("all fields are required")
	}

	acct, err := s.accounts.UpdateDetails(ctx, accountID, fullName, email)
	if err != nil {
		return nil, mapStoreErr(err, "user does not exist")
	}
	s.invalidate(ctx, accountID)
	return acct.Sanitized(), nil
}

// UpdateAvatar replaces the avatar of acct and discards the old image.
func (s *Service) UpdateAvatar(ctx context.Context, acct *models.Account, f *media.File) (*models.Account, error) {
	if f == nil || len(f.Data) == 0 {
		return nil, apperror.Validation("avatar file is missing")
	}
	return s.replaceImage(ctx, acct, acct.Avatar, avatarFolder, "avatar", *f, s.accounts.UpdateAvatar)
}

// UpdateCoverImage replaces the cover image of acct and discards the old one.
func (s *Service) UpdateCoverImage(ctx context.Context, acct *models.Account, f *media.File) (*models.Account, error) {
	if f == nil || len(f.Data) == 0 {
		return nil, apperror.Validation("cover image file is missing")
	}
	return s.replaceImage(ctx, acct, acct.CoverImage, coverFolder, "cover image", *f, s.accounts.UpdateCoverImage)
}

type imageSetter func(ctx context.Context, id, url string) (*models.Account, error)

// replaceImage uploads f, points the account at it and then discards the
// previous image. Discard failures are logged by the relay and never undo
// the update.
func (s *Service) replaceImage(ctx context.Context, acct *models.Account, previous, folder, label string, f media.File, set imageSetter) (*models.Account, error) {
	url, err := s.uploads.Upload(ctx, folder, f)
	if media.Rejected(err) {
		return nil, apperror.Validation(label + " file must be an image")
	}
	if err != nil {
		return nil, apperror.Dependency("error while uploading image", err)
	}

	id := acct.ID.Hex()
	updated, err := set(ctx, id, url)
	if err != nil {
		s.uploads.Discard(ctx, url)
		return nil, mapStoreErr(err, "user does not exist")
	}
	s.invalidate(ctx, id)

	if previous != "" && previous != url {
		s.uploads.Discard(ctx, previous)
	}
	return updated.Sanitized(), nil
}

// Channel returns the public channel view of username for requesterID.
func (s *Service) Channel(ctx context.Context, username, requesterID string) (*models.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, apperror.Validation("username is missing")
	}

	channel, err := s.accounts.ChannelProfile(ctx, username, requesterID)
	if err != nil {
		return nil, mapStoreErr(err, "channel does not exist")
	}
	return channel, nil
}

// History returns the account's watched videos in view order. An empty
// history is an empty slice.
func (s *Service) History(ctx context.Context, accountID string) ([]models.WatchedVideo, error) {
	videos, err := s.accounts.WatchHistory(ctx, accountID)
	if err != nil {
		return nil, mapStoreErr(err, "user does not exist")
	}
	if videos == nil {
		videos = []models.WatchedVideo{}
	}
	return videos, nil
}
