package auth

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

// AccountStore defines the credential persistence the session manager needs.
type AccountStore interface {
	Create(ctx context.Context, acct *models.Account) error
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindSanitizedByID(ctx context.Context, id string) (*models.Account, error)
	FindByLogin(ctx context.Context, username, email string) (*models.Account, error)
	ExistsByIdentity(ctx context.Context, username, email string) (bool, error)
	SetPassword(ctx context.Context, id, hash string) error
	SetRefreshToken(ctx context.Context, id, token string) error
	SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error)
	UnsetRefreshToken(ctx context.Context, id string) error
}

// MediaStore uploads profile images and discards them on a best-effort basis.
type MediaStore interface {
	Upload(ctx context.Context, folder string, f media.File) (string, error)
	Discard(ctx context.Context, url string) <-chan error
}

// AccountCache holds sanitized accounts for token verification.
type AccountCache interface {
	Get(ctx context.Context, id string) (*models.Account, error)
	Set(ctx context.Context, acct *models.Account) error
	Invalidate(ctx context.Context, id string) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*models.Account, error) { return nil, nil }
func (noopCache) Set(context.Context, *models.Account) error           { return nil }
func (noopCache) Invalidate(context.Context, string) error             { return nil }

// RegisterInput is a registration request with its uploaded images.
type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     *media.File
	CoverImage *media.File
}

// Manager runs the account authentication lifecycle: registration, login,
// refresh rotation, logout, password change and access-token verification.
type Manager struct {
	accounts AccountStore
	uploads  MediaStore
	tokens   *TokenIssuer
	hasher   Hasher
	cache    AccountCache
}

func NewManager(accounts AccountStore, uploads MediaStore, tokens *TokenIssuer, hasher Hasher) *Manager {
	return &Manager{
		accounts: accounts,
		uploads:  uploads,
		tokens:   tokens,
		hasher:   hasher,
		cache:    noopCache{},
	}
}

// WithCache makes Authenticate consult cache before the credential store.
func (m *Manager) WithCache(cache AccountCache) *Manager {
	if cache != nil {
		m.cache = cache
	}
	return m
}

// NormalizeIdentity trims and lowercases a username or email.
func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func storeFailure(err error) error {
	return apperror.Dependency("credential store unavailable", err)
}

// Register creates an account. Images uploaded along the way are discarded
// again if a later step fails.
func (m *Manager) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	fullName := strings.TrimSpace(in.FullName)
	email := NormalizeIdentity(in.Email)
	username := NormalizeIdentity(in.Username)

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"fullName", fullName},
		{"email", email},
		{"username", username},
		{"password", strings.TrimSpace(in.Password)},
	} {
		if f.value == "" {
			missing = append(missing, f.name+" is required")
		}
	}
	if len(missing) > 0 {
		return nil, apperror.Validation("all fields are required", missing...)
	}

	exists, err := m.accounts.ExistsByIdentity(ctx, username, email)
	if err != nil {
		return nil, storeFailure(err)
	}
	if exists {
		return nil, apperror.Conflict("user with email or username already exists")
	}

	if in.Avatar == nil || len(in.Avatar.Data) == 0 {
		return nil, apperror.Validation("avatar file is required")
	}

	hash, err := m.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperror.Internal("hash password", err)
	}

	avatarURL, err := m.uploads.Upload(ctx, avatarFolder, *in.Avatar)
	if media.Rejected(err) {
		return nil, apperror.Validation("avatar file must be an image")
	}
	if err != nil {
		return nil, apperror.Dependency("avatar upload failed", err)
	}
	uploaded := []string{avatarURL}

	var coverURL string
	if in.CoverImage != nil && len(in.CoverImage.Data) > 0 {
		coverURL, err = m.uploads.Upload(ctx, coverFolder, *in.CoverImage)
		if err != nil {
			m.discard(ctx, uploaded...)
			if media.Rejected(err) {
				return nil, apperror.Validation("cover image file must be an image")
			}
			return nil, apperror.Dependency("cover image upload failed", err)
		}
		uploaded = append(uploaded, coverURL)
	}

	acct := &models.Account{
		Username:   username,
		Email:      email,
		FullName:   fullName,
		Avatar:     avatarURL,
		CoverImage: coverURL,
		Password:   hash,
	}
	if err := m.accounts.Create(ctx, acct); err != nil {
		m.discard(ctx, uploaded...)
		if errors.Is(err, store.ErrConflict) {
			return nil, apperror.Conflict("user with email or username already exists")
		}
		return nil, storeFailure(err)
	}

	logging.FromContext(ctx).Info("account registered", "account_id", acct.ID.Hex())
	return acct.Sanitized(), nil
}

func (m *Manager) discard(ctx context.Context, urls ...string) {
	for _, url := range urls {
		m.uploads.Discard(ctx, url)
	}
}

// Login verifies credentials and starts a session. The new refresh token
// replaces whatever was stored before.
func (m *Manager) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	username := NormalizeIdentity(req.Username)
	email := NormalizeIdentity(req.Email)
	if username == "" && email == "" {
		return nil, apperror.Validation("username or email is required")
	}

	acct, err := m.accounts.FindByLogin(ctx, username, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("user does not exist")
	}
	if err != nil {
		return nil, storeFailure(err)
	}

	if !m.hasher.Verify(req.Password, acct.Password) {
		return nil, apperror.Authentication("invalid user credentials")
	}

	pair, err := m.tokens.IssuePair(acct)
	if err != nil {
		return nil, apperror.Internal("issue tokens", err)
	}
	if err := m.accounts.SetRefreshToken(ctx, acct.ID.Hex(), pair.RefreshToken); err != nil {
		return nil, storeFailure(err)
	}

	return &models.LoginResponse{
		User:         acct.Sanitized(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Refresh rotates the session: incoming must be the currently stored refresh
// token, and is replaced atomically so it can never be presented again.
func (m *Manager) Refresh(ctx context.Context, incoming string) (models.SessionTokens, error) {
	if incoming == "" {
		return models.SessionTokens{}, apperror.Authentication("unauthorized request")
	}

	claims, err := m.tokens.VerifyRefresh(incoming)
	if err != nil {
		return models.SessionTokens{}, apperror.AuthenticationCause("invalid refresh token", err)
	}

	acct, err := m.accounts.FindByID(ctx, claims.AccountID)
	if errors.Is(err, store.ErrNotFound) {
		return models.SessionTokens{}, apperror.Authentication("invalid refresh token")
	}
	if err != nil {
		return models.SessionTokens{}, storeFailure(err)
	}
	if acct.RefreshToken != incoming {
		return models.SessionTokens{}, apperror.Authentication("refresh token is expired or used")
	}

	pair, err := m.tokens.IssuePair(acct)
	if err != nil {
		return models.SessionTokens{}, apperror.Internal("issue tokens", err)
	}
	swapped, err := m.accounts.SwapRefreshToken(ctx, claims.AccountID, incoming, pair.RefreshToken)
	if err != nil {
		return models.SessionTokens{}, storeFailure(err)
	}
	if !swapped {
		return models.SessionTokens{}, apperror.Authentication("refresh token is expired or used")
	}
	return pair, nil
}

// Logout removes the stored refresh token. Logging out twice is not an error.
func (m *Manager) Logout(ctx context.Context, accountID string) error {
	err := m.accounts.UnsetRefreshToken(ctx, accountID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return storeFailure(err)
	}
	return nil
}

// ChangePassword replaces the password after checking the old one. The
// stored refresh token is left in place.
func (m *Manager) ChangePassword(ctx context.Context, accountID string, req models.ChangePasswordRequest) error {
	if req.OldPassword == "" || strings.TrimSpace(req.NewPassword) == "" {
		return apperror.Validation("old and new password are required")
	}

	acct, err := m.accounts.FindByID(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound("user does not exist")
	}
	if err != nil {
		return storeFailure(err)
	}
	if !m.hasher.Verify(req.OldPassword, acct.Password) {
		return apperror.Authentication("invalid old password")
	}

	hash, err := m.hasher.Hash(req.NewPassword)
	if err != nil {
		return apperror.Internal("hash password", err)
	}
	if err := m.accounts.SetPassword(ctx, accountID, hash); err != nil {
		return storeFailure(err)
	}
	return nil
}

// Authenticate resolves an access token to the sanitized account it names.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (*models.Account, error) {
	if accessToken == "" {
		return nil, apperror.Authentication("unauthorized request")
	}
	claims, err := m.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, apperror.AuthenticationCause("invalid access token", err)
	}

	logger := logging.FromContext(ctx)
	if acct, err := m.cache.Get(ctx, claims.AccountID); err != nil {
		logger.Warn("account cache read failed", "account_id", claims.AccountID, "error", err)
	} else if acct != nil {
		return acct, nil
	}

	acct, err := m.accounts.FindSanitizedByID(ctx, claims.AccountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.Authentication("invalid access token")
	}
	if err != nil {
		return nil, storeFailure(err)
	}
	if err := m.cache.Set(ctx, acct); err != nil {
		logger.Warn("account cache write failed", "account_id", claims.AccountID, "error", err)
	}
	return acct, nil
}
