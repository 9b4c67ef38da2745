package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ayush/videotube/backend/internal/models"
)

var (
	ErrInvalidToken = errors.New("auth: invalid token")
	ErrTokenExpired = errors.New("auth: token expired")
)

// TokenConfig holds the signing secrets and lifetimes of both token classes.
type TokenConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

func (c TokenConfig) validate() error {
	var errs []error
	if c.AccessSecret == "" {
		errs = append(errs, errors.New("access secret is required"))
	}
	if c.RefreshSecret == "" {
		errs = append(errs, errors.New("refresh secret is required"))
	}
	if c.AccessSecret != "" && c.AccessSecret == c.RefreshSecret {
		errs = append(errs, errors.New("access and refresh secrets must differ"))
	}
	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("access ttl must be positive"))
	}
	if c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("refresh ttl must be positive"))
	}
	return errors.Join(errs...)
}

// AccessClaims identify the account a request acts as.
type AccessClaims struct {
	AccountID string `json:"_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the account id. The registered jti keeps
// tokens minted within the same second distinct.
type RefreshClaims struct {
	AccountID string `json:"_id"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies access and refresh tokens with HS256.
type TokenIssuer struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("token config: %w", err)
	}
	return &TokenIssuer{cfg: cfg, now: time.Now}, nil
}

func (t *TokenIssuer) registered(ttl time.Duration, id string) jwt.RegisteredClaims {
	now := t.now()
	return jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// IssueAccess signs a short-lived token describing acct.
func (t *TokenIssuer) IssueAccess(acct *models.Account) (string, error) {
	claims := AccessClaims{
		AccountID:        acct.ID.Hex(),
		Email:            acct.Email,
		Username:         acct.Username,
		FullName:         acct.FullName,
		RegisteredClaims: t.registered(t.cfg.AccessTTL, ""),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.AccessSecret))
}

// IssueRefresh signs a long-lived token for accountID.
func (t *TokenIssuer) IssueRefresh(accountID string) (string, error) {
	claims := RefreshClaims{
		AccountID:        accountID,
		RegisteredClaims: t.registered(t.cfg.RefreshTTL, uuid.NewString()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.RefreshSecret))
}

// IssuePair signs a fresh access and refresh token for acct.
func (t *TokenIssuer) IssuePair(acct *models.Account) (models.SessionTokens, error) {
	access, err := t.IssueAccess(acct)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := t.IssueRefresh(acct.ID.Hex())
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return models.SessionTokens{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess checks signature and expiry against the access secret.
func (t *TokenIssuer) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := t.parse(raw, claims, t.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if claims.AccountID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh checks signature and expiry against the refresh secret.
func (t *TokenIssuer) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := t.parse(raw, claims, t.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	if claims.AccountID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// parse rejects a token whose expiry equals the current second.
func (t *TokenIssuer) parse(raw string, claims jwt.Claims, secret string) error {
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}
