package auth

import (
	"context"

	"github.com/ayush/videotube/backend/internal/models"
)

type accountKey struct{}

// WithAccount attaches the authenticated account to ctx.
func WithAccount(ctx context.Context, acct *models.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, acct)
}

// AccountFromContext returns the account set by WithAccount.
func AccountFromContext(ctx context.Context) (*models.Account, bool) {
	acct, ok := ctx.Value(accountKey{}).(*models.Account)
	return acct, ok && acct != nil
}
