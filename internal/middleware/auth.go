package middleware

import (
	"context"
	"net/http"

	"github.com/ayush/videotube/backend/internal/auth"
	"github.com/ayush/videotube/backend/internal/httpx"
	"github.com/ayush/videotube/backend/internal/logging"
	"github.com/ayush/videotube/backend/internal/models"
)

// Authenticator resolves an access token to an account.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.Account, error)
}

// VerifyJWT reads the access token from the accessToken cookie or the
// Authorization header and injects the resolved account into the request
// context.
func VerifyJWT(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := httpx.CookieValue(r, httpx.AccessTokenCookie)
			if token == "" {
				token = httpx.BearerToken(r)
			}

			acct, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				httpx.WriteError(r.Context(), w, err)
				return
			}

			ctx := auth.WithAccount(r.Context(), acct)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("account_id", acct.ID.Hex()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
