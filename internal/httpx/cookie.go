package httpx

import (
	"net/http"
	"time"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieWriter sets and clears the session cookie pair.
type CookieWriter struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// SetSession writes both tokens as http-only cookies scoped to their lifetimes.
func (c CookieWriter) SetSession(w http.ResponseWriter, accessToken, refreshToken string) {
	http.SetCookie(w, c.cookie(AccessTokenCookie, accessToken, c.AccessTTL))
	http.SetCookie(w, c.cookie(RefreshTokenCookie, refreshToken, c.RefreshTTL))
}

// ClearSession expires both cookies.
func (c CookieWriter) ClearSession(w http.ResponseWriter) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		ck := c.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}

func (c CookieWriter) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl / time.Second),
	}
}

// CookieValue returns the named cookie's value or "".
func CookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
