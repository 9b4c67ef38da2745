// Package httpx holds the HTTP plumbing shared by the handlers: the response
// envelope, body decoding and session cookies.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/ayush/videotube/backend/internal/apperror"
)

// DecodeBody fills dst from a JSON, urlencoded or multipart body. Form values
// are mapped onto dst's json tags. An empty body leaves dst untouched.
func DecodeBody(r *http.Request, dst any) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := parseForm(r); err != nil {
			return apperror.Validation("invalid form body")
		}
		values := make(map[string]string, len(r.Form))
		for k := range r.Form {
			values[k] = r.FormValue(k)
		}
		raw, err := json.Marshal(values)
		if err != nil {
			return apperror.Internal("encode form", err)
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return apperror.Validation("invalid form body")
		}
		return nil
	default:
		if r.Body == nil {
			return nil
		}
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return apperror.Validation("invalid request body")
		}
		return nil
	}
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if r.MultipartForm != nil {
			return nil
		}
		return r.ParseMultipartForm(32 << 20)
	}
	return r.ParseForm()
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
}
