package auth

import (
	"net/http"

	"github.com/ayush/videotube/backend/internal/apperror"
	"github.com/ayush/videotube/backend/internal/httpx"
	"github.com/ayush/videotube/backend/internal/media"
	"github.com/ayush/videotube/backend/internal/models"
)

// Handler holds the session HTTP handlers.
type Handler struct {
	sessions *Manager
	cookies  httpx.CookieWriter
}

func NewHandler(sessions *Manager, cookies httpx.CookieWriter) *Handler {
	return &Handler{sessions: sessions, cookies: cookies}
}

// Register creates an account from a multipart form carrying the text
// fields, a required avatar and an optional coverImage.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RegisterRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	avatar, err := media.FormFile(r, "avatar")
	if err != nil {
		httpx.WriteError(ctx, w, apperror.Validation("invalid avatar file"))
		return
	}
	cover, err := media.FormFile(r, "coverImage")
	if err != nil {
		httpx.WriteError(ctx, w, apperror.Validation("invalid cover image file"))
		return
	}

	acct, err := h.sessions.Register(ctx, RegisterInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Username:   req.Username,
		Password:   req.Password,
		Avatar:     avatar,
		CoverImage: cover,
	})
	if err != nil {
		httpx.WriteError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusCreated, acct, "user registered successfully")
}

// Login starts a session and sets both token cookies.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}

	resp, err := h.sessions.Login(r.Context(), req)
	if err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	h.cookies.SetSession(w, resp.AccessToken, resp.RefreshToken)
	httpx.WriteData(w, http.StatusOK, resp, "user logged in successfully")
}

// Logout ends the current account's session and clears the cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	acct, ok := AccountFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, apperror.Authentication("unauthorized request"))
		return
	}

	if err := h.sessions.Logout(r.Context(), acct.ID.Hex()); err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	h.cookies.ClearSession(w)
	httpx.WriteData(w, http.StatusOK, struct{}{}, "user logged out")
}

// Refresh rotates the session. The refresh token comes from the cookie, or
// from the body when no cookie is present.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	incoming := httpx.CookieValue(r, httpx.RefreshTokenCookie)
	if incoming == "" {
		var req models.RefreshRequest
		if err := httpx.DecodeBody(r, &req); err != nil {
			httpx.WriteError(r.Context(), w, err)
			return
		}
		incoming = req.RefreshToken
	}

	pair, err := h.sessions.Refresh(r.Context(), incoming)
	if err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	h.cookies.SetSession(w, pair.AccessToken, pair.RefreshToken)
	httpx.WriteData(w, http.StatusOK, pair, "access token refreshed")
}

// ChangePassword replaces the current account's password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	acct, ok := AccountFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, apperror.Authentication("unauthorized request"))
		return
	}

	var req models.ChangePasswordRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	if err := h.sessions.ChangePassword(r.Context(), acct.ID.Hex(), req); err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, struct{}{}, "password changed successfully")
}
