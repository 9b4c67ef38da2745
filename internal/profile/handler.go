package profile

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayush/videotube/backend/internal/apperror"
	"github.com/ayush/videotube/backend/internal/auth"
	"github.com/ayush/videotube/backend/internal/httpx"
	"github.com/ayush/videotube/backend/internal/media"
	"github.com/ayush/videotube/backend/internal/models"
)

// Handler exposes the profile routes. Every route expects an authenticated
// account on the request context.
type Handler struct {
	profiles *Service
}

func NewHandler(profiles *Service) *Handler {
	return &Handler{profiles: profiles}
}

func currentAccount(w http.ResponseWriter, r *http.Request) (*models.Account, bool) {
	acct, ok := auth.AccountFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, apperror.Authentication("unauthorized request"))
	}
	return acct, ok
}

func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	acct, ok := currentAccount(w, r)
	if !ok {
		return
	}
	httpx.WriteData(w, http.StatusOK, acct.Sanitized(), "current user fetched successfully")
}

func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	acct, ok := currentAccount(w, r)
	if !ok {
		return
	}
	var req models.UpdateAccountRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}

	updated, err := h.profiles.UpdateAccount(r.Context(), acct.ID.Hex(), req)
	if err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, updated, "account details updated successfully")
}

func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.profiles.UpdateAvatar, "avatar image updated successfully")
}

func (h *Handler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.profiles.UpdateCoverImage, "cover image updated successfully")
}

func (h *Handler) updateImage(
	w http.ResponseWriter, r *http.Request, field string,
	update func(ctx context.Context, acct *models.Account, f *media.File) (*models.Account, error),
	message string,
) {
	acct, ok := currentAccount(w, r)
	if !ok {
		return
	}
	f, err := media.FormFile(r, field)
	if err != nil {
		httpx.WriteError(r.Context(), w, apperror.Validation("invalid "+field+" file"))
		return
	}

	updated, err := update(r.Context(), acct, f)
	if err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, updated, message)
}

// Channel serves GET /channel/{username}.
func (h *Handler) Channel(w http.ResponseWriter, r *http.Request) {
	acct, ok := currentAccount(w, r)
	if !ok {
		return
	}

	channel, err := h.profiles.Channel(r.Context(), chi.URLParam(r, "username"), acct.ID.Hex())
	if err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, channel, "user channel fetched successfully")
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	acct, ok := currentAccount(w, r)
	if !ok {
		return
	}

	videos, err := h.profiles.History(r.Context(), acct.ID.Hex())
	if err != nil {
		httpx.WriteError(r.Context(), w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, videos, "watch history fetched successfully")
}
