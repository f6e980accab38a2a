package user

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/campfolio/service/internal/logger"
	"github.com/campfolio/service/internal/media"
	"github.com/campfolio/service/internal/middleware"
	"github.com/campfolio/service/internal/response"
	"github.com/campfolio/service/internal/settings"
)

// SettingsSource returns the current settings snapshot.
type SettingsSource interface {
	Current(ctx context.Context) (settings.Snapshot, error)
}

// Handler holds HTTP handlers for user-related endpoints.
type Handler struct {
	svc      *Service
	settings SettingsSource
	log      *logger.Logger
}

// NewHandler creates a new user Handler.
func NewHandler(svc *Service, src SettingsSource, log *logger.Logger) *Handler {
	return &Handler{svc: svc, settings: src, log: log}
}

// GetMe godoc
//
//	@Summary		Get current user
//	@Description	Returns the profile of the currently authenticated user.
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=User}
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/users/me [get]
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	u, err := h.svc.GetByID(r.Context(), id.UserID)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "user not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, u)
}

// UploadAvatar godoc
//
//	@Summary		Upload avatar
//	@Description	Replaces the current user's avatar. The previous image is deleted.
//	@Tags			users
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			avatar	formData	file	true	"Avatar image"
//	@Success		200		{object}	response.Envelope{data=User}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		502		{object}	response.Envelope
//	@Router			/users/me/avatar [post]
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	snap, err := h.settings.Current(r.Context())
	if err != nil {
		h.log.Error("load settings", "error", err)
		response.InternalError(w)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		response.BadRequest(w, "avatar: file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "could not read file")
		return
	}

	u, err := h.svc.UploadAvatar(r.Context(), id.UserID, snap, header.Filename, header.Header.Get("Content-Type"), data)
	var (
		invalid  *media.ValidationError
		writeErr *media.StorageWriteError
	)
	switch {
	case err == nil:
		response.OK(w, u)
	case errors.As(err, &invalid):
		if invalid.TooLarge() {
			response.PayloadTooLarge(w, invalid.Error(), map[string]int64{"maxFileSize": invalid.Limit})
			return
		}
		response.BadRequest(w, invalid.Error())
	case h.svc.IsNotFound(err):
		response.NotFound(w, "user not found")
	case errors.As(err, &writeErr):
		h.log.Error("store avatar", "user", id.UserID, "error", err)
		response.BadGateway(w, "failed to store file")
	default:
		h.log.Error("upload avatar", "user", id.UserID, "error", err)
		response.InternalError(w)
	}
}
