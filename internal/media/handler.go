package media

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/campfolio/service/internal/logger"
	"github.com/campfolio/service/internal/middleware"
	"github.com/campfolio/service/internal/response"
	"github.com/campfolio/service/internal/settings"
)

// multipartSlack is the allowance for multipart framing above the file limit.
const multipartSlack = 1 << 20

// SettingsSource returns the current settings snapshot.
type SettingsSource interface {
	Current(ctx context.Context) (settings.Snapshot, error)
}

// Handler holds HTTP handlers for portfolio and media endpoints.
type Handler struct {
	svc      *Service
	settings SettingsSource
	log      *logger.Logger
}

// NewHandler creates a new media Handler.
func NewHandler(svc *Service, src SettingsSource, log *logger.Logger) *Handler {
	return &Handler{svc: svc, settings: src, log: log.With("component", "media_handler")}
}

type createCollectionRequest struct {
	Title       string  `json:"title"       example:"Summer trip"`
	Description *string `json:"description" example:"Photos from the coast"`
}

type coverRequest struct {
	Cover string `json:"cover" example:"/uploads/portfolios/e7eedc79-0707-4fe4-8734-526b7ef13a7b/beach-1718000000000-1a2b3c4d.jpg"`
}

type reviewRequest struct {
	Status ReviewStatus `json:"status" example:"approved"`
}

type batchDeleteRequest struct {
	IDs []string `json:"ids"`
}

type sizeLimitData struct {
	MaxFileSize int64 `json:"maxFileSize" example:"52428800"`
}

// CreateCollection godoc
//
//	@Summary		Create portfolio
//	@Description	Creates a portfolio owned by the caller. It starts pending when approval is required.
//	@Tags			portfolios
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		createCollectionRequest	true	"Portfolio"
//	@Success		201		{object}	response.Envelope{data=Collection}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/portfolios [post]
func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	c, err := h.svc.CreateCollection(r.Context(), callerFrom(r), snap, CreateCollectionInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	response.Created(w, c)
}

// GetCollection godoc
//
//	@Summary		Get portfolio
//	@Description	Returns a portfolio with its media in display order. Unpublished portfolios are visible to their owner and admins only.
//	@Tags			portfolios
//	@Produce		json
//	@Param			id	path		string	true	"Portfolio ID"
//	@Success		200	{object}	response.Envelope{data=Collection}
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/portfolios/{id} [get]
func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.svc.GetCollection(r.Context(), callerFrom(r), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, c)
}

// Gallery godoc
//
//	@Summary		Public gallery
//	@Description	Lists approved public portfolios, featured first then newest.
//	@Tags			portfolios
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=[]Collection}
//	@Failure		500	{object}	response.Envelope
//	@Router			/gallery [get]
func (h *Handler) Gallery(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Gallery(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, list)
}

// SetCover godoc
//
//	@Summary		Set portfolio cover
//	@Description	Overrides the cover with any URL. An empty value clears it.
//	@Tags			portfolios
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Portfolio ID"
//	@Param			request	body		coverRequest	true	"Cover URL"
//	@Success		200		{object}	response.Envelope{data=Collection}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/portfolios/{id}/cover [patch]
func (h *Handler) SetCover(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req coverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	c, err := h.svc.SetCover(r.Context(), callerFrom(r), id, req.Cover)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, c)
}

// Upload godoc
//
//	@Summary		Upload media
//	@Description	Uploads an image or video into a portfolio. Images get a thumbnail. The first upload becomes the cover.
//	@Tags			media
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string	true	"Portfolio ID"
//	@Param			file	formData	file	true	"Image or video"
//	@Success		201		{object}	response.Envelope{data=Asset}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope{data=sizeLimitData}
//	@Failure		502		{object}	response.Envelope
//	@Router			/portfolios/{id}/media [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	if snap.MaxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, snap.MaxFileSize+multipartSlack)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			tooLarge(w, snap.MaxFileSize)
			return
		}
		response.BadRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file: file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "could not read file")
		return
	}

	a, err := h.svc.Upload(r.Context(), callerFrom(r), snap, UploadInput{
		CollectionID: id,
		FileName:     header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Data:         data,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	response.Created(w, a)
}

// DeleteAsset godoc
//
//	@Summary		Delete media
//	@Description	Deletes one media item and its files. The cover moves to the next item when needed.
//	@Tags			media
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Media ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/media/{id} [delete]
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAsset(r.Context(), callerFrom(r), snap, id); err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, map[string]bool{"deleted": true})
}

// DeleteCollection godoc
//
//	@Summary		Delete portfolio
//	@Description	Deletes a portfolio with all its media. Files are removed in the background.
//	@Tags			portfolios
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Portfolio ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		403	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/portfolios/{id} [delete]
func (h *Handler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteCollection(r.Context(), callerFrom(r), snap, id); err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, map[string]bool{"deleted": true})
}

// BatchDelete godoc
//
//	@Summary		Batch delete portfolios
//	@Description	Deletes several portfolios. Ids linked from an active carousel item are reported as blocked and left in place.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		batchDeleteRequest	true	"Portfolio IDs"
//	@Success		200		{object}	response.Envelope{data=BatchResult}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Router			/admin/portfolios/batch-delete [post]
func (h *Handler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	res, err := h.svc.DeleteCollections(r.Context(), callerFrom(r), snap, req.IDs)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, res)
}

// Review godoc
//
//	@Summary		Review portfolio
//	@Description	Sets the review status. Approved portfolios become public, others private.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Portfolio ID"
//	@Param			request	body		reviewRequest	true	"Status"
//	@Success		200		{object}	response.Envelope{data=Collection}
//	@Failure		400		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Router			/admin/portfolios/{id}/review [patch]
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	c, err := h.svc.Review(r.Context(), callerFrom(r), id, req.Status)
	if err != nil {
		h.fail(w, err)
		return
	}
	response.OK(w, c)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (settings.Snapshot, bool) {
	snap, err := h.settings.Current(r.Context())
	if err != nil {
		h.log.Error("load settings", "error", err)
		response.InternalError(w)
		return settings.Snapshot{}, false
	}
	return snap, true
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var (
		invalid  *ValidationError
		writeErr *StorageWriteError
		delErr   *StorageDeleteError
	)
	switch {
	case errors.As(err, &invalid):
		if invalid.TooLarge() {
			tooLarge(w, invalid.Limit)
			return
		}
		response.BadRequest(w, invalid.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(w, "forbidden")
	case errors.As(err, &writeErr):
		h.log.Error("store upload", "error", err)
		response.BadGateway(w, "failed to store file")
	case errors.As(err, &delErr):
		h.log.Error("delete media file", "url", delErr.URL, "error", delErr.Err)
		response.InternalError(w)
	default:
		h.log.Error("media request failed", "error", err)
		response.InternalError(w)
	}
}

func tooLarge(w http.ResponseWriter, limit int64) {
	response.PayloadTooLarge(w, "file exceeds the maximum upload size", sizeLimitData{MaxFileSize: limit})
}

func callerFrom(r *http.Request) Caller {
	id, _ := middleware.IdentityFrom(r.Context())
	return Caller{UserID: id.UserID, Role: id.Role}
}

// pathID reads the {id} URL parameter. Malformed ids cannot exist and are
// answered with 404.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		response.NotFound(w, "not found")
		return "", false
	}
	return id, true
}
