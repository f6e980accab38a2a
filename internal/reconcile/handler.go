package reconcile

import (
	"net/http"

	"github.com/campfolio/service/internal/logger"
	"github.com/campfolio/service/internal/response"
)

// Handler exposes on-demand reconciliation.
type Handler struct {
	runner *Runner
	log    *logger.Logger
}

// NewHandler creates a reconcile Handler.
func NewHandler(runner *Runner, log *logger.Logger) *Handler {
	return &Handler{runner: runner, log: log}
}

// Run godoc
//
//	@Summary		Reconcile local storage
//	@Description	Deletes local files that no record references and prunes empty directories. Cloud storage is not scanned.
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=Report}
//	@Failure		403	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/admin/storage/reconcile [post]
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	rep, err := h.runner.RunOnce(r.Context())
	if err != nil {
		h.log.Error("reconcile", "error", err)
		response.InternalError(w)
		return
	}
	response.OK(w, rep)
}
