package pricing

import (
	"context"
	"log/slog"
	"net/http"

	"pointer/pkg/platform/httputil"
	"pointer/pkg/requestcontext"
)

const msgLoadFailed = "Failed to load pricing data"

// Lister is the read side the handler needs.
type Lister interface {
	ListPlans(ctx context.Context) ([]Plan, error)
}

type listResponse struct {
	Plans []Plan `json:"plans"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves GET /api/pricing.
type Handler struct {
	plans  Lister
	logger *slog.Logger
}

func NewHandler(plans Lister, logger *slog.Logger) *Handler {
	return &Handler{plans: plans, logger: logger}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	plans, err := h.plans.ListPlans(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load pricing plans",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: msgLoadFailed})
		return
	}
	if plans == nil {
		plans = []Plan{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Plans: plans})
}
