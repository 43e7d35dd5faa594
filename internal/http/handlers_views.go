package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/xnome/dashboard/internal/service"
)

// ViewsReader lists views and computes their data.
type ViewsReader interface {
	ListViews() []service.ViewSummary
	GetViewData(ctx context.Context, in service.GetViewDataInput) (*service.ViewData, error)
}

// ViewHandlers serves the dashboard view endpoints.
type ViewHandlers struct {
	Svc    ViewsReader
	Logger *slog.Logger
}

// List returns every registered view.
// GET /api/views.
func (h *ViewHandlers) List(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"views": h.Svc.ListViews()})
}

// Data returns a view's data for the optional from/to range, projected by select.
// GET /api/views/{id}/data?from=&to=&select=.
func (h *ViewHandlers) Data(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.Svc.GetViewData(r.Context(), service.GetViewDataInput{
		ID:     r.PathValue("id"),
		Role:   callerRole(r.Context()),
		From:   q.Get("from"),
		To:     q.Get("to"),
		Select: q.Get("select"),
	})
	if err != nil {
		WriteError(r.Context(), w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"view": res.View, "data": res.Data})
}
