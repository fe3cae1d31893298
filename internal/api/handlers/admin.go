package handlers

import (
	"net/http"
	"time"

	"github.com/audioforge/ttsgate/internal/audit"
)

type AdminHandler struct {
	auditSvc *audit.Service
}

func NewAdminHandler(auditSvc *audit.Service) *AdminHandler {
	return &AdminHandler{auditSvc: auditSvc}
}

// Usage summarizes synthesis volume per provider and voice. Without a
// configured database there is nothing to report.
func (h *AdminHandler) Usage(w http.ResponseWriter, r *http.Request) {
	if h.auditSvc == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "usage tracking requires a configured database"})
		return
	}

	var startDate, endDate *time.Time

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err == nil {
			startDate = &t
		}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err == nil {
			endDate = &t
		}
	}

	summary, err := h.auditSvc.GetUsageSummary(r.Context(), startDate, endDate)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"usage": summary})
}
