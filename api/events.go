package api

import (
	"net/http"
	"strconv"
)

// HandleListEvents returns the newest processed-event log entries, for
// audit and replay tooling.
func (h *WebhookHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.service.RecentEvents(r.Context(), clampLimit(limit), offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list webhook events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": entries,
		"count":  len(entries),
	})
}
