package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aisitebuildapp/aisitebuild/internal/middleware"
	"github.com/aisitebuildapp/aisitebuild/internal/workflow"
)

// StreamProgress handles GET /projects/{id}/progress with Server-Sent
// Events. The stream closes on a terminal stage or when the client goes
// away; the generation itself keeps running either way.
func (h *ProjectHandler) StreamProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	projectID := mux.Vars(r)["id"]

	// Verify ownership before streaming anything
	if _, err := h.ProjectService.Get(r.Context(), projectID, user.Sub); err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.RespondError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	events, cancel := h.Progress.Subscribe(r.Context(), projectID)
	defer cancel()

	fmt.Fprintf(w, "data: {\"stage\":%q}\n\n", workflow.StageConnected)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()

			if ev.Stage == workflow.StageCompleted || ev.Stage == workflow.StageFailed {
				return
			}
		}
	}
}
