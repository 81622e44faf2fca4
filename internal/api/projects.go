package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/aisitebuildapp/aisitebuild/internal/middleware"
	"github.com/aisitebuildapp/aisitebuild/internal/models"
	"github.com/aisitebuildapp/aisitebuild/internal/services"
	"github.com/aisitebuildapp/aisitebuild/internal/workflow"
)

const rollbackAck = "I've rolled back your website to the selected version. You can now preview it."

type ProjectHandler struct {
	ProjectService      *services.ProjectService
	VersionService      *services.VersionService
	ConversationService *services.ConversationService
	Creation            *workflow.Creation
	Revision            *workflow.Revision
	SitePublisher       *services.SitePublisher // nil when S3 is not configured
	Progress            workflow.Broker
}

func NewProjectHandler(
	projectService *services.ProjectService,
	versionService *services.VersionService,
	conversationService *services.ConversationService,
	creation *workflow.Creation,
	revision *workflow.Revision,
	sitePublisher *services.SitePublisher,
	progress workflow.Broker,
) *ProjectHandler {
	return &ProjectHandler{
		ProjectService:      projectService,
		VersionService:      versionService,
		ConversationService: conversationService,
		Creation:            creation,
		Revision:            revision,
		SitePublisher:       sitePublisher,
		Progress:            progress,
	}
}

// ListProjects handles GET /projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	projects, err := h.ProjectService.List(r.Context(), user.Sub)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, projects)
}

// CreateProject handles POST /projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req models.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.Creation.Start(r.Context(), user.Sub, req.Prompt)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"project_id": project.ID,
		"project":    project,
	})
}

// GetProject handles GET /projects/{id}: the project plus its conversation
// and version history, both in chronological order for client-side merge.
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	projectID := mux.Vars(r)["id"]

	project, err := h.ProjectService.Get(r.Context(), projectID, user.Sub)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	conversation, err := h.ConversationService.List(r.Context(), project.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	versions, err := h.VersionService.List(r.Context(), project.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"project":      project,
		"conversation": conversation,
		"versions":     versions,
	})
}

// DeleteProject handles DELETE /projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	projectID := mux.Vars(r)["id"]

	if err := h.ProjectService.Delete(r.Context(), projectID, user.Sub); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MakeRevision handles POST /projects/{id}/revision. The debit-protected
// prefix runs synchronously; generation continues in the background and the
// client polls status or subscribes to progress.
func (h *ProjectHandler) MakeRevision(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	projectID := mux.Vars(r)["id"]

	var req models.RevisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.ProjectService.Get(r.Context(), projectID, user.Sub)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if err := h.Revision.Start(r.Context(), project, req.Message); err != nil {
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusAccepted, map[string]string{
		"status": models.ProjectStatusGenerating,
	})
}

// SaveProject handles PUT /projects/{id}/save
func (h *ProjectHandler) SaveProject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	projectID := mux.Vars(r)["id"]

	var req models.SaveProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ProjectService.Save(r.Context(), projectID, user.Sub, req.Code); err != nil {
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]string{"message": "Project saved"})
}

// RollbackVersion handles GET/POST /projects/{id}/rollback/{versionId}
func (h *ProjectHandler) RollbackVersion(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	vars := mux.Vars(r)
	projectID := vars["id"]
	versionID := vars["versionId"]

	// Ownership check first so a foreign project id reads as not found
	if _, err := h.ProjectService.Get(r.Context(), projectID, user.Sub); err != nil {
		respondServiceError(w, err)
		return
	}

	if err := h.VersionService.Rollback(r.Context(), projectID, user.Sub, versionID, rollbackAck); err != nil {
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]string{"message": "Version rolled back"})
}

// TogglePublish handles PUT /projects/{id}/publish
func (h *ProjectHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	projectID := mux.Vars(r)["id"]

	project, err := h.ProjectService.TogglePublish(r.Context(), projectID, user.Sub)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	// Mirror the snapshot to S3 when configured; the DB flag is the source
	// of truth so mirror failures only get logged.
	if h.SitePublisher != nil {
		if project.IsPublished {
			if err := h.SitePublisher.Upload(r.Context(), project.ID, project.CurrentCode); err != nil {
				log.Printf("[publish] failed to upload site snapshot for %s: %v", project.ID, err)
			}
		} else {
			if err := h.SitePublisher.Remove(r.Context(), project.ID); err != nil {
				log.Printf("[publish] failed to remove site snapshot for %s: %v", project.ID, err)
			}
		}
	}

	message := "Project Unpublished"
	if project.IsPublished {
		message = "Project Published Successfully"
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      message,
		"is_published": project.IsPublished,
	})
}

// GetStatus handles GET /projects/{id}/status for polling clients
func (h *ProjectHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	projectID := mux.Vars(r)["id"]

	status, err := h.ProjectService.Status(r.Context(), projectID, user.Sub)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]string{"status": status})
}

// ListPublished handles GET /published (public)
func (h *ProjectHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	projects, err := h.ProjectService.ListPublished(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

// GetPublishedCode handles GET /published/{id} (public, code only)
func (h *ProjectHandler) GetPublishedCode(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["id"]

	code, err := h.ProjectService.PublishedCode(r.Context(), projectID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]string{"code": code})
}
