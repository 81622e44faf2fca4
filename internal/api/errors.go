package api

import (
	"errors"
	"net/http"

	"github.com/aisitebuildapp/aisitebuild/internal/middleware"
	"github.com/aisitebuildapp/aisitebuild/internal/services"
	"github.com/aisitebuildapp/aisitebuild/internal/workflow"
)

// respondServiceError maps domain errors onto HTTP statuses. Anything
// unrecognized is a 500 carrying the raw message.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		middleware.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInsufficientCredits):
		middleware.RespondError(w, http.StatusForbidden, "Add more credits to continue")
	case errors.Is(err, workflow.ErrRevisionInFlight):
		middleware.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrUnknownPlan):
		middleware.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, workflow.ErrPaymentIncomplete):
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		middleware.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
