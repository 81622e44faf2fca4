package api

import (
	"encoding/json"
	"net/http"

	"github.com/aisitebuildapp/aisitebuild/internal/middleware"
	"github.com/aisitebuildapp/aisitebuild/internal/models"
	"github.com/aisitebuildapp/aisitebuild/internal/services"
	"github.com/aisitebuildapp/aisitebuild/internal/workflow"
)

type UserHandler struct {
	CreditService *services.CreditService
	Payment       *workflow.Payment
}

func NewUserHandler(creditService *services.CreditService, payment *workflow.Payment) *UserHandler {
	return &UserHandler{CreditService: creditService, Payment: payment}
}

// GetCredits handles GET /user/credits
func (h *UserHandler) GetCredits(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	credits, err := h.CreditService.Balance(r.Context(), user.Sub)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]int{"credits": credits})
}

// ListPlans handles GET /user/plans (public pricing data)
func (h *UserHandler) ListPlans(w http.ResponseWriter, r *http.Request) {
	middleware.RespondJSON(w, http.StatusOK, map[string]interface{}{"plans": workflow.Plans})
}

// CreateCheckout handles POST /user/checkout
func (h *UserHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req models.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	link, err := h.Payment.CreateCheckout(r.Context(), user.Sub, req.PlanID, r.Header.Get("Origin"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]string{"payment_link": link})
}

// VerifyPayment handles POST /user/verify-payment. Safe to retry: a session
// that was already credited reports success without a second credit.
func (h *UserHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserFromContext(r.Context()); !ok {
		middleware.RespondError(w, http.StatusUnauthorized, "User not found in context")
		return
	}

	var req models.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		middleware.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	alreadyAdded, err := h.Payment.Verify(r.Context(), req.SessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	message := "Payment verified and credits added"
	if alreadyAdded {
		message = "Credits already added"
	}

	middleware.RespondJSON(w, http.StatusOK, map[string]string{"message": message})
}
