package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/reelwork/marketplace/internal/api/types"
	"github.com/reelwork/marketplace/internal/services"
)

// StripeSignatureHeader carries the webhook signature.
const StripeSignatureHeader = "Stripe-Signature"

// maxWebhookBytes matches Stripe's own payload limit.
const maxWebhookBytes = 65536

type PaymentsHandler struct {
	svc services.PaymentService
}

func NewPaymentsHandler(svc services.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{svc: svc}
}

func (h *PaymentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var req types.PaymentCreateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	jobID, err := uuid.Parse(req.JobPostID)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "Invalid job post ID")
		return
	}

	res, err := h.svc.CreatePayment(r.Context(), p.UserID, jobID, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.PaymentCreateResponse{ClientSecret: res.ClientSecret, PaymentID: res.PaymentID})
}

func (h *PaymentsHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	raw := r.URL.Query().Get("job_post_id")
	if raw == "" {
		writeErrorStr(w, http.StatusBadRequest, "Missing job post ID")
		return
	}
	jobID, err := uuid.Parse(raw)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "Invalid job post ID")
		return
	}

	ps, err := h.svc.ListPayments(r.Context(), jobID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// Webhook receives processor events. It is authenticated by signature, not
// by session, and must see the body byte for byte.
func (h *PaymentsHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	sig := r.Header.Get(StripeSignatureHeader)
	if sig == "" {
		writeErrorStr(w, http.StatusBadRequest, "Missing stripe signature")
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeErrorStr(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		writeErrorStr(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.svc.HandleWebhook(r.Context(), payload, sig); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.WebhookResponse{Received: true})
}
