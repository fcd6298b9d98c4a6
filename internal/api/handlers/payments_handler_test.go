package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reelwork/marketplace/internal/models"
	"github.com/reelwork/marketplace/internal/services"
	appErr "github.com/reelwork/marketplace/pkg/errors"
)

func TestCreatePaymentHandler(t *testing.T) {
	payer, jobID := uuid.New(), uuid.New()

	t.Run("missing amount", func(t *testing.T) {
		rr := httptest.NewRecorder()
		body := `{"job_post_id":"` + jobID.String() + `"}`
		NewPaymentsHandler(new(mockPaymentService)).Create(rr, asUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), payer))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		require.JSONEq(t, `{"error":"Missing required fields"}`, rr.Body.String())
	})

	t.Run("ok", func(t *testing.T) {
		pid := uuid.New()
		svc := new(mockPaymentService)
		svc.On("CreatePayment", mock.Anything, payer, jobID, 49.99).
			Return(&services.PaymentIntentResult{ClientSecret: "pi_1_secret_x", PaymentID: pid}, nil).Once()

		rr := httptest.NewRecorder()
		body := `{"job_post_id":"` + jobID.String() + `","amount":49.99}`
		NewPaymentsHandler(svc).Create(rr, asUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), payer))
		require.Equal(t, http.StatusOK, rr.Code)
		require.JSONEq(t, `{"client_secret":"pi_1_secret_x","payment_id":"`+pid.String()+`"}`, rr.Body.String())
	})

	t.Run("processor down", func(t *testing.T) {
		svc := new(mockPaymentService)
		svc.On("CreatePayment", mock.Anything, payer, jobID, 10.0).
			Return(nil, appErr.New(appErr.CodeUnavailable, "Payment processor unavailable")).Once()

		rr := httptest.NewRecorder()
		body := `{"job_post_id":"` + jobID.String() + `","amount":10}`
		NewPaymentsHandler(svc).Create(rr, asUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), payer))
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestListPaymentsHandler(t *testing.T) {
	me, jobID := uuid.New(), uuid.New()
	svc := new(mockPaymentService)
	svc.On("ListPayments", mock.Anything, jobID).Return([]models.Payment{{ID: uuid.New(), Amount: 25, Status: models.PaymentStatusPending}}, nil).Once()
	h := NewPaymentsHandler(svc)

	rr := httptest.NewRecorder()
	h.List(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/payments", nil), me))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"error":"Missing job post ID"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.List(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/payments?job_post_id=x", nil), me))
	require.JSONEq(t, `{"error":"Invalid job post ID"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.List(rr, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/payments?job_post_id="+jobID.String(), nil), me))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"status":"pending"`)
}

func TestWebhookHandler(t *testing.T) {
	payload := `{"id":"evt_1","type":"payment_intent.succeeded"}`

	t.Run("missing signature", func(t *testing.T) {
		rr := httptest.NewRecorder()
		NewPaymentsHandler(new(mockPaymentService)).Webhook(rr, httptest.NewRequest(http.MethodPut, "/", strings.NewReader(payload)))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		require.JSONEq(t, `{"error":"Missing stripe signature"}`, rr.Body.String())
	})

	t.Run("bad signature", func(t *testing.T) {
		svc := new(mockPaymentService)
		svc.On("HandleWebhook", mock.Anything, []byte(payload), "t=1,v1=bad").
			Return(appErr.New(appErr.CodeInvalid, "Invalid signature")).Once()

		req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(payload))
		req.Header.Set(StripeSignatureHeader, "t=1,v1=bad")
		rr := httptest.NewRecorder()
		NewPaymentsHandler(svc).Webhook(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
		require.JSONEq(t, `{"error":"Invalid signature"}`, rr.Body.String())
	})

	t.Run("received", func(t *testing.T) {
		svc := new(mockPaymentService)
		svc.On("HandleWebhook", mock.Anything, []byte(payload), "t=1,v1=good").Return(nil).Once()

		req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(payload))
		req.Header.Set(StripeSignatureHeader, "t=1,v1=good")
		rr := httptest.NewRecorder()
		NewPaymentsHandler(svc).Webhook(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		require.JSONEq(t, `{"received":true}`, rr.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("oversized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(strings.Repeat("a", maxWebhookBytes+1)))
		req.Header.Set(StripeSignatureHeader, "t=1,v1=good")
		rr := httptest.NewRecorder()
		NewPaymentsHandler(new(mockPaymentService)).Webhook(rr, req)
		require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	})
}
