package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/reelwork/marketplace/internal/models"
	"github.com/reelwork/marketplace/internal/payments"
	"github.com/reelwork/marketplace/internal/realtime"
	"github.com/reelwork/marketplace/internal/repository"
	appErr "github.com/reelwork/marketplace/pkg/errors"
	"github.com/reelwork/marketplace/pkg/logger"
	"github.com/reelwork/marketplace/pkg/metrics"
)

type PaymentService interface {
	CreatePayment(ctx context.Context, payerID, jobPostID uuid.UUID, amount float64) (*PaymentIntentResult, error)
	ListPayments(ctx context.Context, jobPostID uuid.UUID) ([]models.Payment, error)
	// HandleWebhook verifies and applies a processor event.
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type PaymentIntentResult struct {
	ClientSecret string
	PaymentID    uuid.UUID
}

type paymentService struct {
	payments repository.PaymentRepository
	jobs     repository.JobPostRepository
	gateway  payments.Gateway
	events   realtime.Publisher
	metrics  *metrics.Metrics
	currency string
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	jobs repository.JobPostRepository,
	gateway payments.Gateway,
	events realtime.Publisher,
	m *metrics.Metrics,
	currency string,
) PaymentService {
	return &paymentService{
		payments: paymentRepo,
		jobs:     jobs,
		gateway:  gateway,
		events:   events,
		metrics:  m,
		currency: currency,
	}
}

var _ PaymentService = (*paymentService)(nil)

// MaxMinorUnits is the largest amount a numeric(12,2) column holds.
const MaxMinorUnits = 999999999999

// MinorUnits converts a decimal amount to the processor's smallest unit.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (s *paymentService) CreatePayment(ctx context.Context, payerID, jobPostID uuid.UUID, amount float64) (*PaymentIntentResult, error) {
	logger.Ctx(ctx).Info("create payment called",
		zap.String("user_id", payerID.String()), zap.String("job_post_id", jobPostID.String()))

	minor := MinorUnits(amount)
	if minor <= 0 {
		return nil, appErr.New(appErr.CodeInvalid, "Missing required fields")
	}
	if minor > MaxMinorUnits {
		return nil, appErr.New(appErr.CodeInvalid, "Amount too large")
	}

	var jp models.JobPost
	if err := s.jobs.GetByID(ctx, jobPostID, &jp); err != nil {
		return nil, jobNotFound(err)
	}

	meta := map[string]string{
		"job_post_id": jobPostID.String(),
		"user_id":     payerID.String(),
	}
	intent, err := s.gateway.CreateIntent(ctx, minor, s.currency, meta)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnavailable, "Payment processor unavailable")
	}

	meta["intent_id"] = intent.ID
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode payment metadata failed")
	}
	p := &models.Payment{
		Amount:    float64(minor) / 100,
		Currency:  s.currency,
		JobPostID: jobPostID,
		PayerID:   payerID,
		Status:    models.PaymentStatusPending,
		IntentID:  intent.ID,
		Metadata:  datatypes.JSON(raw),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, jobNotFound(err)
		}
		return nil, err
	}

	logger.Ctx(ctx).Info("payment intent created",
		zap.String("payment_id", p.ID.String()), zap.String("intent_id", intent.ID))
	return &PaymentIntentResult{ClientSecret: intent.ClientSecret, PaymentID: p.ID}, nil
}

func (s *paymentService) ListPayments(ctx context.Context, jobPostID uuid.UUID) ([]models.Payment, error) {
	logger.Ctx(ctx).Info("list payments called", zap.String("job_post_id", jobPostID.String()))

	ps, err := s.payments.ListByJobPost(ctx, jobPostID)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		ps = []models.Payment{}
	}
	return ps, nil
}

// HandleWebhook completes a job's pending payments on a succeeded intent.
// Events that carry no usable job id are acknowledged and ignored.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			return appErr.Wrap(err, appErr.CodeInvalid, "Invalid signature")
		}
		return appErr.Wrap(err, appErr.CodeInvalid, "Invalid webhook payload")
	}
	s.metrics.WebhookEvent(ev.Type)
	logger.Ctx(ctx).Info("webhook received", zap.String("event_id", ev.ID), zap.String("type", ev.Type))

	if ev.Type != payments.EventPaymentSucceeded {
		return nil
	}

	jobPostID, err := uuid.Parse(ev.Metadata["job_post_id"])
	if err != nil {
		logger.Ctx(ctx).Warn("webhook without job post id",
			zap.String("event_id", ev.ID), zap.String("intent_id", ev.IntentID))
		return nil
	}

	res, err := s.payments.CompleteForJobPost(ctx, jobPostID)
	if err != nil {
		return err
	}
	logger.Ctx(ctx).Info("payments completed",
		zap.String("job_post_id", jobPostID.String()),
		zap.Int64("payments", res.PaymentsCompleted),
		zap.Bool("job_started", res.JobStarted))

	if res.JobStarted {
		var jp models.JobPost
		if err := s.jobs.GetByID(ctx, jobPostID, &jp); err != nil {
			logger.Ctx(ctx).Warn("reload job post failed", zap.Error(err))
			return nil
		}
		notify(ctx, s.events, realtime.EventJobPostUpdated, &jp, jp.UserID)
	}
	return nil
}
