package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorin-api/internal/models"
	"github.com/noah-isme/tutorin-api/pkg/jobs"
)

// NotificationConfig drives the booking-event webhook dispatcher.
type NotificationConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
	Workers    int
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// bookingEvent is the webhook payload for a booking change.
type bookingEvent struct {
	Event     string          `json:"event"`
	Booking   *models.Booking `json:"booking"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// NotificationService pushes booking events to a configured webhook through
// a background queue. Delivery is best-effort with retries; the booking flow
// never blocks on it.
type NotificationService struct {
	queue  *jobs.Queue
	client *http.Client
	config NotificationConfig
	logger *zap.Logger
}

// NewNotificationService builds the dispatcher. When disabled or without a
// webhook URL it degrades to a no-op.
func NewNotificationService(cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	s := &NotificationService{
		client: &http.Client{Timeout: cfg.Timeout},
		config: cfg,
		logger: logger,
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
		Logger:     logger,
	})
	return s
}

// Start begins queue consumption.
func (s *NotificationService) Start(ctx context.Context) {
	if !s.enabled() {
		s.logger.Info("notifications disabled")
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	if !s.enabled() {
		return
	}
	s.queue.Stop()
}

// Notify enqueues a booking event for delivery. Failures to enqueue are
// logged, not returned; notification loss must not fail the booking.
func (s *NotificationService) Notify(event string, booking *models.Booking) {
	if !s.enabled() || booking == nil {
		return
	}
	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: event,
		Payload: bookingEvent{
			Event:     event,
			Booking:   booking,
			EmittedAt: time.Now().UTC(),
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification",
			zap.String("event", event), zap.String("booking_id", booking.ID), zap.Error(err))
	}
}

func (s *NotificationService) enabled() bool {
	return s.config.Enabled && s.config.WebhookURL != ""
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	body, err := json.Marshal(job.Payload)
	if err != nil {
		// Unmarshalable payloads never succeed; drop instead of retrying.
		s.logger.Error("failed to marshal notification payload", zap.String("job_id", job.ID), zap.Error(err))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", job.Type)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
