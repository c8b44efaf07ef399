package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"bluerock/internal/config"
	"bluerock/internal/domain/models"
	"bluerock/internal/repository/mongodb"
	"bluerock/internal/service/whatsapp"
)

// Scheduler runs the daily inbound-activity digest.
type Scheduler struct {
	cron         *cron.Cron
	store        mongodb.EventStore
	messagingSvc whatsapp.MessagingService
	cfg          config.DigestConfig
	logger       *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.DigestConfig, store mongodb.EventStore, messagingSvc whatsapp.MessagingService, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:         cron.New(),
		store:        store,
		messagingSvc: messagingSvc,
		cfg:          cfg,
		logger:       logger,
	}
}

// Start registers the digest job and starts the cron loop. Without a
// configured recipient there is nothing to send, so the scheduler stays idle.
func (s *Scheduler) Start() {
	if s.cfg.Recipient == "" {
		s.logger.Info("digest recipient not configured, scheduler disabled")
		return
	}

	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, s.sendDailyDigest); err != nil {
		s.logger.Error("failed to schedule daily digest", zap.Error(err))
		return
	}

	s.logger.Info("starting scheduler", zap.String("schedule", s.cfg.CronSchedule))
	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sendDailyDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	count, err := s.store.CountMessagesSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		s.logger.Error("failed to count inbound messages for digest", zap.Error(err))
		return
	}

	req := models.OutboundMessageRequest{
		To:      s.cfg.Recipient,
		Message: fmt.Sprintf("Bluerock daily digest: %d WhatsApp message(s) received in the last 24h.", count),
	}

	if err := s.messagingSvc.SendOutbound(ctx, req); err != nil {
		s.logger.Error("failed to send daily digest", zap.Error(err))
		return
	}

	s.logger.Info("daily digest sent", zap.Int64("message_count", count))
}
