package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bluerock/internal/config"
	"bluerock/internal/domain/models"
)

type stubStore struct {
	count    int64
	countErr error
}

func (s *stubStore) SaveInboundMessage(_ context.Context, _ models.InboundMessageRecord) error {
	return nil
}

func (s *stubStore) SaveStatusUpdate(_ context.Context, _ models.StatusUpdateRecord) error {
	return nil
}

func (s *stubStore) CountMessagesSince(_ context.Context, _ time.Time) (int64, error) {
	return s.count, s.countErr
}

type stubMessaging struct {
	sent []models.OutboundMessageRequest
	err  error
}

func (s *stubMessaging) VerifyWebhookToken(_, _, challenge string) (string, error) {
	return challenge, nil
}

func (s *stubMessaging) VerifySignature(_ []byte, _ string) error { return nil }

func (s *stubMessaging) ProcessEvent(_ context.Context, _ models.WebhookPayload) error { return nil }

func (s *stubMessaging) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, req)
	return nil
}

func TestSendDailyDigest(t *testing.T) {
	t.Run("sends count to configured recipient", func(t *testing.T) {
		msg := &stubMessaging{}
		s := NewScheduler(config.DigestConfig{Recipient: "255712345678", CronSchedule: "0 20 * * *"},
			&stubStore{count: 7}, msg, zap.NewNop())

		s.sendDailyDigest()

		require.Len(t, msg.sent, 1)
		assert.Equal(t, "255712345678", msg.sent[0].To)
		assert.Contains(t, msg.sent[0].Message, "7")
	})

	t.Run("count failure skips the send", func(t *testing.T) {
		msg := &stubMessaging{}
		s := NewScheduler(config.DigestConfig{Recipient: "255712345678"},
			&stubStore{countErr: errors.New("mongo down")}, msg, zap.NewNop())

		s.sendDailyDigest()
		assert.Empty(t, msg.sent)
	})

	t.Run("send failure is logged not fatal", func(t *testing.T) {
		msg := &stubMessaging{err: errors.New("api down")}
		s := NewScheduler(config.DigestConfig{Recipient: "255712345678"},
			&stubStore{count: 1}, msg, zap.NewNop())

		assert.NotPanics(t, s.sendDailyDigest)
	})
}

func TestStartWithoutRecipient(t *testing.T) {
	s := NewScheduler(config.DigestConfig{CronSchedule: "0 20 * * *"}, &stubStore{}, &stubMessaging{}, zap.NewNop())

	s.Start()
	defer s.Stop()

	assert.Empty(t, s.cron.Entries())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(config.DigestConfig{Recipient: "255712345678", CronSchedule: "not a schedule"},
		&stubStore{}, &stubMessaging{}, zap.NewNop())

	s.Start()
	defer s.Stop()

	assert.Empty(t, s.cron.Entries())
}
