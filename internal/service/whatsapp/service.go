package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bluerock/internal/config"
	"bluerock/internal/domain/models"
	"bluerock/internal/repository/mongodb"
	client "bluerock/pkg/clients/whatsapp"
)

// maxLoggedTextLen bounds how much of a message body ends up in log output.
const maxLoggedTextLen = 256

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	VerifySignature(body []byte, signatureHeader string) error
	ProcessEvent(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg    config.WhatsAppConfig
	client client.Client
	store  mongodb.EventStore
	logger *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance. The store may be nil,
// in which case inbound events are logged but not persisted.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, store mongodb.EventStore, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:    cfg,
		client: client,
		store:  store,
		logger: logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}

	if cfg.AppSecret == "" {
		svc.logger.Warn("no app secret configured, webhook signature verification is disabled")
	}

	return svc
}

// VerifyWebhookToken validates the callback verification token and returns
// the challenge to echo back.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode != "subscribe" {
		return "", fmt.Errorf("unsupported hub.mode %q", mode)
	}

	if verifyToken == "" || verifyToken != s.cfg.VerifyToken {
		return "", errors.New("verify token mismatch")
	}

	return challenge, nil
}

// VerifySignature checks the X-Hub-Signature-256 header against the raw
// request body. Verification is skipped when no app secret is configured.
func (s *MetaWhatsAppService) VerifySignature(body []byte, signatureHeader string) error {
	if s.cfg.AppSecret == "" {
		return nil
	}
	return checkSignature(s.cfg.AppSecret, body, signatureHeader)
}

// ProcessEvent walks the decoded envelope and dispatches every change to the
// matching per-kind handler. Item-level failures are logged and skipped so a
// single malformed message never aborts its siblings; the provider retries on
// non-2xx, so anything short of a decode failure is acknowledged.
func (s *MetaWhatsAppService) ProcessEvent(ctx context.Context, payload models.WebhookPayload) error {
	if payload.Object != models.ObjectWhatsAppBusinessAccount {
		s.logger.Warn("ignoring envelope with unexpected object kind", zap.String("object", payload.Object))
		return nil
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			switch {
			case len(change.Value.Messages) > 0:
				phoneNumberID := change.Value.Metadata.PhoneNumberID
				for _, msg := range change.Value.Messages {
					if err := s.handleInboundMessage(ctx, msg, phoneNumberID); err != nil {
						s.logger.Error("failed to handle inbound message",
							zap.Error(err),
							zap.String("message_id", msg.ID),
							zap.String("entry_id", entry.ID))
					}
				}

			case len(change.Value.Statuses) > 0:
				for _, status := range change.Value.Statuses {
					if err := s.handleStatusUpdate(ctx, status); err != nil {
						s.logger.Error("failed to handle status update",
							zap.Error(err),
							zap.String("message_id", status.ID),
							zap.String("entry_id", entry.ID))
					}
				}

			default:
				s.logger.Info("unhandled change field",
					zap.String("field", change.Field),
					zap.Any("value", change.Value))
			}
		}
	}

	return nil
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage, phoneNumberID string) error {
	rec := models.InboundMessageRecord{
		MessageID:     msg.ID,
		From:          msg.From,
		PhoneNumberID: phoneNumberID,
		Type:          msg.Type,
		Timestamp:     msg.Timestamp,
		ReceivedAt:    time.Now().UTC(),
	}

	switch msg.Type {
	case models.MessageTypeText:
		var body string
		if msg.Text != nil {
			body = msg.Text.Body
		}
		rec.TextBody = body
		s.logger.Info("received text message",
			zap.String("from", msg.From),
			zap.String("message_id", msg.ID),
			zap.String("phone_number_id", phoneNumberID),
			zap.String("body", truncate(body, maxLoggedTextLen)))

	case models.MessageTypeImage:
		mimeType := "image/jpeg"
		if msg.Image != nil {
			rec.MediaID = msg.Image.ID
			if msg.Image.MimeType != "" {
				mimeType = msg.Image.MimeType
			}
		}
		rec.MimeType = mimeType
		s.logger.Info("received image message",
			zap.String("from", msg.From),
			zap.String("message_id", msg.ID),
			zap.String("media_id", rec.MediaID),
			zap.String("mime_type", mimeType))

	case models.MessageTypeDocument:
		if msg.Document != nil {
			rec.MediaID = msg.Document.ID
			rec.MimeType = msg.Document.MimeType
			rec.Filename = msg.Document.Filename
		}
		s.logger.Info("received document message",
			zap.String("from", msg.From),
			zap.String("message_id", msg.ID),
			zap.String("filename", rec.Filename),
			zap.String("mime_type", rec.MimeType))

	case models.MessageTypeAudio, models.MessageTypeVideo:
		media := msg.Audio
		if msg.Type == models.MessageTypeVideo {
			media = msg.Video
		}
		if media != nil {
			rec.MediaID = media.ID
			rec.MimeType = media.MimeType
		}
		s.logger.Info("received media message",
			zap.String("from", msg.From),
			zap.String("message_id", msg.ID),
			zap.String("type", msg.Type),
			zap.String("media_id", rec.MediaID))

	default:
		s.logger.Info("unhandled message type",
			zap.String("from", msg.From),
			zap.String("message_id", msg.ID),
			zap.String("type", msg.Type),
			zap.Any("raw", msg))
	}

	if s.store == nil {
		return nil
	}
	if err := s.store.SaveInboundMessage(ctx, rec); err != nil {
		return fmt.Errorf("persist inbound message: %w", err)
	}
	return nil
}

func (s *MetaWhatsAppService) handleStatusUpdate(ctx context.Context, status models.MessageStatus) error {
	rec := models.StatusUpdateRecord{
		MessageID:   status.ID,
		Status:      status.Status,
		RecipientID: status.RecipientID,
		Timestamp:   status.Timestamp,
		ReceivedAt:  time.Now().UTC(),
	}

	switch status.Status {
	case models.StatusSent, models.StatusDelivered, models.StatusRead:
		s.logger.Debug("message status updated",
			zap.String("message_id", status.ID),
			zap.String("status", status.Status),
			zap.String("recipient_id", status.RecipientID))

	case models.StatusFailed:
		if len(status.Errors) > 0 {
			rec.ErrorCode = status.Errors[0].Code
			rec.ErrorTitle = status.Errors[0].Title
		}
		s.logger.Error("message delivery failed",
			zap.String("message_id", status.ID),
			zap.String("recipient_id", status.RecipientID),
			zap.Int("error_code", rec.ErrorCode),
			zap.String("error_title", rec.ErrorTitle))

	default:
		s.logger.Info("unrecognized message status",
			zap.String("message_id", status.ID),
			zap.String("status", status.Status))
	}

	if s.store == nil {
		return nil
	}
	if err := s.store.SaveStatusUpdate(ctx, rec); err != nil {
		return fmt.Errorf("persist status update: %w", err)
	}
	return nil
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	return err
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return strings.ToValidUTF8(s[:limit], "") + "..."
}
