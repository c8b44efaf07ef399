package models

import "time"

// InboundMessageRecord is the persisted form of an inbound message. MessageID
// is the natural key: the provider redelivers events after ack timeouts, so
// writes are upserts keyed on it.
type InboundMessageRecord struct {
	MessageID     string    `bson:"message_id"`
	From          string    `bson:"from"`
	PhoneNumberID string    `bson:"phone_number_id"`
	Type          string    `bson:"type"`
	TextBody      string    `bson:"text_body,omitempty"`
	MediaID       string    `bson:"media_id,omitempty"`
	MimeType      string    `bson:"mime_type,omitempty"`
	Filename      string    `bson:"filename,omitempty"`
	Timestamp     string    `bson:"timestamp"`
	ReceivedAt    time.Time `bson:"received_at"`
}

// StatusUpdateRecord is the persisted form of a delivery receipt, upserted by
// MessageID so only the latest state per message is kept.
type StatusUpdateRecord struct {
	MessageID   string    `bson:"message_id"`
	Status      string    `bson:"status"`
	RecipientID string    `bson:"recipient_id"`
	ErrorCode   int       `bson:"error_code,omitempty"`
	ErrorTitle  string    `bson:"error_title,omitempty"`
	Timestamp   string    `bson:"timestamp"`
	ReceivedAt  time.Time `bson:"received_at"`
}
