package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"commodity-price-intel/internal/logging"
	"commodity-price-intel/internal/storage"
)

// Sink delivers one notification. Fire-and-forget: callers log failures and
// move on, no delivery guarantee is required.
type Sink interface {
	Log(ctx context.Context, subscriberID, typ, message string, relatedID *uuid.UUID) error
}

// StoreSink appends notifications to the persistent log.
type StoreSink struct {
	store storage.NotificationStore
}

// NewStoreSink constructs a store-backed sink.
func NewStoreSink(store storage.NotificationStore) *StoreSink {
	return &StoreSink{store: store}
}

// Log writes one notification record.
func (s *StoreSink) Log(ctx context.Context, subscriberID, typ, message string, relatedID *uuid.UUID) error {
	return s.store.InsertNotification(ctx, storage.NotificationRecord{
		SubscriberID: subscriberID,
		Type:         typ,
		Message:      message,
		RelatedID:    relatedID,
	})
}

// WebhookSink pushes notifications through a bot sendMessage endpoint.
type WebhookSink struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewWebhookSink constructs the webhook sink.
func NewWebhookSink(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &WebhookSink{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logging.Component(logger, "alert_webhook"),
	}
}

// Log posts the message text to the sendMessage API.
func (s *WebhookSink) Log(ctx context.Context, subscriberID, typ, message string, relatedID *uuid.UUID) error {
	payload := map[string]string{
		"chat_id": s.chatID,
		"text":    fmt.Sprintf("%s (subscriber %s)\n%s", typ, subscriberID, message),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("webhook returned ok=false")
		}
	}

	s.logger.Info().Str("subscriber", subscriberID).Msg("notification delivered via webhook")
	return nil
}

// MultiSink fans one notification out to several sinks. Delivery is best
// effort per sink; the first error is returned after all sinks ran.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink composes sinks. Nil entries are dropped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &MultiSink{sinks: kept}
}

// Log delivers to every sink.
func (m *MultiSink) Log(ctx context.Context, subscriberID, typ, message string, relatedID *uuid.UUID) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Log(ctx, subscriberID, typ, message, relatedID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	_ Sink = (*StoreSink)(nil)
	_ Sink = (*WebhookSink)(nil)
	_ Sink = (*MultiSink)(nil)
)
