package alerting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"commodity-price-intel/internal/logging"
	"commodity-price-intel/internal/storage"
)

// Manager owns subscriber-facing threshold CRUD.
type Manager struct {
	alerts storage.AlertStore
	logger zerolog.Logger
}

// NewManager constructs a Manager.
func NewManager(alerts storage.AlertStore, logger zerolog.Logger) *Manager {
	return &Manager{
		alerts: alerts,
		logger: logging.Component(logger, "alert_manager"),
	}
}

// Create registers a new threshold. A subscriber may hold any number of
// simultaneous thresholds per commodity.
func (m *Manager) Create(ctx context.Context, subscriberID string, commodityID int64, threshold int64, direction string) (storage.PriceAlertSubscription, error) {
	if subscriberID == "" {
		return storage.PriceAlertSubscription{}, fmt.Errorf("subscriber id required")
	}
	if threshold <= 0 {
		return storage.PriceAlertSubscription{}, fmt.Errorf("threshold must be positive")
	}
	if direction != storage.DirectionDecrease && direction != storage.DirectionIncrease {
		return storage.PriceAlertSubscription{}, fmt.Errorf("direction must be %q or %q", storage.DirectionDecrease, storage.DirectionIncrease)
	}

	created, err := m.alerts.InsertAlert(ctx, storage.PriceAlertSubscription{
		SubscriberID: subscriberID,
		CommodityID:  commodityID,
		Threshold:    threshold,
		Direction:    direction,
		Enabled:      true,
	})
	if err != nil {
		return storage.PriceAlertSubscription{}, fmt.Errorf("create alert: %w", err)
	}

	m.logger.Info().
		Str("subscriber", subscriberID).
		Int64("commodity_id", commodityID).
		Int64("threshold", threshold).
		Str("direction", direction).
		Msg("alert subscription created")
	return created, nil
}

// List returns all thresholds owned by a subscriber.
func (m *Manager) List(ctx context.Context, subscriberID string) ([]storage.PriceAlertSubscription, error) {
	return m.alerts.ListAlertsBySubscriber(ctx, subscriberID)
}

// Delete removes one threshold by alert id.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	return m.alerts.DeleteAlert(ctx, id)
}

// DeleteForCommodity removes all of a subscriber's thresholds on a commodity.
func (m *Manager) DeleteForCommodity(ctx context.Context, subscriberID string, commodityID int64) error {
	return m.alerts.DeleteAlertsForCommodity(ctx, subscriberID, commodityID)
}
