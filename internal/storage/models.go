package storage

import (
	"time"

	"github.com/google/uuid"
)

// Price type tags carried on every observation.
const (
	PriceTypeRetail    = "retail"
	PriceTypeWholesale = "wholesale"
)

// Alert threshold directions.
const (
	DirectionDecrease = "decrease"
	DirectionIncrease = "increase"
)

// Commodity is the canonical record for a tracked item. Created lazily on
// first sight of an unknown quote name, never deleted.
type Commodity struct {
	ID           int64
	Name         string
	CategoryCode string
	Unit         string
	ItemCode     string
	KindCode     string
	CreatedAt    time.Time
}

// PricePoint is one timestamped, region/type-tagged price observation.
// Immutable once written; corrections land as new points.
type PricePoint struct {
	ID          int64
	CommodityID int64
	Price       int64
	PriceType   string
	Region      string
	CollectedAt time.Time
	CreatedAt   time.Time
}

// PricePointRow is a point joined with its commodity name, for listings.
type PricePointRow struct {
	PricePoint
	CommodityName string
}

// PriceAlertSubscription is one subscriber-owned threshold. A subscriber may
// hold multiple simultaneous thresholds per commodity.
type PriceAlertSubscription struct {
	ID           uuid.UUID
	SubscriberID string
	CommodityID  int64
	Threshold    int64
	Direction    string
	Enabled      bool
	CreatedAt    time.Time
}

// NotificationRecord captures one emitted notification for auditing.
type NotificationRecord struct {
	ID           int64
	SubscriberID string
	Type         string
	Message      string
	RelatedID    *uuid.UUID
	CreatedAt    time.Time
}
