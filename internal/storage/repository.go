package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("storage: not found")
)

const (
	insertCommoditySQL = `INSERT INTO commodities (
        name,
        category_code,
        unit,
        item_code,
        kind_code
    ) VALUES (
        $1,$2,$3,$4,$5
    )
    ON CONFLICT (item_code, kind_code) DO UPDATE
    SET category_code = commodities.category_code
    RETURNING id, name, category_code, unit, item_code, kind_code, created_at;`

	findCommodityByCodeSQL = `SELECT
        id, name, category_code, unit, item_code, kind_code, created_at
    FROM commodities
    WHERE item_code = $1
      AND kind_code = $2;`

	findCommodityByNameSQL = `SELECT
        id, name, category_code, unit, item_code, kind_code, created_at
    FROM commodities
    WHERE name = $1
    ORDER BY id
    LIMIT 1;`

	insertPricePointSQL = `INSERT INTO price_points (
        commodity_id,
        price,
        price_type,
        region,
        collected_at,
        collected_on
    ) VALUES (
        $1,$2,$3,$4,$5,($5 AT TIME ZONE 'UTC')::date
    )
    ON CONFLICT (commodity_id, price_type, region, collected_on) DO NOTHING;`

	existsForDaySQL = `SELECT EXISTS (
        SELECT 1 FROM price_points
        WHERE commodity_id = $1
          AND price_type = $2
          AND region = $3
          AND collected_on = $4
    );`

	selectByRangeSQL = `SELECT
        id, commodity_id, price, price_type, region, collected_at, created_at
    FROM price_points
    WHERE commodity_id = $1
      AND collected_at >= $2
      AND collected_at < $3
      AND price_type = $4
      AND region = $5
    ORDER BY collected_at;`

	selectLatestSQL = `SELECT
        id, commodity_id, price, price_type, region, collected_at, created_at
    FROM price_points
    WHERE commodity_id = $1
      AND price_type = $2
      AND region = $3
    ORDER BY collected_at DESC
    LIMIT 1;`

	selectClosestToSQL = `SELECT
        id, commodity_id, price, price_type, region, collected_at, created_at
    FROM price_points
    WHERE commodity_id = $1
      AND price_type = $3
      AND region = $4
    ORDER BY ABS(EXTRACT(EPOCH FROM (collected_at - $2)))
    LIMIT 1;`

	listRecentPointsSQL = `SELECT
        p.id, p.commodity_id, p.price, p.price_type, p.region, p.collected_at, p.created_at,
        c.name
    FROM price_points p
    JOIN commodities c ON c.id = p.commodity_id
    ORDER BY p.collected_at DESC
    LIMIT $1;`

	insertAlertSQL = `INSERT INTO price_alerts (
        id,
        subscriber_id,
        commodity_id,
        threshold,
        direction,
        enabled
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    RETURNING id, subscriber_id, commodity_id, threshold, direction, enabled, created_at;`

	listAlertsBySubscriberSQL = `SELECT
        id, subscriber_id, commodity_id, threshold, direction, enabled, created_at
    FROM price_alerts
    WHERE subscriber_id = $1
    ORDER BY created_at;`

	deleteAlertSQL = `DELETE FROM price_alerts WHERE id = $1;`

	deleteAlertsForCommoditySQL = `DELETE FROM price_alerts
    WHERE subscriber_id = $1
      AND commodity_id = $2;`

	listTargetsSQL = `SELECT
        id, subscriber_id, commodity_id, threshold, direction, enabled, created_at
    FROM price_alerts
    WHERE commodity_id = $1
      AND enabled
      AND (
        (direction = 'decrease' AND $2 <= threshold)
        OR
        (direction = 'increase' AND $2 >= threshold)
      )
    ORDER BY created_at;`

	insertNotificationSQL = `INSERT INTO notifications (
        subscriber_id,
        notif_type,
        message,
        related_id
    ) VALUES (
        $1,$2,$3,$4
    );`

	listRecentNotificationsSQL = `SELECT
        id, subscriber_id, notif_type, message, related_id, created_at
    FROM notifications
    ORDER BY created_at DESC
    LIMIT $1;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// CommodityStore defines the canonical commodity catalogue operations.
type CommodityStore interface {
	FindCommodityByExternalCode(ctx context.Context, itemCode, kindCode string) (Commodity, error)
	FindCommodityByName(ctx context.Context, name string) (Commodity, error)
	InsertCommodity(ctx context.Context, c Commodity) (Commodity, error)
}

// PriceStore defines operations for price point persistence.
type PriceStore interface {
	InsertPricePoint(ctx context.Context, p PricePoint) (bool, error)
	ExistsForDay(ctx context.Context, commodityID int64, priceType, region string, day time.Time) (bool, error)
	SelectByRange(ctx context.Context, commodityID int64, from, to time.Time, priceType, region string) ([]PricePoint, error)
	SelectLatest(ctx context.Context, commodityID int64, priceType, region string) (PricePoint, error)
	SelectClosestTo(ctx context.Context, commodityID int64, target time.Time, priceType, region string) (PricePoint, error)
}

// AlertStore defines CRUD plus the threshold-crossing query for subscriptions.
type AlertStore interface {
	InsertAlert(ctx context.Context, a PriceAlertSubscription) (PriceAlertSubscription, error)
	ListAlertsBySubscriber(ctx context.Context, subscriberID string) ([]PriceAlertSubscription, error)
	DeleteAlert(ctx context.Context, id uuid.UUID) error
	DeleteAlertsForCommodity(ctx context.Context, subscriberID string, commodityID int64) error
	ListTargets(ctx context.Context, commodityID int64, price int64) ([]PriceAlertSubscription, error)
}

// NotificationStore appends to the notification log.
type NotificationStore interface {
	InsertNotification(ctx context.Context, n NotificationRecord) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to commodities, price points, alerts, and the
// notification log.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctxUnlock, advisoryUnlockSQL, key); err != nil {
			// unlock best effort; log omitted in storage package
		}
		conn.Release()
	}
	return unlock, true, nil
}

// InsertCommodity creates the canonical record, or returns the existing one
// when the external code pair is already known.
func (s *Store) InsertCommodity(ctx context.Context, c Commodity) (Commodity, error) {
	pool, err := s.getPool()
	if err != nil {
		return Commodity{}, err
	}

	unit := c.Unit
	if unit == "" {
		unit = "kg"
	}

	row := pool.QueryRow(ctx, insertCommoditySQL, c.Name, c.CategoryCode, unit, c.ItemCode, c.KindCode)
	return scanCommodity(row)
}

// FindCommodityByExternalCode looks up a commodity by its source code pair.
func (s *Store) FindCommodityByExternalCode(ctx context.Context, itemCode, kindCode string) (Commodity, error) {
	pool, err := s.getPool()
	if err != nil {
		return Commodity{}, err
	}
	return scanCommodityErr(pool.QueryRow(ctx, findCommodityByCodeSQL, itemCode, kindCode))
}

// FindCommodityByName looks up a commodity by its canonical name.
func (s *Store) FindCommodityByName(ctx context.Context, name string) (Commodity, error) {
	pool, err := s.getPool()
	if err != nil {
		return Commodity{}, err
	}
	return scanCommodityErr(pool.QueryRow(ctx, findCommodityByNameSQL, name))
}

// InsertPricePoint appends a point. Returns false when a point for the same
// (commodity, price type, region, calendar day) already exists.
func (s *Store) InsertPricePoint(ctx context.Context, p PricePoint) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	tag, execErr := pool.Exec(ctx, insertPricePointSQL,
		p.CommodityID,
		p.Price,
		p.PriceType,
		p.Region,
		p.CollectedAt,
	)
	if execErr != nil {
		return false, fmt.Errorf("insert price point: %w", execErr)
	}
	return tag.RowsAffected() > 0, nil
}

// ExistsForDay reports whether a point is already stored for the calendar day.
func (s *Store) ExistsForDay(ctx context.Context, commodityID int64, priceType, region string, day time.Time) (bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return false, err
	}

	var exists bool
	if scanErr := pool.QueryRow(ctx, existsForDaySQL, commodityID, priceType, region, day.UTC().Format("2006-01-02")).Scan(&exists); scanErr != nil {
		return false, fmt.Errorf("exists for day: %w", scanErr)
	}
	return exists, nil
}

// SelectByRange lists points within [from, to) ordered by collection time.
func (s *Store) SelectByRange(ctx context.Context, commodityID int64, from, to time.Time, priceType, region string) ([]PricePoint, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, selectByRangeSQL, commodityID, from, to, priceType, region)
	if queryErr != nil {
		return nil, fmt.Errorf("select by range: %w", queryErr)
	}
	defer rows.Close()

	points := make([]PricePoint, 0)
	for rows.Next() {
		var p PricePoint
		if scanErr := rows.Scan(&p.ID, &p.CommodityID, &p.Price, &p.PriceType, &p.Region, &p.CollectedAt, &p.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		points = append(points, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return points, nil
}

// SelectLatest returns the most recent point, or ErrNotFound.
func (s *Store) SelectLatest(ctx context.Context, commodityID int64, priceType, region string) (PricePoint, error) {
	pool, err := s.getPool()
	if err != nil {
		return PricePoint{}, err
	}
	return scanPricePointErr(pool.QueryRow(ctx, selectLatestSQL, commodityID, priceType, region))
}

// SelectClosestTo returns the point nearest the target date, or ErrNotFound.
func (s *Store) SelectClosestTo(ctx context.Context, commodityID int64, target time.Time, priceType, region string) (PricePoint, error) {
	pool, err := s.getPool()
	if err != nil {
		return PricePoint{}, err
	}
	return scanPricePointErr(pool.QueryRow(ctx, selectClosestToSQL, commodityID, target, priceType, region))
}

// ListRecentPoints lists the newest points joined with commodity names.
func (s *Store) ListRecentPoints(ctx context.Context, limit int) ([]PricePointRow, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentPointsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent points: %w", queryErr)
	}
	defer rows.Close()

	out := make([]PricePointRow, 0, limit)
	for rows.Next() {
		var r PricePointRow
		if scanErr := rows.Scan(&r.ID, &r.CommodityID, &r.Price, &r.PriceType, &r.Region, &r.CollectedAt, &r.CreatedAt, &r.CommodityName); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// InsertAlert persists a subscription.
func (s *Store) InsertAlert(ctx context.Context, a PriceAlertSubscription) (PriceAlertSubscription, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceAlertSubscription{}, err
	}

	id := a.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := pool.QueryRow(ctx, insertAlertSQL, id, a.SubscriberID, a.CommodityID, a.Threshold, a.Direction, a.Enabled)
	return scanAlert(row)
}

// ListAlertsBySubscriber lists all thresholds owned by a subscriber.
func (s *Store) ListAlertsBySubscriber(ctx context.Context, subscriberID string) ([]PriceAlertSubscription, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsBySubscriberSQL, subscriberID)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts by subscriber: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// DeleteAlert removes a single threshold by alert id.
func (s *Store) DeleteAlert(ctx context.Context, id uuid.UUID) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	tag, execErr := pool.Exec(ctx, deleteAlertSQL, id)
	if execErr != nil {
		return fmt.Errorf("delete alert: %w", execErr)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAlertsForCommodity removes all of a subscriber's thresholds on one commodity.
func (s *Store) DeleteAlertsForCommodity(ctx context.Context, subscriberID string, commodityID int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsForCommoditySQL, subscriberID, commodityID); execErr != nil {
		return fmt.Errorf("delete alerts for commodity: %w", execErr)
	}
	return nil
}

// ListTargets returns the enabled subscriptions whose threshold condition is
// satisfied by the given price.
func (s *Store) ListTargets(ctx context.Context, commodityID int64, price int64) ([]PriceAlertSubscription, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listTargetsSQL, commodityID, price)
	if queryErr != nil {
		return nil, fmt.Errorf("list targets: %w", queryErr)
	}
	defer rows.Close()

	return collectAlerts(rows)
}

// InsertNotification appends to the notification log. Fire-and-forget callers
// treat failures as non-fatal.
func (s *Store) InsertNotification(ctx context.Context, n NotificationRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var related interface{}
	if n.RelatedID != nil {
		related = *n.RelatedID
	}

	if _, execErr := pool.Exec(ctx, insertNotificationSQL, n.SubscriberID, n.Type, n.Message, related); execErr != nil {
		return fmt.Errorf("insert notification: %w", execErr)
	}
	return nil
}

// ListRecentNotifications lists the newest notification log entries.
func (s *Store) ListRecentNotifications(ctx context.Context, limit int) ([]NotificationRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentNotificationsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent notifications: %w", queryErr)
	}
	defer rows.Close()

	out := make([]NotificationRecord, 0, limit)
	for rows.Next() {
		var n NotificationRecord
		var related *uuid.UUID
		if scanErr := rows.Scan(&n.ID, &n.SubscriberID, &n.Type, &n.Message, &related, &n.CreatedAt); scanErr != nil {
			return nil, scanErr
		}
		n.RelatedID = related
		out = append(out, n)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommodity(row rowScanner) (Commodity, error) {
	var c Commodity
	if err := row.Scan(&c.ID, &c.Name, &c.CategoryCode, &c.Unit, &c.ItemCode, &c.KindCode, &c.CreatedAt); err != nil {
		return Commodity{}, fmt.Errorf("scan commodity: %w", err)
	}
	return c, nil
}

func scanCommodityErr(row rowScanner) (Commodity, error) {
	var c Commodity
	err := row.Scan(&c.ID, &c.Name, &c.CategoryCode, &c.Unit, &c.ItemCode, &c.KindCode, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Commodity{}, ErrNotFound
	}
	if err != nil {
		return Commodity{}, fmt.Errorf("scan commodity: %w", err)
	}
	return c, nil
}

func scanPricePointErr(row rowScanner) (PricePoint, error) {
	var p PricePoint
	err := row.Scan(&p.ID, &p.CommodityID, &p.Price, &p.PriceType, &p.Region, &p.CollectedAt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PricePoint{}, ErrNotFound
	}
	if err != nil {
		return PricePoint{}, fmt.Errorf("scan price point: %w", err)
	}
	return p, nil
}

func scanAlert(row rowScanner) (PriceAlertSubscription, error) {
	var a PriceAlertSubscription
	if err := row.Scan(&a.ID, &a.SubscriberID, &a.CommodityID, &a.Threshold, &a.Direction, &a.Enabled, &a.CreatedAt); err != nil {
		return PriceAlertSubscription{}, fmt.Errorf("scan alert: %w", err)
	}
	return a, nil
}

func collectAlerts(rows pgx.Rows) ([]PriceAlertSubscription, error) {
	alerts := make([]PriceAlertSubscription, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}
