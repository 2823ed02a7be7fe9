package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	telemetry "asset-cloud/internal/telemetry/domain"
)

const (
	defaultSubscriptionsTable = "subscriptions"

	uniqueViolationCode = "23505"
)

// SubscriptionRepository is a Postgres implementation for subscriptions.
// The subscriptions table carries a unique constraint on
// (device_id, metric_type); it is the authoritative guard against racing
// duplicate inserts.
type SubscriptionRepository struct {
	db    *sql.DB
	table string
}

// NewSubscriptionRepository constructs a repository.
func NewSubscriptionRepository(db *sql.DB, opts ...SubscriptionOption) *SubscriptionRepository {
	repo := &SubscriptionRepository{db: db, table: defaultSubscriptionsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// SubscriptionOption configures the repository.
type SubscriptionOption func(*SubscriptionRepository)

// WithSubscriptionTable overrides the default table name.
func WithSubscriptionTable(table string) SubscriptionOption {
	return func(repo *SubscriptionRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// FindPairs returns subscriptions whose (device_id, metric_type) falls in
// the cartesian product of the given ids and types.
func (r *SubscriptionRepository) FindPairs(ctx context.Context, deviceIDs, metricTypes []string) ([]telemetry.Subscription, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("subscription repo: nil db")
	}
	if len(deviceIDs) == 0 || len(metricTypes) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(deviceIDs)+len(metricTypes))
	devicePlaceholders := make([]string, len(deviceIDs))
	for i, id := range deviceIDs {
		args = append(args, id)
		devicePlaceholders[i] = fmt.Sprintf("$%d", len(args))
	}
	metricPlaceholders := make([]string, len(metricTypes))
	for i, metricType := range metricTypes {
		args = append(args, strings.ToLower(metricType))
		metricPlaceholders[i] = fmt.Sprintf("$%d", len(args))
	}

	query := fmt.Sprintf(`
SELECT id, device_id, metric_type, created_at
FROM %s
WHERE device_id IN (%s) AND LOWER(metric_type) IN (%s)`,
		r.table,
		strings.Join(devicePlaceholders, ","),
		strings.Join(metricPlaceholders, ","),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []telemetry.Subscription
	for rows.Next() {
		var sub telemetry.Subscription
		if err := rows.Scan(&sub.ID, &sub.DeviceID, &sub.MetricType, &sub.CreatedAt); err != nil {
			return nil, err
		}
		sub.CreatedAt = sub.CreatedAt.UTC()
		result = append(result, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateBatch inserts all subscriptions inside one transaction. A unique
// violation rolls the whole batch back and reports ErrDuplicatePair so the
// caller can surface a conflict instead of a partial result.
func (r *SubscriptionRepository) CreateBatch(ctx context.Context, subscriptions []telemetry.Subscription) error {
	if r == nil || r.db == nil {
		return errors.New("subscription repo: nil db")
	}
	if len(subscriptions) == 0 {
		return nil
	}
	for _, sub := range subscriptions {
		if err := sub.Validate(); err != nil {
			return err
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id, device_id, metric_type, created_at
) VALUES ($1,$2,$3,$4)`, r.table)

	for _, sub := range subscriptions {
		if _, err := tx.ExecContext(ctx, query, sub.ID, sub.DeviceID, strings.ToLower(sub.MetricType), sub.CreatedAt); err != nil {
			_ = tx.Rollback()
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
				return telemetry.ErrDuplicatePair
			}
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return telemetry.ErrDuplicatePair
		}
		return err
	}
	return nil
}

// GetOwned loads a subscription whose device belongs, through its site, to
// the given user.
func (r *SubscriptionRepository) GetOwned(ctx context.Context, userID, subscriptionID string) (*telemetry.Subscription, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("subscription repo: nil db")
	}
	if userID == "" || subscriptionID == "" {
		return nil, errors.New("subscription repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT sub.id, sub.device_id, sub.metric_type, sub.created_at
FROM %s sub
JOIN %s d ON d.id = sub.device_id
JOIN %s s ON s.id = d.site_id
WHERE sub.id = $1 AND s.user_id = $2
LIMIT 1`, r.table, defaultDevicesTable, defaultSitesTable)

	var sub telemetry.Subscription
	if err := r.db.QueryRowContext(ctx, query, subscriptionID, userID).Scan(
		&sub.ID,
		&sub.DeviceID,
		&sub.MetricType,
		&sub.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	return &sub, nil
}
