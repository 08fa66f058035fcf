// Package postgres provides a PostgreSQL implementation of the renewal.Storage interface.
// Subscriptions live in a single table with native date columns, so the calendar
// semantics of the start and cancellation dates survive the round trip.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mihaimyh/gorenew/pkg/renewal"
)

// Schema creates the subscriptions table. EnsureSchema applies it.
const Schema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	id             TEXT PRIMARY KEY,
	owner_id       TEXT NOT NULL,
	name           TEXT NOT NULL,
	category       TEXT NOT NULL DEFAULT '',
	cost           NUMERIC(12, 2) NOT NULL DEFAULT 0,
	currency       CHAR(3) NOT NULL DEFAULT 'USD',
	url            TEXT NOT NULL DEFAULT '',
	notes          TEXT NOT NULL DEFAULT '',
	start_date     DATE NOT NULL,
	renewal_period TEXT NOT NULL,
	cancelled_on   DATE,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL,
	CHECK (cancelled_on IS NULL OR cancelled_on >= start_date)
);
CREATE INDEX IF NOT EXISTS subscriptions_owner_name_idx ON subscriptions (owner_id, name);
`

const selectColumns = `id, owner_id, name, category, cost::text, currency, url, notes,
	start_date, renewal_period, cancelled_on, created_at, updated_at`

// Storage implements renewal.Storage using PostgreSQL
type Storage struct {
	pool   *pgxpool.Pool
	config Config
}

// Config holds PostgreSQL storage configuration
type Config struct {
	// ConnectionString is the PostgreSQL connection string
	ConnectionString string

	// Pool configuration
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// New creates a new PostgreSQL storage adapter
func New(ctx context.Context, config Config) (*Storage, error) {
	if config.ConnectionString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	// Parse connection string
	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	// Apply pool settings
	if config.MaxConns > 0 {
		poolConfig.MaxConns = config.MaxConns
	}
	if config.MinConns > 0 {
		poolConfig.MinConns = config.MinConns
	}
	if config.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = config.MaxConnLifetime
	}
	if config.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = config.MaxConnIdleTime
	}

	// Create connection pool
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Storage{pool: pool, config: config}, nil
}

// EnsureSchema creates the subscriptions table if it does not exist.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the PostgreSQL connection pool
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// GetSubscription implements renewal.Storage
func (s *Storage) GetSubscription(ctx context.Context, id string) (*renewal.Subscription, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM subscriptions WHERE id = $1`, id)
	sub, err := scanSubscription(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, renewal.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// PutSubscription implements renewal.Storage
func (s *Storage) PutSubscription(ctx context.Context, sub *renewal.Subscription) error {
	if sub == nil || sub.ID == "" || sub.OwnerID == "" {
		return fmt.Errorf("%w: missing id or owner", renewal.ErrInvalidSubscription)
	}

	var cancelledOn *time.Time
	if on, ok := sub.Status.CancellationDate(); ok {
		cancelledOn = &on
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscriptions (id, owner_id, name, category, cost, currency, url, notes,
			start_date, renewal_period, cancelled_on, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			cost = EXCLUDED.cost,
			currency = EXCLUDED.currency,
			url = EXCLUDED.url,
			notes = EXCLUDED.notes,
			start_date = EXCLUDED.start_date,
			renewal_period = EXCLUDED.renewal_period,
			cancelled_on = EXCLUDED.cancelled_on,
			updated_at = EXCLUDED.updated_at`,
		sub.ID, sub.OwnerID, sub.Name, sub.Category, sub.Cost.String(), sub.Currency, sub.URL, sub.Notes,
		renewal.DateOf(sub.StartDate), sub.Period.String(), cancelledOn, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to put subscription: %w", err)
	}
	return nil
}

// DeleteSubscription implements renewal.Storage
func (s *Storage) DeleteSubscription(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return renewal.ErrSubscriptionNotFound
	}
	return nil
}

// ListSubscriptions implements renewal.Storage
func (s *Storage) ListSubscriptions(ctx context.Context, ownerID string) ([]renewal.Subscription, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM subscriptions WHERE owner_id = $1 ORDER BY name, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []renewal.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// Now implements renewal.TimeSource using the database clock.
func (s *Storage) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := s.pool.QueryRow(ctx, `SELECT CURRENT_TIMESTAMP`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("failed to get database time: %w", err)
	}
	return now.UTC(), nil
}

// Ping checks the PostgreSQL connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func scanSubscription(row pgx.Row) (*renewal.Subscription, error) {
	var (
		sub         renewal.Subscription
		cost        string
		period      string
		cancelledOn *time.Time
	)
	err := row.Scan(&sub.ID, &sub.OwnerID, &sub.Name, &sub.Category, &cost, &sub.Currency,
		&sub.URL, &sub.Notes, &sub.StartDate, &period, &cancelledOn, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if sub.Cost, err = decimal.NewFromString(cost); err != nil {
		return nil, fmt.Errorf("invalid cost %q: %w", cost, err)
	}
	if sub.Period, err = renewal.ParsePeriod(period); err != nil {
		return nil, err
	}
	sub.StartDate = renewal.DateOf(sub.StartDate)
	sub.Status = renewal.Active()
	if cancelledOn != nil {
		sub.Status = renewal.CancelledOn(*cancelledOn)
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.UpdatedAt.UTC()
	return &sub, nil
}
