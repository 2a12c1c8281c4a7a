package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pauljones0/korting/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS deals (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	merchant TEXT NOT NULL,
	merchant_logo TEXT NOT NULL DEFAULT '',
	original_price NUMERIC(12,2) NOT NULL,
	sale_price NUMERIC(12,2) NOT NULL,
	original_price_estimated BOOLEAN NOT NULL DEFAULT FALSE,
	discount_percentage INTEGER NOT NULL CHECK (discount_percentage BETWEEN 0 AND 100),
	coupon_code TEXT NOT NULL DEFAULT '',
	affiliate_url TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	category VARCHAR(32) NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	valid_from TIMESTAMPTZ NOT NULL,
	valid_until TIMESTAMPTZ NOT NULL,
	source VARCHAR(64) NOT NULL,
	status VARCHAR(16) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	CHECK (sale_price >= 0 AND sale_price <= original_price),
	CHECK (valid_from <= valid_until)
);
CREATE INDEX IF NOT EXISTS idx_deals_category ON deals (category);
CREATE INDEX IF NOT EXISTS idx_deals_valid_until ON deals (valid_until);
`

// PostgresStore keeps deals in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore connects to dsn and creates the schema if needed.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres store requires DATABASE_URL")
	}
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// postgresArgs sends prices as text so the server parses them as NUMERIC.
func postgresArgs(d models.Deal) []any {
	return []any{
		d.ID, d.Title, d.Description, d.Merchant, d.MerchantLogo,
		d.OriginalPrice.StringFixed(2), d.SalePrice.StringFixed(2), d.OriginalPriceEstimated, d.DiscountPercentage,
		d.CouponCode, d.AffiliateURL, d.SourceURL, string(d.Category), d.ImageURL,
		d.ValidFrom, d.ValidUntil, d.Source, string(d.Status), d.CreatedAt, d.IsActive,
	}
}

func scanPostgresDeal(row rowScanner) (models.Deal, error) {
	var (
		d                models.Deal
		original, sale   string
		category, status string
	)
	err := row.Scan(
		&d.ID, &d.Title, &d.Description, &d.Merchant, &d.MerchantLogo,
		&original, &sale, &d.OriginalPriceEstimated, &d.DiscountPercentage,
		&d.CouponCode, &d.AffiliateURL, &d.SourceURL, &category, &d.ImageURL,
		&d.ValidFrom, &d.ValidUntil, &d.Source, &status, &d.CreatedAt, &d.IsActive,
	)
	if err != nil {
		return models.Deal{}, err
	}
	if d.OriginalPrice, err = decimal.NewFromString(original); err != nil {
		return models.Deal{}, fmt.Errorf("deal %s: original_price: %w", d.ID, err)
	}
	if d.SalePrice, err = decimal.NewFromString(sale); err != nil {
		return models.Deal{}, fmt.Errorf("deal %s: sale_price: %w", d.ID, err)
	}
	d.Category = models.Category(category)
	d.Status = models.Status(status)
	return d, nil
}

func (s *PostgresStore) List(ctx context.Context, f models.Filter) ([]models.Deal, error) {
	query, args := postgresDialect.listSQL(f, s.now())
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	defer rows.Close()

	deals := []models.Deal{}
	for rows.Next() {
		d, err := scanPostgresDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (models.Deal, error) {
	query := "SELECT " + postgresDialect.selectList() + " FROM deals WHERE id = $1"
	d, err := scanPostgresDeal(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Deal{}, models.ErrDealNotFound
	}
	if err != nil {
		return models.Deal{}, fmt.Errorf("failed to get deal %s: %w", id, err)
	}
	return d, nil
}

func (s *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM deals WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check deal %s: %w", id, err)
	}
	return exists, nil
}

func (s *PostgresStore) InsertAll(ctx context.Context, deals []models.Deal) (int, error) {
	if len(deals) == 0 {
		return 0, nil
	}
	insert := postgresDialect.insertSQL()
	batch := &pgx.Batch{}
	for _, d := range deals {
		batch.Queue(insert, postgresArgs(d)...)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin insert: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	added := 0
	for _, d := range deals {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("failed to insert deal %s: %w", d.ID, err)
		}
		added += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to insert deals: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit insert: %w", err)
	}
	return added, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, next models.Deal) error {
	all := postgresArgs(next)
	args := append([]any{}, all[1:16]...)
	args = append(args, all[17], all[19], id)

	tag, err := s.pool.Exec(ctx, postgresDialect.updateSQL(), args...)
	if err != nil {
		return fmt.Errorf("failed to update deal %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrDealNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM deals WHERE id = ANY($1)", ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete deals: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Count(ctx context.Context, f models.Filter) (int, error) {
	query, args := postgresDialect.countSQL(f, s.now())
	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count deals: %w", err)
	}
	return n, nil
}
