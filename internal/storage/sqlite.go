package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/pauljones0/korting/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS deals (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	merchant TEXT NOT NULL,
	merchant_logo TEXT NOT NULL DEFAULT '',
	original_price TEXT NOT NULL,
	sale_price TEXT NOT NULL,
	original_price_estimated INTEGER NOT NULL DEFAULT 0,
	discount_percentage INTEGER NOT NULL,
	coupon_code TEXT NOT NULL DEFAULT '',
	affiliate_url TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL,
	image_url TEXT NOT NULL DEFAULT '',
	valid_from INTEGER NOT NULL,
	valid_until INTEGER NOT NULL,
	source TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_deals_category ON deals (category);
CREATE INDEX IF NOT EXISTS idx_deals_valid_until ON deals (valid_until);
`

// SQLiteStore keeps deals in a SQLite database. Timestamps are stored as
// Unix nanoseconds and prices as decimal text.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func unixNano(t time.Time) int64 { return t.UnixNano() }

func fromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }

func sqliteArgs(d models.Deal) []any {
	return []any{
		d.ID, d.Title, d.Description, d.Merchant, d.MerchantLogo,
		d.OriginalPrice.StringFixed(2), d.SalePrice.StringFixed(2), d.OriginalPriceEstimated, d.DiscountPercentage,
		d.CouponCode, d.AffiliateURL, d.SourceURL, string(d.Category), d.ImageURL,
		unixNano(d.ValidFrom), unixNano(d.ValidUntil), d.Source, string(d.Status), unixNano(d.CreatedAt), d.IsActive,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteDeal(row rowScanner) (models.Deal, error) {
	var (
		d                     models.Deal
		original, sale        string
		category, status      string
		validFrom, validUntil int64
		createdAt             int64
	)
	err := row.Scan(
		&d.ID, &d.Title, &d.Description, &d.Merchant, &d.MerchantLogo,
		&original, &sale, &d.OriginalPriceEstimated, &d.DiscountPercentage,
		&d.CouponCode, &d.AffiliateURL, &d.SourceURL, &category, &d.ImageURL,
		&validFrom, &validUntil, &d.Source, &status, &createdAt, &d.IsActive,
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
	d.ValidFrom = fromUnixNano(validFrom)
	d.ValidUntil = fromUnixNano(validUntil)
	d.CreatedAt = fromUnixNano(createdAt)
	return d, nil
}

func (s *SQLiteStore) List(ctx context.Context, f models.Filter) ([]models.Deal, error) {
	query, args := sqliteDialect.listSQL(f, unixNano(s.now()))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	defer rows.Close()

	deals := []models.Deal{}
	for rows.Next() {
		d, err := scanSQLiteDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (models.Deal, error) {
	query := "SELECT " + sqliteDialect.selectList() + " FROM deals WHERE id = ?"
	d, err := scanSQLiteDeal(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Deal{}, models.ErrDealNotFound
	}
	if err != nil {
		return models.Deal{}, fmt.Errorf("failed to get deal %s: %w", id, err)
	}
	return d, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM deals WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check deal %s: %w", id, err)
	}
	return true, nil
}

func (s *SQLiteStore) InsertAll(ctx context.Context, deals []models.Deal) (int, error) {
	if len(deals) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteDialect.insertSQL())
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, d := range deals {
		res, err := stmt.ExecContext(ctx, sqliteArgs(d)...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert deal %s: %w", d.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to insert deal %s: %w", d.ID, err)
		}
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit insert: %w", err)
	}
	return added, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, next models.Deal) error {
	all := sqliteArgs(next)
	// Drop id, source and created_at, which an edit never changes.
	args := append([]any{}, all[1:16]...)
	args = append(args, all[17], all[19], id)

	res, err := s.db.ExecContext(ctx, sqliteDialect.updateSQL(), args...)
	if err != nil {
		return fmt.Errorf("failed to update deal %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update deal %s: %w", id, err)
	}
	if n == 0 {
		return models.ErrDealNotFound
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := "DELETE FROM deals WHERE id IN (" + strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ") + ")"
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete deals: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete deals: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Count(ctx context.Context, f models.Filter) (int, error) {
	query, args := sqliteDialect.countSQL(f, unixNano(s.now()))
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count deals: %w", err)
	}
	return n, nil
}
