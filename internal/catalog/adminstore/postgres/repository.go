// Package postgres stores admin products in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jcmexdev/bakery-storefront/internal/catalog/adminstore"
	"github.com/jcmexdev/bakery-storefront/internal/catalog/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS admin_products (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    description   TEXT NOT NULL DEFAULT '',
    images        TEXT[] NOT NULL DEFAULT '{}',
    prices        JSONB NOT NULL DEFAULT '[]',
    cream_options TEXT[] NOT NULL DEFAULT '{}',
    tin_options   TEXT[] NOT NULL DEFAULT '{}',
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const selectColumns = `
        SELECT
            id,
            name,
            description,
            images,
            prices,
            cream_options,
            tin_options,
            is_active,
            created_at,
            updated_at
        FROM admin_products`

type ProductRepository struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies the database is reachable.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Migrate creates the admin_products table if needed.
func (r *ProductRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate admin_products: %w", err)
	}
	return nil
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.AdminProduct, error) {
	return r.query(ctx, selectColumns+` ORDER BY created_at, id`)
}

func (r *ProductRepository) ListActive(ctx context.Context) ([]domain.AdminProduct, error) {
	return r.query(ctx, selectColumns+` WHERE is_active ORDER BY created_at, id`)
}

func (r *ProductRepository) Get(ctx context.Context, id string) (domain.AdminProduct, error) {
	row := r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AdminProduct{}, fmt.Errorf("product %s: %w", id, adminstore.ErrNotFound)
	}
	if err != nil {
		return domain.AdminProduct{}, fmt.Errorf("postgres: get product %s: %w", id, err)
	}
	return p, nil
}

func (r *ProductRepository) Upsert(ctx context.Context, p domain.AdminProduct) (bool, error) {
	prices, err := json.Marshal(p.Prices)
	if err != nil {
		return false, fmt.Errorf("postgres: encode prices of %s: %w", p.ID, err)
	}

	query := `
        INSERT INTO admin_products (
            id, name, description, images, prices, cream_options,
            tin_options, is_active, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $9
        )
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            description = EXCLUDED.description,
            images = EXCLUDED.images,
            prices = EXCLUDED.prices,
            cream_options = EXCLUDED.cream_options,
            tin_options = EXCLUDED.tin_options,
            is_active = EXCLUDED.is_active,
            updated_at = EXCLUDED.updated_at
        RETURNING (xmax = 0) AS inserted
    `
	var inserted bool
	err = r.pool.QueryRow(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		nonNil(p.Images),
		prices,
		nonNil(p.CreamOptions),
		nonNil(p.TinOptions),
		p.IsActive,
		time.Now().UTC(),
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("postgres: upsert product %s: %w", p.ID, err)
	}
	return inserted, nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM admin_products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", id, adminstore.ErrNotFound)
	}
	return nil
}

func (r *ProductRepository) query(ctx context.Context, sql string) ([]domain.AdminProduct, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("postgres: list products: %w", err)
	}
	defer rows.Close()

	var out []domain.AdminProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (domain.AdminProduct, error) {
	var (
		p      domain.AdminProduct
		prices []byte
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Images,
		&prices,
		&p.CreamOptions,
		&p.TinOptions,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.AdminProduct{}, err
	}
	if err := json.Unmarshal(prices, &p.Prices); err != nil {
		return domain.AdminProduct{}, fmt.Errorf("decode prices of %s: %w", p.ID, err)
	}
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ adminstore.Repository = (*ProductRepository)(nil)
