package repository

import (
	"context"
	"errors"
	"fmt"

	"farmstand/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetAll retrieves all products with their variants, paginated.
func (r *productRepository) GetAll(ctx context.Context, limit, offset int) ([]model.Product, error) {
	query := `
		SELECT id, name, description, category, image_url, created_at
		FROM products
		ORDER BY name
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to query products")
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.ImageURL, &p.CreatedAt)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}

	return products, nil
}

// GetByID retrieves a single product with its variants.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `
		SELECT id, name, description, category, image_url, created_at
		FROM products
		WHERE id = $1
	`

	var p model.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.ImageURL, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	products := []model.Product{p}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}

	return &products[0], nil
}

// attachVariants loads and attaches variants for a slice of products.
func (r *productRepository) attachVariants(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	index := make(map[string]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}

	query := `
		SELECT id, product_id, size, price_cents
		FROM product_variants
		WHERE product_id = ANY($1)
		ORDER BY product_id, price_cents
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query variants")
		return fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v model.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Size, &v.PriceCents); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan variant row")
			return fmt.Errorf("failed to scan variant: %w", err)
		}
		if i, ok := index[v.ProductID]; ok {
			products[i].Variants = append(products[i].Variants, v)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating variants: %w", err)
	}

	return nil
}

// GetVariantsByIDs retrieves variants joined with their products.
func (r *productRepository) GetVariantsByIDs(ctx context.Context, ids []string) ([]model.CatalogVariant, error) {
	if len(ids) == 0 {
		return []model.CatalogVariant{}, nil
	}

	query := `
		SELECT v.id, v.product_id, v.size, v.price_cents, p.name AS product_name
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query variants by IDs")
		return nil, fmt.Errorf("failed to query variants by IDs: %w", err)
	}
	defer rows.Close()

	var variants []model.CatalogVariant
	for rows.Next() {
		var v model.CatalogVariant
		err := rows.Scan(&v.ID, &v.ProductID, &v.Size, &v.PriceCents, &v.ProductName)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan variant row")
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating variants: %w", err)
	}

	return variants, nil
}
