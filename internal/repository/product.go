package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"audit-trail-service/internal/domain"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const productColumns = `id, category_id, slug, name, description, price_coins, metadata, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type postgresProductRepository struct {
	db DBTX
}

// NewPostgresProductRepository accepts a *sql.DB or a *sql.Tx so writes can
// share a transaction with their audit entries.
func NewPostgresProductRepository(db DBTX) *postgresProductRepository {
	return &postgresProductRepository{db: db}
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var product domain.Product
	var description, metadata sql.NullString
	err := row.Scan(
		&product.ID,
		&product.CategoryID,
		&product.Slug,
		&product.Name,
		&description,
		&product.PriceCoins,
		&metadata,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	product.Description = description.String
	product.Metadata = metadata.String
	return &product, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (r *postgresProductRepository) ListProducts(ctx context.Context, categoryID *string, onlyActive bool, limit, offset int) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var query strings.Builder
	args := []interface{}{}
	argPos := 1

	query.WriteString(`SELECT ` + productColumns + ` FROM products WHERE 1=1`)

	if categoryID != nil {
		query.WriteString(fmt.Sprintf(" AND category_id = $%d", argPos))
		args = append(args, *categoryID)
		argPos++
	}

	if onlyActive {
		query.WriteString(fmt.Sprintf(" AND is_active = $%d", argPos))
		args = append(args, true)
		argPos++
	}

	query.WriteString(" ORDER BY created_at DESC")
	query.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1))
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan product row")
			return nil, err
		}
		products = append(products, *product)
	}

	return products, rows.Err()
}

func (r *postgresProductRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products WHERE ` + where
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		log.WithError(err).WithField("lookup", arg).Error("Failed to get product")
		return nil, err
	}
	return product, nil
}

func (r *postgresProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByIDForUpdate locks the row until the surrounding transaction ends. The
// result is the pre-image of an update or delete.
func (r *postgresProductRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Product, error) {
	return r.getOne(ctx, "id = $1 FOR UPDATE", id)
}

func (r *postgresProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return r.getOne(ctx, "slug = $1", slug)
}

func (r *postgresProductRepository) Create(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	id := uuid.NewString()
	log.WithFields(log.Fields{
		"product_id":  id,
		"slug":        req.Slug,
		"category_id": req.CategoryID,
	}).Info("Creating new product")

	query := `INSERT INTO products (id, category_id, slug, name, description, price_coins, metadata, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING ` + productColumns

	product, err := scanProduct(r.db.QueryRowContext(ctx, query,
		id,
		req.CategoryID,
		req.Slug,
		req.Name,
		nullIfEmpty(req.Description),
		req.PriceCoins,
		nullIfEmpty(req.Metadata),
		req.IsActive,
	))
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"slug":        req.Slug,
			"category_id": req.CategoryID,
		}).Error("Failed to create product")
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

func (r *postgresProductRepository) Update(ctx context.Context, id string, req domain.UpdateProductRequest) (*domain.Product, error) {
	setParts := []string{}
	args := []interface{}{}
	argPos := 1

	set := func(column string, value interface{}) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if req.CategoryID != nil {
		set("category_id", *req.CategoryID)
	}
	if req.Name != nil {
		set("name", *req.Name)
	}
	if req.Description != nil {
		set("description", nullIfEmpty(*req.Description))
	}
	if req.PriceCoins != nil {
		set("price_coins", *req.PriceCoins)
	}
	if req.Metadata != nil {
		set("metadata", nullIfEmpty(*req.Metadata))
	}
	if req.IsActive != nil {
		set("is_active", *req.IsActive)
	}

	if len(setParts) == 0 {
		return r.GetByID(ctx, id)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	setParts = append(setParts, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE products SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setParts, ", "), argPos, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		log.WithError(err).WithField("product_id", id).Error("Failed to update product")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

func (r *postgresProductRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	log.WithField("product_id", id).Info("Deleting product")

	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		log.WithError(err).WithField("product_id", id).Error("Failed to delete product")
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}
