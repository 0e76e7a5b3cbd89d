package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"audit-trail-service/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
	log "github.com/sirupsen/logrus"
)

const categoryColumns = `id, slug, name, description, position, is_active, created_at, updated_at`

type postgresProductCategoryRepository struct {
	db DBTX
}

func NewPostgresProductCategoryRepository(db DBTX) *postgresProductCategoryRepository {
	return &postgresProductCategoryRepository{db: db}
}

func scanCategory(row rowScanner) (*domain.ProductCategory, error) {
	var cat domain.ProductCategory
	var description sql.NullString
	err := row.Scan(
		&cat.ID,
		&cat.Slug,
		&cat.Name,
		&description,
		&cat.Position,
		&cat.IsActive,
		&cat.CreatedAt,
		&cat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cat.Description = description.String
	return &cat, nil
}

func (r *postgresProductCategoryRepository) ListCategories(ctx context.Context, onlyActive bool) ([]domain.ProductCategory, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + categoryColumns + ` FROM product_categories`
	if onlyActive {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY position ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list product categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.ProductCategory, 0)
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan product category row")
			return nil, err
		}
		categories = append(categories, *cat)
	}

	return categories, rows.Err()
}

func (r *postgresProductCategoryRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.ProductCategory, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + categoryColumns + ` FROM product_categories WHERE ` + where
	cat, err := scanCategory(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCategoryNotFound
	}
	if err != nil {
		log.WithError(err).WithField("lookup", arg).Error("Failed to get product category")
		return nil, err
	}
	return cat, nil
}

func (r *postgresProductCategoryRepository) GetByID(ctx context.Context, id string) (*domain.ProductCategory, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByIDForUpdate locks the row until the surrounding transaction ends.
func (r *postgresProductCategoryRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.ProductCategory, error) {
	return r.getOne(ctx, "id = $1 FOR UPDATE", id)
}

func (r *postgresProductCategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.ProductCategory, error) {
	return r.getOne(ctx, "slug = $1", slug)
}

func (r *postgresProductCategoryRepository) Create(ctx context.Context, req domain.CreateCategoryRequest) (*domain.ProductCategory, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `INSERT INTO product_categories (id, slug, name, description, position, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING ` + categoryColumns

	cat, err := scanCategory(r.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		req.Slug,
		req.Name,
		nullIfEmpty(req.Description),
		req.Position,
		req.IsActive,
	))
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"slug": req.Slug,
			"name": req.Name,
		}).Error("Failed to create product category")
		return nil, fmt.Errorf("failed to create product category: %w", err)
	}

	return cat, nil
}

func (r *postgresProductCategoryRepository) Update(ctx context.Context, id string, req domain.UpdateCategoryRequest) (*domain.ProductCategory, error) {
	setParts := []string{}
	args := []interface{}{}
	argPos := 1

	set := func(column string, value interface{}) {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if req.Name != nil {
		set("name", *req.Name)
	}
	if req.Description != nil {
		set("description", nullIfEmpty(*req.Description))
	}
	if req.Position != nil {
		set("position", *req.Position)
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

	query := fmt.Sprintf(`UPDATE product_categories SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setParts, ", "), argPos, categoryColumns)

	cat, err := scanCategory(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCategoryNotFound
	}
	if err != nil {
		log.WithError(err).WithField("category_id", id).Error("Failed to update product category")
		return nil, fmt.Errorf("failed to update product category: %w", err)
	}

	return cat, nil
}

func (r *postgresProductCategoryRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `DELETE FROM product_categories WHERE id = $1`, id)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
		return domain.ErrCategoryInUse
	}
	if err != nil {
		log.WithError(err).WithField("category_id", id).Error("Failed to delete product category")
		return fmt.Errorf("failed to delete product category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrCategoryNotFound
	}

	return nil
}
