package service

import (
	"context"
	"database/sql"
	"errors"

	"audit-trail-service/internal/domain"
	"audit-trail-service/internal/metrics"
	"audit-trail-service/internal/repository"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type ProductCategoryRepository interface {
	ListCategories(ctx context.Context, onlyActive bool) ([]domain.ProductCategory, error)
	GetByID(ctx context.Context, id string) (*domain.ProductCategory, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.ProductCategory, error)
	GetBySlug(ctx context.Context, slug string) (*domain.ProductCategory, error)
	Create(ctx context.Context, req domain.CreateCategoryRequest) (*domain.ProductCategory, error)
	Update(ctx context.Context, id string, req domain.UpdateCategoryRequest) (*domain.ProductCategory, error)
	Delete(ctx context.Context, id string) error
}

type productCategoryService struct {
	db           *sql.DB
	categoryRepo ProductCategoryRepository
	hooks        HooksBinder
	finder       EntryFinder
	publisher    EntryPublisher
	metrics      *metrics.Metrics
}

func NewProductCategoryService(db *sql.DB, hooks HooksBinder, finder EntryFinder, publisher EntryPublisher, m *metrics.Metrics) *productCategoryService {
	return &productCategoryService{
		db:           db,
		categoryRepo: repository.NewPostgresProductCategoryRepository(db),
		hooks:        hooks,
		finder:       finder,
		publisher:    publisher,
		metrics:      m,
	}
}

func (s *productCategoryService) inTx(ctx context.Context, fn func(repo ProductCategoryRepository, hooks LifecycleHooks) error) error {
	return repository.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return fn(
			repository.NewPostgresProductCategoryRepository(tx),
			s.hooks.Bind(repository.NewPostgresAuditEntryRepository(tx)),
		)
	})
}

func (s *productCategoryService) ListCategories(ctx context.Context, onlyActive bool) ([]domain.ProductCategory, error) {
	categories, err := s.categoryRepo.ListCategories(ctx, onlyActive)
	if err != nil {
		log.WithError(err).Error("Failed to list product categories")
		return nil, err
	}
	return categories, nil
}

func (s *productCategoryService) GetCategoryByID(ctx context.Context, id string) (*domain.ProductCategory, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvalidUUID
	}
	return s.categoryRepo.GetByID(ctx, id)
}

func (s *productCategoryService) GetCategoryBySlug(ctx context.Context, slug string) (*domain.ProductCategory, error) {
	if err := domain.ValidateCategorySlug(slug); err != nil {
		return nil, err
	}
	return s.categoryRepo.GetBySlug(ctx, slug)
}

func (s *productCategoryService) CreateCategory(ctx context.Context, ec ExecutionContext, req domain.CreateCategoryRequest) (*domain.ProductCategory, error) {
	if err := domain.ValidateCategorySlug(req.Slug); err != nil {
		return nil, err
	}
	if err := domain.ValidateCategoryName(req.Name); err != nil {
		return nil, err
	}

	var (
		category *domain.ProductCategory
		entry    *domain.AuditEntry
	)
	err := s.inTx(ctx, func(repo ProductCategoryRepository, hooks LifecycleHooks) error {
		existing, err := repo.GetBySlug(ctx, req.Slug)
		if err != nil && !errors.Is(err, domain.ErrCategoryNotFound) {
			return err
		}
		if existing != nil {
			return domain.ErrCategorySlugExists
		}

		category, err = repo.Create(ctx, req)
		if err != nil {
			return err
		}

		entry, err = hooks.OnInsert(ctx, category, ec)
		return err
	})
	if err != nil {
		log.WithError(err).WithField("slug", req.Slug).Error("Failed to create product category")
		return nil, err
	}

	publishCommitted(ctx, s.publisher, s.metrics, entry)
	return category, nil
}

func (s *productCategoryService) UpdateCategory(ctx context.Context, ec ExecutionContext, id string, req domain.UpdateCategoryRequest) (*domain.ProductCategory, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvalidUUID
	}
	if req.Name != nil {
		if err := domain.ValidateCategoryName(*req.Name); err != nil {
			return nil, err
		}
	}

	var (
		category *domain.ProductCategory
		entry    *domain.AuditEntry
	)
	err := s.inTx(ctx, func(repo ProductCategoryRepository, hooks LifecycleHooks) error {
		before, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		fields := req.ChangedFields()
		if len(fields) == 0 {
			category = before
			return nil
		}

		category, err = repo.Update(ctx, id, req)
		if err != nil {
			return err
		}

		entry, err = hooks.OnUpdate(ctx, category, before.Snapshot(fields), ec)
		return err
	})
	if err != nil {
		log.WithError(err).WithField("category_id", id).Error("Failed to update product category")
		return nil, err
	}

	publishCommitted(ctx, s.publisher, s.metrics, entry)
	return category, nil
}

func (s *productCategoryService) DeleteCategory(ctx context.Context, ec ExecutionContext, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrInvalidUUID
	}

	var entry *domain.AuditEntry
	err := s.inTx(ctx, func(repo ProductCategoryRepository, hooks LifecycleHooks) error {
		before, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		entry, err = hooks.OnDelete(ctx, before, ec)
		if err != nil {
			return err
		}

		return repo.Delete(ctx, id)
	})
	if err != nil {
		log.WithError(err).WithField("category_id", id).Error("Failed to delete product category")
		return err
	}

	publishCommitted(ctx, s.publisher, s.metrics, entry)
	return nil
}

func (s *productCategoryService) AuditTrail(ctx context.Context, id string, limit, offset int) ([]*domain.AuditEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvalidUUID
	}
	if limit <= 0 || limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}

	return NewAuditQuery(s.finder).
		ForSubject(&domain.ProductCategory{ID: id}).
		OrderNewestFirst(false).
		Limit(limit).
		Offset(offset).
		All(ctx)
}
