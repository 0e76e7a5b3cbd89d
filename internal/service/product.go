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

type ProductRepository interface {
	ListProducts(ctx context.Context, categoryID *string, onlyActive bool, limit, offset int) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Create(ctx context.Context, req domain.CreateProductRequest) (*domain.Product, error)
	Update(ctx context.Context, id string, req domain.UpdateProductRequest) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
}

// productService writes each product mutation and its audit entry in one
// transaction.
type productService struct {
	db          *sql.DB
	productRepo ProductRepository
	hooks       HooksBinder
	finder      EntryFinder
	publisher   EntryPublisher
	metrics     *metrics.Metrics
}

func NewProductService(db *sql.DB, hooks HooksBinder, finder EntryFinder, publisher EntryPublisher, m *metrics.Metrics) *productService {
	return &productService{
		db:          db,
		productRepo: repository.NewPostgresProductRepository(db),
		hooks:       hooks,
		finder:      finder,
		publisher:   publisher,
		metrics:     m,
	}
}

// inTx runs fn with a product repository and audit hooks bound to one
// transaction.
func (s *productService) inTx(ctx context.Context, fn func(repo ProductRepository, hooks LifecycleHooks) error) error {
	return repository.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		return fn(
			repository.NewPostgresProductRepository(tx),
			s.hooks.Bind(repository.NewPostgresAuditEntryRepository(tx)),
		)
	})
}

func (s *productService) ListProducts(ctx context.Context, categoryID *string, onlyActive bool, limit, offset int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.productRepo.ListProducts(ctx, categoryID, onlyActive, limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to list products")
		return nil, err
	}
	return products, nil
}

func (s *productService) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvalidUUID
	}
	return s.productRepo.GetByID(ctx, id)
}

func (s *productService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if err := domain.ValidateProductSlug(slug); err != nil {
		return nil, err
	}
	return s.productRepo.GetBySlug(ctx, slug)
}

func (s *productService) CreateProduct(ctx context.Context, ec ExecutionContext, req domain.CreateProductRequest) (*domain.Product, error) {
	if _, err := uuid.Parse(req.CategoryID); err != nil {
		return nil, domain.ErrInvalidUUID
	}
	if err := domain.ValidateProductSlug(req.Slug); err != nil {
		return nil, err
	}
	if err := domain.ValidateProductName(req.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidateProductPrice(req.PriceCoins); err != nil {
		return nil, err
	}

	var (
		product *domain.Product
		entry   *domain.AuditEntry
	)
	err := s.inTx(ctx, func(repo ProductRepository, hooks LifecycleHooks) error {
		existing, err := repo.GetBySlug(ctx, req.Slug)
		if err != nil && !errors.Is(err, domain.ErrProductNotFound) {
			return err
		}
		if existing != nil {
			return domain.ErrProductSlugExists
		}

		product, err = repo.Create(ctx, req)
		if err != nil {
			return err
		}

		entry, err = hooks.OnInsert(ctx, product, ec)
		return err
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"slug":        req.Slug,
			"category_id": req.CategoryID,
		}).Error("Failed to create product")
		return nil, err
	}

	publishCommitted(ctx, s.publisher, s.metrics, entry)
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, ec ExecutionContext, id string, req domain.UpdateProductRequest) (*domain.Product, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvalidUUID
	}
	if req.CategoryID != nil {
		if _, err := uuid.Parse(*req.CategoryID); err != nil {
			return nil, domain.ErrInvalidUUID
		}
	}
	if req.Name != nil {
		if err := domain.ValidateProductName(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.PriceCoins != nil {
		if err := domain.ValidateProductPrice(*req.PriceCoins); err != nil {
			return nil, err
		}
	}

	var (
		product *domain.Product
		entry   *domain.AuditEntry
	)
	err := s.inTx(ctx, func(repo ProductRepository, hooks LifecycleHooks) error {
		before, err := repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		fields := req.ChangedFields()
		if len(fields) == 0 {
			product = before
			return nil
		}

		product, err = repo.Update(ctx, id, req)
		if err != nil {
			return err
		}

		entry, err = hooks.OnUpdate(ctx, product, before.Snapshot(fields), ec)
		return err
	})
	if err != nil {
		log.WithError(err).WithField("product_id", id).Error("Failed to update product")
		return nil, err
	}

	publishCommitted(ctx, s.publisher, s.metrics, entry)
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, ec ExecutionContext, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrInvalidUUID
	}

	var entry *domain.AuditEntry
	err := s.inTx(ctx, func(repo ProductRepository, hooks LifecycleHooks) error {
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
		log.WithError(err).WithField("product_id", id).Error("Failed to delete product")
		return err
	}

	publishCommitted(ctx, s.publisher, s.metrics, entry)
	return nil
}

// AuditTrail returns the entries of one product, newest first. It also
// works for products that have since been deleted.
func (s *productService) AuditTrail(ctx context.Context, id string, limit, offset int) ([]*domain.AuditEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvalidUUID
	}
	if limit <= 0 || limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}

	return NewAuditQuery(s.finder).
		ForSubject(&domain.Product{ID: id}).
		OrderNewestFirst(false).
		Limit(limit).
		Offset(offset).
		All(ctx)
}
