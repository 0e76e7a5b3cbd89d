package server

import (
	"context"
	"errors"
	"net/http"

	"audit-trail-service/internal/domain"
	"audit-trail-service/internal/service"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type ProductCategoryService interface {
	ListCategories(ctx context.Context, onlyActive bool) ([]domain.ProductCategory, error)
	GetCategoryByID(ctx context.Context, id string) (*domain.ProductCategory, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.ProductCategory, error)
	CreateCategory(ctx context.Context, ec service.ExecutionContext, req domain.CreateCategoryRequest) (*domain.ProductCategory, error)
	UpdateCategory(ctx context.Context, ec service.ExecutionContext, id string, req domain.UpdateCategoryRequest) (*domain.ProductCategory, error)
	DeleteCategory(ctx context.Context, ec service.ExecutionContext, id string) error
	AuditTrail(ctx context.Context, id string, limit, offset int) ([]*domain.AuditEntry, error)
}

type productCategoryServer struct {
	categoryService ProductCategoryService
}

func NewProductCategoryServer(categoryService ProductCategoryService) *productCategoryServer {
	return &productCategoryServer{
		categoryService: categoryService,
	}
}

func handleCategoryError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrCategoryNotFound):
		return http.StatusNotFound, "category not found"
	case errors.Is(err, domain.ErrCategorySlugExists):
		return http.StatusConflict, "category with this slug already exists"
	case errors.Is(err, domain.ErrCategoryInUse):
		return http.StatusConflict, "category still has products"
	case errors.Is(err, domain.ErrInvalidCategorySlug), errors.Is(err, domain.ErrInvalidCategoryName):
		return http.StatusBadRequest, "invalid request"
	default:
		return handleAuditError(err)
	}
}

func (s *productCategoryServer) ListCategories(c echo.Context) error {
	categories, err := s.categoryService.ListCategories(c.Request().Context(), c.QueryParam("only_active") == "true")
	if err != nil {
		log.WithError(err).Error("Failed to list categories")
		return respondError(c, err, handleCategoryError)
	}
	return c.JSON(http.StatusOK, categories)
}

func (s *productCategoryServer) GetCategoryByID(c echo.Context) error {
	id := c.Param("id")

	category, err := s.categoryService.GetCategoryByID(c.Request().Context(), id)
	if err != nil {
		log.WithError(err).WithField("category_id", id).Warn("Failed to get category")
		return respondError(c, err, handleCategoryError)
	}
	return c.JSON(http.StatusOK, category)
}

func (s *productCategoryServer) GetCategoryBySlug(c echo.Context) error {
	slug := c.Param("slug")

	category, err := s.categoryService.GetCategoryBySlug(c.Request().Context(), slug)
	if err != nil {
		log.WithError(err).WithField("slug", slug).Warn("Failed to get category by slug")
		return respondError(c, err, handleCategoryError)
	}
	return c.JSON(http.StatusOK, category)
}

func (s *productCategoryServer) CreateCategory(c echo.Context) error {
	ec, err := executionContext(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var req domain.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	category, err := s.categoryService.CreateCategory(c.Request().Context(), ec, req)
	if err != nil {
		log.WithError(err).WithField("slug", req.Slug).Error("Failed to create category")
		return respondError(c, err, handleCategoryError)
	}
	return c.JSON(http.StatusCreated, category)
}

func (s *productCategoryServer) UpdateCategory(c echo.Context) error {
	id := c.Param("id")

	ec, err := executionContext(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var req domain.UpdateCategoryRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	category, err := s.categoryService.UpdateCategory(c.Request().Context(), ec, id, req)
	if err != nil {
		log.WithError(err).WithField("category_id", id).Error("Failed to update category")
		return respondError(c, err, handleCategoryError)
	}
	return c.JSON(http.StatusOK, category)
}

func (s *productCategoryServer) DeleteCategory(c echo.Context) error {
	id := c.Param("id")

	ec, err := executionContext(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	if err := s.categoryService.DeleteCategory(c.Request().Context(), ec, id); err != nil {
		log.WithError(err).WithField("category_id", id).Error("Failed to delete category")
		return respondError(c, err, handleCategoryError)
	}
	return c.NoContent(http.StatusNoContent)
}

// CategoryAuditTrail serves GET /api/categories/:id/audit-trail.
func (s *productCategoryServer) CategoryAuditTrail(c echo.Context) error {
	id := c.Param("id")
	limit, offset := pageParams(c)

	entries, err := s.categoryService.AuditTrail(c.Request().Context(), id, limit, offset)
	if err != nil {
		log.WithError(err).WithField("category_id", id).Error("Failed to get category audit trail")
		return respondError(c, err, handleCategoryError)
	}
	return c.JSON(http.StatusOK, entries)
}
