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

type ProductService interface {
	ListProducts(ctx context.Context, categoryID *string, onlyActive bool, limit, offset int) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	CreateProduct(ctx context.Context, ec service.ExecutionContext, req domain.CreateProductRequest) (*domain.Product, error)
	UpdateProduct(ctx context.Context, ec service.ExecutionContext, id string, req domain.UpdateProductRequest) (*domain.Product, error)
	DeleteProduct(ctx context.Context, ec service.ExecutionContext, id string) error
	AuditTrail(ctx context.Context, id string, limit, offset int) ([]*domain.AuditEntry, error)
}

type productServer struct {
	productService ProductService
}

func NewProductServer(productService ProductService) *productServer {
	return &productServer{
		productService: productService,
	}
}

func handleProductError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "product not found"
	case errors.Is(err, domain.ErrProductSlugExists):
		return http.StatusConflict, "product with this slug already exists"
	case errors.Is(err, domain.ErrInvalidProductSlug),
		errors.Is(err, domain.ErrInvalidProductName),
		errors.Is(err, domain.ErrInvalidPrice):
		return http.StatusBadRequest, "invalid request"
	default:
		return handleAuditError(err)
	}
}

func (s *productServer) ListProducts(c echo.Context) error {
	var categoryID *string
	if v := c.QueryParam("category_id"); v != "" {
		categoryID = &v
	}
	limit, offset := pageParams(c)

	products, err := s.productService.ListProducts(c.Request().Context(), categoryID, c.QueryParam("only_active") == "true", limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to list products")
		return respondError(c, err, handleProductError)
	}
	return c.JSON(http.StatusOK, products)
}

func (s *productServer) GetProductByID(c echo.Context) error {
	id := c.Param("id")

	product, err := s.productService.GetProductByID(c.Request().Context(), id)
	if err != nil {
		log.WithError(err).WithField("product_id", id).Warn("Failed to get product")
		return respondError(c, err, handleProductError)
	}
	return c.JSON(http.StatusOK, product)
}

func (s *productServer) GetProductBySlug(c echo.Context) error {
	slug := c.Param("slug")

	product, err := s.productService.GetProductBySlug(c.Request().Context(), slug)
	if err != nil {
		log.WithError(err).WithField("slug", slug).Warn("Failed to get product by slug")
		return respondError(c, err, handleProductError)
	}
	return c.JSON(http.StatusOK, product)
}

func (s *productServer) CreateProduct(c echo.Context) error {
	ec, err := executionContext(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var req domain.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	product, err := s.productService.CreateProduct(c.Request().Context(), ec, req)
	if err != nil {
		log.WithError(err).WithField("slug", req.Slug).Error("Failed to create product")
		return respondError(c, err, handleProductError)
	}
	return c.JSON(http.StatusCreated, product)
}

func (s *productServer) UpdateProduct(c echo.Context) error {
	id := c.Param("id")

	ec, err := executionContext(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	var req domain.UpdateProductRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	product, err := s.productService.UpdateProduct(c.Request().Context(), ec, id, req)
	if err != nil {
		log.WithError(err).WithField("product_id", id).Error("Failed to update product")
		return respondError(c, err, handleProductError)
	}
	return c.JSON(http.StatusOK, product)
}

func (s *productServer) DeleteProduct(c echo.Context) error {
	id := c.Param("id")

	ec, err := executionContext(c)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, err.Error())
	}

	if err := s.productService.DeleteProduct(c.Request().Context(), ec, id); err != nil {
		log.WithError(err).WithField("product_id", id).Error("Failed to delete product")
		return respondError(c, err, handleProductError)
	}
	return c.NoContent(http.StatusNoContent)
}

// ProductAuditTrail serves GET /api/products/:id/audit-trail.
func (s *productServer) ProductAuditTrail(c echo.Context) error {
	id := c.Param("id")
	limit, offset := pageParams(c)

	entries, err := s.productService.AuditTrail(c.Request().Context(), id, limit, offset)
	if err != nil {
		log.WithError(err).WithField("product_id", id).Error("Failed to get product audit trail")
		return respondError(c, err, handleProductError)
	}
	return c.JSON(http.StatusOK, entries)
}
