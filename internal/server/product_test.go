package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"audit-trail-service/internal/domain"
	"audit-trail-service/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProductService struct {
	mock.Mock
}

func (m *mockProductService) ListProducts(ctx context.Context, categoryID *string, onlyActive bool, limit, offset int) ([]domain.Product, error) {
	args := m.Called(ctx, categoryID, onlyActive, limit, offset)
	products, _ := args.Get(0).([]domain.Product)
	return products, args.Error(1)
}

func (m *mockProductService) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(*domain.Product)
	return product, args.Error(1)
}

func (m *mockProductService) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	product, _ := args.Get(0).(*domain.Product)
	return product, args.Error(1)
}

func (m *mockProductService) CreateProduct(ctx context.Context, ec service.ExecutionContext, req domain.CreateProductRequest) (*domain.Product, error) {
	args := m.Called(ctx, ec, req)
	product, _ := args.Get(0).(*domain.Product)
	return product, args.Error(1)
}

func (m *mockProductService) UpdateProduct(ctx context.Context, ec service.ExecutionContext, id string, req domain.UpdateProductRequest) (*domain.Product, error) {
	args := m.Called(ctx, ec, id, req)
	product, _ := args.Get(0).(*domain.Product)
	return product, args.Error(1)
}

func (m *mockProductService) DeleteProduct(ctx context.Context, ec service.ExecutionContext, id string) error {
	args := m.Called(ctx, ec, id)
	return args.Error(0)
}

func (m *mockProductService) AuditTrail(ctx context.Context, id string, limit, offset int) ([]*domain.AuditEntry, error) {
	args := m.Called(ctx, id, limit, offset)
	entries, _ := args.Get(0).([]*domain.AuditEntry)
	return entries, args.Error(1)
}

func jsonRequest(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func actorIs(id int64) interface{} {
	return mock.MatchedBy(func(ec service.ExecutionContext) bool {
		return !ec.System && ec.ActorID != nil && *ec.ActorID == id
	})
}

func TestCreateProduct_PassesActor(t *testing.T) {
	svc := new(mockProductService)
	srv := NewProductServer(svc)

	req := domain.CreateProductRequest{CategoryID: "c", Slug: "widget", Name: "Widget", PriceCoins: 5}
	svc.On("CreateProduct", mock.Anything, actorIs(42), req).
		Return(&domain.Product{ID: "p", Slug: "widget"}, nil).Once()

	c, rec := jsonRequest(http.MethodPost, "/api/products",
		`{"category_id":"c","slug":"widget","name":"Widget","price_coins":5}`)
	c.Request().Header.Set(ActorHeader, "42")

	require.NoError(t, srv.CreateProduct(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreateProduct_RejectsBadActorHeader(t *testing.T) {
	svc := new(mockProductService)
	srv := NewProductServer(svc)

	c, rec := jsonRequest(http.MethodPost, "/api/products", `{}`)
	c.Request().Header.Set(ActorHeader, "alice")

	require.NoError(t, srv.CreateProduct(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), ActorHeader)
	svc.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateProduct_SlugConflict(t *testing.T) {
	svc := new(mockProductService)
	srv := NewProductServer(svc)

	svc.On("CreateProduct", mock.Anything, service.Anonymous(), mock.Anything).
		Return(nil, domain.ErrProductSlugExists).Once()

	c, rec := jsonRequest(http.MethodPost, "/api/products", `{"slug":"widget"}`)
	require.NoError(t, srv.CreateProduct(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteProduct_AsSystem(t *testing.T) {
	svc := new(mockProductService)
	srv := NewProductServer(svc)

	svc.On("DeleteProduct", mock.Anything, service.AsSystem(), "p-1").Return(nil).Once()

	c, rec := jsonRequest(http.MethodDelete, "/api/products/p-1", "")
	c.SetParamNames("id")
	c.SetParamValues("p-1")
	c.Request().Header.Set(ActorHeader, "system")

	require.NoError(t, srv.DeleteProduct(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestProductAuditTrail(t *testing.T) {
	svc := new(mockProductService)
	srv := NewProductServer(svc)

	svc.On("AuditTrail", mock.Anything, "p-1", 5, 0).
		Return([]*domain.AuditEntry{{ID: 1, SubjectType: "product", Kind: domain.AuditDelete}}, nil).Once()
	svc.On("AuditTrail", mock.Anything, "bad", defaultPageLimit, 0).
		Return(nil, domain.ErrInvalidUUID).Once()

	c, rec := get("/api/products/p-1/audit-trail?limit=5")
	c.SetParamNames("id")
	c.SetParamValues("p-1")
	require.NoError(t, srv.ProductAuditTrail(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = get("/api/products/bad/audit-trail")
	c.SetParamNames("id")
	c.SetParamValues("bad")
	require.NoError(t, srv.ProductAuditTrail(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}
