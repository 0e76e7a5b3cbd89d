package domain

import (
	"errors"
	"strings"
	"time"
)

const (
	maxProductNameLength = 200
	maxProductSlugLength = 50
	minProductPrice      = 1
	maxProductPrice      = 1_000_000_000
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductSlugExists  = errors.New("product slug already exists")
	ErrInvalidProductSlug = errors.New("invalid product slug")
	ErrInvalidProductName = errors.New("invalid product name")
	ErrInvalidPrice       = errors.New("invalid product price")
	ErrProductInactive    = errors.New("product is inactive")
)

// ProductSubjectType is the audit subject type of products.
const ProductSubjectType = "product"

var productFields = []string{
	"id", "category_id", "slug", "name", "description",
	"price_coins", "metadata", "is_active", "created_at", "updated_at",
}

type Product struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"category_id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCoins  int64     `json:"price_coins"`
	Metadata    string    `json:"metadata,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateProductRequest struct {
	CategoryID  string `json:"category_id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCoins  int64  `json:"price_coins"`
	Metadata    string `json:"metadata,omitempty"`
	IsActive    bool   `json:"is_active"`
}

type UpdateProductRequest struct {
	CategoryID  *string `json:"category_id,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	PriceCoins  *int64  `json:"price_coins,omitempty"`
	Metadata    *string `json:"metadata,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func ValidateProductSlug(slug string) error {
	if slug == "" || len(slug) > maxProductSlugLength {
		return ErrInvalidProductSlug
	}
	if strings.ContainsAny(slug, " ") {
		return ErrInvalidProductSlug
	}
	return nil
}

func ValidateProductName(name string) error {
	if name == "" || len(name) > maxProductNameLength {
		return ErrInvalidProductName
	}
	return nil
}

func ValidateProductPrice(price int64) error {
	if price < minProductPrice || price > maxProductPrice {
		return ErrInvalidPrice
	}
	return nil
}

func (p *Product) SubjectType() string { return ProductSubjectType }

func (p *Product) Fields() []string { return append([]string(nil), productFields...) }

func (p *Product) PrimaryKey() []string { return []string{"id"} }

func (p *Product) Attribute(name string) Value {
	switch name {
	case "id":
		return String(p.ID)
	case "category_id":
		return String(p.CategoryID)
	case "slug":
		return String(p.Slug)
	case "name":
		return String(p.Name)
	case "description":
		return String(p.Description)
	case "price_coins":
		return Int(p.PriceCoins)
	case "metadata":
		return String(p.Metadata)
	case "is_active":
		return Bool(p.IsActive)
	case "created_at":
		return timeValue(p.CreatedAt)
	case "updated_at":
		return timeValue(p.UpdatedAt)
	default:
		return Null()
	}
}

// Snapshot returns the values of the given fields, in order.
func (p *Product) Snapshot(fields []string) Attributes {
	var a Attributes
	for _, f := range fields {
		a.Set(f, p.Attribute(f))
	}
	return a
}

// ChangedFields lists the columns an update request touches, in column order.
func (req UpdateProductRequest) ChangedFields() []string {
	var fields []string
	if req.CategoryID != nil {
		fields = append(fields, "category_id")
	}
	if req.Name != nil {
		fields = append(fields, "name")
	}
	if req.Description != nil {
		fields = append(fields, "description")
	}
	if req.PriceCoins != nil {
		fields = append(fields, "price_coins")
	}
	if req.Metadata != nil {
		fields = append(fields, "metadata")
	}
	if req.IsActive != nil {
		fields = append(fields, "is_active")
	}
	return fields
}
