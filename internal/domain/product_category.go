package domain

import (
	"errors"
	"strings"
	"time"
)

const (
	maxCategoryNameLength = 100
	maxCategorySlugLength = 50
)

var (
	ErrCategoryNotFound    = errors.New("product category not found")
	ErrCategorySlugExists  = errors.New("product category slug already exists")
	ErrInvalidCategorySlug = errors.New("invalid product category slug")
	ErrInvalidCategoryName = errors.New("invalid product category name")
	ErrCategoryInUse       = errors.New("product category still has products")
)

// CategorySubjectType is the audit subject type of product categories.
const CategorySubjectType = "product_category"

var categoryFields = []string{
	"id", "slug", "name", "description", "position", "is_active", "created_at", "updated_at",
}

type ProductCategory struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateCategoryRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Position    int    `json:"position"`
	IsActive    bool   `json:"is_active"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Position    *int    `json:"position,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func ValidateCategorySlug(slug string) error {
	if slug == "" || len(slug) > maxCategorySlugLength {
		return ErrInvalidCategorySlug
	}
	if strings.ContainsAny(slug, " ") {
		return ErrInvalidCategorySlug
	}
	return nil
}

func ValidateCategoryName(name string) error {
	if name == "" || len(name) > maxCategoryNameLength {
		return ErrInvalidCategoryName
	}
	return nil
}

func (c *ProductCategory) SubjectType() string { return CategorySubjectType }

func (c *ProductCategory) Fields() []string { return append([]string(nil), categoryFields...) }

func (c *ProductCategory) PrimaryKey() []string { return []string{"id"} }

func (c *ProductCategory) Attribute(name string) Value {
	switch name {
	case "id":
		return String(c.ID)
	case "slug":
		return String(c.Slug)
	case "name":
		return String(c.Name)
	case "description":
		return String(c.Description)
	case "position":
		return Int(int64(c.Position))
	case "is_active":
		return Bool(c.IsActive)
	case "created_at":
		return timeValue(c.CreatedAt)
	case "updated_at":
		return timeValue(c.UpdatedAt)
	default:
		return Null()
	}
}

func (c *ProductCategory) Snapshot(fields []string) Attributes {
	var a Attributes
	for _, f := range fields {
		a.Set(f, c.Attribute(f))
	}
	return a
}

func (req UpdateCategoryRequest) ChangedFields() []string {
	var fields []string
	if req.Name != nil {
		fields = append(fields, "name")
	}
	if req.Description != nil {
		fields = append(fields, "description")
	}
	if req.Position != nil {
		fields = append(fields, "position")
	}
	if req.IsActive != nil {
		fields = append(fields, "is_active")
	}
	return fields
}
