package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound  = errors.New("category not found")
	ErrCategoryExists    = errors.New("category with this slug already exists")
	ErrProductNotFound   = errors.New("product not found")
	ErrServiceNotFound   = errors.New("service not found")
	ErrInsufficientStock = errors.New("insufficient stock quantity")
	ErrOptimisticLock    = errors.New("record was modified by another transaction")
)

type Category struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	ParentID  *uuid.UUID `db:"parent_id" json:"parent_id"`
	Name      string     `db:"name" json:"name"`
	Slug      string     `db:"slug" json:"slug"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

type CategoryRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, category *Category) error
	Find(ctx context.Context, id uuid.UUID) (*Category, error)
	FindBySlug(ctx context.Context, slug string) (*Category, error)
	List(ctx context.Context) ([]Category, error)
}

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
	ProductArchived ProductStatus = "archived"
)

type Product struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	VendorID      uuid.UUID     `db:"vendor_id" json:"vendor_id"`
	CategoryID    uuid.UUID     `db:"category_id" json:"category_id"`
	Name          string        `db:"name" json:"name"`
	Description   string        `db:"description" json:"description"`
	PriceCents    int64         `db:"price_cents" json:"price_cents"`
	StockQuantity int           `db:"stock_quantity" json:"stock_quantity"`
	Status        ProductStatus `db:"status" json:"status"`
	Version       int           `db:"version" json:"version"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

type ServiceStatus string

const (
	ServiceActive   ServiceStatus = "active"
	ServiceInactive ServiceStatus = "inactive"
)

// Service is a vendor offering sold without stock, e.g. an installation job.
type Service struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	VendorID     uuid.UUID     `db:"vendor_id" json:"vendor_id"`
	CategoryID   uuid.UUID     `db:"category_id" json:"category_id"`
	Name         string        `db:"name" json:"name"`
	Description  string        `db:"description" json:"description"`
	PriceCents   int64         `db:"price_cents" json:"price_cents"`
	DeliveryDays int           `db:"delivery_days" json:"delivery_days"`
	Status       ServiceStatus `db:"status" json:"status"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

type CatalogFilter struct {
	CategoryID *uuid.UUID
	VendorID   *uuid.UUID
	ActiveOnly bool
	Limit      int
	Offset     int
}

type ProductRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, product *Product) error
	// Update expects product.Version to be the stored version plus one.
	Update(ctx context.Context, product *Product) error
	Find(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context, filter CatalogFilter) ([]Product, error)
}

type ServiceRepository interface {
	NextID() (uuid.UUID, error)
	Create(ctx context.Context, service *Service) error
	Update(ctx context.Context, service *Service) error
	Find(ctx context.Context, id uuid.UUID) (*Service, error)
	List(ctx context.Context, filter CatalogFilter) ([]Service, error)
}
