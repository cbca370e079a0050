package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/pkg/common/domain"
	"storefront/pkg/domain/model"
)

var (
	ErrInvalidStockQuantity = errors.New("stock quantity must be a positive number")
	ErrProductNotAvailable  = errors.New("operation cannot be performed on an unavailable or archived product")
	ErrNegativePrice        = errors.New("price cannot be negative")
	ErrNameRequired         = errors.New("name is required")
)

type ProductInput struct {
	VendorID     uuid.UUID
	CategoryID   uuid.UUID
	Name         string
	Description  string
	PriceCents   int64
	InitialStock int
}

type ServiceInput struct {
	VendorID     uuid.UUID
	CategoryID   uuid.UUID
	Name         string
	Description  string
	PriceCents   int64
	DeliveryDays int
}

type CatalogService interface {
	CreateCategory(ctx context.Context, name string, parentID *uuid.UUID) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)

	CreateProduct(ctx context.Context, input ProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, filter model.CatalogFilter) ([]model.Product, error)
	ChangeProductPrice(ctx context.Context, productID uuid.UUID, newPriceCents int64) error
	ReceiveStock(ctx context.Context, productID uuid.UUID, quantity int) error
	ReserveStock(ctx context.Context, productID uuid.UUID, quantity int) error
	ArchiveProduct(ctx context.Context, productID uuid.UUID) error

	CreateService(ctx context.Context, input ServiceInput) (*model.Service, error)
	GetService(ctx context.Context, serviceID uuid.UUID) (*model.Service, error)
	ListServices(ctx context.Context, filter model.CatalogFilter) ([]model.Service, error)
	DeactivateService(ctx context.Context, serviceID uuid.UUID) error
}

func NewCatalogService(
	categories model.CategoryRepository,
	products model.ProductRepository,
	services model.ServiceRepository,
	dispatcher domain.EventDispatcher,
) CatalogService {
	return &catalogService{categories: categories, products: products, services: services, dispatcher: dispatcher}
}

type catalogService struct {
	categories model.CategoryRepository
	products   model.ProductRepository
	services   model.ServiceRepository
	dispatcher domain.EventDispatcher
}

func (s *catalogService) CreateCategory(ctx context.Context, name string, parentID *uuid.UUID) (*model.Category, error) {
	name = strings.TrimSpace(name)
	slug := slugify(name)
	if slug == "" {
		return nil, ErrNameRequired
	}

	if _, err := s.categories.FindBySlug(ctx, slug); err == nil {
		return nil, model.ErrCategoryExists
	} else if !errors.Is(err, model.ErrCategoryNotFound) {
		return nil, err
	}

	if parentID != nil {
		if _, err := s.categories.Find(ctx, *parentID); err != nil {
			return nil, err
		}
	}

	id, err := s.categories.NextID()
	if err != nil {
		return nil, err
	}
	category := &model.Category{
		ID:        id,
		ParentID:  parentID,
		Name:      name,
		Slug:      slug,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categories.List(ctx)
}

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*model.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrNameRequired
	}
	if input.PriceCents < 0 {
		return nil, ErrNegativePrice
	}
	if input.InitialStock < 0 {
		return nil, ErrInvalidStockQuantity
	}
	if _, err := s.categories.Find(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	productID, err := s.products.NextID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &model.Product{
		ID:            productID,
		VendorID:      input.VendorID,
		CategoryID:    input.CategoryID,
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		PriceCents:    input.PriceCents,
		StockQuantity: input.InitialStock,
		Status:        model.ProductActive,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.ProductCreated{ProductID: productID, VendorID: input.VendorID, Name: product.Name})
	return product, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID uuid.UUID) (*model.Product, error) {
	return s.products.Find(ctx, productID)
}

func (s *catalogService) ListProducts(ctx context.Context, filter model.CatalogFilter) ([]model.Product, error) {
	return s.products.List(ctx, normalizeFilter(filter))
}

func (s *catalogService) ChangeProductPrice(ctx context.Context, productID uuid.UUID, newPriceCents int64) error {
	if newPriceCents < 0 {
		return ErrNegativePrice
	}
	product, err := s.products.Find(ctx, productID)
	if err != nil {
		return err
	}
	if product.Status == model.ProductArchived {
		return ErrProductNotAvailable
	}

	oldPrice := product.PriceCents
	product.PriceCents = newPriceCents

	if err := s.updateProduct(ctx, product); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.ProductPriceChanged{
		ProductID:     productID,
		OldPriceCents: oldPrice,
		NewPriceCents: newPriceCents,
	})
	return nil
}

func (s *catalogService) ReceiveStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidStockQuantity
	}
	return s.changeStock(ctx, productID, quantity)
}

func (s *catalogService) ReserveStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidStockQuantity
	}
	return s.changeStock(ctx, productID, -quantity)
}

func (s *catalogService) ArchiveProduct(ctx context.Context, productID uuid.UUID) error {
	product, err := s.products.Find(ctx, productID)
	if err != nil {
		return err
	}
	if product.Status == model.ProductArchived {
		return nil
	}

	product.Status = model.ProductArchived

	if err := s.updateProduct(ctx, product); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.ProductArchivedEvent{ProductID: productID})
	return nil
}

func (s *catalogService) changeStock(ctx context.Context, productID uuid.UUID, amount int) error {
	product, err := s.products.Find(ctx, productID)
	if err != nil {
		return err
	}
	if product.Status != model.ProductActive {
		return ErrProductNotAvailable
	}
	if product.StockQuantity+amount < 0 {
		return model.ErrInsufficientStock
	}

	product.StockQuantity += amount

	if err := s.updateProduct(ctx, product); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.ProductStockChanged{
		ProductID:    productID,
		ChangeAmount: amount,
		NewQuantity:  product.StockQuantity,
	})
	return nil
}

func (s *catalogService) updateProduct(ctx context.Context, product *model.Product) error {
	product.Version++
	product.UpdatedAt = time.Now().UTC()
	return s.products.Update(ctx, product)
}

func (s *catalogService) CreateService(ctx context.Context, input ServiceInput) (*model.Service, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, ErrNameRequired
	}
	if input.PriceCents < 0 {
		return nil, ErrNegativePrice
	}
	if _, err := s.categories.Find(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	serviceID, err := s.services.NextID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	svc := &model.Service{
		ID:           serviceID,
		VendorID:     input.VendorID,
		CategoryID:   input.CategoryID,
		Name:         strings.TrimSpace(input.Name),
		Description:  input.Description,
		PriceCents:   input.PriceCents,
		DeliveryDays: input.DeliveryDays,
		Status:       model.ServiceActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.services.Create(ctx, svc); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.ServiceCreated{ServiceID: serviceID, VendorID: input.VendorID, Name: svc.Name})
	return svc, nil
}

func (s *catalogService) GetService(ctx context.Context, serviceID uuid.UUID) (*model.Service, error) {
	return s.services.Find(ctx, serviceID)
}

func (s *catalogService) ListServices(ctx context.Context, filter model.CatalogFilter) ([]model.Service, error) {
	return s.services.List(ctx, normalizeFilter(filter))
}

func (s *catalogService) DeactivateService(ctx context.Context, serviceID uuid.UUID) error {
	svc, err := s.services.Find(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.Status == model.ServiceInactive {
		return nil
	}
	svc.Status = model.ServiceInactive
	svc.UpdatedAt = time.Now().UTC()
	return s.services.Update(ctx, svc)
}

func normalizeFilter(filter model.CatalogFilter) model.CatalogFilter {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}
