package mysql

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

type categoryRepository struct {
	db *sqlx.DB
}

func NewCategoryRepository(db *sqlx.DB) model.CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) NextID() (uuid.UUID, error) {
	return nextID()
}

func (r *categoryRepository) Create(ctx context.Context, category *model.Category) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO categories (id, parent_id, name, slug, created_at)
		VALUES (:id, :parent_id, :name, :slug, :created_at)`,
		category)
	if isDuplicate(err) {
		return model.ErrCategoryExists
	}
	return errors.Wrap(err, "insert category")
}

func (r *categoryRepository) Find(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	return r.findBy(ctx, "id", id)
}

func (r *categoryRepository) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	return r.findBy(ctx, "slug", slug)
}

func (r *categoryRepository) List(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	err := r.db.SelectContext(ctx, &categories,
		`SELECT id, parent_id, name, slug, created_at FROM categories ORDER BY name`)
	return categories, errors.Wrap(err, "list categories")
}

func (r *categoryRepository) findBy(ctx context.Context, column string, value interface{}) (*model.Category, error) {
	var category model.Category
	err := r.db.GetContext(ctx, &category,
		`SELECT id, parent_id, name, slug, created_at FROM categories WHERE `+column+` = ?`, value)
	if isNoRows(err) {
		return nil, model.ErrCategoryNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find category")
	}
	return &category, nil
}

type productRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) model.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) NextID() (uuid.UUID, error) {
	return nextID()
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO products (id, vendor_id, category_id, name, description, price_cents,
			stock_quantity, status, version, created_at, updated_at)
		VALUES (:id, :vendor_id, :category_id, :name, :description, :price_cents,
			:stock_quantity, :status, :version, :created_at, :updated_at)`,
		product)
	return errors.Wrap(err, "insert product")
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE products SET category_id = :category_id, name = :name, description = :description,
			price_cents = :price_cents, stock_quantity = :stock_quantity, status = :status,
			version = :version, updated_at = :updated_at
		WHERE id = :id AND version = :version - 1`,
		product)
	if err != nil {
		return errors.Wrap(err, "update product")
	}
	return expectRow(res, model.ErrOptimisticLock)
}

func (r *productRepository) Find(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := r.db.GetContext(ctx, &product, `
		SELECT id, vendor_id, category_id, name, description, price_cents, stock_quantity,
			status, version, created_at, updated_at
		FROM products WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, model.ErrProductNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find product")
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter model.CatalogFilter) ([]model.Product, error) {
	where, args := catalogWhere(filter, string(model.ProductActive))
	var products []model.Product
	err := r.db.SelectContext(ctx, &products, `
		SELECT id, vendor_id, category_id, name, description, price_cents, stock_quantity,
			status, version, created_at, updated_at
		FROM products`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, filter.Limit, filter.Offset)...)
	return products, errors.Wrap(err, "list products")
}

type serviceRepository struct {
	db *sqlx.DB
}

func NewServiceRepository(db *sqlx.DB) model.ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) NextID() (uuid.UUID, error) {
	return nextID()
}

func (r *serviceRepository) Create(ctx context.Context, service *model.Service) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO services (id, vendor_id, category_id, name, description, price_cents,
			delivery_days, status, created_at, updated_at)
		VALUES (:id, :vendor_id, :category_id, :name, :description, :price_cents,
			:delivery_days, :status, :created_at, :updated_at)`,
		service)
	return errors.Wrap(err, "insert service")
}

func (r *serviceRepository) Update(ctx context.Context, service *model.Service) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE services SET category_id = :category_id, name = :name, description = :description,
			price_cents = :price_cents, delivery_days = :delivery_days, status = :status,
			updated_at = :updated_at
		WHERE id = :id`,
		service)
	if err != nil {
		return errors.Wrap(err, "update service")
	}
	return expectRow(res, model.ErrServiceNotFound)
}

func (r *serviceRepository) Find(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	var service model.Service
	err := r.db.GetContext(ctx, &service, `
		SELECT id, vendor_id, category_id, name, description, price_cents, delivery_days,
			status, created_at, updated_at
		FROM services WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, model.ErrServiceNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find service")
	}
	return &service, nil
}

func (r *serviceRepository) List(ctx context.Context, filter model.CatalogFilter) ([]model.Service, error) {
	where, args := catalogWhere(filter, string(model.ServiceActive))
	var services []model.Service
	err := r.db.SelectContext(ctx, &services, `
		SELECT id, vendor_id, category_id, name, description, price_cents, delivery_days,
			status, created_at, updated_at
		FROM services`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, filter.Limit, filter.Offset)...)
	return services, errors.Wrap(err, "list services")
}

func catalogWhere(filter model.CatalogFilter, activeStatus string) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.CategoryID != nil {
		conditions = append(conditions, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.VendorID != nil {
		conditions = append(conditions, "vendor_id = ?")
		args = append(args, *filter.VendorID)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "status = ?")
		args = append(args, activeStatus)
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
