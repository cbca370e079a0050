package transport

import (
	"net/http"

	"github.com/google/uuid"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/infrastructure/auth"
)

type categoryRequest struct {
	Name     string     `json:"name" validate:"required,max=255"`
	ParentID *uuid.UUID `json:"parent_id"`
}

type productRequest struct {
	CategoryID   uuid.UUID `json:"category_id" validate:"required"`
	Name         string    `json:"name" validate:"required,max=255"`
	Description  string    `json:"description"`
	PriceCents   int64     `json:"price_cents" validate:"gte=0"`
	InitialStock int       `json:"initial_stock" validate:"gte=0"`
}

type serviceRequest struct {
	CategoryID   uuid.UUID `json:"category_id" validate:"required"`
	Name         string    `json:"name" validate:"required,max=255"`
	Description  string    `json:"description"`
	PriceCents   int64     `json:"price_cents" validate:"gte=0"`
	DeliveryDays int       `json:"delivery_days" validate:"gte=0"`
}

type priceRequest struct {
	PriceCents int64 `json:"price_cents" validate:"gte=0"`
}

type stockRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Catalog.ListCategories(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", categories)
}

func (h *handler) createCategory(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	category, err := h.Catalog.CreateCategory(r.Context(), req.Name, req.ParentID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, "category created", category)
}

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := catalogFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	products, err := h.Catalog.ListProducts(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", products)
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	product, err := h.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", product)
}

func (h *handler) createProduct(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	product, err := h.Catalog.CreateProduct(r.Context(), service.ProductInput{
		VendorID:     identity.UserID,
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Description:  req.Description,
		PriceCents:   req.PriceCents,
		InitialStock: req.InitialStock,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, "product created", product)
}

func (h *handler) changeProductPrice(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	product, ok := h.ownedProduct(w, r, identity)
	if !ok {
		return
	}
	var req priceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Catalog.ChangeProductPrice(r.Context(), product.ID, req.PriceCents); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "price updated", nil)
}

func (h *handler) receiveStock(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	product, ok := h.ownedProduct(w, r, identity)
	if !ok {
		return
	}
	var req stockRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.Catalog.ReceiveStock(r.Context(), product.ID, req.Quantity); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "stock received", nil)
}

func (h *handler) archiveProduct(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	product, ok := h.ownedProduct(w, r, identity)
	if !ok {
		return
	}
	if err := h.Catalog.ArchiveProduct(r.Context(), product.ID); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "product archived", nil)
}

// ownedProduct loads the product in the path and checks the caller may manage it.
func (h *handler) ownedProduct(w http.ResponseWriter, r *http.Request, identity auth.Identity) (*model.Product, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	product, err := h.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return nil, false
	}
	if product.VendorID != identity.UserID && identity.Role != model.RoleAdmin {
		respondError(w, r, model.ErrPermissionDenied)
		return nil, false
	}
	return product, true
}

func (h *handler) listServices(w http.ResponseWriter, r *http.Request) {
	filter, err := catalogFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	services, err := h.Catalog.ListServices(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", services)
}

func (h *handler) getService(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	svc, err := h.Catalog.GetService(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "", svc)
}

func (h *handler) createService(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	var req serviceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	svc, err := h.Catalog.CreateService(r.Context(), service.ServiceInput{
		VendorID:     identity.UserID,
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Description:  req.Description,
		PriceCents:   req.PriceCents,
		DeliveryDays: req.DeliveryDays,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, "service created", svc)
}

func (h *handler) deactivateService(w http.ResponseWriter, r *http.Request, identity auth.Identity) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	svc, err := h.Catalog.GetService(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if svc.VendorID != identity.UserID && identity.Role != model.RoleAdmin {
		respondError(w, r, model.ErrPermissionDenied)
		return
	}
	if err := h.Catalog.DeactivateService(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "service deactivated", nil)
}

func catalogFilter(r *http.Request) (model.CatalogFilter, error) {
	categoryID, err := queryID(r, "category_id")
	if err != nil {
		return model.CatalogFilter{}, err
	}
	vendorID, err := queryID(r, "vendor_id")
	if err != nil {
		return model.CatalogFilter{}, err
	}
	return model.CatalogFilter{
		CategoryID: categoryID,
		VendorID:   vendorID,
		ActiveOnly: r.URL.Query().Get("all") != "1",
		Limit:      queryInt(r, "limit", 0),
		Offset:     queryInt(r, "offset", 0),
	}, nil
}
