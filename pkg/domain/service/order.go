package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/domain"
	"storefront/pkg/domain/model"
)

var (
	ErrOrderCannotBeModified = errors.New("order cannot be modified in its current state")
	ErrOrderIsEmpty          = errors.New("cannot process an empty order")
	ErrInvalidQuantity       = errors.New("quantity must be a positive number")
	ErrInvalidItemType       = errors.New("unknown order item type")
	ErrItemNotAvailable      = errors.New("item is not available for ordering")
	ErrInvalidTransition     = errors.New("order status transition is not allowed")
)

type OrderLine struct {
	ItemType model.ItemType
	ItemID   uuid.UUID
	Quantity int
}

type OrderService interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, lines []OrderLine, notes string) (*model.Order, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) error
	CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) error
}

func NewOrderService(
	repo model.OrderRepository,
	products model.ProductRepository,
	services model.ServiceRepository,
	quotes model.CustomServiceRepository,
	notifier NotificationService,
	dispatcher domain.EventDispatcher,
	currency string,
) OrderService {
	return &orderService{
		repo:       repo,
		products:   products,
		services:   services,
		quotes:     quotes,
		notifier:   notifier,
		dispatcher: dispatcher,
		currency:   currency,
	}
}

type orderService struct {
	repo       model.OrderRepository
	products   model.ProductRepository
	services   model.ServiceRepository
	quotes     model.CustomServiceRepository
	notifier   NotificationService
	dispatcher domain.EventDispatcher
	currency   string
}

func (s *orderService) CreateOrder(ctx context.Context, userID uuid.UUID, lines []OrderLine, notes string) (*model.Order, error) {
	if len(lines) == 0 {
		return nil, ErrOrderIsEmpty
	}

	orderID, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &model.Order{
		ID:            orderID,
		Number:        orderNumber(orderID, now),
		UserID:        userID,
		Status:        model.OrderPending,
		PaymentStatus: model.PaymentPending,
		Currency:      s.currency,
		Notes:         strings.TrimSpace(notes),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for _, line := range lines {
		item, err := s.resolveLine(ctx, userID, line, now)
		if err != nil {
			return nil, err
		}
		itemID, err := s.repo.NextID()
		if err != nil {
			return nil, err
		}
		item.ID = itemID
		item.OrderID = orderID
		order.Items = append(order.Items, *item)
	}
	s.recalculateTotal(order)

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}

	err = s.notifier.Notify(ctx, userID, NotificationMessage{
		Type:    model.NotificationOrder,
		Title:   "Order placed",
		Message: fmt.Sprintf("Your order %s has been placed.", order.Number),
		Link:    "/orders/" + orderID.String(),
	})
	if err != nil {
		log.WithError(err).WithField("order_id", orderID).Error("failed to notify about new order")
	}

	_ = s.dispatcher.Dispatch(model.OrderCreated{OrderID: orderID, UserID: userID, Number: order.Number, TotalCents: order.TotalCents})
	return order, nil
}

func (s *orderService) resolveLine(ctx context.Context, userID uuid.UUID, line OrderLine, now time.Time) (*model.OrderItem, error) {
	if line.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	item := &model.OrderItem{ItemType: line.ItemType, ItemID: line.ItemID, Quantity: line.Quantity}

	switch line.ItemType {
	case model.ItemProduct:
		product, err := s.products.Find(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		if product.Status != model.ProductActive {
			return nil, ErrItemNotAvailable
		}
		if product.StockQuantity < line.Quantity {
			return nil, model.ErrInsufficientStock
		}
		item.Name = product.Name
		item.UnitPriceCents = product.PriceCents
	case model.ItemService:
		svc, err := s.services.Find(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		if svc.Status != model.ServiceActive {
			return nil, ErrItemNotAvailable
		}
		item.Name = svc.Name
		item.UnitPriceCents = svc.PriceCents
	case model.ItemCustomService:
		quote, err := s.quotes.Find(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		// A reserved quote is paid through the order holding it.
		if !quote.PayableBy(userID, now) || quote.OrderID != nil {
			return nil, model.ErrCustomServiceNotPayable
		}
		item.Name = quote.Title
		item.Quantity = 1
		item.UnitPriceCents = quote.PriceCents
	default:
		return nil, ErrInvalidItemType
	}

	item.TotalCents = item.UnitPriceCents * int64(item.Quantity)
	return item, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	return s.repo.Find(ctx, orderID)
}

func (s *orderService) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *orderService) ListOrders(ctx context.Context, limit, offset int) ([]model.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) error {
	if !status.Valid() {
		return ErrInvalidTransition
	}
	if status == model.OrderCancelled {
		return s.CancelOrder(ctx, orderID, "cancelled by staff")
	}

	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.Status.CanTransitionTo(status) {
		return ErrInvalidTransition
	}

	oldStatus := order.Status
	order.Status = status
	order.Version++
	order.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateStatus(ctx, order); err != nil {
		return err
	}

	err = s.notifier.Notify(ctx, order.UserID, NotificationMessage{
		Type:    model.NotificationOrder,
		Title:   "Order updated",
		Message: fmt.Sprintf("Your order %s is now %s.", order.Number, status),
		Link:    "/orders/" + orderID.String(),
	})
	if err != nil {
		log.WithError(err).WithField("order_id", orderID).Error("failed to notify about order status")
	}

	_ = s.dispatcher.Dispatch(model.OrderStatusChanged{OrderID: orderID, OldStatus: oldStatus, NewStatus: status})
	return nil
}

func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) error {
	order, err := s.repo.Find(ctx, orderID)
	if err != nil {
		return err
	}

	if !order.Status.CanTransitionTo(model.OrderCancelled) || order.PaymentStatus == model.PaymentPaid {
		return ErrOrderCannotBeModified
	}
	order.Status = model.OrderCancelled
	order.Version++
	order.UpdatedAt = time.Now().UTC()

	if err := s.repo.Cancel(ctx, order); err != nil {
		return err
	}

	_ = s.dispatcher.Dispatch(model.OrderCancelledEvent{OrderID: orderID, Reason: reason})
	return nil
}

func (s *orderService) recalculateTotal(order *model.Order) {
	var total int64
	for _, item := range order.Items {
		total += item.TotalCents
	}
	order.TotalCents = total
}

func orderNumber(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:6]))
}
