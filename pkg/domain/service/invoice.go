package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/pkg/common/domain"
	"storefront/pkg/domain/model"
)

const invoicePaymentTerm = 14 * 24 * time.Hour

type InvoiceService interface {
	// IssueForOrder returns the existing invoice of the order or issues a new unpaid one.
	IssueForOrder(ctx context.Context, order *model.Order) (*model.Invoice, error)
	MarkPaidForOrder(ctx context.Context, orderID uuid.UUID) error
	CancelForOrder(ctx context.Context, orderID uuid.UUID) error
	GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*model.Invoice, error)
	ListUserInvoices(ctx context.Context, userID uuid.UUID) ([]model.Invoice, error)
	MarkOverdue(ctx context.Context) (int64, error)
}

func NewInvoiceService(repo model.InvoiceRepository, settings SettingsService, dispatcher domain.EventDispatcher) InvoiceService {
	return &invoiceService{repo: repo, settings: settings, dispatcher: dispatcher}
}

type invoiceService struct {
	repo       model.InvoiceRepository
	settings   SettingsService
	dispatcher domain.EventDispatcher
}

func (s *invoiceService) IssueForOrder(ctx context.Context, order *model.Order) (*model.Invoice, error) {
	existing, err := s.repo.FindByOrder(ctx, order.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, model.ErrInvoiceNotFound) {
		return nil, err
	}

	rate, err := s.settings.TaxRate(ctx)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	taxCents := computeTax(order.TotalCents, rate)
	invoice := &model.Invoice{
		ID:            id,
		Number:        invoiceNumber(order, now),
		OrderID:       order.ID,
		UserID:        order.UserID,
		SubtotalCents: order.TotalCents,
		TaxRate:       rate,
		TaxCents:      taxCents,
		TotalCents:    order.TotalCents + taxCents,
		Currency:      order.Currency,
		Status:        model.InvoiceUnpaid,
		IssuedAt:      now,
		DueAt:         now.Add(invoicePaymentTerm),
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, invoice); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(model.InvoiceIssued{InvoiceID: id, OrderID: order.ID, Number: invoice.Number, TotalCents: invoice.TotalCents})
	return invoice, nil
}

func (s *invoiceService) MarkPaidForOrder(ctx context.Context, orderID uuid.UUID) error {
	invoice, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if invoice.Status == model.InvoicePaid {
		return nil
	}
	now := time.Now().UTC()
	invoice.Status = model.InvoicePaid
	invoice.PaidAt = &now
	invoice.UpdatedAt = now
	return s.repo.Update(ctx, invoice)
}

func (s *invoiceService) CancelForOrder(ctx context.Context, orderID uuid.UUID) error {
	invoice, err := s.repo.FindByOrder(ctx, orderID)
	if errors.Is(err, model.ErrInvoiceNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if invoice.Status == model.InvoiceCancelled {
		return nil
	}
	invoice.Status = model.InvoiceCancelled
	invoice.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, invoice)
}

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (*model.Invoice, error) {
	return s.repo.Find(ctx, invoiceID)
}

func (s *invoiceService) ListUserInvoices(ctx context.Context, userID uuid.UUID) ([]model.Invoice, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *invoiceService) MarkOverdue(ctx context.Context) (int64, error) {
	return s.repo.MarkOverdue(ctx, time.Now().UTC())
}

// computeTax rounds half away from zero to whole cents.
func computeTax(subtotalCents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(subtotalCents).Mul(rate).Round(0).IntPart()
}

// invoiceNumber reuses the random suffix of the order number: INV-YYYYMM-XXXXXX.
func invoiceNumber(order *model.Order, at time.Time) string {
	suffix := order.Number
	if i := strings.LastIndex(suffix, "-"); i >= 0 {
		suffix = suffix[i+1:]
	}
	return "INV-" + at.Format("200601") + "-" + suffix
}
