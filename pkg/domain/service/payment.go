package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/domain"
	"storefront/pkg/domain/model"
)

type PaymentResult struct {
	Payment      *model.Payment
	ClientSecret string
	RedirectURL  string
	Instructions string
}

// ProviderEvent is a provider notification reduced to what settles a payment.
type ProviderEvent struct {
	Method        model.PaymentMethod
	TransactionID string
	Succeeded     bool
	Reason        string
}

type WebhookOutcome string

const (
	OutcomeProcessed WebhookOutcome = "processed"
	OutcomeDuplicate WebhookOutcome = "duplicate"
	OutcomeIgnored   WebhookOutcome = "ignored"
	// OutcomeRejected means the money went back because the order could not take it.
	OutcomeRejected  WebhookOutcome = "rejected"
)

const settleAttempts = 3

var errPaymentSettled = errors.New("payment already settled")

type PaymentService interface {
	ProcessPayment(ctx context.Context, userID, orderID uuid.UUID, method model.PaymentMethod) (*PaymentResult, error)
	ConfirmPayment(ctx context.Context, paymentID, actorID uuid.UUID) error
	RefundPayment(ctx context.Context, paymentID, actorID uuid.UUID) error
	HandleProviderEvent(ctx context.Context, event ProviderEvent) (WebhookOutcome, error)
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*model.Payment, error)
	ListOrderPayments(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error)
}

func NewPaymentService(
	repo model.PaymentRepository,
	orders model.OrderRepository,
	quotes model.CustomServiceRepository,
	wallets WalletService,
	gateways map[model.PaymentMethod]model.PaymentGateway,
	invoices InvoiceService,
	notifier NotificationService,
	audit SystemLogService,
	dispatcher domain.EventDispatcher,
) PaymentService {
	return &paymentService{
		repo:       repo,
		orders:     orders,
		quotes:     quotes,
		wallets:    wallets,
		gateways:   gateways,
		invoices:   invoices,
		notifier:   notifier,
		audit:      audit,
		dispatcher: dispatcher,
	}
}

type paymentService struct {
	repo       model.PaymentRepository
	orders     model.OrderRepository
	quotes     model.CustomServiceRepository
	wallets    WalletService
	gateways   map[model.PaymentMethod]model.PaymentGateway
	invoices   InvoiceService
	notifier   NotificationService
	audit      SystemLogService
	dispatcher domain.EventDispatcher
}

func (s *paymentService) ProcessPayment(ctx context.Context, userID, orderID uuid.UUID, method model.PaymentMethod) (*PaymentResult, error) {
	if _, err := model.ParsePaymentMethod(string(method)); err != nil {
		return nil, err
	}

	order, err := s.orders.Find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, model.ErrOrderNotFound
	}
	if err := s.checkSettleable(ctx, order); err != nil {
		return nil, err
	}

	pending, err := s.openPayment(ctx, order.ID, method)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return s.resultFor(pending), nil
	}

	// The invoice fixes the amount due, tax included.
	invoice, err := s.invoices.IssueForOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	payment, err := s.newPayment(order, method, invoice.TotalCents)
	if err != nil {
		return nil, err
	}

	if payment.AmountCents == 0 {
		if err := s.repo.Create(ctx, payment); err != nil {
			return nil, err
		}
		if payment, err = s.settle(ctx, payment.ID); err != nil {
			return nil, err
		}
		return s.resultFor(payment), nil
	}

	switch method {
	case model.MethodWallet:
		if err := s.repo.Create(ctx, payment); err != nil {
			return nil, err
		}
		if err := s.wallets.Charge(ctx, userID, payment.ID, payment.AmountCents); err != nil {
			s.abandon(ctx, payment, order, err)
			return nil, err
		}
		if payment, err = s.settle(ctx, payment.ID); err != nil {
			return nil, err
		}
	case model.MethodStripe, model.MethodPayPal:
		gateway, ok := s.gateways[method]
		if !ok {
			return nil, model.ErrUnsupportedMethod
		}
		intent, err := gateway.CreateIntent(ctx, order, payment.AmountCents)
		if err != nil {
			return nil, err
		}
		payment.TransactionID = intent.TransactionID
		payment.ClientSecret = intent.ClientSecret
		if method == model.MethodPayPal {
			payment.ClientSecret = intent.RedirectURL
		}
		if err := s.startPending(ctx, payment, order); err != nil {
			return nil, err
		}
	case model.MethodBankTransfer:
		payment.TransactionID = "BT-" + order.Number
		if err := s.startPending(ctx, payment, order); err != nil {
			return nil, err
		}
	}

	return s.resultFor(payment), nil
}

func (s *paymentService) ConfirmPayment(ctx context.Context, paymentID, actorID uuid.UUID) error {
	payment, err := s.repo.Find(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.Status != model.ChargePending {
		return model.ErrPaymentNotPending
	}
	payment, err = s.settle(ctx, payment.ID)
	if errors.Is(err, errPaymentSettled) {
		return model.ErrPaymentNotPending
	}
	if err != nil {
		return err
	}

	s.audit.Record(ctx, model.LevelInfo, "payment.confirmed", &actorID,
		fmt.Sprintf("payment %s confirmed manually", payment.ID), map[string]interface{}{"order_id": payment.OrderID})
	return nil
}

func (s *paymentService) RefundPayment(ctx context.Context, paymentID, actorID uuid.UUID) error {
	payment, err := s.repo.Find(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.Status != model.ChargeCompleted {
		return model.ErrPaymentNotRefundable
	}
	order, err := s.orders.Find(ctx, payment.OrderID)
	if err != nil {
		return err
	}

	if err := s.returnFunds(ctx, payment); err != nil {
		return err
	}

	now := time.Now().UTC()
	payment.Status = model.ChargeRefunded
	payment.UpdatedAt = now
	order.PaymentStatus = model.PaymentRefunded
	order.Version++
	order.UpdatedAt = now

	if err := s.repo.SaveWithOrder(ctx, payment, model.ChargeCompleted, order); err != nil {
		return err
	}

	if err := s.invoices.CancelForOrder(ctx, order.ID); err != nil {
		log.WithError(err).WithField("order_id", order.ID).Error("failed to cancel invoice after refund")
	}
	s.notify(ctx, order.UserID, "Payment refunded",
		fmt.Sprintf("The payment for order %s has been refunded.", order.Number), order.ID)
	s.audit.Record(ctx, model.LevelInfo, "payment.refunded", &actorID,
		fmt.Sprintf("payment %s refunded", payment.ID), map[string]interface{}{"order_id": order.ID, "method": payment.Method})

	_ = s.dispatcher.Dispatch(model.PaymentRefundedEvent{PaymentID: payment.ID, OrderID: order.ID, AmountCents: payment.AmountCents})
	return nil
}

func (s *paymentService) HandleProviderEvent(ctx context.Context, event ProviderEvent) (WebhookOutcome, error) {
	payment, err := s.repo.FindByTransactionID(ctx, event.Method, event.TransactionID)
	if errors.Is(err, model.ErrPaymentNotFound) {
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", err
	}

	switch payment.Status {
	case model.ChargeCompleted, model.ChargeRefunded:
		return OutcomeDuplicate, nil
	case model.ChargeFailed:
		// Providers may retry a failed intent, only success moves it on.
		if !event.Succeeded {
			return OutcomeDuplicate, nil
		}
	}

	if !event.Succeeded {
		order, err := s.orders.Find(ctx, payment.OrderID)
		if err != nil {
			return "", err
		}
		if err := s.fail(ctx, payment, order, event.Reason); err != nil {
			return "", err
		}
		return OutcomeProcessed, nil
	}

	_, err = s.settle(ctx, payment.ID)
	switch {
	case errors.Is(err, errPaymentSettled):
		return OutcomeDuplicate, nil
	case errors.Is(err, model.ErrOrderNotPayable):
		return OutcomeRejected, nil
	case err != nil:
		return "", err
	}
	return OutcomeProcessed, nil
}

func (s *paymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*model.Payment, error) {
	return s.repo.Find(ctx, paymentID)
}

func (s *paymentService) ListOrderPayments(ctx context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

// checkSettleable rejects orders that are cancelled, already settled or hold a
// custom service no longer reserved for them.
func (s *paymentService) checkSettleable(ctx context.Context, order *model.Order) error {
	if order.Status == model.OrderCancelled || !order.PaymentStatus.AcceptsPayment() {
		return model.ErrOrderNotPayable
	}
	now := time.Now().UTC()
	for _, item := range order.Items {
		if item.ItemType != model.ItemCustomService {
			continue
		}
		quote, err := s.quotes.Find(ctx, item.ItemID)
		if errors.Is(err, model.ErrCustomServiceNotFound) {
			return model.ErrOrderNotPayable
		}
		if err != nil {
			return err
		}
		if !quote.ReservedFor(order.ID, now) {
			return model.ErrOrderNotPayable
		}
	}
	return nil
}

// openPayment hands back the pending payment of the same provider method. Pending
// provider and bank payments of other methods are superseded so only one stays open.
func (s *paymentService) openPayment(ctx context.Context, orderID uuid.UUID, method model.PaymentMethod) (*model.Payment, error) {
	payments, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	for i := range payments {
		p := &payments[i]
		if p.Status == model.ChargePending && p.Method == method && method != model.MethodWallet {
			return p, nil
		}
	}
	for i := range payments {
		p := &payments[i]
		// Wallet payments in flight settle or fail on their own.
		if p.Status != model.ChargePending || p.Method == model.MethodWallet {
			continue
		}
		err := s.markFailed(ctx, p, fmt.Sprintf("superseded by a %s payment", method))
		if err != nil && !errors.Is(err, model.ErrOptimisticLock) {
			return nil, err
		}
	}
	return nil, nil
}

func (s *paymentService) newPayment(order *model.Order, method model.PaymentMethod, amountCents int64) (*model.Payment, error) {
	id, err := s.repo.NextID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &model.Payment{
		ID:          id,
		OrderID:     order.ID,
		UserID:      order.UserID,
		Method:      method,
		AmountCents: amountCents,
		Currency:    order.Currency,
		Status:      model.ChargePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *paymentService) startPending(ctx context.Context, payment *model.Payment, order *model.Order) error {
	if err := s.repo.Create(ctx, payment); err != nil {
		return err
	}
	_ = s.dispatcher.Dispatch(model.PaymentInitiated{
		PaymentID: payment.ID, OrderID: order.ID, Method: payment.Method, TransactionID: payment.TransactionID,
	})
	return nil
}

// settle completes the payment against the current order, retrying when either moved
// concurrently. Money for an order that can no longer take it goes back and the
// result is ErrOrderNotPayable.
func (s *paymentService) settle(ctx context.Context, paymentID uuid.UUID) (*model.Payment, error) {
	for attempt := 1; ; attempt++ {
		payment, err := s.repo.Find(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		if payment.Status == model.ChargeCompleted || payment.Status == model.ChargeRefunded {
			return payment, errPaymentSettled
		}
		order, err := s.orders.Find(ctx, payment.OrderID)
		if err != nil {
			return nil, err
		}

		if err := s.checkSettleable(ctx, order); err != nil {
			if !errors.Is(err, model.ErrOrderNotPayable) {
				return nil, err
			}
			if err := s.reverse(ctx, payment, order); err != nil {
				return nil, err
			}
			return payment, model.ErrOrderNotPayable
		}

		err = s.complete(ctx, payment, order)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, model.ErrOptimisticLock) || attempt == settleAttempts {
			return nil, err
		}
		log.WithFields(log.Fields{"payment_id": paymentID, "attempt": attempt}).Warn("payment settlement raced, retrying")
	}
}

func (s *paymentService) complete(ctx context.Context, payment *model.Payment, order *model.Order) error {
	from := payment.Status
	now := time.Now().UTC()
	payment.Status = model.ChargeCompleted
	payment.FailureReason = ""
	payment.CompletedAt = &now
	payment.UpdatedAt = now
	order.PaymentStatus = model.PaymentPaid
	if order.Status == model.OrderPending {
		order.Status = model.OrderProcessing
	}
	order.Version++
	order.UpdatedAt = now

	if err := s.repo.SaveWithOrder(ctx, payment, from, order); err != nil {
		return err
	}

	for _, item := range order.Items {
		if item.ItemType != model.ItemCustomService {
			continue
		}
		if err := s.quotes.MarkPaid(ctx, item.ItemID, order.ID); err != nil {
			log.WithError(err).WithField("custom_service_id", item.ItemID).Error("failed to mark custom service paid")
		}
	}

	if _, err := s.invoices.IssueForOrder(ctx, order); err != nil {
		log.WithError(err).WithField("order_id", order.ID).Error("failed to issue invoice")
	} else if err := s.invoices.MarkPaidForOrder(ctx, order.ID); err != nil {
		log.WithError(err).WithField("order_id", order.ID).Error("failed to mark invoice paid")
	}

	s.notify(ctx, order.UserID, "Payment received",
		fmt.Sprintf("We received your payment for order %s.", order.Number), order.ID)
	s.audit.Record(ctx, model.LevelInfo, "payment.completed", &order.UserID,
		fmt.Sprintf("payment %s completed", payment.ID),
		map[string]interface{}{"order_id": order.ID, "method": payment.Method, "amount_cents": payment.AmountCents})

	_ = s.dispatcher.Dispatch(model.PaymentCompleted{
		PaymentID: payment.ID, OrderID: order.ID, UserID: order.UserID, Method: payment.Method, AmountCents: payment.AmountCents,
	})
	return nil
}

// reverse hands back money captured for an order that cannot take it. Bank transfers
// stay pending for staff to return by hand.
func (s *paymentService) reverse(ctx context.Context, payment *model.Payment, order *model.Order) error {
	if payment.Method == model.MethodBankTransfer {
		return nil
	}
	if err := s.returnFunds(ctx, payment); err != nil {
		return err
	}

	from := payment.Status
	payment.Status = model.ChargeRefunded
	payment.FailureReason = "order can no longer take this payment"
	payment.UpdatedAt = time.Now().UTC()
	if err := s.repo.Transition(ctx, payment, from); err != nil {
		return err
	}

	s.audit.Record(ctx, model.LevelWarning, "payment.reversed", &order.UserID,
		fmt.Sprintf("payment %s reversed", payment.ID),
		map[string]interface{}{"order_id": order.ID, "method": payment.Method, "payment_status": order.PaymentStatus})
	_ = s.dispatcher.Dispatch(model.PaymentRefundedEvent{PaymentID: payment.ID, OrderID: order.ID, AmountCents: payment.AmountCents})
	return nil
}

func (s *paymentService) returnFunds(ctx context.Context, payment *model.Payment) error {
	if payment.AmountCents == 0 {
		return nil
	}
	switch payment.Method {
	case model.MethodWallet:
		return s.wallets.Refund(ctx, payment.UserID, payment.ID, payment.AmountCents)
	case model.MethodStripe, model.MethodPayPal:
		gateway, ok := s.gateways[payment.Method]
		if !ok {
			return model.ErrUnsupportedMethod
		}
		return gateway.Refund(ctx, payment.TransactionID, payment.AmountCents)
	}
	return nil
}

func (s *paymentService) fail(ctx context.Context, payment *model.Payment, order *model.Order, reason string) error {
	// An order settled by another payment keeps its status, only the attempt is recorded.
	if order.Status == model.OrderCancelled || !order.PaymentStatus.AcceptsPayment() {
		return s.markFailed(ctx, payment, reason)
	}

	from := payment.Status
	now := time.Now().UTC()
	payment.Status = model.ChargeFailed
	payment.FailureReason = reason
	payment.UpdatedAt = now
	order.PaymentStatus = model.PaymentFailed
	order.Version++
	order.UpdatedAt = now

	if err := s.repo.SaveWithOrder(ctx, payment, from, order); err != nil {
		return err
	}

	s.notify(ctx, order.UserID, "Payment failed",
		fmt.Sprintf("The payment for order %s failed: %s", order.Number, reason), order.ID)
	s.audit.Record(ctx, model.LevelWarning, "payment.failed", &order.UserID,
		fmt.Sprintf("payment %s failed", payment.ID), map[string]interface{}{"order_id": order.ID, "reason": reason})

	_ = s.dispatcher.Dispatch(model.PaymentFailedEvent{PaymentID: payment.ID, OrderID: order.ID, Reason: reason})
	return nil
}

func (s *paymentService) markFailed(ctx context.Context, payment *model.Payment, reason string) error {
	from := payment.Status
	payment.Status = model.ChargeFailed
	payment.FailureReason = reason
	payment.UpdatedAt = time.Now().UTC()
	return s.repo.Transition(ctx, payment, from)
}

// abandon closes a wallet payment whose charge did not go through.
func (s *paymentService) abandon(ctx context.Context, payment *model.Payment, order *model.Order, cause error) {
	var err error
	if errors.Is(cause, model.ErrInsufficientFunds) {
		err = s.fail(ctx, payment, order, cause.Error())
	} else {
		err = s.markFailed(ctx, payment, cause.Error())
	}
	if err != nil {
		log.WithError(err).WithField("payment_id", payment.ID).Error("failed to close wallet payment")
	}
}

func (s *paymentService) notify(ctx context.Context, userID uuid.UUID, title, message string, orderID uuid.UUID) {
	err := s.notifier.Notify(ctx, userID, NotificationMessage{
		Type:    model.NotificationPayment,
		Title:   title,
		Message: message,
		Link:    "/orders/" + orderID.String(),
	})
	if err != nil {
		log.WithError(err).WithField("order_id", orderID).Error("failed to send payment notification")
	}
}

func (s *paymentService) resultFor(payment *model.Payment) *PaymentResult {
	result := &PaymentResult{Payment: payment}
	switch payment.Method {
	case model.MethodStripe:
		result.ClientSecret = payment.ClientSecret
	case model.MethodPayPal:
		result.RedirectURL = payment.ClientSecret
	case model.MethodBankTransfer:
		result.Instructions = fmt.Sprintf("Transfer %d.%02d %s quoting reference %s.",
			payment.AmountCents/100, payment.AmountCents%100, payment.Currency, payment.TransactionID)
	}
	return result
}
