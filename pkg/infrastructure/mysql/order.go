package mysql

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"storefront/pkg/domain/model"
)

const orderColumns = `id, number, user_id, status, payment_status, total_cents, currency, notes,
	version, created_at, updated_at`

const orderItemColumns = `id, order_id, item_type, item_id, name, quantity, unit_price_cents, total_cents`

type orderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) model.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) NextID() (uuid.UUID, error) {
	return nextID()
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO orders (id, number, user_id, status, payment_status, total_cents, currency,
				notes, version, created_at, updated_at)
			VALUES (:id, :number, :user_id, :status, :payment_status, :total_cents, :currency,
				:notes, :version, :created_at, :updated_at)`,
			order)
		if err != nil {
			return errors.Wrap(err, "insert order")
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			_, err = tx.NamedExecContext(ctx, `
				INSERT INTO order_items (id, order_id, item_type, item_id, name, quantity,
					unit_price_cents, total_cents)
				VALUES (:id, :order_id, :item_type, :item_id, :name, :quantity,
					:unit_price_cents, :total_cents)`,
				item)
			if err != nil {
				return errors.Wrap(err, "insert order item")
			}

			switch item.ItemType {
			case model.ItemProduct:
				err = takeStock(ctx, tx, order, item)
			case model.ItemCustomService:
				err = claimQuote(ctx, tx, order, item)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func takeStock(ctx context.Context, tx *sqlx.Tx, order *model.Order, item *model.OrderItem) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE products SET stock_quantity = stock_quantity - ?, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ? AND stock_quantity >= ?`,
		item.Quantity, order.CreatedAt, item.ItemID, model.ProductActive, item.Quantity)
	if err != nil {
		return errors.Wrap(err, "take product stock")
	}
	return expectRow(res, model.ErrInsufficientStock)
}

// claimQuote reserves an open quote for the order. A quote held by another order
// is not payable.
func claimQuote(ctx context.Context, tx *sqlx.Tx, order *model.Order, item *model.OrderItem) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE custom_services SET order_id = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND status = ? AND order_id IS NULL AND expires_at > ?`,
		order.ID, order.CreatedAt, item.ItemID, order.UserID, model.CustomServicePending, order.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "claim custom service")
	}
	return expectRow(res, model.ErrCustomServiceNotPayable)
}

func (r *orderRepository) Find(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := r.db.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if isNoRows(err) {
		return nil, model.ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "find order")
	}

	err = r.db.SelectContext(ctx, &order.Items,
		`SELECT `+orderItemColumns+` FROM order_items WHERE order_id = ?`, id)
	if err != nil {
		return nil, errors.Wrap(err, "load order items")
	}
	return &order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.SelectContext(ctx, &orders,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list user orders")
	}
	return orders, r.loadItems(ctx, orders)
}

func (r *orderRepository) List(ctx context.Context, limit, offset int) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.SelectContext(ctx, &orders,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, r.loadItems(ctx, orders)
}

func (r *orderRepository) UpdateStatus(ctx context.Context, order *model.Order) error {
	return updateOrderStatus(ctx, r.db, order)
}

func updateOrderStatus(ctx context.Context, db sqlx.ExecerContext, order *model.Order) error {
	res, err := db.ExecContext(ctx, `
		UPDATE orders SET status = ?, payment_status = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`,
		order.Status, order.PaymentStatus, order.Version, order.UpdatedAt, order.ID, order.Version-1)
	if err != nil {
		return errors.Wrap(err, "update order status")
	}
	return expectRow(res, model.ErrOptimisticLock)
}

func (r *orderRepository) Cancel(ctx context.Context, order *model.Order) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE orders SET status = ?, version = ?, updated_at = ?
			WHERE id = ? AND version = ? AND status IN (?, ?) AND payment_status <> ?`,
			model.OrderCancelled, order.Version, order.UpdatedAt,
			order.ID, order.Version-1, model.OrderPending, model.OrderProcessing, model.PaymentPaid)
		if err != nil {
			return errors.Wrap(err, "cancel order")
		}
		if err := expectRow(res, model.ErrOptimisticLock); err != nil {
			return err
		}

		for _, item := range order.Items {
			if item.ItemType != model.ItemProduct {
				continue
			}
			_, err = tx.ExecContext(ctx, `
				UPDATE products SET stock_quantity = stock_quantity + ?, version = version + 1, updated_at = ?
				WHERE id = ?`,
				item.Quantity, order.UpdatedAt, item.ItemID)
			if err != nil {
				return errors.Wrap(err, "return product stock")
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE custom_services SET order_id = NULL, updated_at = ? WHERE order_id = ? AND status = ?`,
			order.UpdatedAt, order.ID, model.CustomServicePending)
		if err != nil {
			return errors.Wrap(err, "release custom services")
		}
		order.Status = model.OrderCancelled
		return nil
	})
}

func (r *orderRepository) HasPurchased(ctx context.Context, userID uuid.UUID, itemType model.ItemType, itemID uuid.UUID) (bool, error) {
	var purchased bool
	err := r.db.GetContext(ctx, &purchased, `
		SELECT EXISTS(
			SELECT 1 FROM orders o JOIN order_items i ON i.order_id = o.id
			WHERE o.user_id = ? AND o.payment_status = ? AND i.item_type = ? AND i.item_id = ?)`,
		userID, model.PaymentPaid, itemType, itemID)
	return purchased, errors.Wrap(err, "check purchase")
}

func (r *orderRepository) loadItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, order := range orders {
		ids = append(ids, order.ID)
		index[order.ID] = i
	}

	query, args, err := sqlx.In(`SELECT `+orderItemColumns+` FROM order_items WHERE order_id IN (?)`, ids)
	if err != nil {
		return errors.WithStack(err)
	}
	var items []model.OrderItem
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "load order items")
	}
	for _, item := range items {
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return nil
}
