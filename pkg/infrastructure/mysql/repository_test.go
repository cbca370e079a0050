package mysql

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/domain/model"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return sqlx.NewDb(db, "mysql"), mock
}

func TestUserRepository_CreateMapsDuplicateKeys(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	user := &model.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice' for key 'users_username_uq'"})
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice@example.com' for key 'users_email_uq'"})

	assert.ErrorIs(t, repo.Create(context.Background(), user), model.ErrUsernameTaken)
	assert.ErrorIs(t, repo.Create(context.Background(), user), model.ErrEmailTaken)
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	id := uuid.New()
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "full_name", "role", "status",
		"verification_token", "verification_expires_at", "email_verified_at", "created_at", "updated_at"}).
		AddRow(id.String(), "alice", "alice@example.com", "hash", "Alice", "customer", "active",
			"", nil, now, now, now)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email = ?").
		WithArgs("alice@example.com").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email = ?").
		WithArgs("bob@example.com").
		WillReturnError(sql.ErrNoRows)

	user, err := repo.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, model.Active, user.Status)
	assert.Nil(t, user.VerificationExpiresAt)
	require.NotNil(t, user.EmailVerifiedAt)

	_, err = repo.FindByEmail(context.Background(), "bob@example.com")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestOrderRepository_CreateRollsBackWhenStockRunsOut(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)
	order := &model.Order{
		ID:     uuid.New(),
		Number: "ORD-20260101-ABCDEF",
		Items: []model.OrderItem{
			{ID: uuid.New(), ItemType: model.ItemProduct, ItemID: uuid.New(), Quantity: 3},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE products SET stock_quantity = stock_quantity -").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), order)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)
}

func TestOrderRepository_CreateRejectsClaimedQuote(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)
	quoteID := uuid.New()
	order := &model.Order{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Number: "ORD-20260101-ABCDEF",
		Items: []model.OrderItem{
			{ID: uuid.New(), ItemType: model.ItemCustomService, ItemID: quoteID, Quantity: 1},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE custom_services SET order_id = \\?(.+) AND order_id IS NULL").
		WithArgs(order.ID, sqlmock.AnyArg(), quoteID, order.UserID, model.CustomServicePending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), order)
	assert.ErrorIs(t, err, model.ErrCustomServiceNotPayable)
}

func TestOrderRepository_CancelReturnsStock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)
	productID := uuid.New()
	order := &model.Order{
		ID:      uuid.New(),
		Status:  model.OrderCancelled,
		Version: 3,
		Items: []model.OrderItem{
			{ItemType: model.ItemProduct, ItemID: productID, Quantity: 2},
			{ItemType: model.ItemService, ItemID: uuid.New(), Quantity: 1},
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(model.OrderCancelled, 3, sqlmock.AnyArg(), order.ID, 2,
			model.OrderPending, model.OrderProcessing, model.PaymentPaid).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE products SET stock_quantity = stock_quantity \\+").
		WithArgs(2, sqlmock.AnyArg(), productID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE custom_services SET order_id = NULL").
		WithArgs(sqlmock.AnyArg(), order.ID, model.CustomServicePending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, repo.Cancel(context.Background(), order))
	assert.Equal(t, model.OrderCancelled, order.Status)
}

func TestOrderRepository_CancelLeavesStockOfSettledOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)
	order := &model.Order{
		ID:      uuid.New(),
		Status:  model.OrderCancelled,
		Version: 2,
		Items: []model.OrderItem{
			{ItemType: model.ItemProduct, ItemID: uuid.New(), Quantity: 2},
		},
	}

	// Already cancelled, paid or changed since it was read.
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Cancel(context.Background(), order), model.ErrOptimisticLock)
}

func TestOrderRepository_UpdateStatusChecksVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)
	order := &model.Order{ID: uuid.New(), Status: model.OrderCompleted, PaymentStatus: model.PaymentPaid, Version: 5}

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(model.OrderCompleted, model.PaymentPaid, 5, sqlmock.AnyArg(), order.ID, 4).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.UpdateStatus(context.Background(), order), model.ErrOptimisticLock)
}

func TestPaymentRepository_SaveWithOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	payment := &model.Payment{ID: uuid.New(), Status: model.ChargeCompleted}
	order := &model.Order{ID: uuid.New(), Status: model.OrderProcessing, PaymentStatus: model.PaymentPaid, Version: 2}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments SET status (.+) WHERE id = \\? AND status = \\?").
		WithArgs(model.ChargeCompleted, "", "", sqlmock.AnyArg(), sqlmock.AnyArg(), payment.ID, model.ChargePending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(model.OrderProcessing, model.PaymentPaid, 2, sqlmock.AnyArg(), order.ID, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveWithOrder(context.Background(), payment, model.ChargePending, order))
}

func TestPaymentRepository_SaveWithOrderSettledPayment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	payment := &model.Payment{ID: uuid.New(), Status: model.ChargeCompleted}
	order := &model.Order{ID: uuid.New(), Status: model.OrderProcessing, PaymentStatus: model.PaymentPaid, Version: 2}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SaveWithOrder(context.Background(), payment, model.ChargePending, order)
	assert.ErrorIs(t, err, model.ErrOptimisticLock)
}

func TestPaymentRepository_SaveWithOrderStaleOrder(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	payment := &model.Payment{ID: uuid.New(), Status: model.ChargeCompleted}
	order := &model.Order{ID: uuid.New(), Status: model.OrderProcessing, PaymentStatus: model.PaymentPaid, Version: 2}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE payments SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders SET status").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SaveWithOrder(context.Background(), payment, model.ChargePending, order)
	assert.ErrorIs(t, err, model.ErrOptimisticLock)
}

func TestPaymentRepository_Transition(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	payment := &model.Payment{ID: uuid.New(), Status: model.ChargeFailed, FailureReason: "superseded"}

	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(model.ChargeFailed, "", "superseded", sqlmock.AnyArg(), sqlmock.AnyArg(), payment.ID, model.ChargePending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE payments SET status").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Transition(context.Background(), payment, model.ChargePending))
	assert.ErrorIs(t, repo.Transition(context.Background(), payment, model.ChargePending), model.ErrOptimisticLock)
}

func TestWalletRepository_CommitDetectsConcurrentUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)
	wallet := &model.Wallet{ID: uuid.New(), BalanceCents: 500, Version: 3}
	tx := &model.WalletTransaction{ID: uuid.New(), WalletID: wallet.ID, Type: model.Deposit, AmountCents: 500}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wallets SET balance_cents").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.Commit(context.Background(), wallet, tx), model.ErrOptimisticLock)
}

func TestWalletRepository_FindCommittedTransactionNone(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM wallet_transactions").WillReturnError(sql.ErrNoRows)

	tx, err := repo.FindCommittedTransaction(context.Background(), uuid.New(), model.Withdrawal, "ref")
	require.NoError(t, err)
	assert.Nil(t, tx)
}

func TestNotificationRepository_CreateBatchUsesOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)
	notifications := []model.Notification{
		{ID: uuid.New(), UserID: uuid.New(), Type: model.NotificationSystem, Title: "Hi"},
		{ID: uuid.New(), UserID: uuid.New(), Type: model.NotificationSystem, Title: "Hi"},
	}

	mock.ExpectBegin()
	prepared := mock.ExpectPrepare("INSERT INTO notifications")
	prepared.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prepared.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateBatch(context.Background(), notifications))
}

func TestNotificationRepository_MarkReadForeignNotification(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec("UPDATE notifications SET is_read = 1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.MarkRead(context.Background(), uuid.New(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, model.ErrNotificationNotFound)
}

func TestNotificationRepository_MarkReadAlreadyRead(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec("UPDATE notifications SET is_read = 1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	assert.NoError(t, repo.MarkRead(context.Background(), uuid.New(), uuid.New(), time.Now()))
}

func TestCustomServiceRepository_MarkPaidOnlyOnce(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCustomServiceRepository(db)

	id, orderID := uuid.New(), uuid.New()

	mock.ExpectExec("UPDATE custom_services SET status (.+) AND order_id = \\?").
		WithArgs(model.CustomServicePaid, sqlmock.AnyArg(), id, model.CustomServicePending, orderID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkPaid(context.Background(), id, orderID)
	assert.ErrorIs(t, err, model.ErrCustomServiceNotPayable)
}

func TestInvoiceRepository_MarkOverdue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE invoices SET status").
		WithArgs(model.InvoiceOverdue, now, model.InvoiceUnpaid, now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.MarkOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
