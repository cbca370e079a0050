package tests

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

// --- Setup ---

func setupWalletTest(t *testing.T) (service.WalletService, *mockWalletRepository, *mockEventDispatcher) {
	f := newFixture(t)
	return f.walletSvc, f.wallets, f.dispatcher
}

// --- Tests ---

func TestCreateWallet(t *testing.T) {
	svc, repo, _ := setupWalletTest(t)
	ctx := context.Background()
	userID := uuid.New()

	wallet, err := svc.CreateWallet(ctx, userID)

	require.NoError(t, err)
	require.NotNil(t, wallet)
	assert.Equal(t, userID, wallet.UserID)
	assert.Equal(t, int64(0), wallet.BalanceCents)
	assert.Equal(t, "USD", wallet.Currency)
	assert.Equal(t, 1, wallet.Version)

	saved, err := repo.GetWalletByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, saved.ID)
}

func TestCreateWallet_ReturnsExisting(t *testing.T) {
	svc, repo, _ := setupWalletTest(t)
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.CreateWallet(ctx, userID)
	require.NoError(t, err)
	second, err := svc.CreateWallet(ctx, userID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.storeWallets, 1)
}

func TestDeposit_Success(t *testing.T) {
	svc, repo, dispatcher := setupWalletTest(t)
	ctx := context.Background()
	userID := uuid.New()
	wallet, _ := svc.CreateWallet(ctx, userID)
	dispatcher.Reset()

	refID := "ref_deposit_1"
	amount := int64(1000)

	updatedWallet, err := svc.Deposit(ctx, userID, amount, refID)

	require.NoError(t, err)
	assert.Equal(t, int64(1000), updatedWallet.BalanceCents)
	assert.Equal(t, 2, updatedWallet.Version)

	tx := repo.findTransactionByRef(wallet.ID, refID)
	require.NotNil(t, tx)
	assert.Equal(t, model.Deposit, tx.Type)
	assert.Equal(t, model.TxCommitted, tx.Status)

	require.Len(t, dispatcher.events, 1)
	event, ok := dispatcher.events[0].(model.FundsDeposited)
	assert.True(t, ok)
	assert.Equal(t, amount, event.AmountCents)
	assert.Equal(t, int64(1000), event.NewBalance)
}

func TestDeposit_Idempotency(t *testing.T) {
	svc, _, dispatcher := setupWalletTest(t)
	ctx := context.Background()
	userID := uuid.New()
	svc.CreateWallet(ctx, userID)
	dispatcher.Reset()

	refID := "ref_idempotent_1"

	w1, err := svc.Deposit(ctx, userID, 500, refID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), w1.BalanceCents)
	require.Len(t, dispatcher.events, 1)

	w2, err := svc.Deposit(ctx, userID, 500, refID)
	require.NoError(t, err)

	assert.Equal(t, int64(500), w2.BalanceCents)
	assert.Equal(t, w1.Version, w2.Version)

	require.Len(t, dispatcher.events, 1)
}

func TestDeposit_InvalidAmount(t *testing.T) {
	svc, _, _ := setupWalletTest(t)
	ctx := context.Background()
	userID := uuid.New()
	svc.CreateWallet(ctx, userID)

	_, err := svc.Deposit(ctx, userID, 0, "zero")
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = svc.Deposit(ctx, userID, -100, "negative")
	assert.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestDeposit_WalletNotFound(t *testing.T) {
	svc, _, _ := setupWalletTest(t)

	_, err := svc.Deposit(context.Background(), uuid.New(), 100, "ref")

	assert.ErrorIs(t, err, model.ErrWalletNotFound)
}

func TestCharge_Success(t *testing.T) {
	svc, _, dispatcher := setupWalletTest(t)
	ctx := context.Background()
	userID := uuid.New()
	svc.CreateWallet(ctx, userID)
	svc.Deposit(ctx, userID, 2000, "initial_topup")
	dispatcher.Reset()

	paymentID := uuid.New()
	err := svc.Charge(ctx, userID, paymentID, 500)

	require.NoError(t, err)

	balance, _ := svc.GetBalance(ctx, userID)
	assert.Equal(t, int64(1500), balance)

	require.Len(t, dispatcher.events, 1)
	event, ok := dispatcher.events[0].(model.FundsWithdrawn)
	assert.True(t, ok)
	assert.Equal(t, int64(500), event.AmountCents)
	assert.Equal(t, paymentID.String(), event.ReferenceID)
}

func TestCharge_DebitsOncePerPayment(t *testing.T) {
	svc, _, _ := setupWalletTest(t)
	ctx := context.Background()
	userID := uuid.New()
	svc.CreateWallet(ctx, userID)
	svc.Deposit(ctx, userID, 2000, "initial_topup")

	paymentID := uuid.New()
	require.NoError(t, svc.Charge(ctx, userID, paymentID, 500))
	require.NoError(t, svc.Charge(ctx, userID, paymentID, 500))

	balance, _ := svc.GetBalance(ctx, userID)
	assert.Equal(t, int64(1500), balance)
}

func TestCharge_InsufficientFunds(t *testing.T) {
	svc, repo, dispatcher := setupWalletTest(t)
	ctx := context.Background()
	userID := uuid.New()
	wallet, _ := svc.CreateWallet(ctx, userID)
	svc.Deposit(ctx, userID, 100, "tiny_deposit")
	dispatcher.Reset()

	paymentID := uuid.New()
	err := svc.Charge(ctx, userID, paymentID, 500)

	assert.ErrorIs(t, err, model.ErrInsufficientFunds)

	balance, _ := svc.GetBalance(ctx, userID)
	assert.Equal(t, int64(100), balance)

	tx := repo.findTransactionByRef(wallet.ID, paymentID.String())
	require.NotNil(t, tx)
	assert.Equal(t, model.TxFailed, tx.Status)
	assert.Equal(t, "insufficient funds", tx.ErrorMessage)

	require.Len(t, dispatcher.events, 1)
	event, ok := dispatcher.events[0].(model.WalletDebitFailed)
	assert.True(t, ok)
	assert.Equal(t, paymentID.String(), event.ReferenceID)
}

func TestRefund_CreditsWallet(t *testing.T) {
	svc, _, _ := setupWalletTest(t)
	ctx := context.Background()
	userID := uuid.New()
	svc.CreateWallet(ctx, userID)
	svc.Deposit(ctx, userID, 1000, "initial_topup")

	paymentID := uuid.New()
	require.NoError(t, svc.Charge(ctx, userID, paymentID, 700))
	require.NoError(t, svc.Refund(ctx, userID, paymentID, 700))
	require.NoError(t, svc.Refund(ctx, userID, paymentID, 700))

	balance, _ := svc.GetBalance(ctx, userID)
	assert.Equal(t, int64(1000), balance)

	txs, err := svc.ListTransactions(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, model.Refund, txs[0].Type)
}

func TestOptimisticLocking_Fail(t *testing.T) {
	svc, repo, _ := setupWalletTest(t)
	ctx := context.Background()
	userID := uuid.New()
	wallet, _ := svc.CreateWallet(ctx, userID)

	repo.storeWallets[wallet.ID].Version = 2

	toUpdate := *wallet
	toUpdate.BalanceCents += 50
	toUpdate.Version = 2

	err := repo.Commit(ctx, &toUpdate, &model.WalletTransaction{ID: uuid.New(), WalletID: wallet.ID})
	assert.ErrorIs(t, err, model.ErrOptimisticLock)
}
