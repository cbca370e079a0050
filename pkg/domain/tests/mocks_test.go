package tests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"storefront/pkg/common/domain"
	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

// --- Setup ---

type fixture struct {
	users         *mockUserRepository
	wallets       *mockWalletRepository
	categories    *mockCategoryRepository
	products      *mockProductRepository
	services      *mockServiceRepository
	quotes        *mockCustomServiceRepository
	orders        *mockOrderRepository
	payments      *mockPaymentRepository
	invoices      *mockInvoiceRepository
	reviews       *mockReviewRepository
	notifications *mockNotificationRepository
	settings      *mockSettingRepository
	systemLogs    *mockSystemLogRepository

	mailer     *mockMailer
	cooldown   *mockCooldownStore
	stripe     *mockGateway
	paypal     *mockGateway
	dispatcher *mockEventDispatcher

	userSvc         service.UserService
	walletSvc       service.WalletService
	catalogSvc      service.CatalogService
	quoteSvc        service.QuoteService
	orderSvc        service.OrderService
	paymentSvc      service.PaymentService
	invoiceSvc      service.InvoiceService
	reviewSvc       service.ReviewService
	notificationSvc service.NotificationService
	settingsSvc     service.SettingsService
	auditSvc        service.SystemLogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		users:         newMockUserRepository(),
		wallets:       newMockWalletRepository(),
		categories:    newMockCategoryRepository(),
		products:      newMockProductRepository(),
		services:      newMockServiceRepository(),
		quotes:        newMockCustomServiceRepository(),
		invoices:      newMockInvoiceRepository(),
		reviews:       newMockReviewRepository(),
		notifications: newMockNotificationRepository(),
		settings:      newMockSettingRepository(),
		systemLogs:    &mockSystemLogRepository{},
		mailer:        &mockMailer{},
		cooldown:      newMockCooldownStore(),
		stripe:        &mockGateway{prefix: "pi_"},
		paypal:        &mockGateway{prefix: "PP"},
		dispatcher:    &mockEventDispatcher{},
	}
	f.orders = newMockOrderRepository(f.products, f.quotes)
	f.payments = newMockPaymentRepository(f.orders)

	f.walletSvc = service.NewWalletService(f.wallets, f.dispatcher, "USD")
	f.notificationSvc = service.NewNotificationService(f.notifications, f.users, f.dispatcher)
	f.settingsSvc = service.NewSettingsService(f.settings)
	f.auditSvc = service.NewSystemLogService(f.systemLogs)
	f.userSvc = service.NewUserService(f.users, mockPasswordManager{}, f.walletSvc, f.mailer, f.cooldown, f.dispatcher, service.UserOptions{
		VerificationTTL: time.Hour,
		ResendCooldown:  time.Minute,
		VerifyURL:       "https://shop.test/api/auth/verify?token=",
	})
	f.catalogSvc = service.NewCatalogService(f.categories, f.products, f.services, f.dispatcher)
	f.quoteSvc = service.NewQuoteService(f.quotes, f.users, f.notificationSvc, f.dispatcher, "https://shop.test/custom-services/")
	f.orderSvc = service.NewOrderService(f.orders, f.products, f.services, f.quotes, f.notificationSvc, f.dispatcher, "USD")
	f.invoiceSvc = service.NewInvoiceService(f.invoices, f.settingsSvc, f.dispatcher)
	f.reviewSvc = service.NewReviewService(f.reviews, f.orders, f.dispatcher)
	f.paymentSvc = service.NewPaymentService(
		f.payments,
		f.orders,
		f.quotes,
		f.walletSvc,
		map[model.PaymentMethod]model.PaymentGateway{
			model.MethodStripe: f.stripe,
			model.MethodPayPal: f.paypal,
		},
		f.invoiceSvc,
		f.notificationSvc,
		f.auditSvc,
		f.dispatcher,
	)
	return f
}

func (f *fixture) seedUser(t *testing.T, role model.Role, status model.UserStatus) *model.User {
	t.Helper()
	id := uuid.New()
	name := "user_" + strings.ReplaceAll(id.String(), "-", "")[:8]
	user := &model.User{
		ID:             id,
		Username:       name,
		Email:          name + "@example.com",
		HashedPassword: "hashed:secret123",
		Role:           role,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (f *fixture) seedWallet(t *testing.T, userID uuid.UUID, balanceCents int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.walletSvc.CreateWallet(ctx, userID); err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
	if balanceCents > 0 {
		if _, err := f.walletSvc.Deposit(ctx, userID, balanceCents, "seed-"+userID.String()); err != nil {
			t.Fatalf("seed deposit: %v", err)
		}
	}
}

func (f *fixture) seedProduct(t *testing.T, priceCents int64, stock int) *model.Product {
	t.Helper()
	now := time.Now().UTC()
	product := &model.Product{
		ID:            uuid.New(),
		VendorID:      uuid.New(),
		CategoryID:    uuid.New(),
		Name:          "Desk lamp",
		PriceCents:    priceCents,
		StockQuantity: stock,
		Status:        model.ProductActive,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := f.products.Create(context.Background(), product); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func (f *fixture) seedService(t *testing.T, priceCents int64, status model.ServiceStatus) *model.Service {
	t.Helper()
	now := time.Now().UTC()
	svc := &model.Service{
		ID:           uuid.New(),
		VendorID:     uuid.New(),
		CategoryID:   uuid.New(),
		Name:         "Lamp installation",
		PriceCents:   priceCents,
		DeliveryDays: 3,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := f.services.Create(context.Background(), svc); err != nil {
		t.Fatalf("seed service: %v", err)
	}
	return svc
}

// placeOrder creates an order for quantity units of a fresh product.
func (f *fixture) placeOrder(t *testing.T, userID uuid.UUID, priceCents int64, quantity int) *model.Order {
	t.Helper()
	product := f.seedProduct(t, priceCents, quantity+10)
	order, err := f.orderSvc.CreateOrder(context.Background(), userID, []service.OrderLine{
		{ItemType: model.ItemProduct, ItemID: product.ID, Quantity: quantity},
	}, "")
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return order
}

// --- Mocks ---

type mockUserRepository struct {
	store map[uuid.UUID]*model.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{store: make(map[uuid.UUID]*model.User)}
}

func (m *mockUserRepository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockUserRepository) Create(_ context.Context, user *model.User) error {
	for _, existing := range m.store {
		if existing.Email == user.Email {
			return model.ErrEmailTaken
		}
		if existing.Username == user.Username {
			return model.ErrUsernameTaken
		}
	}
	val := *user
	m.store[user.ID] = &val
	return nil
}

func (m *mockUserRepository) Update(_ context.Context, user *model.User) error {
	if _, ok := m.store[user.ID]; !ok {
		return model.ErrUserNotFound
	}
	val := *user
	m.store[user.ID] = &val
	return nil
}

func (m *mockUserRepository) Find(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := m.store[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	val := *user
	return &val, nil
}

func (m *mockUserRepository) findBy(match func(*model.User) bool) (*model.User, error) {
	for _, user := range m.store {
		if match(user) {
			val := *user
			return &val, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (m *mockUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return m.findBy(func(u *model.User) bool { return u.Email == email })
}

func (m *mockUserRepository) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return m.findBy(func(u *model.User) bool { return strings.EqualFold(u.Username, username) })
}

func (m *mockUserRepository) FindByVerificationToken(_ context.Context, token string) (*model.User, error) {
	return m.findBy(func(u *model.User) bool { return token != "" && u.VerificationToken == token })
}

func (m *mockUserRepository) ListActiveIDs(_ context.Context, role model.Role) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, user := range m.store {
		if user.Status == model.Active && (role == "" || user.Role == role) {
			ids = append(ids, user.ID)
		}
	}
	return ids, nil
}

type mockWalletRepository struct {
	storeWallets map[uuid.UUID]*model.Wallet
	storeTxs     []*model.WalletTransaction
}

func newMockWalletRepository() *mockWalletRepository {
	return &mockWalletRepository{storeWallets: make(map[uuid.UUID]*model.Wallet)}
}

func (m *mockWalletRepository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockWalletRepository) CreateWallet(_ context.Context, w *model.Wallet) error {
	for _, existing := range m.storeWallets {
		if existing.UserID == w.UserID {
			return model.ErrWalletExists
		}
	}
	val := *w
	m.storeWallets[w.ID] = &val
	return nil
}

func (m *mockWalletRepository) GetWalletByUserID(_ context.Context, userID uuid.UUID) (*model.Wallet, error) {
	for _, w := range m.storeWallets {
		if w.UserID == userID {
			val := *w
			return &val, nil
		}
	}
	return nil, model.ErrWalletNotFound
}

func (m *mockWalletRepository) Commit(_ context.Context, w *model.Wallet, tx *model.WalletTransaction) error {
	existing, ok := m.storeWallets[w.ID]
	if !ok {
		return model.ErrWalletNotFound
	}
	if existing.Version != w.Version-1 {
		return model.ErrOptimisticLock
	}
	val := *w
	m.storeWallets[w.ID] = &val
	txVal := *tx
	m.storeTxs = append(m.storeTxs, &txVal)
	return nil
}

func (m *mockWalletRepository) SaveTransaction(_ context.Context, tx *model.WalletTransaction) error {
	val := *tx
	m.storeTxs = append(m.storeTxs, &val)
	return nil
}

func (m *mockWalletRepository) FindCommittedTransaction(_ context.Context, walletID uuid.UUID, txType model.TransactionType, referenceID string) (*model.WalletTransaction, error) {
	for _, tx := range m.storeTxs {
		if tx.WalletID == walletID && tx.Type == txType && tx.ReferenceID == referenceID && tx.Status == model.TxCommitted {
			val := *tx
			return &val, nil
		}
	}
	return nil, nil
}

func (m *mockWalletRepository) ListTransactions(_ context.Context, walletID uuid.UUID, limit int) ([]model.WalletTransaction, error) {
	var txs []model.WalletTransaction
	for i := len(m.storeTxs) - 1; i >= 0 && len(txs) < limit; i-- {
		if m.storeTxs[i].WalletID == walletID {
			txs = append(txs, *m.storeTxs[i])
		}
	}
	return txs, nil
}

func (m *mockWalletRepository) findTransactionByRef(walletID uuid.UUID, refID string) *model.WalletTransaction {
	for _, tx := range m.storeTxs {
		if tx.WalletID == walletID && tx.ReferenceID == refID {
			val := *tx
			return &val
		}
	}
	return nil
}

type mockCategoryRepository struct {
	store map[uuid.UUID]*model.Category
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{store: make(map[uuid.UUID]*model.Category)}
}

func (m *mockCategoryRepository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockCategoryRepository) Create(_ context.Context, category *model.Category) error {
	val := *category
	m.store[category.ID] = &val
	return nil
}

func (m *mockCategoryRepository) Find(_ context.Context, id uuid.UUID) (*model.Category, error) {
	category, ok := m.store[id]
	if !ok {
		return nil, model.ErrCategoryNotFound
	}
	val := *category
	return &val, nil
}

func (m *mockCategoryRepository) FindBySlug(_ context.Context, slug string) (*model.Category, error) {
	for _, category := range m.store {
		if category.Slug == slug {
			val := *category
			return &val, nil
		}
	}
	return nil, model.ErrCategoryNotFound
}

func (m *mockCategoryRepository) List(_ context.Context) ([]model.Category, error) {
	var categories []model.Category
	for _, category := range m.store {
		categories = append(categories, *category)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

type mockProductRepository struct {
	store map[uuid.UUID]*model.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{store: make(map[uuid.UUID]*model.Product)}
}

func (m *mockProductRepository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockProductRepository) Create(_ context.Context, product *model.Product) error {
	val := *product
	m.store[product.ID] = &val
	return nil
}

func (m *mockProductRepository) Update(_ context.Context, product *model.Product) error {
	existing, ok := m.store[product.ID]
	if !ok {
		return model.ErrProductNotFound
	}
	if existing.Version != product.Version-1 {
		return model.ErrOptimisticLock
	}
	val := *product
	m.store[product.ID] = &val
	return nil
}

func (m *mockProductRepository) Find(_ context.Context, id uuid.UUID) (*model.Product, error) {
	product, ok := m.store[id]
	if !ok {
		return nil, model.ErrProductNotFound
	}
	val := *product
	return &val, nil
}

func (m *mockProductRepository) List(_ context.Context, filter model.CatalogFilter) ([]model.Product, error) {
	var products []model.Product
	for _, product := range m.store {
		if filter.ActiveOnly && product.Status != model.ProductActive {
			continue
		}
		if filter.CategoryID != nil && product.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.VendorID != nil && product.VendorID != *filter.VendorID {
			continue
		}
		products = append(products, *product)
	}
	return products, nil
}

type mockServiceRepository struct {
	store map[uuid.UUID]*model.Service
}

func newMockServiceRepository() *mockServiceRepository {
	return &mockServiceRepository{store: make(map[uuid.UUID]*model.Service)}
}

func (m *mockServiceRepository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockServiceRepository) Create(_ context.Context, svc *model.Service) error {
	val := *svc
	m.store[svc.ID] = &val
	return nil
}

func (m *mockServiceRepository) Update(_ context.Context, svc *model.Service) error {
	if _, ok := m.store[svc.ID]; !ok {
		return model.ErrServiceNotFound
	}
	val := *svc
	m.store[svc.ID] = &val
	return nil
}

func (m *mockServiceRepository) Find(_ context.Context, id uuid.UUID) (*model.Service, error) {
	svc, ok := m.store[id]
	if !ok {
		return nil, model.ErrServiceNotFound
	}
	val := *svc
	return &val, nil
}

func (m *mockServiceRepository) List(_ context.Context, filter model.CatalogFilter) ([]model.Service, error) {
	var services []model.Service
	for _, svc := range m.store {
		if filter.ActiveOnly && svc.Status != model.ServiceActive {
			continue
		}
		services = append(services, *svc)
	}
	return services, nil
}

type mockCustomServiceRepository struct {
	store map[uuid.UUID]*model.CustomService
}

func newMockCustomServiceRepository() *mockCustomServiceRepository {
	return &mockCustomServiceRepository{store: make(map[uuid.UUID]*model.CustomService)}
}

func (m *mockCustomServiceRepository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockCustomServiceRepository) Create(_ context.Context, cs *model.CustomService) error {
	val := *cs
	m.store[cs.ID] = &val
	return nil
}

func (m *mockCustomServiceRepository) Update(_ context.Context, cs *model.CustomService) error {
	if _, ok := m.store[cs.ID]; !ok {
		return model.ErrCustomServiceNotFound
	}
	val := *cs
	m.store[cs.ID] = &val
	return nil
}

func (m *mockCustomServiceRepository) Find(_ context.Context, id uuid.UUID) (*model.CustomService, error) {
	cs, ok := m.store[id]
	if !ok {
		return nil, model.ErrCustomServiceNotFound
	}
	val := *cs
	return &val, nil
}

func (m *mockCustomServiceRepository) FindByToken(_ context.Context, token string) (*model.CustomService, error) {
	for _, cs := range m.store {
		if cs.Token == token {
			val := *cs
			return &val, nil
		}
	}
	return nil, model.ErrCustomServiceNotFound
}

func (m *mockCustomServiceRepository) MarkPaid(_ context.Context, id, orderID uuid.UUID) error {
	cs, ok := m.store[id]
	if !ok || cs.Status != model.CustomServicePending || cs.OrderID == nil || *cs.OrderID != orderID {
		return model.ErrCustomServiceNotPayable
	}
	cs.Status = model.CustomServicePaid
	return nil
}

func (m *mockCustomServiceRepository) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, cs := range m.store {
		if cs.Status == model.CustomServicePending && !now.Before(cs.ExpiresAt) {
			cs.Status = model.CustomServiceExpired
			n++
		}
	}
	return n, nil
}

type mockOrderRepository struct {
	store    map[uuid.UUID]*model.Order
	products *mockProductRepository
	quotes   *mockCustomServiceRepository
}

func newMockOrderRepository(products *mockProductRepository, quotes *mockCustomServiceRepository) *mockOrderRepository {
	return &mockOrderRepository{store: make(map[uuid.UUID]*model.Order), products: products, quotes: quotes}
}

func copyOrder(o *model.Order) *model.Order {
	val := *o
	val.Items = append([]model.OrderItem(nil), o.Items...)
	return &val
}

func (m *mockOrderRepository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockOrderRepository) Create(_ context.Context, order *model.Order) error {
	for _, item := range order.Items {
		switch item.ItemType {
		case model.ItemProduct:
			product, ok := m.products.store[item.ItemID]
			if !ok || product.Status != model.ProductActive || product.StockQuantity < item.Quantity {
				return model.ErrInsufficientStock
			}
		case model.ItemCustomService:
			quote, ok := m.quotes.store[item.ItemID]
			if !ok || quote.OrderID != nil || !quote.PayableBy(order.UserID, order.CreatedAt) {
				return model.ErrCustomServiceNotPayable
			}
		}
	}
	for _, item := range order.Items {
		switch item.ItemType {
		case model.ItemProduct:
			m.products.store[item.ItemID].StockQuantity -= item.Quantity
		case model.ItemCustomService:
			orderID := order.ID
			m.quotes.store[item.ItemID].OrderID = &orderID
		}
	}
	m.store[order.ID] = copyOrder(order)
	return nil
}

func (m *mockOrderRepository) Find(_ context.Context, id uuid.UUID) (*model.Order, error) {
	order, ok := m.store[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (m *mockOrderRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	for _, order := range m.store {
		if order.UserID == userID {
			orders = append(orders, *copyOrder(order))
		}
	}
	return orders, nil
}

func (m *mockOrderRepository) List(_ context.Context, limit, offset int) ([]model.Order, error) {
	var orders []model.Order
	for _, order := range m.store {
		orders = append(orders, *copyOrder(order))
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	if offset >= len(orders) {
		return nil, nil
	}
	orders = orders[offset:]
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (m *mockOrderRepository) UpdateStatus(_ context.Context, order *model.Order) error {
	existing, ok := m.store[order.ID]
	if !ok || existing.Version != order.Version-1 {
		return model.ErrOptimisticLock
	}
	existing.Status = order.Status
	existing.PaymentStatus = order.PaymentStatus
	existing.Version = order.Version
	existing.UpdatedAt = order.UpdatedAt
	return nil
}

func (m *mockOrderRepository) Cancel(_ context.Context, order *model.Order) error {
	existing, ok := m.store[order.ID]
	if !ok || existing.Version != order.Version-1 || existing.PaymentStatus == model.PaymentPaid ||
		(existing.Status != model.OrderPending && existing.Status != model.OrderProcessing) {
		return model.ErrOptimisticLock
	}
	existing.Status = model.OrderCancelled
	existing.Version = order.Version
	existing.UpdatedAt = order.UpdatedAt
	for _, item := range existing.Items {
		if product, ok := m.products.store[item.ItemID]; ok && item.ItemType == model.ItemProduct {
			product.StockQuantity += item.Quantity
		}
	}
	for _, quote := range m.quotes.store {
		if quote.Status == model.CustomServicePending && quote.OrderID != nil && *quote.OrderID == order.ID {
			quote.OrderID = nil
		}
	}
	order.Status = model.OrderCancelled
	return nil
}

func (m *mockOrderRepository) HasPurchased(_ context.Context, userID uuid.UUID, itemType model.ItemType, itemID uuid.UUID) (bool, error) {
	for _, order := range m.store {
		if order.UserID == userID && order.PaymentStatus == model.PaymentPaid && order.Contains(itemType, itemID) {
			return true, nil
		}
	}
	return false, nil
}

type mockPaymentRepository struct {
	store  map[uuid.UUID]*model.Payment
	orders *mockOrderRepository
}

func newMockPaymentRepository(orders *mockOrderRepository) *mockPaymentRepository {
	return &mockPaymentRepository{store: make(map[uuid.UUID]*model.Payment), orders: orders}
}

func (m *mockPaymentRepository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockPaymentRepository) Create(_ context.Context, payment *model.Payment) error {
	if payment.TransactionID != "" {
		for _, existing := range m.store {
			if existing.Method == payment.Method && existing.TransactionID == payment.TransactionID {
				return fmt.Errorf("duplicate transaction %s", payment.TransactionID)
			}
		}
	}
	val := *payment
	m.store[payment.ID] = &val
	return nil
}

func (m *mockPaymentRepository) Find(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	payment, ok := m.store[id]
	if !ok {
		return nil, model.ErrPaymentNotFound
	}
	val := *payment
	return &val, nil
}

func (m *mockPaymentRepository) FindByTransactionID(_ context.Context, method model.PaymentMethod, transactionID string) (*model.Payment, error) {
	for _, payment := range m.store {
		if payment.Method == method && payment.TransactionID == transactionID {
			val := *payment
			return &val, nil
		}
	}
	return nil, model.ErrPaymentNotFound
}

func (m *mockPaymentRepository) ListByOrder(_ context.Context, orderID uuid.UUID) ([]model.Payment, error) {
	var payments []model.Payment
	for _, payment := range m.store {
		if payment.OrderID == orderID {
			payments = append(payments, *payment)
		}
	}
	return payments, nil
}

func (m *mockPaymentRepository) SaveWithOrder(_ context.Context, payment *model.Payment, from model.ChargeStatus, order *model.Order) error {
	stored, ok := m.store[payment.ID]
	if !ok || stored.Status != from {
		return model.ErrOptimisticLock
	}
	existing, ok := m.orders.store[order.ID]
	if !ok || existing.Version != order.Version-1 {
		return model.ErrOptimisticLock
	}
	val := *payment
	m.store[payment.ID] = &val
	existing.Status = order.Status
	existing.PaymentStatus = order.PaymentStatus
	existing.Version = order.Version
	existing.UpdatedAt = order.UpdatedAt
	return nil
}

func (m *mockPaymentRepository) Transition(_ context.Context, payment *model.Payment, from model.ChargeStatus) error {
	stored, ok := m.store[payment.ID]
	if !ok || stored.Status != from {
		return model.ErrOptimisticLock
	}
	val := *payment
	m.store[payment.ID] = &val
	return nil
}

type mockInvoiceRepository struct {
	store map[uuid.UUID]*model.Invoice
}

func newMockInvoiceRepository() *mockInvoiceRepository {
	return &mockInvoiceRepository{store: make(map[uuid.UUID]*model.Invoice)}
}

func (m *mockInvoiceRepository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockInvoiceRepository) Create(_ context.Context, invoice *model.Invoice) error {
	for _, existing := range m.store {
		if existing.OrderID == invoice.OrderID {
			return errors.New("invoice already exists for order")
		}
	}
	val := *invoice
	m.store[invoice.ID] = &val
	return nil
}

func (m *mockInvoiceRepository) Update(_ context.Context, invoice *model.Invoice) error {
	if _, ok := m.store[invoice.ID]; !ok {
		return model.ErrInvoiceNotFound
	}
	val := *invoice
	m.store[invoice.ID] = &val
	return nil
}

func (m *mockInvoiceRepository) Find(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	invoice, ok := m.store[id]
	if !ok {
		return nil, model.ErrInvoiceNotFound
	}
	val := *invoice
	return &val, nil
}

func (m *mockInvoiceRepository) FindByOrder(_ context.Context, orderID uuid.UUID) (*model.Invoice, error) {
	for _, invoice := range m.store {
		if invoice.OrderID == orderID {
			val := *invoice
			return &val, nil
		}
	}
	return nil, model.ErrInvoiceNotFound
}

func (m *mockInvoiceRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	for _, invoice := range m.store {
		if invoice.UserID == userID {
			invoices = append(invoices, *invoice)
		}
	}
	return invoices, nil
}

func (m *mockInvoiceRepository) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, invoice := range m.store {
		if invoice.Status == model.InvoiceUnpaid && invoice.DueAt.Before(now) {
			invoice.Status = model.InvoiceOverdue
			n++
		}
	}
	return n, nil
}

type mockReviewRepository struct {
	store map[uuid.UUID]*model.Review
}

func newMockReviewRepository() *mockReviewRepository {
	return &mockReviewRepository{store: make(map[uuid.UUID]*model.Review)}
}

func (m *mockReviewRepository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockReviewRepository) Create(_ context.Context, review *model.Review) error {
	val := *review
	m.store[review.ID] = &val
	return nil
}

func (m *mockReviewRepository) Update(_ context.Context, review *model.Review) error {
	if _, ok := m.store[review.ID]; !ok {
		return model.ErrReviewNotFound
	}
	val := *review
	m.store[review.ID] = &val
	return nil
}

func (m *mockReviewRepository) Find(_ context.Context, id uuid.UUID) (*model.Review, error) {
	review, ok := m.store[id]
	if !ok {
		return nil, model.ErrReviewNotFound
	}
	val := *review
	return &val, nil
}

func (m *mockReviewRepository) Exists(_ context.Context, userID uuid.UUID, itemType model.ItemType, itemID uuid.UUID) (bool, error) {
	for _, review := range m.store {
		if review.UserID == userID && review.ItemType == itemType && review.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockReviewRepository) ListByItem(_ context.Context, itemType model.ItemType, itemID uuid.UUID, status model.ReviewStatus) ([]model.Review, error) {
	var reviews []model.Review
	for _, review := range m.store {
		if review.ItemType == itemType && review.ItemID == itemID && review.Status == status {
			reviews = append(reviews, *review)
		}
	}
	return reviews, nil
}

type mockNotificationRepository struct {
	store   []*model.Notification
	batches int
}

func newMockNotificationRepository() *mockNotificationRepository {
	return &mockNotificationRepository{}
}

func (m *mockNotificationRepository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockNotificationRepository) Create(_ context.Context, notification *model.Notification) error {
	val := *notification
	m.store = append(m.store, &val)
	return nil
}

func (m *mockNotificationRepository) CreateBatch(_ context.Context, notifications []model.Notification) error {
	m.batches++
	for i := range notifications {
		val := notifications[i]
		m.store = append(m.store, &val)
	}
	return nil
}

func (m *mockNotificationRepository) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error) {
	var notifications []model.Notification
	for i := len(m.store) - 1; i >= 0 && len(notifications) < limit; i-- {
		n := m.store[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		notifications = append(notifications, *n)
	}
	return notifications, nil
}

func (m *mockNotificationRepository) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	count := 0
	for _, n := range m.store {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepository) MarkRead(_ context.Context, userID, id uuid.UUID, at time.Time) error {
	for _, n := range m.store {
		if n.ID == id && n.UserID == userID {
			if !n.IsRead {
				n.IsRead = true
				n.ReadAt = &at
			}
			return nil
		}
	}
	return model.ErrNotificationNotFound
}

func (m *mockNotificationRepository) MarkAllRead(_ context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	var n int64
	for _, notification := range m.store {
		if notification.UserID == userID && !notification.IsRead {
			notification.IsRead = true
			notification.ReadAt = &at
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepository) forUser(userID uuid.UUID) []model.Notification {
	var notifications []model.Notification
	for _, n := range m.store {
		if n.UserID == userID {
			notifications = append(notifications, *n)
		}
	}
	return notifications
}

type mockSettingRepository struct {
	store map[string]model.Setting
}

func newMockSettingRepository() *mockSettingRepository {
	return &mockSettingRepository{store: make(map[string]model.Setting)}
}

func (m *mockSettingRepository) Get(_ context.Context, key string) (*model.Setting, error) {
	setting, ok := m.store[key]
	if !ok {
		return nil, model.ErrSettingNotFound
	}
	return &setting, nil
}

func (m *mockSettingRepository) Set(_ context.Context, setting *model.Setting) error {
	m.store[setting.Key] = *setting
	return nil
}

func (m *mockSettingRepository) List(_ context.Context) ([]model.Setting, error) {
	var settings []model.Setting
	for _, setting := range m.store {
		settings = append(settings, setting)
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return settings, nil
}

type mockSystemLogRepository struct {
	entries []model.SystemLog
}

func (m *mockSystemLogRepository) NextID() (uuid.UUID, error) {
	return uuid.New(), nil
}

func (m *mockSystemLogRepository) Create(_ context.Context, entry *model.SystemLog) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockSystemLogRepository) List(_ context.Context, limit int) ([]model.SystemLog, error) {
	var entries []model.SystemLog
	for i := len(m.entries) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, m.entries[i])
	}
	return entries, nil
}

func (m *mockSystemLogRepository) actions() []string {
	var actions []string
	for _, entry := range m.entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

type mockPasswordManager struct{}

func (mockPasswordManager) Hash(plainTextPassword string) (string, error) {
	return "hashed:" + plainTextPassword, nil
}

func (mockPasswordManager) Check(hashedPassword, plainTextPassword string) (bool, error) {
	return hashedPassword == "hashed:"+plainTextPassword, nil
}

type sentMail struct {
	recipient string
	subject   string
	body      string
}

type mockMailer struct {
	sent []sentMail
}

func (m *mockMailer) Send(_ context.Context, recipient, subject, body string) error {
	m.sent = append(m.sent, sentMail{recipient: recipient, subject: subject, body: body})
	return nil
}

type mockCooldownStore struct {
	granted map[string]bool
}

func newMockCooldownStore() *mockCooldownStore {
	return &mockCooldownStore{granted: make(map[string]bool)}
}

func (m *mockCooldownStore) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	if m.granted[key] {
		return false, nil
	}
	m.granted[key] = true
	return true, nil
}

func (m *mockCooldownStore) expire(key string) {
	delete(m.granted, key)
}

type refundCall struct {
	transactionID string
	amountCents   int64
}

type mockGateway struct {
	prefix  string
	issued  int
	amounts []int64
	refunds []refundCall
}

func (m *mockGateway) CreateIntent(_ context.Context, _ *model.Order, amountCents int64) (model.PaymentIntent, error) {
	m.issued++
	m.amounts = append(m.amounts, amountCents)
	txID := fmt.Sprintf("%s%04d", m.prefix, m.issued)
	return model.PaymentIntent{
		TransactionID: txID,
		ClientSecret:  txID + "_secret",
		RedirectURL:   "https://paypal.test/checkout?token=" + txID,
	}, nil
}

func (m *mockGateway) Refund(_ context.Context, transactionID string, amountCents int64) error {
	m.refunds = append(m.refunds, refundCall{transactionID: transactionID, amountCents: amountCents})
	return nil
}

type mockEventDispatcher struct {
	events []domain.Event
}

func (m *mockEventDispatcher) Dispatch(event domain.Event) error {
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventDispatcher) Reset() {
	m.events = nil
}

func (m *mockEventDispatcher) types() []string {
	types := make([]string, 0, len(m.events))
	for _, event := range m.events {
		types = append(types, event.Type())
	}
	return types
}
