package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
	"storefront/pkg/infrastructure/auth"
	"storefront/pkg/metrics"
)

type TokenAuthority interface {
	Issue(user *model.User) (string, time.Time, error)
	Parse(token string) (auth.Identity, error)
}

type Services struct {
	Users         service.UserService
	Catalog       service.CatalogService
	Quotes        service.QuoteService
	Orders        service.OrderService
	Payments      service.PaymentService
	Invoices      service.InvoiceService
	Reviews       service.ReviewService
	Notifications service.NotificationService
	Wallets       service.WalletService
	Settings      service.SettingsService
	SystemLogs    service.SystemLogService
}

type Options struct {
	Tokens                 TokenAuthority
	StripeWebhookSecret    string
	StripeWebhookTolerance time.Duration
	CORSOrigins            []string
	RateLimitRPS           float64
	RateLimitBurst         int
	// Ready reports whether backing stores answer, for /healthz.
	Ready func(ctx context.Context) error
}

type handler struct {
	Services
	tokens          TokenAuthority
	stripeSecret    string
	stripeTolerance time.Duration
	ready           func(ctx context.Context) error
	now             func() time.Time
}

func Router(services Services, opts Options) http.Handler {
	h := &handler{
		Services:        services,
		tokens:          opts.Tokens,
		stripeSecret:    opts.StripeWebhookSecret,
		stripeTolerance: opts.StripeWebhookTolerance,
		ready:           opts.Ready,
		now:             time.Now,
	}

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler { return metrics.InstrumentHandler(next, metricsRoute) })
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Webhooks authenticate by provider signature, not bearer tokens.
	hooks := r.PathPrefix("/api/webhooks").Subrouter()
	hooks.HandleFunc("/stripe", h.stripeWebhook).Methods(http.MethodPost)
	hooks.HandleFunc("/paypal", h.paypalWebhook).Methods(http.MethodPost)

	s := r.PathPrefix("/api").Subrouter()
	s.Use(h.authenticate, newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).middleware)

	s.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	s.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	s.HandleFunc("/auth/verify", h.verifyEmail).Methods(http.MethodGet)
	s.HandleFunc("/auth/resend-verification", h.resendVerification).Methods(http.MethodPost)
	s.HandleFunc("/auth/check-email", h.checkEmail).Methods(http.MethodGet)
	s.HandleFunc("/auth/check-username", h.checkUsername).Methods(http.MethodGet)
	s.HandleFunc("/me", withUser(h.profile)).Methods(http.MethodGet)
	s.HandleFunc("/me", withUser(h.updateProfile)).Methods(http.MethodPut)

	s.HandleFunc("/categories", h.listCategories).Methods(http.MethodGet)
	s.HandleFunc("/categories", withUser(h.createCategory, model.RoleAdmin)).Methods(http.MethodPost)
	s.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	s.HandleFunc("/products", withUser(h.createProduct, model.RoleVendor, model.RoleAdmin)).Methods(http.MethodPost)
	s.HandleFunc("/products/{id}", h.getProduct).Methods(http.MethodGet)
	s.HandleFunc("/products/{id}/price", withUser(h.changeProductPrice, model.RoleVendor, model.RoleAdmin)).Methods(http.MethodPut)
	s.HandleFunc("/products/{id}/stock", withUser(h.receiveStock, model.RoleVendor, model.RoleAdmin)).Methods(http.MethodPost)
	s.HandleFunc("/products/{id}", withUser(h.archiveProduct, model.RoleVendor, model.RoleAdmin)).Methods(http.MethodDelete)
	s.HandleFunc("/services", h.listServices).Methods(http.MethodGet)
	s.HandleFunc("/services", withUser(h.createService, model.RoleVendor, model.RoleAdmin)).Methods(http.MethodPost)
	s.HandleFunc("/services/{id}", h.getService).Methods(http.MethodGet)
	s.HandleFunc("/services/{id}", withUser(h.deactivateService, model.RoleVendor, model.RoleAdmin)).Methods(http.MethodDelete)

	s.HandleFunc("/{kind:products|services}/{id}/reviews", h.itemReviews).Methods(http.MethodGet)
	s.HandleFunc("/reviews", withUser(h.submitReview)).Methods(http.MethodPost)

	s.HandleFunc("/custom-services/{token}", withUser(h.getQuote)).Methods(http.MethodGet)
	s.HandleFunc("/custom-services/{token}/pay", withUser(h.payQuote)).Methods(http.MethodPost)

	s.HandleFunc("/orders", withUser(h.createOrder)).Methods(http.MethodPost)
	s.HandleFunc("/orders", withUser(h.listMyOrders)).Methods(http.MethodGet)
	s.HandleFunc("/orders/{id}", withUser(h.getOrder)).Methods(http.MethodGet)
	s.HandleFunc("/orders/{id}/cancel", withUser(h.cancelOrder)).Methods(http.MethodPost)
	s.HandleFunc("/orders/{id}/payments", withUser(h.listOrderPayments)).Methods(http.MethodGet)

	s.HandleFunc("/payments/process", withUser(h.processPayment)).Methods(http.MethodPost)
	s.HandleFunc("/payments/{id}", withUser(h.getPayment)).Methods(http.MethodGet)

	s.HandleFunc("/invoices", withUser(h.listMyInvoices)).Methods(http.MethodGet)
	s.HandleFunc("/invoices/{id}", withUser(h.getInvoice)).Methods(http.MethodGet)

	s.HandleFunc("/notifications", withUser(h.listNotifications)).Methods(http.MethodGet)
	s.HandleFunc("/notifications/unread-count", withUser(h.unreadCount)).Methods(http.MethodGet)
	s.HandleFunc("/notifications/read-all", withUser(h.markAllRead)).Methods(http.MethodPost)
	s.HandleFunc("/notifications/{id}/read", withUser(h.markRead)).Methods(http.MethodPost)

	s.HandleFunc("/wallet", withUser(h.wallet)).Methods(http.MethodGet)
	s.HandleFunc("/wallet/transactions", withUser(h.walletTransactions)).Methods(http.MethodGet)

	a := s.PathPrefix("/admin").Subrouter()
	a.HandleFunc("/users/{id}/status", withUser(h.changeUserStatus, model.RoleAdmin)).Methods(http.MethodPut)
	a.HandleFunc("/orders", withUser(h.listAllOrders, model.RoleAdmin)).Methods(http.MethodGet)
	a.HandleFunc("/orders/{id}/status", withUser(h.updateOrderStatus, model.RoleAdmin)).Methods(http.MethodPut)
	a.HandleFunc("/payments/{id}/confirm", withUser(h.confirmPayment, model.RoleAdmin)).Methods(http.MethodPost)
	a.HandleFunc("/payments/{id}/refund", withUser(h.refundPayment, model.RoleAdmin)).Methods(http.MethodPost)
	a.HandleFunc("/custom-services", withUser(h.createQuote, model.RoleAdmin)).Methods(http.MethodPost)
	a.HandleFunc("/custom-services/{id}", withUser(h.cancelQuote, model.RoleAdmin)).Methods(http.MethodDelete)
	a.HandleFunc("/reviews/{id}", withUser(h.moderateReview, model.RoleAdmin)).Methods(http.MethodPut)
	a.HandleFunc("/notifications/broadcast", withUser(h.broadcast, model.RoleAdmin)).Methods(http.MethodPost)
	a.HandleFunc("/wallets/{userId}/deposit", withUser(h.deposit, model.RoleAdmin)).Methods(http.MethodPost)
	a.HandleFunc("/settings", withUser(h.listSettings, model.RoleAdmin)).Methods(http.MethodGet)
	a.HandleFunc("/settings/{key}", withUser(h.updateSetting, model.RoleAdmin)).Methods(http.MethodPut)
	a.HandleFunc("/logs", withUser(h.systemLogs, model.RoleAdmin)).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondFail(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondFail(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return recoveryMiddleware(logMiddleware(corsMiddleware(opts.CORSOrigins)(r)))
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			respondFail(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
	}
	respondOK(w, "ok", nil)
}
