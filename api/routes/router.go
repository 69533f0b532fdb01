package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freshlane/freshlane-backend/api/controllers"
	ordercontrollers "github.com/freshlane/freshlane-backend/api/controllers/orders"
	webhookcontrollers "github.com/freshlane/freshlane-backend/api/controllers/webhooks"
	"github.com/freshlane/freshlane-backend/api/middleware"
	"github.com/freshlane/freshlane-backend/internal/addresses"
	"github.com/freshlane/freshlane-backend/internal/auth"
	"github.com/freshlane/freshlane-backend/internal/catalog"
	"github.com/freshlane/freshlane-backend/internal/orders"
	"github.com/freshlane/freshlane-backend/internal/payments"
	"github.com/freshlane/freshlane-backend/internal/reviews"
	"github.com/freshlane/freshlane-backend/internal/users"
	"github.com/freshlane/freshlane-backend/pkg/config"
	"github.com/freshlane/freshlane-backend/pkg/db"
	"github.com/freshlane/freshlane-backend/pkg/enums"
	"github.com/freshlane/freshlane-backend/pkg/logger"
	"github.com/freshlane/freshlane-backend/pkg/metrics"
	"github.com/freshlane/freshlane-backend/pkg/redis"
	"github.com/freshlane/freshlane-backend/pkg/stripe"
)

// Deps bundles everything the HTTP surface needs. Optional fields may be
// nil; the affected endpoints then answer with a service-unavailable error.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics

	AuthService     auth.Service
	RegisterService auth.RegisterService
	UserService     users.Service
	CatalogService  catalog.Service
	ReviewService   reviews.Service
	AddressService  addresses.Service
	OrderService    orders.Service
	PaymentService  payments.Service

	StripeClient   *stripe.Client
	WebhookService webhookcontrollers.StripeWebhookService
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
		middleware.Metrics(deps.HTTPMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.WebhookService, deps.StripeClient, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(
			middleware.AuthRateLimit(registerPolicy, deps.Redis, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/register", controllers.AuthRegister(deps.RegisterService, deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))
		r.With(middleware.Auth(cfg.JWT, logg)).Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
	})

	// Public storefront reads.
	r.Get("/api/v1/sellers", controllers.ListSellers(deps.UserService, logg))

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(deps.CatalogService, logg))
		r.Get("/categories", controllers.ListCategories(deps.CatalogService, logg))
		r.Get("/{productId}", controllers.GetProduct(deps.CatalogService, logg))
		r.Get("/{productId}/reviews", controllers.ListReviews(deps.ReviewService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Post("/{productId}/reviews", controllers.UpsertReview(deps.ReviewService, logg))
			r.Put("/{productId}/reviews", controllers.UpsertReview(deps.ReviewService, logg))
			r.Delete("/{productId}/reviews", controllers.DeleteReview(deps.ReviewService, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/users/me", controllers.CurrentUser(deps.UserService, logg))
		r.Put("/users/me", controllers.UpdateCurrentUser(deps.UserService, logg))

		r.Route("/seller", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleSeller, enums.UserRoleAdmin))
			r.Post("/products", controllers.SellerCreateProduct(deps.CatalogService, logg))
			r.Patch("/products/{productId}", controllers.SellerUpdateProduct(deps.CatalogService, logg))
			r.Delete("/products/{productId}", controllers.SellerDeleteProduct(deps.CatalogService, logg))
			r.Get("/orders", ordercontrollers.SellerOrders(deps.OrderService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Place(deps.OrderService, logg))
			r.Get("/my-orders", ordercontrollers.MyOrders(deps.OrderService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.OrderService, logg))
			r.Put("/{orderId}/status", ordercontrollers.Status(deps.OrderService, logg))
			r.Put("/{orderId}/cancel", ordercontrollers.Cancel(deps.OrderService, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Post("/", controllers.CreateAddress(deps.AddressService, logg))
			r.Get("/", controllers.ListAddresses(deps.AddressService, logg))
			r.Patch("/{addressId}", controllers.UpdateAddress(deps.AddressService, logg))
			r.Delete("/{addressId}", controllers.DeleteAddress(deps.AddressService, logg))
			r.Put("/{addressId}/default", controllers.SetDefaultAddress(deps.AddressService, logg))
		})

		r.Post("/payment/create-intent", controllers.CreatePaymentIntent(deps.PaymentService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Get("/orders", ordercontrollers.AdminList(deps.OrderService, logg))
		r.Put("/users/{userId}/role", controllers.AdminChangeUserRole(deps.UserService, logg))
	})

	return r
}
