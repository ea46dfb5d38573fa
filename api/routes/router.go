package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/checkout-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/checkout-backend/api/controllers/orders"
	"github.com/angelmondragon/checkout-backend/api/middleware"
	"github.com/angelmondragon/checkout-backend/api/responses"
	"github.com/angelmondragon/checkout-backend/internal/card"
	"github.com/angelmondragon/checkout-backend/internal/inventory"
	"github.com/angelmondragon/checkout-backend/internal/orders"
	"github.com/angelmondragon/checkout-backend/internal/payment"
	"github.com/angelmondragon/checkout-backend/internal/products"
	"github.com/angelmondragon/checkout-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/checkout-backend/pkg/errors"
	"github.com/angelmondragon/checkout-backend/pkg/logger"
	"github.com/angelmondragon/checkout-backend/pkg/redis"
)

// Dependencies are the services the HTTP surface dispatches to. Idempotency
// and RateLimiter may be nil, which disables the matching middleware.
type Dependencies struct {
	Products    products.Service
	Ledger      inventory.Ledger
	Orders      orders.Service
	Payments    payment.Authorizer
	Cards       *card.Validator
	Idempotency redis.IdempotencyStore
	RateLimiter redis.RateLimiter
	Ready       map[string]controllers.Pinger
	Metrics     http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.Origins),
	)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responses.WriteError(req.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	adminOnly := middleware.AdminKey(cfg.Admin.APIKeyHash, logg)
	paymentPolicy := middleware.NewRateLimitPolicy("payment", cfg.Payment.RateWindow, cfg.Payment.RateLimit)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Products, logg))
			r.Get("/{id}", controllers.GetProduct(deps.Products, logg))
			r.Post("/{id}/check-availability", controllers.CheckAvailability(deps.Ledger, logg))
			r.With(adminOnly).Put("/{id}/inventory", controllers.UpdateInventory(deps.Ledger, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.With(adminOnly).Get("/", ordercontrollers.List(deps.Orders, logg))
			r.With(adminOnly).Get("/id/{id}", ordercontrollers.GetByID(deps.Orders, logg))
			r.Get("/{orderNumber}", ordercontrollers.GetByNumber(deps.Orders, logg))
			r.With(adminOnly).Put("/{orderNumber}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
			r.With(adminOnly).Post("/{orderNumber}/resend-notification", ordercontrollers.ResendNotification(deps.Orders, logg))
		})

		r.Post("/checkout", ordercontrollers.Checkout(deps.Orders, logg))

		r.Route("/payment", func(r chi.Router) {
			r.Use(middleware.RateLimit(paymentPolicy, deps.RateLimiter, logg))
			r.Post("/process", controllers.ProcessPayment(deps.Payments, logg))
			r.Post("/validate", controllers.ValidatePayment(deps.Cards, logg))
			r.Get("/card-types", controllers.CardTypes())
		})
	})

	return r
}
