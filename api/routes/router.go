package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lamnguyendev/keymart-backend/api/controllers"
	"github.com/lamnguyendev/keymart-backend/api/controllers/webhooks"
	"github.com/lamnguyendev/keymart-backend/api/middleware"
	"github.com/lamnguyendev/keymart-backend/pkg/auth"
	"github.com/lamnguyendev/keymart-backend/pkg/enums"
)

type Controllers struct {
	Health *controllers.HealthController
	Cart   *controllers.CartController
	Orders *controllers.OrdersController
	PayOS  *webhooks.PayOSController
}

// New wires the full route tree: public health and webhook endpoints,
// authenticated consumer routes, and role-gated seller/admin subtrees.
func New(ctrl Controllers, issuer *auth.TokenIssuer, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)

	r.Get("/healthz", ctrl.Health.Live)
	r.Get("/readyz", ctrl.Health.Ready)
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/payos", ctrl.PayOS.Handle)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(issuer))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", ctrl.Cart.List)
				r.Post("/items", ctrl.Cart.Add)
				r.Delete("/items/{productID}", ctrl.Cart.Remove)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ctrl.Orders.Create)
				r.Post("/from-cart", ctrl.Orders.CreateFromCart)
				r.Get("/", ctrl.Orders.List)
				r.Get("/{orderID}", ctrl.Orders.Get)
				r.Get("/{orderID}/items", ctrl.Orders.Items)
				r.Get("/{orderID}/invoice", ctrl.Orders.Invoice)
				r.Post("/{orderID}/cancel", ctrl.Orders.Cancel)
			})

			r.Route("/seller", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.MemberRoleSeller, enums.MemberRoleAdmin))
				r.Get("/orders", ctrl.Orders.ListForSeller)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.MemberRoleAdmin))
				r.Post("/orders/{orderID}/refund", ctrl.Orders.Refund)
				r.Get("/orders/expired-count", ctrl.Orders.ExpiredCount)
				r.Post("/orders/cleanup", ctrl.Orders.RunCleanup)
			})
		})
	})

	return r
}
