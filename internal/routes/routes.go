package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Farkhat1984/Trai-on/internal/handlers"
	appmw "github.com/Farkhat1984/Trai-on/internal/middleware"
)

func NewRoutes(api *handlers.API) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Post("/auth/login", api.LoginHandler)
	r.With(appmw.Authenticated).Get("/auth/me", api.MeHandler)

	// Public catalog
	r.Get("/products", api.CatalogHandler)
	r.Get("/products/{id}", api.ProductHandler)

	// Metered AI work
	r.With(appmw.Authenticated, appmw.RequireRole(appmw.RoleUser)).
		Post("/generations", api.GenerateHandler)
	r.With(appmw.Authenticated, appmw.RequireRole(appmw.RoleUser)).
		Post("/generations/try-on", api.TryOnHandler)

	// Payments: initiation, synchronous capture, provider webhook
	r.With(appmw.Authenticated, appmw.RequireRole(appmw.RoleUser)).
		Post("/payments/top-up", api.TopUpHandler)
	r.With(appmw.Authenticated, appmw.RequireRole(appmw.RoleShop)).
		Post("/payments/rent", api.RentHandler)
	r.With(appmw.Authenticated, appmw.RequireRole(appmw.RoleUser)).
		Post("/payments/purchase", api.PurchaseHandler)
	r.Post("/payments/capture/{orderID}", api.CaptureHandler)
	r.Post("/payments/webhook", api.WebhookHandler)

	// User account
	r.With(appmw.Authenticated).Get("/transactions", api.TransactionsHandler)
	r.With(appmw.Authenticated, appmw.RequireRole(appmw.RoleUser)).
		Post("/refunds", api.RequestRefundHandler)

	// Shop surface
	r.With(appmw.Authenticated, appmw.RequireRole(appmw.RoleShop)).
		Post("/shop/products", api.SubmitProductHandler)
	r.With(appmw.Authenticated, appmw.RequireRole(appmw.RoleShop)).
		Get("/shop/products", api.ShopProductsHandler)
	r.With(appmw.Authenticated, appmw.RequireRole(appmw.RoleShop)).
		Get("/shop/balance", api.ShopBalanceHandler)

	// Admin surface
	r.Route("/admin", func(r chi.Router) {
		r.Use(appmw.Authenticated, appmw.RequireRole(appmw.RoleAdmin))
		r.Get("/dashboard", api.DashboardHandler)
		r.Get("/moderation/queue", api.ModerationQueueHandler)
		r.Post("/moderation/{id}/approve", api.ApproveProductHandler)
		r.Post("/moderation/{id}/reject", api.RejectProductHandler)
		r.Get("/refunds", api.RefundsListHandler)
		r.Post("/refunds/{id}/decide", api.DecideRefundHandler)
		r.Get("/settings", api.SettingsHandler)
		r.Put("/settings/{key}", api.UpdateSettingHandler)
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}
