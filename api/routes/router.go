package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pharmalink-backend/api/controllers"
	"github.com/angelmondragon/pharmalink-backend/api/middleware"
	"github.com/angelmondragon/pharmalink-backend/internal/admins"
	"github.com/angelmondragon/pharmalink-backend/internal/auth"
	"github.com/angelmondragon/pharmalink-backend/internal/catalog"
	"github.com/angelmondragon/pharmalink-backend/internal/inventory"
	"github.com/angelmondragon/pharmalink-backend/internal/notifications"
	"github.com/angelmondragon/pharmalink-backend/internal/pharmacies"
	"github.com/angelmondragon/pharmalink-backend/internal/requests"
	"github.com/angelmondragon/pharmalink-backend/internal/wholesalers"
	"github.com/angelmondragon/pharmalink-backend/pkg/auth/session"
	"github.com/angelmondragon/pharmalink-backend/pkg/config"
	"github.com/angelmondragon/pharmalink-backend/pkg/db"
	"github.com/angelmondragon/pharmalink-backend/pkg/enums"
	"github.com/angelmondragon/pharmalink-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/pharmalink-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// RateLimitStore counts attempts inside a fixed window.
type RateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RouterParams carries everything the HTTP surface depends on. Nil stores
// disable the middleware that needs them.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       pkgredis.Pinger
	RateLimit   RateLimitStore
	Idempotency pkgredis.IdempotencyStore
	Sessions    sessionManager
	Metrics     http.Handler

	Auth          auth.Service
	Pharmacies    pharmacies.Service
	Wholesalers   wholesalers.Service
	Catalog       catalog.Service
	Requests      requests.Service
	Inventory     inventory.Service
	Admins        admins.Service
	Notifications notifications.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUsernameLimit,
	)
	loginLimit := middleware.AuthRateLimit(loginPolicy, p.RateLimit, logg)
	registerLimit := middleware.AuthRateLimit(registerPolicy, p.RateLimit, logg)

	var checker session.AccessSessionChecker
	if p.Sessions != nil {
		checker = p.Sessions
	}
	authenticated := middleware.Auth(cfg.JWT, checker, logg)
	idempotent := middleware.Idempotency(p.Idempotency, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})
	if p.Metrics != nil {
		r.Handle("/metrics", p.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/refresh", controllers.AuthRefresh(p.Sessions, cfg.JWT, logg))
			r.Post("/logout", controllers.AuthLogout(p.Sessions, cfg.JWT, logg))
		})

		r.Route("/pharmacies", func(r chi.Router) {
			r.With(registerLimit).Post("/register", controllers.PharmacyRegister(p.Pharmacies, logg))
			r.With(loginLimit).Post("/login", controllers.PharmacyLogin(p.Auth, logg))
			r.With(loginLimit).Post("/google-login", controllers.PharmacyGoogleLogin(p.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(authenticated, middleware.RequireRole(logg, enums.RolePharmacy))
				r.Get("/me", controllers.PharmacyProfile(p.Pharmacies, logg))
				r.Put("/me", controllers.PharmacyUpdateProfile(p.Pharmacies, logg))
				r.Put("/change-password", controllers.PharmacyChangePassword(p.Pharmacies, logg))
				r.Get("/dashboard/stats", controllers.PharmacyDashboard(p.Requests, logg))
				r.Get("/orders", controllers.PharmacyOrders(p.Requests, logg))
				r.Get("/inventory", controllers.PharmacyInventory(p.Inventory, logg))
				r.Get("/inventory/{productId}", controllers.PharmacyInventoryItem(p.Inventory, logg))
				r.Patch("/inventory/{productId}", controllers.PharmacySetInventoryQuantity(p.Inventory, logg))
				r.Get("/notifications", controllers.PharmacyRequestNotifications(p.Requests, logg))
				r.Patch("/notifications/{requestId}/read", controllers.PharmacyMarkRequestNotificationRead(p.Requests, logg))
			})
		})

		r.Route("/wholesalers", func(r chi.Router) {
			r.With(registerLimit).Post("/register", controllers.WholesalerRegister(p.Wholesalers, logg))
			r.With(loginLimit).Post("/login", controllers.WholesalerLogin(p.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(authenticated, middleware.RequireRole(logg, enums.RoleWholesaler))
				r.Get("/me", controllers.WholesalerProfile(p.Wholesalers, logg))
				r.Put("/me", controllers.WholesalerUpdateProfile(p.Wholesalers, logg))
				r.Put("/change-password", controllers.WholesalerChangePassword(p.Wholesalers, logg))
				r.Get("/notifications", controllers.ListNotifications(p.Notifications, logg))
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/compare", controllers.ProductCompare(p.Catalog, logg))

			r.Group(func(r chi.Router) {
				r.Use(authenticated, middleware.RequireRole(logg, enums.RoleWholesaler))
				r.Post("/", controllers.ProductCreate(p.Catalog, logg))
				r.Get("/", controllers.ProductList(p.Catalog, logg))
				r.Put("/{productId}", controllers.ProductUpdate(p.Catalog, logg))
				r.Delete("/{productId}", controllers.ProductDelete(p.Catalog, logg))
			})
		})

		r.Route("/requests", func(r chi.Router) {
			r.Use(authenticated, idempotent)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RolePharmacy))
				r.Post("/", controllers.RequestCreate(p.Requests, logg))
				r.Get("/pharmacy", controllers.RequestListForPharmacy(p.Requests, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleWholesaler))
				r.Get("/wholesaler", controllers.RequestListForWholesaler(p.Requests, logg))
				r.Patch("/{requestId}/approve", controllers.RequestApprove(p.Requests, logg))
				r.Patch("/{requestId}/reject", controllers.RequestReject(p.Requests, logg))
				r.Patch("/{requestId}/cancel", controllers.RequestCancel(p.Requests, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(loginLimit).Post("/login", controllers.AdminLogin(p.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(authenticated, middleware.RequireRole(logg, enums.RoleAdmin), idempotent)

				r.Get("/me", controllers.AdminMe(p.Admins, logg))
				r.Post("/register", controllers.AdminRegisterWholesaler(p.Wholesalers, logg))
				r.Post("/create-admin", controllers.AdminCreate(p.Admins, logg))
				r.Get("/admins", controllers.AdminList(p.Admins, logg))
				r.Delete("/admins/{adminId}", controllers.AdminRemove(p.Admins, logg))
				r.Post("/change-main-password", controllers.AdminChangeMainPassword(p.Admins, logg))
				r.Get("/admin/{adminId}", controllers.AdminGet(p.Admins, logg))
				r.Put("/admin/{adminId}", controllers.AdminUpdate(p.Admins, logg))
				r.Post("/admin/{adminId}/change-password", controllers.AdminChangePassword(p.Admins, logg))

				r.Get("/stats", controllers.AdminStats(p.Admins, logg))
				r.Get("/notifications", controllers.ListNotifications(p.Notifications, logg))

				r.Get("/wholesalers", controllers.AdminListWholesalers(p.Admins, logg))
				r.Get("/wholesalers/growth", controllers.AdminWholesalerGrowth(p.Admins, logg))
				r.Get("/wholesalers/{wholesalerId}", controllers.AdminWholesalerDetails(p.Admins, logg))
				r.Patch("/wholesalers/{wholesalerId}", controllers.AdminUpdateWholesaler(p.Admins, logg))
				r.Patch("/wholesalers/{wholesalerId}/activate", controllers.AdminSetWholesalerActive(p.Admins, logg))

				r.Get("/pharmacies", controllers.AdminListPharmacies(p.Admins, logg))
				r.Get("/pharmacies/{pharmacyId}", controllers.AdminPharmacyDetails(p.Admins, logg))
				r.Patch("/pharmacies/{pharmacyId}", controllers.AdminUpdatePharmacy(p.Admins, logg))
				r.Patch("/pharmacies/{pharmacyId}/approve", controllers.AdminApprovePharmacy(p.Admins, logg))
				r.Patch("/pharmacies/{pharmacyId}/reject", controllers.AdminRejectPharmacy(p.Admins, logg))
				r.Patch("/pharmacies/{pharmacyId}/activate", controllers.AdminSetPharmacyActive(p.Admins, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(authenticated, idempotent)
			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Patch("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
			r.Patch("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
		})
	})

	return r
}
