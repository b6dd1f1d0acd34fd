package main

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pharmalink-backend/api/routes"
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
	"github.com/angelmondragon/pharmalink-backend/pkg/identity"
	"github.com/angelmondragon/pharmalink-backend/pkg/idgen"
	"github.com/angelmondragon/pharmalink-backend/pkg/logger"
	"github.com/angelmondragon/pharmalink-backend/pkg/metrics"
	"github.com/angelmondragon/pharmalink-backend/pkg/outbox"
)

// buildServices constructs every domain service over one database client and
// fills the service fields of params.
func buildServices(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	sessions *session.Manager,
	workflow *metrics.WorkflowMetrics,
	params *routes.RouterParams,
) error {
	conn := dbClient.DB()
	ids := idgen.New()
	notify := notifications.NewEnqueuer(outbox.NewService(outbox.NewRepository(conn), logg))

	pharmacyRepo := pharmacies.NewRepository(conn)
	wholesalerRepo := wholesalers.NewRepository(conn)
	adminRepo := admins.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	inventoryRepo := inventory.NewRepository(conn)
	notificationRepo := notifications.NewRepository(conn)

	var verifier identity.Verifier
	if cfg.Identity.GoogleClientID != "" {
		google, err := identity.NewGoogleVerifier(ctx, cfg.Identity.GoogleClientID, nil)
		if err != nil {
			return fmt.Errorf("google verifier: %w", err)
		}
		verifier = google
	} else {
		logg.Warn(ctx, "google client id not configured, google sign-in disabled")
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Pharmacies:     pharmacyRepo,
		Wholesalers:    wholesalerRepo,
		Admins:         adminRepo,
		SessionManager: sessions,
		Identity:       verifier,
		IDs:            ids,
		JWTConfig:      cfg.JWT,
		Password:       cfg.Password,
		Bootstrap:      cfg.Bootstrap,
		Logger:         logg,
	})
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	pharmacyService, err := pharmacies.NewService(pharmacies.ServiceParams{
		Repository: pharmacyRepo,
		Admins:     adminRepo,
		DB:         dbClient,
		IDs:        ids,
		Notify:     notify,
		Password:   cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("pharmacy service: %w", err)
	}

	wholesalerService, err := wholesalers.NewService(wholesalers.ServiceParams{
		Repository: wholesalerRepo,
		DB:         dbClient,
		IDs:        ids,
		Notify:     notify,
		Password:   cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("wholesaler service: %w", err)
	}

	adminService, err := admins.NewService(admins.ServiceParams{
		Repository:  adminRepo,
		Pharmacies:  pharmacyRepo,
		Wholesalers: wholesalerRepo,
		DB:          dbClient,
		IDs:         ids,
		Notify:      notify,
		Sessions:    sessions,
		Password:    cfg.Password,
		Logger:      logg,
	})
	if err != nil {
		return fmt.Errorf("admin service: %w", err)
	}

	catalogService, err := catalog.NewService(catalogRepo, dbClient, ids, notify)
	if err != nil {
		return fmt.Errorf("catalog service: %w", err)
	}

	inventoryService, err := inventory.NewService(inventoryRepo)
	if err != nil {
		return fmt.Errorf("inventory service: %w", err)
	}

	requestService, err := requests.NewService(requests.ServiceParams{
		Repository: requests.NewRepository(conn),
		Catalog:    catalogRepo,
		Inventory:  inventoryRepo,
		DB:         dbClient,
		IDs:        ids,
		Notify:     notify,
		Logger:     logg,
		Metrics:    workflow,
	})
	if err != nil {
		return fmt.Errorf("request service: %w", err)
	}

	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		return fmt.Errorf("notification service: %w", err)
	}

	params.Auth = authService
	params.Pharmacies = pharmacyService
	params.Wholesalers = wholesalerService
	params.Admins = adminService
	params.Catalog = catalogService
	params.Inventory = inventoryService
	params.Requests = requestService
	params.Notifications = notificationService
	return nil
}
