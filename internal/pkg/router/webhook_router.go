package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"

	"github.com/StKraemer/LeadRadar/app/controllers"
	"github.com/StKraemer/LeadRadar/internal/pkg/constants"
	"github.com/StKraemer/LeadRadar/internal/pkg/env"
)

// WebhookRouter installs the unauthenticated webhook surface and the
// operator-only admin routes.
type WebhookRouter struct {
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	// Stripe authenticates via the signature header, not an API key.
	app.Post(constants.StripeWebhookRoute, controllers.HandleStripeWebhook)

	adminAuth := basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("ADMIN_USER", "admin"): env.GetEnv("ADMIN_PASSWORD", "admin"),
		},
	})
	app.Get(constants.AdminBudgetRoute, adminAuth, controllers.HandleAdminBudget)
	app.Get(constants.AdminStatsRoute, adminAuth, controllers.HandleAdminStats)
	app.Get(constants.AdminUsersRoute, adminAuth, controllers.HandleAdminUsers)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
