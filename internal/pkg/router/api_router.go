package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/StKraemer/LeadRadar/app/controllers"
	"github.com/StKraemer/LeadRadar/internal/pkg/constants"
	"github.com/StKraemer/LeadRadar/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Coarse per-IP limiter; the real per-account rate limit lives in the
	// usage enforcer.
	api := app.Group(constants.APIV1Prefix, limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
	}))

	api.Get(constants.HealthzRoute, controllers.HandleHealthz)
	api.Post(constants.RegisterRoute, controllers.HandleRegister)

	protected := api.Group("", middleware.APIKeyAuthMiddleware())
	protected.Post(constants.AnalyzeRoute, controllers.HandleAnalyze)
	protected.Get(constants.UsageRoute, controllers.HandleUsageStats)
	protected.Get(constants.UsageEventsRoute, controllers.HandleUsageEvents)
	protected.Post(constants.APIKeyRotate, controllers.HandleRotateAPIKey)
	protected.Get(constants.ICPConfigRoute, controllers.HandleGetICPConfig)
	protected.Put(constants.ICPConfigRoute, controllers.HandlePutICPConfig)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
