package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/StKraemer/LeadRadar/app/repository"
	"github.com/StKraemer/LeadRadar/internal/pkg/cache"
	"github.com/StKraemer/LeadRadar/internal/pkg/constants"
	"github.com/StKraemer/LeadRadar/internal/pkg/database"
	"github.com/StKraemer/LeadRadar/internal/pkg/env"
	"github.com/StKraemer/LeadRadar/internal/pkg/metrics/counter"
	"github.com/StKraemer/LeadRadar/internal/pkg/router"
)

func main() {
	app := NewApplication()

	// Periodically drain the redis request tallies into daily_stats.
	go flushCountersLoop()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	app := fiber.New(fiber.Config{
		BodyLimit: 1 << 20, // profiles are small JSON documents
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get(constants.MetricsRoute, basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("ADMIN_USER", "admin"): env.GetEnv("ADMIN_PASSWORD", "admin"),
		},
	}), monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}

func flushCountersLoop() {
	interval := env.GetEnvDuration("COUNTER_FLUSH_INTERVAL", time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if err := counter.FlushAll(); err != nil {
			log.Printf("counter flush failed: %v", err)
		}
	}
}
