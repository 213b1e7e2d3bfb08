package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/TableFox/app/repository"
	"github.com/ManuelReschke/TableFox/internal/pkg/billing"
	"github.com/ManuelReschke/TableFox/internal/pkg/cache"
	"github.com/ManuelReschke/TableFox/internal/pkg/constants"
	"github.com/ManuelReschke/TableFox/internal/pkg/database"
	"github.com/ManuelReschke/TableFox/internal/pkg/env"
	"github.com/ManuelReschke/TableFox/internal/pkg/jobqueue"
	"github.com/ManuelReschke/TableFox/internal/pkg/mail"
	"github.com/ManuelReschke/TableFox/internal/pkg/paghiper"
	"github.com/ManuelReschke/TableFox/internal/pkg/ratelimit"
	"github.com/ManuelReschke/TableFox/internal/pkg/router"
	"github.com/ManuelReschke/TableFox/internal/pkg/s3archive"
)

func main() {
	app, queue := NewApplication()
	queue.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info("[Server] Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Errorf("[Server] Shutdown error: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Errorf("[Server] %v", err)
	}
	queue.Stop()
}

func NewApplication() (*fiber.App, *jobqueue.Queue) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	queue := jobqueue.NewQueue(env.GetEnvInt("JOBQUEUE_WORKERS", 3))
	queue.Handle(jobqueue.JobTypePaymentConfirmation, jobqueue.PaymentConfirmationHandler(mail.NewSMTPMailerFromEnv()))

	var archive router.WebhookArchiver
	archiveCfg, err := s3archive.LoadConfig()
	if err != nil {
		log.Fatalf("[S3Archive] %v", err)
	}
	if archiveCfg.Enabled {
		client, err := s3archive.NewClient(context.Background(), archiveCfg)
		if err != nil {
			log.Errorf("[S3Archive] Archive disabled: %v", err)
		} else {
			queue.Handle(jobqueue.JobTypeWebhookArchive, jobqueue.WebhookArchiveHandler(client))
			archive = jobqueue.NewWebhookArchiveScheduler(queue)
		}
	}

	db := database.GetDB()
	gateway := paghiper.NewClientFromEnv()
	svc := billing.NewServiceFromDB(db, gateway, billing.WithNotifier(jobqueue.NewPaymentNotifier(queue)))
	repos := repository.NewFactory(db).GetRepositories()

	app := fiber.New(fiber.Config{
		AppName:   "TableFox",
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	app.Get(constants.HealthRoute, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if err := jobqueue.RegisterMetrics(prometheus.DefaultRegisterer, queue); err != nil {
		log.Errorf("[JobQueue] Failed to register metrics: %v", err)
	}
	mountOperatorRoutes(app, env.GetEnv("METRICS_USER", "admin"), env.GetEnv("METRICS_PASSWORD", ""))

	if specPath, ok := findOpenAPISpec(); ok {
		app.Use(swagger.New(swagger.Config{
			BasePath: constants.DocsBasePath,
			FilePath: specPath,
			Path:     "v1",
		}))
	} else {
		log.Warn("[Server] OpenAPI document not found, /docs/api disabled")
	}

	router.InstallRouter(app, router.Dependencies{
		Billing:        svc,
		Tenants:        repos.Tenant,
		PublicBaseURL:  env.GetEnv("PUBLIC_API_URL", ""),
		PagHiperAPIKey: gateway.APIKey,
		Archive:        archive,
		PollStorage:    ratelimit.NewRedisStorage(),
	})

	return app, queue
}

// mountOperatorRoutes serves /metrics and /monitor behind basic auth. Without
// a password the routes are not mounted at all.
func mountOperatorRoutes(app *fiber.App, user, password string) bool {
	if password == "" {
		log.Warn("[Server] METRICS_PASSWORD is not set, /metrics and /monitor disabled")
		return false
	}
	operatorAuth := basicauth.New(basicauth.Config{
		Users: map[string]string{user: password},
	})
	app.Get(constants.MetricsRoute, operatorAuth, adaptor.HTTPHandler(promhttp.Handler()))
	app.Get(constants.MonitorRoute, operatorAuth, monitor.New(monitor.Config{Title: "TableFox Monitor"}))
	return true
}

func findOpenAPISpec() (string, bool) {
	basePaths := []string{
		"./",
		"../../",
		"../../../",
	}
	for _, path := range basePaths {
		candidate := path + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}
