package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/molunlade/contact-api/internal/config"
	"github.com/molunlade/contact-api/internal/database"
	"github.com/molunlade/contact-api/internal/delivery"
	"github.com/molunlade/contact-api/internal/handler"
	"github.com/molunlade/contact-api/internal/middleware"
	"github.com/molunlade/contact-api/internal/models"
	"github.com/molunlade/contact-api/internal/repository"
	"github.com/molunlade/contact-api/internal/router"
	"github.com/molunlade/contact-api/internal/service"
	"github.com/molunlade/contact-api/internal/store"
	"github.com/molunlade/contact-api/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// The idempotency store and delivery channel 1 share the database when one is
	// configured; otherwise submissions live in the local JSON collection and only
	// the notification channels run.
	var (
		submissions  store.SubmissionStore
		chainStorage delivery.Storage
	)
	if cfg.DatabaseURL != "" {
		db, err := database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		if err := db.AutoMigrate(&models.Submission{}); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}

		submissions = store.NewGormStore(db, logger)
		chainStorage = delivery.NewDatabaseStorage(repository.NewSubmissionRepository(db))
	} else {
		fileStore, err := store.NewFileStore(cfg.DataFile, logger)
		if err != nil {
			log.Fatalf("failed to open submissions store: %v", err)
		}
		defer fileStore.Close()

		submissions = fileStore
	}

	var limiterStorage fiber.Storage
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()

		limiterStorage = middleware.NewRedisStorage(redisClient)
	}

	sendgrid := delivery.NewSendGridChannel(delivery.SendGridConfig{
		APIKey:  cfg.SendGridAPIKey,
		To:      cfg.SendGridTo,
		From:    cfg.SendGridFrom,
		Retries: cfg.DeliveryRetries,
		Backoff: cfg.DeliveryBackoff,
		Timeout: cfg.DeliveryTimeout,
	}, logger)

	smtp := delivery.NewSMTPChannel(delivery.SMTPConfig{
		Host:    cfg.SMTPHost,
		Port:    cfg.SMTPPort,
		Secure:  cfg.SMTPSecure,
		User:    cfg.SMTPUser,
		Pass:    cfg.SMTPPass,
		From:    cfg.SMTPFrom,
		To:      cfg.SendGridTo,
		Timeout: cfg.DeliveryTimeout,
	}, logger)

	fallback := delivery.NewTempFileChannel("", logger)

	chain := delivery.NewChain(chainStorage, []delivery.Notifier{sendgrid, smtp}, fallback, cfg.DeliveryTimeout, logger)

	submissionService := service.NewSubmissionService(submissions, chain, service.NewValidator(), cfg.AdminToken, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ErrorHandler: jsonErrorHandler,
	})

	middleware.Register(app, cfg, logger, limiterStorage)
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: submissionHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("addr", cfg.HTTPAddress()).Str("env", cfg.AppEnv).Msg("contact api listening")

	waitForShutdown(app)
}

// jsonErrorHandler keeps unexpected errors inside the JSON envelope without
// leaking internals.
func jsonErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		if code < fiber.StatusInternalServerError {
			message = fiberErr.Message
		}
	}

	return utils.SendError(c, code, message)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
