package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/api"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/auth"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/config"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/database"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/notify"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/ollama"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/repository/postgres"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/search"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/services"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "change-me-in-production"
		log.Warn("Using default JWT secret. Set CHAT_JWT_SECRET in production!")
	}

	// Connect to database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Chat Backend",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize repositories
	sessionRepo := postgres.NewSessionRepository(db.DB)
	messageRepo := postgres.NewMessageRepository(db.DB)
	summaryRepo := postgres.NewSummaryRepository(db.DB)
	userRepo := postgres.NewUserRepository(db.DB)
	tokenRepo := postgres.NewAuthTokenRepository(db.DB)

	// Generation and search backends
	gen := ollama.NewClient(cfg.Ollama, log)

	// A nil concrete client must not be wrapped in the interface, or the
	// nil check inside the chat service never fires.
	var searcher services.Searcher
	if client := search.NewClient(cfg.Search, log); client != nil {
		searcher = client
	} else {
		log.Info("No search API key configured, retrieval augmentation disabled")
	}

	// Signup notifications
	var notifiers []notify.Notifier
	if cfg.Notify.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlack(cfg.Notify.SlackWebhookURL))
	}
	if cfg.Notify.GotifyURL != "" && cfg.Notify.GotifyToken != "" {
		notifiers = append(notifiers, notify.NewGotify(cfg.Notify.GotifyURL, cfg.Notify.GotifyToken))
	}
	notifier := notify.NewMulti(log, notifiers...)

	// Initialize services
	authService := auth.NewService(
		userRepo,
		tokenRepo,
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTTLDuration(),
		cfg.Auth.RefreshTTLDuration(),
		log,
	)
	svc := services.NewServices(cfg, sessionRepo, messageRepo, summaryRepo, gen, searcher, log)

	// Sweep expired refresh tokens once a day.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := tokenRepo.DeleteExpired(context.Background()); err != nil {
				log.WithError(err).Warn("expired token sweep failed")
			}
		}
	}()

	// Setup routes
	api.SetupRoutes(app, cfg, svc, authService, notifier, db, gen, log)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.WithField("addr", addr).Info("Chat backend starting")
	if err := app.Listen(addr); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
