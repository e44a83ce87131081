package api

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/api/handlers"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/api/middleware"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/auth"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/config"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/database"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/notify"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/services"
	"github.com/Sudhan30/chat-sudharsana-dev/web"
)

// SetupRoutes configures all API routes
func SetupRoutes(
	app *fiber.App,
	cfg *config.Config,
	svc *services.Services,
	authService *auth.Service,
	notifier notify.Notifier,
	db *database.DB,
	backend handlers.Pinger,
	logger *logrus.Logger,
) {
	authHandler := handlers.NewAuthHandler(authService, notifier, logger, cfg.Server.PublicURL)
	chatHandler := handlers.NewChatHandler(svc.Chat, logger)

	// Health check (public)
	app.Get("/api/health", handlers.HealthCheck(db, backend))

	// ========================================
	// Auth routes (public)
	// ========================================
	authGroup := app.Group("/api/auth")
	authGroup.Post("/signup", authHandler.Signup)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.Refresh)

	// ========================================
	// Protected routes
	// ========================================
	protected := app.Group("/api", middleware.AuthRequired(authService))

	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)

	// Session management
	protected.Post("/sessions", handlers.CreateSession(svc))
	protected.Get("/sessions", handlers.GetSessions(svc))
	protected.Get("/sessions/:id", handlers.GetSession(svc))
	protected.Delete("/sessions/:id", handlers.DeleteSession(svc))
	protected.Get("/sessions/:id/messages", handlers.GetSessionMessages(svc, cfg.Chat.PageLimit))

	// Streaming chat
	protected.Post("/sessions/:id/chat", chatHandler.StreamChatSSE)

	// Admin approval flow. Approve/decline links from the signup
	// notification land here.
	admin := app.Group("/api/admin", middleware.AuthRequired(authService), middleware.RequireRole("admin"))
	admin.Post("/users/:id/approve", authHandler.Approve)
	admin.Post("/users/:id/decline", authHandler.Decline)

	// ========================================
	// WebSocket routes (with auth)
	// ========================================
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		token := c.Query("token")
		if token == "" {
			token = auth.ExtractTokenFromBearer(c.Get("Authorization"))
		}
		if token == "" {
			token = c.Cookies("access_token")
		}
		if token != "" {
			if claims, err := authService.ValidateAccessToken(token); err == nil {
				if userID, err := claims.UserID(); err == nil {
					c.Locals("user_id", userID)
					return c.Next()
				}
			}
		}

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required for WebSocket",
		})
	})
	app.Get("/ws/chat", websocket.New(chatHandler.StreamChatWS))

	// ========================================
	// Static chat client
	// ========================================
	app.Use("/", filesystem.New(filesystem.Config{
		Root:         http.FS(web.Static()),
		Index:        "index.html",
		NotFoundFile: "index.html",
	}))
}
