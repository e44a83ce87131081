package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/api/middleware"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/repository"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/services"
)

// CreateSession handles POST /api/sessions
func CreateSession(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userContext := middleware.GetUserContext(c)

		var req struct {
			Title string `json:"title"`
		}
		if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		if req.Title == "" {
			req.Title = "New Conversation"
		}

		session := &repository.Session{
			ID:     uuid.New().String(),
			UserID: userContext.UserID,
			Title:  req.Title,
		}
		if err := svc.Sessions.Create(c.Context(), session); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to create session",
			})
		}

		return c.Status(fiber.StatusCreated).JSON(session)
	}
}

// GetSessions handles GET /api/sessions
func GetSessions(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userContext := middleware.GetUserContext(c)

		sessions, err := svc.Sessions.List(c.Context(), userContext.UserID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to list sessions",
			})
		}
		if sessions == nil {
			sessions = []*repository.Session{}
		}

		return c.JSON(fiber.Map{"sessions": sessions})
	}
}

// GetSession handles GET /api/sessions/:id
func GetSession(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userContext := middleware.GetUserContext(c)

		session, err := svc.Sessions.Get(c.Context(), userContext.UserID, c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to get session",
			})
		}
		if session == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}

		return c.JSON(session)
	}
}

// DeleteSession handles DELETE /api/sessions/:id
func DeleteSession(svc *services.Services) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userContext := middleware.GetUserContext(c)

		if err := svc.Sessions.Delete(c.Context(), userContext.UserID, c.Params("id")); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to delete session",
			})
		}

		return c.JSON(fiber.Map{"message": "Session deleted"})
	}
}

// GetSessionMessages handles GET /api/sessions/:id/messages
func GetSessionMessages(svc *services.Services, pageLimit int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userContext := middleware.GetUserContext(c)
		sessionID := c.Params("id")

		session, err := svc.Sessions.Get(c.Context(), userContext.UserID, sessionID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to get session",
			})
		}
		if session == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}

		offset := c.QueryInt("offset", 0)
		if offset < 0 {
			offset = 0
		}

		messages, err := svc.Messages.ListBySession(c.Context(), sessionID, pageLimit, offset)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to list messages",
			})
		}
		if messages == nil {
			messages = []repository.Message{}
		}

		return c.JSON(fiber.Map{
			"messages": messages,
			"offset":   offset,
			"limit":    pageLimit,
		})
	}
}
