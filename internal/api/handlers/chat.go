package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/api/middleware"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/services"
)

// ChatRequest is the body of a streaming chat turn.
type ChatRequest struct {
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

// ChatHandler relays chat turns over SSE and WebSocket.
type ChatHandler struct {
	chat   *services.ChatService
	logger *logrus.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(chat *services.ChatService, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// StreamChatSSE handles POST /api/sessions/:id/chat. The response is a
// server-sent event stream; each event is one JSON object from the wire
// contract (meta, content, done, error).
func (h *ChatHandler) StreamChatSSE(c *fiber.Ctx) error {
	userContext := middleware.GetUserContext(c)
	sessionID := c.Params("id")

	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message content is required",
		})
	}

	// The stream outlives this handler, so it runs on a context cancelled
	// from inside the body writer rather than on the request context.
	ctx, cancel := context.WithCancel(context.Background())

	events, err := h.chat.StreamTurn(ctx, userContext.UserID, sessionID, req.Content, req.Images)
	if err != nil {
		cancel()
		if errors.Is(err, services.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Session not found",
			})
		}
		h.logger.WithError(err).Error("failed to start chat turn")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start chat",
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for ev := range events {
			data, err := json.Marshal(wireEvent(ev))
			if err != nil {
				h.logger.WithError(err).Error("failed to encode stream event")
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				// Client disconnected; cancel aborts the upstream turn.
				return
			}
		}
	})

	return nil
}

// StreamChatWS handles the /ws/chat socket. The client sends one request
// frame per turn; events come back as JSON messages using the same wire
// contract as the SSE endpoint.
func (h *ChatHandler) StreamChatWS(c *websocket.Conn) {
	defer c.Close()

	userID, ok := c.Locals("user_id").(uuid.UUID)
	if !ok {
		c.WriteJSON(fiber.Map{"error": "not authenticated", "done": true})
		return
	}

	for {
		var req struct {
			SessionID string   `json:"session_id"`
			Content   string   `json:"content"`
			Images    []string `json:"images,omitempty"`
		}
		if err := c.ReadJSON(&req); err != nil {
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			c.WriteJSON(fiber.Map{"error": "message content is required", "done": true})
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		events, err := h.chat.StreamTurn(ctx, userID, req.SessionID, req.Content, req.Images)
		if err != nil {
			cancel()
			msg := "failed to start chat"
			if errors.Is(err, services.ErrSessionNotFound) {
				msg = "session not found"
			}
			c.WriteJSON(fiber.Map{"error": msg, "done": true})
			continue
		}

		for ev := range events {
			if err := c.WriteJSON(wireEvent(ev)); err != nil {
				cancel()
				for range events {
				}
				return
			}
		}
		cancel()
	}
}

// wireEvent maps an internal stream event onto the client-facing JSON
// contract.
func wireEvent(ev services.StreamEvent) fiber.Map {
	switch ev.Type {
	case services.EventMeta:
		return fiber.Map{"type": "meta", "search": true, "query": ev.Query}
	case services.EventDone:
		return fiber.Map{"content": "", "done": true}
	case services.EventError:
		return fiber.Map{"error": ev.Err.Error(), "done": true}
	default:
		return fiber.Map{"content": ev.Content, "done": false}
	}
}
