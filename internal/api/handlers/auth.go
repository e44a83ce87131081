package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/api/middleware"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/auth"
	"github.com/Sudhan30/chat-sudharsana-dev/internal/notify"
)

// AuthHandler implements the signup/login/token endpoints and the admin
// approval endpoints targeted by notification card links.
type AuthHandler struct {
	auth      *auth.Service
	notifier  notify.Notifier
	logger    *logrus.Logger
	publicURL string
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(authService *auth.Service, notifier notify.Notifier, logger *logrus.Logger, publicURL string) *AuthHandler {
	return &AuthHandler{
		auth:      authService,
		notifier:  notifier,
		logger:    logger,
		publicURL: publicURL,
	}
}

// Signup handles POST /api/auth/signup
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Email == "" || req.Username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and username are required",
		})
	}

	user, err := h.auth.Signup(c.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooWeak):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Signup failed"})
		}
	}

	// Fire-and-forget: delivery failures are logged inside the notifier.
	notice := notify.SignupNotice{
		UserID:     user.ID.String(),
		Email:      user.Email,
		Username:   user.Username,
		ApproveURL: fmt.Sprintf("%s/api/admin/users/%s/approve", h.publicURL, user.ID),
		DeclineURL: fmt.Sprintf("%s/api/admin/users/%s/decline", h.publicURL, user.ID),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = h.notifier.NotifySignup(ctx, notice)
	}()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Signup received, account pending approval",
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, pair, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, auth.ErrNotApproved):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Login failed"})
		}
	}

	h.setAuthCookies(c, pair)

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":       user.ID,
			"email":    user.Email,
			"username": user.Username,
			"role":     user.Role,
		},
		"expires_at": pair.ExpiresAt,
	})
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	token := c.Cookies("refresh_token")
	if token == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&req); err == nil {
			token = req.RefreshToken
		}
	}
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Refresh token required"})
	}

	_, pair, err := h.auth.Refresh(c.Context(), token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired refresh token"})
	}

	h.setAuthCookies(c, pair)

	return c.JSON(fiber.Map{"expires_at": pair.ExpiresAt})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := c.Cookies("refresh_token"); token != "" {
		if err := h.auth.Logout(c.Context(), token); err != nil {
			h.logger.WithError(err).Warn("failed to revoke refresh token")
		}
	}

	c.ClearCookie("access_token", "refresh_token")

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userContext := middleware.GetUserContext(c)
	if userContext == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
	}

	user, err := h.auth.GetUser(c.Context(), userContext.UserID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
		"role":     user.Role,
	})
}

// Approve handles POST /api/admin/users/:id/approve
func (h *AuthHandler) Approve(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	if err := h.auth.Approve(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Approval failed"})
	}

	h.logger.WithField("user_id", id).Info("user approved")
	return c.JSON(fiber.Map{"message": "User approved"})
}

// Decline handles POST /api/admin/users/:id/decline
func (h *AuthHandler) Decline(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	if err := h.auth.Decline(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Decline failed"})
	}

	h.logger.WithField("user_id", id).Info("user declined")
	return c.JSON(fiber.Map{"message": "User declined"})
}

func (h *AuthHandler) setAuthCookies(c *fiber.Ctx, pair *auth.TokenPair) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    pair.AccessToken,
		Expires:  pair.ExpiresAt,
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    pair.RefreshToken,
		Expires:  time.Now().Add(30 * 24 * time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/api/auth",
	})
}
