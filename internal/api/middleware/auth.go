package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/auth"
)

// UserContext carries the authenticated identity through a request.
type UserContext struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// AuthRequired creates a middleware that requires a valid access token,
// taken from the Authorization header or the access_token cookie (the web
// client authenticates via cookies).
func AuthRequired(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := auth.ExtractTokenFromBearer(c.Get("Authorization"))
		if token == "" {
			token = c.Cookies("access_token")
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		claims, err := authService.ValidateAccessToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		userID, err := claims.UserID()
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token subject",
			})
		}

		c.Locals("user_context", &UserContext{
			UserID: userID,
			Email:  claims.Email,
			Role:   claims.Role,
		})

		return c.Next()
	}
}

// RequireRole creates a middleware that requires a role. It must be chained
// after AuthRequired.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userContext := GetUserContext(c)
		if userContext == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}
		if userContext.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Insufficient permissions",
			})
		}
		return c.Next()
	}
}

// GetUserContext retrieves the authenticated identity from the fiber context.
func GetUserContext(c *fiber.Ctx) *UserContext {
	if ctx := c.Locals("user_context"); ctx != nil {
		if userContext, ok := ctx.(*UserContext); ok {
			return userContext
		}
	}
	return nil
}
