package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taskforge/taskforge-api/internal/authz"
	"github.com/taskforge/taskforge-api/internal/models"
	"github.com/taskforge/taskforge-api/internal/utils"
)

// Locals keys set by the JWT middleware and read by handlers.
const (
	LocalsUserID   = "user_id"
	LocalsUsername = "username"
	LocalsUserRole = "user_role"
)

// JWTProtected returns a middleware that validates bearer tokens and attaches
// the verified identity to the request.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authorization := c.Get("Authorization")
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		identity, err := identityFromClaims(claims)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		c.Locals(LocalsUserID, identity.UserID)
		c.Locals(LocalsUsername, identity.Username)
		c.Locals(LocalsUserRole, identity.Role)

		return c.Next()
	}
}

func identityFromClaims(claims jwt.MapClaims) (authz.Identity, error) {
	subject, ok := claims["sub"].(string)
	if !ok {
		return authz.Identity{}, fmt.Errorf("missing subject")
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return authz.Identity{}, fmt.Errorf("invalid subject: %w", err)
	}

	roleClaim, ok := claims["role"].(string)
	if !ok {
		return authz.Identity{}, fmt.Errorf("missing role")
	}

	role := models.Role(strings.ToUpper(strings.TrimSpace(roleClaim)))
	if !role.Valid() {
		return authz.Identity{}, fmt.Errorf("unknown role %q", roleClaim)
	}

	username, _ := claims["username"].(string)

	return authz.Identity{UserID: userID, Username: username, Role: role}, nil
}

// IdentityFromContext rebuilds the verified identity from the request locals.
// The second return is false when the request never passed the JWT middleware.
func IdentityFromContext(c *fiber.Ctx) (authz.Identity, bool) {
	userID, ok := c.Locals(LocalsUserID).(uuid.UUID)
	if !ok {
		return authz.Identity{}, false
	}

	role, ok := c.Locals(LocalsUserRole).(models.Role)
	if !ok {
		return authz.Identity{}, false
	}

	username, _ := c.Locals(LocalsUsername).(string)

	return authz.Identity{UserID: userID, Username: username, Role: role}, true
}
