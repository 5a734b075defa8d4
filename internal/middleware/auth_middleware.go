package middleware

import (
	"strings"

	"go-inventory-uom/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

// Privilege codes checked by the routes.
const (
	PrivilegeTransformationExecute = "transformation:execute"
	PrivilegeStockRestore          = "stock:restore"
	PrivilegeMasterWrite           = "master:write"
)

// RequireAuth validates the bearer token and sets user info in context
func RequireAuth(signer *jwt.Signer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		return authenticate(c, signer, parts[1])
	}
}

// RequireStreamAuth guards websocket upgrades. Browsers cannot set headers on
// the handshake, so the token may also arrive as ?token=<jwt>.
func RequireStreamAuth(signer *jwt.Signer) fiber.Handler {
	bearer := RequireAuth(signer)
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			return bearer(c)
		}
		return authenticate(c, signer, token)
	}
}

func authenticate(c *fiber.Ctx, signer *jwt.Signer, token string) error {
	claims, err := signer.ValidateToken(token)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("user_email", claims.Email)
	c.Locals("user_name", claims.Name)
	c.Locals("user_privileges", claims.Privileges)

	return c.Next()
}

// RequirePrivilege checks if the authenticated user has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals("user_privileges").([]string)
		if !ok {
			return c.Status(403).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, p := range privileges {
			if p == requiredPrivilege {
				return c.Next()
			}
		}

		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires '" + requiredPrivilege + "' privilege",
		})
	}
}

// RequireAnyPrivilege checks if the user has at least one of the specified privileges
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals("user_privileges").([]string)
		if !ok {
			return c.Status(403).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, userPriv := range privileges {
			for _, reqPriv := range requiredPrivileges {
				if userPriv == reqPriv {
					return c.Next()
				}
			}
		}

		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(requiredPrivileges, ", ") + " privileges",
		})
	}
}
