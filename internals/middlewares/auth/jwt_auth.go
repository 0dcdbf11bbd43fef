package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"tuitionhub_backend/internals/helpers/authctx"
)

type AuthJWTOpts struct {
	Secret              string
	AllowCookieFallback bool // pakai cookie access_token jika tidak ada Bearer
	// Optional skips the 401 when no token is sent; a bad token is still rejected.
	Optional bool
}

// AuthJWT verifies an HS256 token and hydrates the authctx locals from the
// claims id, role and student_id.
func AuthJWT(o AuthJWTOpts) fiber.Handler {
	secret := strings.TrimSpace(o.Secret)
	if secret == "" {
		panic("AuthJWT: Secret is required")
	}

	return func(c *fiber.Ctx) error {
		raw := ""
		if authz := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			raw = strings.TrimSpace(authz[7:])
		} else if o.AllowCookieFallback {
			raw = strings.TrimSpace(c.Cookies("access_token"))
		}
		if raw == "" {
			if o.Optional {
				return c.Next()
			}
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}

		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}
		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
		}

		// user id: id, then sub, then user_id
		var uid any
		for _, k := range []string{"id", "sub", "user_id"} {
			if v, ok := claims[k]; ok && v != nil {
				uid = v
				break
			}
		}
		if uid == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
		}
		c.Locals(authctx.LocUserID, uid)

		if role, ok := claims["role"].(string); ok {
			c.Locals(authctx.LocRole, strings.ToUpper(strings.TrimSpace(role)))
		}
		if sid, ok := claims["student_id"]; ok && sid != nil {
			c.Locals(authctx.LocStudentID, sid)
		}
		return c.Next()
	}
}
