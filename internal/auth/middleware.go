package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-platform/internal/domain"
	apperrors "github.com/spec-kit/incident-platform/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// AuthMiddleware validates bearer tokens and attaches the operator principal.
type AuthMiddleware struct {
	tokens *TokenManager
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	operator := &domain.Operator{
		ID:       claims.OperatorID,
		TenantID: claims.TenantID,
		Role:     claims.Role,
	}
	c.Locals(principalKey, operator)
	return c.Next()
}

// RequireAdmin restricts a route to admin operators.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		operator, ok := OperatorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("operator required")
		}
		if operator.Role != domain.OperatorRoleAdmin {
			return apperrors.NewForbidden("admin role required")
		}
		return c.Next()
	}
}

// OperatorFromContext retrieves the authenticated operator.
func OperatorFromContext(c *fiber.Ctx) (*domain.Operator, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	operator, ok := val.(*domain.Operator)
	return operator, ok
}
