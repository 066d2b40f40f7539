package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-platform/internal/domain"
	apperrors "github.com/spec-kit/incident-platform/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)

	token, expiresAt, err := tm.GenerateToken(domain.Operator{
		ID:       "op-1",
		TenantID: "tenant-1",
		Role:     domain.OperatorRoleAdmin,
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-1", claims.OperatorID)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, domain.OperatorRoleAdmin, claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 15).GenerateToken(domain.Operator{ID: "op-1"})
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 15).ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 15)
	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := tm.ParseToken(raw)
		assert.Error(t, err)
	}
}

func TestRequireAdminGatesByRole(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	app.Get("/admin",
		func(c *fiber.Ctx) error {
			if role := c.Get("X-Role"); role != "" {
				c.Locals(principalKey, &domain.Operator{ID: "op-1", Role: domain.OperatorRole(role)})
			}
			return c.Next()
		},
		RequireAdmin(),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	cases := []struct {
		role string
		want int
	}{
		{"", fiber.StatusUnauthorized},
		{string(domain.OperatorRoleAgent), fiber.StatusForbidden},
		{string(domain.OperatorRoleAdmin), fiber.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/admin", nil)
		if tc.role != "" {
			req.Header.Set("X-Role", tc.role)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tc.want, resp.StatusCode, "role %q", tc.role)
	}
}

func TestConnectorTokenVerification(t *testing.T) {
	digest, err := HashConnectorToken("connector-secret", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "connector-secret", digest)

	assert.True(t, VerifyConnectorToken(digest, "connector-secret"))
	assert.False(t, VerifyConnectorToken(digest, "wrong-secret"))
	assert.False(t, VerifyConnectorToken("not-a-digest", "connector-secret"))
}
