package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-platform/internal/api/dto"
	"github.com/spec-kit/incident-platform/internal/auth"
	"github.com/spec-kit/incident-platform/internal/service"
	apperrors "github.com/spec-kit/incident-platform/pkg/util/errorutil"
)

// VendorsHandler exposes the read-only vendor policy surface the board UI
// needs.
type VendorsHandler struct {
	policy *service.PolicyRegistry
}

// NewVendorsHandler constructs handler.
func NewVendorsHandler(policy *service.PolicyRegistry) *VendorsHandler {
	return &VendorsHandler{policy: policy}
}

// List GET /vendors. Admin-only; scoped to the caller's tenant.
func (h *VendorsHandler) List(c *fiber.Ctx) error {
	operator, ok := auth.OperatorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	vendors, err := h.policy.ActiveVendors(c.UserContext(), operator.TenantID)
	if err != nil {
		return err
	}
	summaries := make([]dto.VendorSummary, 0, len(vendors))
	for _, vendor := range vendors {
		summaries = append(summaries, dto.NewVendorSummary(vendor))
	}
	return c.JSON(fiber.Map{"data": summaries})
}

// Columns GET /vendors/:id/columns.
func (h *VendorsHandler) Columns(c *fiber.Ctx) error {
	if _, ok := auth.OperatorFromContext(c); !ok {
		return apperrors.NewUnauthorized("operator required")
	}
	vendorID := c.Params("id")
	columns, err := h.policy.ColumnsFor(c.UserContext(), vendorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.VendorColumnsResponse{
		VendorID: vendorID,
		Columns:  columns,
	}})
}
