package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/efatura-gateway/internal/application/dto"
	"github.com/jhoicas/efatura-gateway/internal/application/einvoice"
	"github.com/jhoicas/efatura-gateway/internal/domain"
	"github.com/jhoicas/efatura-gateway/internal/domain/entity"
)

// EInvoiceHandler handles document submission and status polling (protected).
type EInvoiceHandler struct {
	uc *einvoice.UseCase
}

// NewEInvoiceHandler builds the handler.
func NewEInvoiceHandler(uc *einvoice.UseCase) *EInvoiceHandler {
	return &EInvoiceHandler{uc: uc}
}

// Submit builds and submits one invoice document.
// POST /api/einvoice/invoices
func (h *EInvoiceHandler) Submit(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid token"})
	}
	var in dto.SubmitInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "invalid request body"})
	}

	draft := draftFromRequest(in)
	outcome, err := h.uc.SubmitInvoice(c.Context(), tenantID, draft)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDraft) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	// Failed submissions are still well-formed answers, not HTTP errors; the
	// outcome body carries the failure kind and text.
	status := fiber.StatusCreated
	if !outcome.Accepted {
		status = fiber.StatusBadGateway
		if outcome.Failure == entity.FailureRejected {
			status = fiber.StatusUnprocessableEntity
		}
	}
	return c.Status(status).JSON(dto.SubmitInvoiceResponse{
		Accepted:       outcome.Accepted,
		Unconfirmed:    outcome.Unconfirmed,
		DocumentID:     outcome.DocumentID,
		DocumentNumber: outcome.DocumentNumber,
		ETTN:           outcome.ETTN,
		DocumentURL:    outcome.DocumentURL,
		Fingerprint:    outcome.Fingerprint,
		FailureKind:    string(outcome.Failure),
		Error:          outcome.ErrorText,
	})
}

// Status polls the backend for the state of a submitted document.
// GET /api/einvoice/invoices/:number/status?type=EFATURA|EARSIV
func (h *EInvoiceHandler) Status(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "invalid token"})
	}
	number := c.Params("number")
	if number == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "document number required"})
	}
	docType := entity.DocumentType(c.Query("type", string(entity.DocumentTypeEInvoice)))

	snap, err := h.uc.CheckStatus(c.Context(), tenantID, number, docType)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidDraft):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		case errors.Is(err, domain.ErrMissingConfig):
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "CONFIG", Message: err.Error()})
		case errors.Is(err, domain.ErrTransport), errors.Is(err, domain.ErrAuthentication),
			errors.Is(err, domain.ErrSessionExpired):
			return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "UPSTREAM", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.StatusResponse{
		DocumentNumber: snap.DocumentNumber,
		StatusCode:     snap.StatusCode,
		StatusText:     snap.StatusText,
		ETTN:           snap.ETTN,
		DocumentURL:    snap.DocumentURL,
	})
}

func draftFromRequest(in dto.SubmitInvoiceRequest) *entity.InvoiceDraft {
	lines := make([]entity.InvoiceLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, entity.InvoiceLine{
			Name:      l.Name,
			Quantity:  l.Quantity,
			Unit:      l.Unit,
			UnitPrice: l.UnitPrice,
			TaxRate:   l.TaxRate,
		})
	}
	return &entity.InvoiceDraft{
		Supplier:       partyFromRequest(in.Supplier),
		Customer:       partyFromRequest(in.Customer),
		Lines:          lines,
		Subtotal:       in.Subtotal,
		TaxTotal:       in.TaxTotal,
		GrandTotal:     in.GrandTotal,
		DocumentType:   entity.DocumentType(in.DocumentType),
		DocumentNumber: in.DocumentNumber,
	}
}

func partyFromRequest(p dto.PartyRequest) entity.Party {
	return entity.Party{
		TaxID:   p.TaxID,
		Name:    p.Name,
		Address: p.Address,
		City:    p.City,
		Country: p.Country,
		Email:   p.Email,
	}
}
