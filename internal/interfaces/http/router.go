package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/efatura-gateway/internal/application/einvoice"
)

// RouterDeps dependencies for the router.
type RouterDeps struct {
	EInvoiceUC *einvoice.UseCase
	JWTSecret  string
}

// Router registers the API routes.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Protected routes (Bearer token; the tenant claim keys the session cache)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	einv := protected.Group("/einvoice")
	handler := NewEInvoiceHandler(deps.EInvoiceUC)
	einv.Post("/invoices", handler.Submit)
	einv.Get("/invoices/:number/status", handler.Status)
}
