package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/efatura-gateway/internal/application/einvoice"
	infragib "github.com/jhoicas/efatura-gateway/internal/infrastructure/gib"
	httpRouter "github.com/jhoicas/efatura-gateway/internal/interfaces/http"
	"github.com/jhoicas/efatura-gateway/pkg/config"
	"github.com/jhoicas/efatura-gateway/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("starting application")

	// Fail fast on incomplete GIB configuration; a gateway that cannot reach
	// its backends has nothing to serve.
	if err := cfg.GIB.Validate(); err != nil {
		log.Fatal().Err(err).Msg("GIB configuration")
	}
	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	wireClient := infragib.NewClient(cfg.GIB, log)
	sessions := infragib.NewSessionStore(wireClient, log)
	builder := infragib.NewUBLBuilderService()
	interp := infragib.NewResponseInterpreter()

	einvoiceUC := einvoice.NewUseCase(cfg.GIB, builder, sessions, wireClient, interp, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		EInvoiceUC: einvoiceUC,
		JWTSecret:  cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("application stopped")
}
