package routes

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/Chirraag/lionhead/internal/config"
	"github.com/Chirraag/lionhead/internal/handlers"
	"github.com/Chirraag/lionhead/internal/middleware"
)

// SetupRoutes configures all API routes.
func SetupRoutes(app *fiber.App, cfg *config.Config, smsHandler *handlers.SMSHandler) {
	// Inbound SMS webhook - ENVIRONMENT-AWARE VALIDATION
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		// Development: skip validation for ngrok
		app.Post("/lionhead-sms", smsHandler.HandleInboundSMS)
		if os.Getenv("ENVIRONMENT") == "development" {
			println("⚠️  SMS webhook validation DISABLED for development")
		}
	} else {
		app.Post("/lionhead-sms", middleware.ValidateTwilioSignature(cfg.TwilioAuthToken), smsHandler.HandleInboundSMS)
	}

	// Time-of-day utility
	app.Post("/api/current-time", handlers.HandleCurrentTime)

	// Basic webhook for testing
	app.Post("/webhook-test", handlers.HandleTestWebhook)
}
