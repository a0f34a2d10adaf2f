package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/Chirraag/lionhead/internal/config"
	"github.com/Chirraag/lionhead/internal/handlers"
	"github.com/Chirraag/lionhead/internal/routes"
	"github.com/Chirraag/lionhead/internal/services"
	"github.com/Chirraag/lionhead/internal/storage"
)

func main() {
	// Load .env file for local development
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found - checking environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}
	log.Printf("Using Assistant ID: %s", cfg.AssistantID)

	// Initialize Twilio service
	var messenger services.Messenger
	twilioService, err := services.NewTwilioService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	if err != nil {
		log.Printf("⚠️  Twilio service not initialized: %v - SMS sending will fail", err)
	} else {
		log.Println("✅ Twilio service initialized")
		messenger = twilioService
	}
	if messenger == nil {
		messenger = unconfiguredMessenger{}
	}

	// Session store with hourly expiry sweep
	sessions := storage.NewSessionStore(cfg.SessionTTL)
	sessions.StartSweeper(cfg.SweepInterval)

	// Assistant backend client
	assistant := services.NewAssistantClient(cfg.OpenAIAPIKey)

	// Tool dispatcher with the qualified-lead notifier
	notifier := services.NewLeadNotifier(messenger, cfg.LeadNotificationPhone)
	dispatcher := services.NewToolDispatcher()
	dispatcher.Register("send_qualified_lead", services.QualifiedLeadTool(notifier))

	// Conversation driver
	conversations := services.NewConversationService(
		sessions,
		assistant,
		messenger,
		dispatcher,
		cfg.AssistantID,
		cfg.PollInterval,
		cfg.MaxPolls,
	)
	smsHandler := handlers.NewSMSHandler(conversations)

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "Lionhead SMS Relay v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	// Health check endpoint with service status
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Lionhead SMS Relay",
			"version": "1.0.0",
			"status":  "healthy",
			"twilio": fiber.Map{
				"configured": twilioService != nil,
			},
			"assistant": fiber.Map{
				"configured": cfg.OpenAIAPIKey != "",
			},
			"sessions": sessions.Len(),
		})
	})

	// Health check endpoint for monitoring
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"services": fiber.Map{
				"twilio":    twilioService != nil,
				"assistant": cfg.OpenAIAPIKey != "",
			},
		})
	})

	// Setup routes
	routes.SetupRoutes(app, cfg, smsHandler)

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		sessions.Stop()
		_ = app.Shutdown()
	}()

	log.Printf("🚀 Server running on port %s", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

// unconfiguredMessenger stands in when Twilio credentials are absent so the
// rest of the service can still start for local testing.
type unconfiguredMessenger struct{}

func (unconfiguredMessenger) SendSMS(to, body string) (string, error) {
	log.Printf("📤 SMS to %s (not sent - Twilio not configured): %s", to, body)
	return "", nil
}
