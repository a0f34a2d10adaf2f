package handlers

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Chirraag/lionhead/internal/services"
)

// ConversationDriver runs the full assistant exchange for one inbound SMS.
type ConversationDriver interface {
	HandleInboundMessage(ctx context.Context, phone, text string) (*services.Reply, error)
}

// SMSHandler handles inbound SMS webhook requests.
type SMSHandler struct {
	conversations ConversationDriver
}

// NewSMSHandler creates a new SMS webhook handler.
func NewSMSHandler(conversations ConversationDriver) *SMSHandler {
	return &SMSHandler{conversations: conversations}
}

// inboundPayload covers both accepted request shapes: the custom
// {customData:{message},phone} JSON shape and the Twilio-native {Body,From}
// shape (JSON or form-encoded).
type inboundPayload struct {
	CustomData struct {
		Message string `json:"message"`
	} `json:"customData"`
	Phone string `json:"phone" form:"phone"`
	Body  string `json:"Body" form:"Body"`
	From  string `json:"From" form:"From"`
}

// HandleInboundSMS processes an incoming SMS and replies with the assistant's
// answer. The first recognized payload shape wins; anything else is a 400
// echoing the keys that were received.
func (h *SMSHandler) HandleInboundSMS(c *fiber.Ctx) error {
	log.Printf("Received message data: %s", c.Body())

	var payload inboundPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing inbound payload: %v", err)
		return badPayload(c)
	}

	var message, phone string
	switch {
	case payload.CustomData.Message != "" && payload.Phone != "":
		message = payload.CustomData.Message
		phone = payload.Phone
	case payload.Body != "" && payload.From != "":
		message = payload.Body
		phone = payload.From
	default:
		log.Printf("Unrecognized message format: %s", c.Body())
		return badPayload(c)
	}

	log.Printf("Message: %s", message)
	log.Printf("Phone Number: %s", phone)

	reply, err := h.conversations.HandleInboundMessage(c.UserContext(), phone, message)
	if err != nil {
		log.Printf("Error processing message: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   reply.Text,
		"messageId": reply.MessageID,
	})
}

func badPayload(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":          "Message and phone number are required",
		"receivedFormat": receivedKeys(c),
	})
}

// receivedKeys lists the top-level keys of the request body, for the 400
// diagnostic echo. Always non-nil so it marshals as a JSON array.
func receivedKeys(c *fiber.Ctx) []string {
	keys := []string{}

	contentType := string(c.Request().Header.ContentType())
	if strings.HasPrefix(contentType, fiber.MIMEApplicationForm) {
		c.Request().PostArgs().VisitAll(func(key, _ []byte) {
			keys = append(keys, string(key))
		})
		return keys
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return keys
	}
	for key := range body {
		keys = append(keys, key)
	}
	return keys
}

// HandleTestWebhook echoes a success payload for any request, with no side
// effects.
func HandleTestWebhook(c *fiber.Ctx) error {
	log.Printf("Webhook received: %s", c.Body())
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Webhook received",
	})
}
