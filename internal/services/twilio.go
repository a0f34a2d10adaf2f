package services

import (
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Messenger dispatches an outbound SMS and returns the provider's message
// identifier.
type Messenger interface {
	SendSMS(to, body string) (string, error)
}

// TwilioService sends SMS messages via the Twilio REST API.
type TwilioService struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioService creates a new Twilio service instance.
func NewTwilioService(accountSID, authToken, from string) (*TwilioService, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioService{
		client: client,
		from:   from,
	}, nil
}

// SendSMS sends an SMS message via Twilio and returns its SID.
func (t *TwilioService) SendSMS(to, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(to)
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send SMS to %s: %v", to, err)
		return "", err
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}

	log.Printf("✅ SMS sent to %s! SID: %s", to, sid)
	return sid, nil
}
