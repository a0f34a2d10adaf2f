package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// Fixed outputs returned to the backend for the qualified-lead tool. The
// protocol requires one output string per tool call regardless of outcome,
// so failures are encoded here rather than raised.
const (
	leadSentOutput = "Lead information has been successfully sent to the law firm. " +
		"Thank you for providing all the necessary details!"
	leadFailedOutput      = "There was an error sending the lead information. Please try again."
	unknownFunctionOutput = "Unknown function called."
)

// Lead is a prospective client's contact and case details, captured via a
// tool call. Fields are forwarded verbatim; no validation, no persistence.
type Lead struct {
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	City         string `json:"city"`
	LegalConcern string `json:"legalConcern"`
}

// LeadNotifier relays a captured lead to the operator's phone over SMS.
type LeadNotifier struct {
	messenger     Messenger
	operatorPhone string
}

// NewLeadNotifier creates a notifier that alerts operatorPhone.
func NewLeadNotifier(messenger Messenger, operatorPhone string) *LeadNotifier {
	return &LeadNotifier{
		messenger:     messenger,
		operatorPhone: operatorPhone,
	}
}

// Notify sends the lead notification SMS and returns its message SID.
func (n *LeadNotifier) Notify(lead Lead) (string, error) {
	body := fmt.Sprintf("New Qualified Lead:\nFull Name: %s\nPhone: %s\nCity: %s\nSummary of Legal Concern: %s",
		lead.FullName, lead.Phone, lead.City, lead.LegalConcern)

	sid, err := n.messenger.SendSMS(n.operatorPhone, body)
	if err != nil {
		return "", fmt.Errorf("send lead notification: %w", err)
	}

	log.Printf("Lead notification sent: %s", sid)
	return sid, nil
}

// ToolFunc executes one backend-issued function call. It always produces an
// output string; failures are absorbed and encoded in the text.
type ToolFunc func(args string) string

// ToolDispatcher maps function names to local handlers.
type ToolDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]ToolFunc
}

// NewToolDispatcher creates an empty dispatcher.
func NewToolDispatcher() *ToolDispatcher {
	return &ToolDispatcher{
		handlers: make(map[string]ToolFunc),
	}
}

// Register adds a handler for a function name, replacing any existing one.
func (d *ToolDispatcher) Register(name string, fn ToolFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = fn
}

// Dispatch resolves and runs the handler for a tool call. Every branch
// returns an output; an unregistered name yields the fixed unknown-function
// string.
func (d *ToolDispatcher) Dispatch(call ToolCall) ToolOutput {
	log.Printf("Function called: %s %s", call.Function.Name, call.Function.Arguments)

	d.mu.RLock()
	fn := d.handlers[call.Function.Name]
	d.mu.RUnlock()

	if fn == nil {
		return ToolOutput{ToolCallID: call.ID, Output: unknownFunctionOutput}
	}
	return ToolOutput{ToolCallID: call.ID, Output: fn(call.Function.Arguments)}
}

// QualifiedLeadTool builds the send_qualified_lead handler. Parse and
// delivery failures both map to the fixed retry output.
func QualifiedLeadTool(notifier *LeadNotifier) ToolFunc {
	return func(args string) string {
		var lead Lead
		if err := json.Unmarshal([]byte(args), &lead); err != nil {
			log.Printf("Error parsing lead arguments: %v", err)
			return leadFailedOutput
		}

		if _, err := notifier.Notify(lead); err != nil {
			log.Printf("Error sending lead notification: %v", err)
			return leadFailedOutput
		}

		return leadSentOutput
	}
}
