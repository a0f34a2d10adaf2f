package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/Chirraag/lionhead/internal/services"
)

type mockDriver struct {
	phone string
	text  string
	reply *services.Reply
	err   error
	calls int
}

func (m *mockDriver) HandleInboundMessage(_ context.Context, phone, text string) (*services.Reply, error) {
	m.calls++
	m.phone = phone
	m.text = text
	if m.err != nil {
		return nil, m.err
	}
	return m.reply, nil
}

func newTestApp(driver *mockDriver) *fiber.App {
	app := fiber.New()
	app.Post("/lionhead-sms", NewSMSHandler(driver).HandleInboundSMS)
	app.Post("/webhook-test", HandleTestWebhook)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return doRequest(t, app, req)
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()
	res, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	return res, payload
}

func TestInboundSMSTwilioShape(t *testing.T) {
	driver := &mockDriver{reply: &services.Reply{Text: "Hi there", MessageID: "SM123"}}
	app := newTestApp(driver)

	res, payload := postJSON(t, app, "/lionhead-sms", `{"Body":"Hello","From":"+15550001111"}`)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, true, payload["success"])
	require.Equal(t, "Hi there", payload["message"])
	require.Equal(t, "SM123", payload["messageId"])
	require.Equal(t, "+15550001111", driver.phone)
	require.Equal(t, "Hello", driver.text)
}

func TestInboundSMSCustomShape(t *testing.T) {
	driver := &mockDriver{reply: &services.Reply{Text: "Hi", MessageID: "SM1"}}
	app := newTestApp(driver)

	res, _ := postJSON(t, app, "/lionhead-sms",
		`{"customData":{"message":"Need a lawyer"},"phone":"+15550002222"}`)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "+15550002222", driver.phone)
	require.Equal(t, "Need a lawyer", driver.text)
}

func TestInboundSMSFormEncoded(t *testing.T) {
	driver := &mockDriver{reply: &services.Reply{Text: "Hi", MessageID: "SM1"}}
	app := newTestApp(driver)

	form := url.Values{}
	form.Set("Body", "Hello")
	form.Set("From", "+15550001111")
	req := httptest.NewRequest(http.MethodPost, "/lionhead-sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)

	res, payload := doRequest(t, app, req)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, true, payload["success"])
	require.Equal(t, "+15550001111", driver.phone)
}

func TestInboundSMSEmptyPayload(t *testing.T) {
	driver := &mockDriver{}
	app := newTestApp(driver)

	res, payload := postJSON(t, app, "/lionhead-sms", `{}`)

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Equal(t, "Message and phone number are required", payload["error"])
	require.Equal(t, []interface{}{}, payload["receivedFormat"])
	require.Zero(t, driver.calls)
}

func TestInboundSMSUnrecognizedShape(t *testing.T) {
	driver := &mockDriver{}
	app := newTestApp(driver)

	res, payload := postJSON(t, app, "/lionhead-sms", `{"text":"hi","sender":"someone"}`)

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.ElementsMatch(t, []interface{}{"text", "sender"}, payload["receivedFormat"])
}

func TestInboundSMSPartialTwilioShape(t *testing.T) {
	driver := &mockDriver{}
	app := newTestApp(driver)

	res, _ := postJSON(t, app, "/lionhead-sms", `{"Body":"Hello"}`)

	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	require.Zero(t, driver.calls)
}

func TestInboundSMSDriverFailure(t *testing.T) {
	driver := &mockDriver{err: errors.New("backend unavailable")}
	app := newTestApp(driver)

	res, payload := postJSON(t, app, "/lionhead-sms", `{"Body":"Hello","From":"+15550001111"}`)

	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
	require.Equal(t, false, payload["success"])
	require.Equal(t, "backend unavailable", payload["error"])
}

func TestTestWebhookEcho(t *testing.T) {
	app := newTestApp(&mockDriver{})

	res, payload := postJSON(t, app, "/webhook-test", `{"anything":"goes"}`)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, true, payload["success"])
	require.Equal(t, "Webhook received", payload["message"])
}
