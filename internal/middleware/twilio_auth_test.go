package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

const testAuthToken = "test-auth-token"

func newProtectedApp(authToken string) *fiber.App {
	app := fiber.New()
	app.Post("/lionhead-sms", ValidateTwilioSignature(authToken), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})
	return app
}

// sign replicates Twilio's request signing: the full URL concatenated with
// the sorted form parameters, HMAC-SHA1 under the auth token, base64.
func sign(authToken, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := fullURL
	for _, k := range keys {
		data += k + params.Get(k)
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookRequest(params url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/lionhead-sms", strings.NewReader(params.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	req.Host = "example.com"
	return req
}

func TestMissingSignatureRejected(t *testing.T) {
	app := newProtectedApp(testAuthToken)

	res, err := app.Test(webhookRequest(url.Values{"Body": {"Hello"}}), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestInvalidSignatureRejected(t *testing.T) {
	app := newProtectedApp(testAuthToken)

	req := webhookRequest(url.Values{"Body": {"Hello"}})
	req.Header.Set("X-Twilio-Signature", "not-a-real-signature")

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestValidSignatureAccepted(t *testing.T) {
	app := newProtectedApp(testAuthToken)

	params := url.Values{"Body": {"Hello"}, "From": {"+15550001111"}}
	req := webhookRequest(params)
	req.Header.Set("X-Twilio-Signature", sign(testAuthToken, "http://example.com/lionhead-sms", params))

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestMissingAuthTokenIsServerError(t *testing.T) {
	app := newProtectedApp("")

	req := webhookRequest(url.Values{"Body": {"Hello"}})
	req.Header.Set("X-Twilio-Signature", "anything")

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
}
