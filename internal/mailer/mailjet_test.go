package mailer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"sprout_prelaunch/internal/model"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		APIKey:              "key",
		APISecret:           "secret",
		SenderEmail:         "hello@sprout.example",
		StandardTemplateID:  111,
		EarlyBirdTemplateID: 222,
		BaseURL:             baseURL,
	}
}

func TestSend_ConfigErrors(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectedMsg string
	}{
		{
			name:        "missing api key",
			mutate:      func(c *Config) { c.APIKey = "" },
			expectedMsg: "Email service is not configured.",
		},
		{
			name:        "missing api secret",
			mutate:      func(c *Config) { c.APISecret = "" },
			expectedMsg: "Email service is not configured.",
		},
		{
			name:        "missing sender",
			mutate:      func(c *Config) { c.SenderEmail = "" },
			expectedMsg: "Email sender address is not configured.",
		},
		{
			name:        "zero template id",
			mutate:      func(c *Config) { c.StandardTemplateID = 0; c.EarlyBirdTemplateID = 0 },
			expectedMsg: "Email template is not configured.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("http://mailjet.invalid")
			tt.mutate(&cfg)
			c := New(cfg)

			res := c.SendConfirmation(context.Background(), "jane@example.com", "Jane", model.TierStandard)

			assert.False(t, res.Success)
			assert.Equal(t, tt.expectedMsg, res.Message)
		})
	}
}

func TestSendConfirmation_TemplatePayload(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "/v3.1/send", r.URL.Path)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Messages":[{"Status":"success"}]}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res := c.SendConfirmation(context.Background(), "jane@example.com", "Jane", model.TierEarlyBird1)

	assert.True(t, res.Success)
	assert.Equal(t, "Confirmation email sent successfully.", res.Message)

	require.Len(t, got.Messages, 1)
	msg := got.Messages[0]
	assert.Equal(t, int64(222), msg.TemplateID)
	assert.True(t, msg.TemplateLanguage)
	assert.Equal(t, "jane@example.com", msg.To[0].Email)
	assert.Equal(t, "Jane", msg.Variables["name"])
	assert.Equal(t, "hello@sprout.example", msg.From.Email)
	assert.Equal(t, "Sprout Marketplace", msg.From.Name)
}

func TestSendConfirmation_StandardTierUsesStandardTemplate(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"Messages":[{"Status":"success"}]}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res := c.SendConfirmation(context.Background(), "jane@example.com", "Jane", model.TierStandard)

	assert.True(t, res.Success)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, int64(111), got.Messages[0].TemplateID)
}

func TestSendRaw_Payload(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"Messages":[{"Status":"success"}]}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res := c.SendRaw(context.Background(), "jane@example.com", "Thank You for Signing Up!", "plain body", "<p>html body</p>")

	assert.True(t, res.Success)
	require.Len(t, got.Messages, 1)
	msg := got.Messages[0]
	assert.Zero(t, msg.TemplateID)
	assert.Equal(t, "Thank You for Signing Up!", msg.Subject)
	assert.Equal(t, "plain body", msg.TextPart)
	assert.Equal(t, "<p>html body</p>", msg.HTMLPart)
}

func TestSend_ProviderErrorBecomesFailureResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ErrorMessage":"bad credentials"}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res := c.SendConfirmation(context.Background(), "jane@example.com", "Jane", model.TierStandard)

	assert.False(t, res.Success)
	assert.Equal(t, "Failed to send confirmation email.", res.Message)
}

func TestSend_RejectedMessageStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Messages":[{"Status":"error"}]}`))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	res := c.SendConfirmation(context.Background(), "jane@example.com", "Jane", model.TierStandard)

	assert.False(t, res.Success)
	assert.Equal(t, "Failed to send confirmation email via Mailjet.", res.Message)
}

func TestSend_UnreachableProvider(t *testing.T) {
	c := New(testConfig("http://127.0.0.1:1"))
	res := c.SendConfirmation(context.Background(), "jane@example.com", "Jane", model.TierStandard)

	assert.False(t, res.Success)
	assert.Equal(t, "Failed to send confirmation email due to a system error.", res.Message)
}
