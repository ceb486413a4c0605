// Package mailer wraps the Mailjet v3.1 send API. Every entry point
// returns a Result instead of an error: email dispatch is best-effort
// and must never propagate a provider failure past this boundary.
package mailer

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"sprout_prelaunch/internal/model"
	"sprout_prelaunch/pkg/logger"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.mailjet.com"

type Config struct {
	APIKey              string `yaml:"apiKey"`
	APISecret           string `yaml:"apiSecret"`
	SenderEmail         string `yaml:"senderEmail"`
	SenderName          string `yaml:"senderName"`
	StandardTemplateID  int64  `yaml:"standardTemplateId"`
	EarlyBirdTemplateID int64  `yaml:"earlyBirdTemplateId"`
	BaseURL             string `yaml:"baseUrl"`
	TimeoutSeconds      int    `yaml:"timeoutSeconds"`
}

type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.SenderName == "" {
		cfg.SenderName = "Sprout Marketplace"
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

// Mailjet v3.1 wire types.

type sendRequest struct {
	Messages []mailMessage `json:"Messages"`
}

type mailMessage struct {
	From             address                `json:"From"`
	To               []address              `json:"To"`
	Subject          string                 `json:"Subject,omitempty"`
	TextPart         string                 `json:"TextPart,omitempty"`
	HTMLPart         string                 `json:"HTMLPart,omitempty"`
	TemplateID       int64                  `json:"TemplateID,omitempty"`
	TemplateLanguage bool                   `json:"TemplateLanguage,omitempty"`
	Variables        map[string]interface{} `json:"Variables,omitempty"`
}

type address struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		Status string `json:"Status"`
	} `json:"Messages"`
}

// SendConfirmation sends the signup confirmation template selected by
// the new account's reward tier.
func (c *Client) SendConfirmation(ctx context.Context, to, name string, tier model.RewardTier) Result {
	templateID := c.cfg.StandardTemplateID
	if tier == model.TierEarlyBird1 || tier == model.TierEarlyBird2 {
		templateID = c.cfg.EarlyBirdTemplateID
	}
	return c.SendTemplate(ctx, to, name, templateID)
}

func (c *Client) SendTemplate(ctx context.Context, to, name string, templateID int64) Result {
	if res, ok := c.checkConfig(); !ok {
		return res
	}
	if templateID == 0 {
		logger.Logger().Error("mailjet template id is not configured")
		return Result{Success: false, Message: "Email template is not configured."}
	}

	msg := mailMessage{
		From:             address{Email: c.cfg.SenderEmail, Name: c.cfg.SenderName},
		To:               []address{{Email: to, Name: name}},
		Subject:          "Your Spot is Secured at Sprout!",
		TemplateID:       templateID,
		TemplateLanguage: true,
		Variables:        map[string]interface{}{"name": name},
	}

	return c.send(ctx, msg)
}

// SendRaw sends a fixed subject/body message without a template.
func (c *Client) SendRaw(ctx context.Context, to, subject, textPart, htmlPart string) Result {
	if res, ok := c.checkConfig(); !ok {
		return res
	}

	msg := mailMessage{
		From:     address{Email: c.cfg.SenderEmail, Name: c.cfg.SenderName},
		To:       []address{{Email: to}},
		Subject:  subject,
		TextPart: textPart,
		HTMLPart: htmlPart,
	}

	return c.send(ctx, msg)
}

func (c *Client) checkConfig() (Result, bool) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		logger.Logger().Error("mailjet api key or secret is not configured")
		return Result{Success: false, Message: "Email service is not configured."}, false
	}
	if c.cfg.SenderEmail == "" {
		logger.Logger().Error("mailjet sender email is not configured")
		return Result{Success: false, Message: "Email sender address is not configured."}, false
	}
	return Result{}, true
}

func (c *Client) send(ctx context.Context, msg mailMessage) Result {
	log := logger.Logger()

	body, err := json.Marshal(sendRequest{Messages: []mailMessage{msg}})
	if err != nil {
		log.Error("failed to encode mailjet payload", zap.Error(err))
		return Result{Success: false, Message: "Failed to send confirmation email due to a system error."}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v3.1/send", bytes.NewReader(body))
	if err != nil {
		log.Error("failed to build mailjet request", zap.Error(err))
		return Result{Success: false, Message: "Failed to send confirmation email due to a system error."}
	}
	req.SetBasicAuth(c.cfg.APIKey, c.cfg.APISecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("mailjet request failed", zap.Error(err))
		return Result{Success: false, Message: "Failed to send confirmation email due to a system error."}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("failed to read mailjet response", zap.Error(err))
		return Result{Success: false, Message: "Failed to send confirmation email."}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error("mailjet api error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return Result{Success: false, Message: "Failed to send confirmation email."}
	}

	var out sendResponse
	if err := json.Unmarshal(raw, &out); err == nil {
		for _, m := range out.Messages {
			if m.Status != "success" {
				log.Error("mailjet message not accepted", zap.String("status", m.Status))
				return Result{Success: false, Message: "Failed to send confirmation email via Mailjet."}
			}
		}
	}

	return Result{Success: true, Message: "Confirmation email sent successfully."}
}
