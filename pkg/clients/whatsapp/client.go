package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"bluerock/internal/config"
)

// defaultCountryCode is prepended to local numbers that carry no country
// prefix. The retail operation serves Tanzanian customers.
const defaultCountryCode = "255"

// Client exposes WhatsApp Cloud API operations used by the application.
type Client interface {
	SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendMessageResponse, error)
	SendTemplateMessage(ctx context.Context, req SendTemplateMessageRequest) (*SendMessageResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient    *resty.Client
	phoneNumberID string
}

// NewClient builds a WhatsApp API client using the provided configuration values.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.AccessToken)).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	return &APIClient{
		httpClient:    restyClient,
		phoneNumberID: cfg.PhoneNumberID,
	}
}

// SendTextMessageRequest represents a simplified text message payload.
type SendTextMessageRequest struct {
	To         string
	Body       string
	PreviewURL bool
}

// SendTemplateMessageRequest represents a pre-approved template send.
type SendTemplateMessageRequest struct {
	To           string
	TemplateName string
	LanguageCode string
	Components   []map[string]any
}

// SendMessageResponse mirrors the successful response from Meta.
type SendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// apiError represents a WhatsApp Cloud API error payload.
type apiError struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorData    any    `json:"error_data"`
		ErrorSubcode int    `json:"error_subcode"`
		FBTraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}

// SendTextMessage posts a plain text message to the Cloud API send endpoint.
func (c *APIClient) SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendMessageResponse, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                NormalizePhoneNumber(req.To),
		"type":              "text",
		"text": map[string]any{
			"body":        req.Body,
			"preview_url": req.PreviewURL,
		},
	}

	return c.post(ctx, payload)
}

// SendTemplateMessage posts a pre-approved template message. The language
// code defaults to "en" when unset.
func (c *APIClient) SendTemplateMessage(ctx context.Context, req SendTemplateMessageRequest) (*SendMessageResponse, error) {
	lang := req.LanguageCode
	if lang == "" {
		lang = "en"
	}

	template := map[string]any{
		"name": req.TemplateName,
		"language": map[string]any{
			"code": lang,
		},
	}
	if len(req.Components) > 0 {
		template["components"] = req.Components
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                NormalizePhoneNumber(req.To),
		"type":              "template",
		"template":          template,
	}

	return c.post(ctx, payload)
}

func (c *APIClient) post(ctx context.Context, payload map[string]any) (*SendMessageResponse, error) {
	result := new(SendMessageResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(apiErr).
		Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return nil, fmt.Errorf("send whatsapp message: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := ""
		code := resp.StatusCode()
		if apiErr != nil {
			message = apiErr.Error.Message
			if apiErr.Error.Code != 0 {
				code = apiErr.Error.Code
			}
		}
		return nil, fmt.Errorf("whatsapp api error: code=%d, message=%s", code, message)
	}

	return result, nil
}

// NormalizePhoneNumber rewrites local numbers to international format.
// Numbers already carrying a "+" or the country code pass through unchanged;
// anything else is treated as a local number with its leading zeros stripped.
func NormalizePhoneNumber(number string) string {
	if number == "" || strings.HasPrefix(number, "+") || strings.HasPrefix(number, defaultCountryCode) {
		return number
	}
	return defaultCountryCode + strings.TrimLeft(number, "0")
}
