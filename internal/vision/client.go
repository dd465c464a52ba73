// Package vision extracts product pricing from captured screenshots via an
// OpenAI-compatible chat completions endpoint with image input.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pricelens/pricelens/internal/types"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second

	chatCompletionsPath = "/chat/completions"

	// maxResponseSize bounds the API response read.
	maxResponseSize = 1 << 20
)

// extractionPrompt asks for a fixed line-oriented answer format so the reply
// parses without a second model call.
const extractionPrompt = `Analyze this e-commerce product page screenshot and extract pricing information.
Respond with EXACTLY these lines, using "Not found" when a value is absent:
PRODUCT_NAME: <name>
ORIGINAL_PRICE: <price before discount>
SALE_PRICE: <current/discounted price>
CURRENCY: <currency code or symbol>
DISCOUNT_PERCENT: <percentage if shown>`

// Client calls the vision model.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Config contains configuration for the vision client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // Override for testing
	Timeout time.Duration
}

// NewClient creates a vision client.
func NewClient(cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout + 10*time.Second},
	}
}

// IsConfigured returns true if an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// ExtractPricing sends a PNG screenshot to the model and parses the pricing
// answer.
func (c *Client) ExtractPricing(ctx context.Context, pngData []byte) (*Pricing, error) {
	if !c.IsConfigured() {
		return nil, types.ErrVisionAPIKey
	}

	raw, err := c.complete(ctx, pngData)
	if err != nil {
		return nil, err
	}

	pricing := ParsePricing(raw)
	log.Debug().
		Str("product", pricing.ProductName).
		Str("sale_price", pricing.SalePrice).
		Str("currency", pricing.Currency).
		Msg("Pricing extracted from screenshot")
	return pricing, nil
}

func (c *Client) complete(ctx context.Context, pngData []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(pngData)

	reqBody := chatRequest{
		Model:     c.model,
		MaxTokens: 300,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: extractionPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: "data:image/png;base64," + encoded}},
			},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal vision request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("read vision response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", types.ErrVisionBadStatus, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode vision response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", types.ErrVisionBadStatus, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", types.ErrVisionNoContent
	}

	return parsed.Choices[0].Message.Content, nil
}
