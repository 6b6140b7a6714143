package services

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/press141-netizen/reflex/shared"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultAnthropicModel   = "claude-3-5-sonnet-20240620"
	anthropicVersion        = "2023-06-01"
	maxResponseTokens       = 4000
)

// AnthropicService is the messages-API client used for screenshot analysis.
// One synchronous call per request, no retries: upstream failures surface
// once with whatever diagnostic body the API returned.
type AnthropicService struct {
	appContext.DefaultService

	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

const ANTHROPIC_SVC = "anthropic_svc"

func (svc AnthropicService) Id() string {
	return ANTHROPIC_SVC
}

func (svc *AnthropicService) Configure(ctx *appContext.Context) error {
	svc.apiKey = os.Getenv("ANTHROPIC_API_KEY")

	svc.model = os.Getenv("ANTHROPIC_MODEL")
	if svc.model == "" {
		svc.model = defaultAnthropicModel
	}

	svc.baseURL = os.Getenv("ANTHROPIC_BASE_URL")
	if svc.baseURL == "" {
		svc.baseURL = defaultAnthropicBaseURL
	}

	// Vision requests routinely take tens of seconds.
	svc.httpClient = &http.Client{
		Timeout: 60 * time.Second,
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *AnthropicService) Start() error {
	if svc.apiKey == "" {
		log.Warn("ANTHROPIC_API_KEY not set, analysis requests will fail")
	}
	return nil
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicContentBlock struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
}

// AnalyzeImage sends one image plus instruction text and returns the joined
// text blocks of the reply.
func (svc *AnthropicService) AnalyzeImage(ctx context.Context, image, mimeType, prompt string) (string, error) {
	if svc.apiKey == "" {
		return "", shared.NewConfigError("Server API key not configured")
	}

	reqBody := anthropicRequest{
		Model:     svc.model,
		MaxTokens: maxResponseTokens,
		Messages: []anthropicMessage{{
			Role: "user",
			Content: []anthropicContentBlock{
				{
					Type: "image",
					Source: &anthropicImageSource{
						Type:      "base64",
						MediaType: mimeType,
						Data:      image,
					},
				},
				{
					Type: "text",
					Text: prompt,
				},
			},
		}},
	}

	payload, err := sonic.Marshal(reqBody)
	if err != nil {
		return "", shared.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", shared.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", svc.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := svc.httpClient.Do(req)
	if err != nil {
		return "", shared.NewUpstreamError(0, err.Error(), "AI processing failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", shared.NewUpstreamError(0, err.Error(), "AI processing failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.WithField("status", resp.StatusCode).Error("Anthropic API error")

		var detail interface{}
		if err := sonic.Unmarshal(body, &detail); err != nil {
			detail = string(body)
		}
		return "", shared.NewUpstreamError(resp.StatusCode, detail, "AI processing failed")
	}

	var parsed anthropicResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return "", shared.NewUpstreamError(http.StatusBadGateway, err.Error(), "AI returned malformed response")
	}

	var parts []string
	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}

	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}
