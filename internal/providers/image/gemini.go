package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"server/internal/domain"
)

const (
	geminiDefaultTimeout = 120 * time.Second
	geminiDefaultModel   = "gemini-2.0-flash-exp"
	geminiProviderName   = "gemini"
)

// GeminiOptions controls how the Gemini image client is configured.
type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiGenerator calls generateContent with an image response modality and
// extracts the inline image bytes.
type GeminiGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type geminiImageRequest struct {
	Contents         []geminiImageContent   `json:"contents"`
	GenerationConfig geminiImageGenerConfig `json:"generationConfig"`
}

type geminiImageContent struct {
	Role  string            `json:"role,omitempty"`
	Parts []geminiImagePart `json:"parts"`
}

type geminiImagePart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiImageGenerConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type geminiImageResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiImagePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func NewGeminiGenerator(opts GeminiOptions) (*GeminiGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = geminiDefaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiGenerator{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}
	payload := geminiImageRequest{
		Contents: []geminiImageContent{{
			Role:  "user",
			Parts: []geminiImagePart{{Text: req.Prompt}},
		}},
		GenerationConfig: geminiImageGenerConfig{ResponseModalities: []string{"IMAGE"}},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, &domain.ProviderError{Provider: geminiProviderName, Message: "encode request: " + err.Error()}
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, url.PathEscape(model), url.QueryEscape(g.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, &domain.ProviderError{Provider: geminiProviderName, Message: "build request: " + err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &domain.ProviderError{Provider: geminiProviderName, Message: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, &domain.ProviderError{Provider: geminiProviderName, Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	var out geminiImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &domain.ProviderError{Provider: geminiProviderName, Message: "decode response: " + err.Error()}
	}
	for _, candidate := range out.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, &domain.ProviderError{Provider: geminiProviderName, Message: "decode image payload: " + err.Error()}
			}
			return &Result{Data: data, Format: formatFromMIME(part.InlineData.MIMEType), Model: model, Size: req.Size}, nil
		}
	}
	return nil, &domain.ProviderError{Provider: geminiProviderName, Message: "no image in response"}
}

// formatFromMIME maps an image MIME type to a file extension.
func formatFromMIME(mime string) string {
	switch mime {
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

var _ Generator = (*GeminiGenerator)(nil)
