package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"server/internal/domain"
)

const (
	openAIDefaultTimeout = 120 * time.Second
	openAIDefaultModel   = "dall-e-3"
	openAIDefaultSize    = "1024x1024"
	openAIProviderName   = "openai"
)

// OpenAIOptions controls how the DALL-E client is configured.
type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAIGenerator calls the images API. Images are requested as base64 so
// the bytes can be handed straight to the storage uploader without a second
// download round-trip.
type OpenAIGenerator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

type openAIImageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	Size           string `json:"size"`
	Quality        string `json:"quality,omitempty"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type openAIImageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

func NewOpenAIGenerator(opts OpenAIOptions) (*OpenAIGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = openAIDefaultModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAIGenerator{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

func (o *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	model := req.Model
	if model == "" {
		model = o.model
	}
	size := req.Size
	if size == "" {
		size = openAIDefaultSize
	}
	payload := openAIImageRequest{
		Model:          model,
		Prompt:         req.Prompt,
		Size:           size,
		Quality:        "standard",
		N:              1,
		ResponseFormat: "b64_json",
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, &domain.ProviderError{Provider: openAIProviderName, Message: "encode request: " + err.Error()}
	}
	endpoint := fmt.Sprintf("%s/images/generations", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, &domain.ProviderError{Provider: openAIProviderName, Message: "build request: " + err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, &domain.ProviderError{Provider: openAIProviderName, Message: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return nil, &domain.ProviderError{Provider: openAIProviderName, Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	var out openAIImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &domain.ProviderError{Provider: openAIProviderName, Message: "decode response: " + err.Error()}
	}
	if len(out.Data) == 0 {
		return nil, &domain.ProviderError{Provider: openAIProviderName, Message: "no images returned"}
	}
	result := &Result{URL: out.Data[0].URL, Format: "png", Model: model, Size: size}
	if b64 := out.Data[0].B64JSON; b64 != "" {
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, &domain.ProviderError{Provider: openAIProviderName, Message: "decode image payload: " + err.Error()}
		}
		result.Data = data
	}
	if len(result.Data) == 0 && result.URL == "" {
		return nil, &domain.ProviderError{Provider: openAIProviderName, Message: "image payload missing"}
	}
	return result, nil
}

var _ Generator = (*OpenAIGenerator)(nil)
