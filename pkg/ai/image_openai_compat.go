package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Fixed image parameters: one square PNG per call at the low-cost quality
// tier. Page illustrations do not need more, and image spend dominates the
// cost of a pipeline run.
const (
	imageSize    = "1024x1024"
	imageQuality = "low"
	imageFormat  = "png"
)

// OpenAICompatImageGenerator calls an OpenAI-compatible /v1/images/generations
// endpoint and decodes the base64 payload into raw bytes.
type OpenAICompatImageGenerator struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAICompatImageGenerator builds an OpenAI-compatible ImageGenerator.
// baseURL should include the /v1 prefix.
func NewOpenAICompatImageGenerator(baseURL, apiKey, model string) *OpenAICompatImageGenerator {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	return &OpenAICompatImageGenerator{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		model:   strings.TrimSpace(model),
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
}

// GenerateImage implements ImageGenerator using the images API.
func (g *OpenAICompatImageGenerator) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if g.model == "" {
		return nil, fmt.Errorf("image generation model required")
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("image prompt required")
	}

	body, err := json.Marshal(oaiImageRequest{
		Model:        g.model,
		Prompt:       prompt,
		N:            1,
		Size:         imageSize,
		Quality:      imageQuality,
		OutputFormat: imageFormat,
		Background:   "auto",
		Moderation:   "auto",
	})
	if err != nil {
		return nil, err
	}

	url := g.baseURL + "/images/generations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp oaiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return nil, fmt.Errorf("image generation api error: %s", errResp.Error.Message)
		}
		return nil, fmt.Errorf("image generation api error: %s", resp.Status)
	}

	var imageResp oaiImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&imageResp); err != nil {
		return nil, fmt.Errorf("image generation decode: %w", err)
	}
	if len(imageResp.Data) == 0 || strings.TrimSpace(imageResp.Data[0].B64JSON) == "" {
		return nil, ErrEmptyImage
	}
	raw, err := base64.StdEncoding.DecodeString(imageResp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("image payload decode: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyImage
	}
	return raw, nil
}

type oaiImageRequest struct {
	Model        string `json:"model"`
	Prompt       string `json:"prompt"`
	N            int    `json:"n"`
	Size         string `json:"size"`
	Quality      string `json:"quality"`
	OutputFormat string `json:"output_format"`
	Background   string `json:"background"`
	Moderation   string `json:"moderation"`
}

type oaiImageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}
