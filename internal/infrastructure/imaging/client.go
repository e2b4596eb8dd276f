package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"inkmirror-ai/internal/config"
	"inkmirror-ai/internal/domain/services"
)

// Client talks to the external image-edit API. The gate charges a credit
// before calling it, so all this client owes the caller is succeed-or-fail.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(cfg *config.ImagingConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Generate(ctx context.Context, req *services.GenerationRequest) (string, error) {
	requestBody := map[string]interface{}{
		"prompt": req.Prompt,
		"mode":   string(req.Tool),
	}
	if req.ImageURL != "" {
		requestBody["image_url"] = req.ImageURL
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/edits", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var response struct {
		URL   string `json:"url"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}

	if response.Error != nil {
		return "", fmt.Errorf("image API error: %s", response.Error.Message)
	}

	if response.URL == "" {
		return "", fmt.Errorf("no image returned (status %d)", resp.StatusCode)
	}

	return response.URL, nil
}
