package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// geminiBackend calls generateContent over REST.
type geminiBackend struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func newGeminiBackend(key, baseURL string, httpClient *http.Client) *geminiBackend {
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	return &geminiBackend{apiKey: key, baseURL: strings.TrimSuffix(baseURL, "/"), httpClient: httpClient}
}

// geminiTextRequest is the request body for Gemini text generation.
type geminiTextRequest struct {
	SystemInstruction *geminiTextContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiTextContent `json:"contents"`
	GenerationConfig  *geminiTextGenCfg   `json:"generationConfig,omitempty"`
}

type geminiTextContent struct {
	Role  string           `json:"role,omitempty"`
	Parts []geminiTextPart `json:"parts"`
}

type geminiTextPart struct {
	Text string `json:"text"`
}

type geminiTextGenCfg struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// geminiTextResponse is the response from Gemini generateContent (text mode).
type geminiTextResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiTextPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *geminiBackend) complete(ctx context.Context, req request) (string, error) {
	reqBody := geminiTextRequest{
		SystemInstruction: &geminiTextContent{
			Parts: []geminiTextPart{{Text: req.System}},
		},
		Contents: []geminiTextContent{
			{Role: "user", Parts: []geminiTextPart{{Text: req.User}}},
		},
		GenerationConfig: &geminiTextGenCfg{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, req.Model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	res, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", &statusError{StatusCode: res.StatusCode, Body: string(respBody)}
	}

	var resp geminiTextResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", errEmptyResponse
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
