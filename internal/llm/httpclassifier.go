package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// HTTPClassifier is a Classifier against an OpenAI-chat-completions-shaped
// endpoint over native net/http.
type HTTPClassifier struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewHTTPClassifier builds a classifier against baseURL using apiKey as a
// bearer token and model as the completion model name.
func NewHTTPClassifier(baseURL, apiKey, model string) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends systemPrompt and userPrompt as a two-message chat
// completion and returns the first choice's content.
func (c *HTTPClassifier) Complete(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages, Temperature: 0.3})
	if err != nil {
		return "", m3aerrors.Wrap(m3aerrors.KindProviderUnavailable, "encode chat request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", m3aerrors.Wrap(m3aerrors.KindProviderUnavailable, "build chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", m3aerrors.Wrap(m3aerrors.KindProviderUnavailable, "chat request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", m3aerrors.Wrap(m3aerrors.KindProviderUnavailable, "read chat response", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", m3aerrors.Wrap(m3aerrors.KindProviderUnavailable, "decode chat response", err)
	}
	if parsed.Error != nil {
		return "", m3aerrors.Wrap(m3aerrors.KindProviderUnavailable, "chat API error", fmt.Errorf("%s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", m3aerrors.New(m3aerrors.KindProviderUnavailable, "chat response had no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
