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

	"github.com/kittclouds/m3a/internal/logging"
	"github.com/kittclouds/m3a/internal/m3aerrors"
)

// HTTPEmbedder is an OpenAI-compatible-embeddings-API EmbeddingProvider.
// It is the reference implementation SPEC_FULL.md's external interface
// describes, not a mandated dependency — any EmbeddingProvider works.
type HTTPEmbedder struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logging.Logger
}

// NewHTTPEmbedder builds an embedder against baseURL (e.g.
// "https://api.openai.com") using apiKey as a bearer token.
func NewHTTPEmbedder(baseURL, apiKey string, log *logging.Logger) *HTTPEmbedder {
	if log == nil {
		log = logging.Noop()
	}
	return &HTTPEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed posts texts to the /v1/embeddings endpoint and returns one vector
// per input, index-aligned.
func (e *HTTPEmbedder) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	clean := make([]string, len(texts))
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			t = " "
		}
		clean[i] = t
	}

	body, err := json.Marshal(embeddingsRequest{Model: model, Input: clean})
	if err != nil {
		return nil, m3aerrors.Wrap(m3aerrors.KindProviderUnavailable, "encode embeddings request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, m3aerrors.Wrap(m3aerrors.KindProviderUnavailable, "build embeddings request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, m3aerrors.Wrap(m3aerrors.KindProviderUnavailable, "embeddings request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, m3aerrors.Wrap(m3aerrors.KindProviderUnavailable, "read embeddings response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, m3aerrors.Wrap(m3aerrors.KindProviderUnavailable,
			fmt.Sprintf("embeddings endpoint returned %d", resp.StatusCode), fmt.Errorf("%s", raw))
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, m3aerrors.Wrap(m3aerrors.KindProviderUnavailable, "decode embeddings response", err)
	}

	out := make([][]float32, len(clean))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[d.Index] = vec
	}

	for i, v := range out {
		if v == nil {
			e.log.Warn("embeddings response missing index", "index", i)
			return nil, m3aerrors.New(m3aerrors.KindProviderUnavailable, "embeddings response missing an index")
		}
	}
	return out, nil
}
