// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

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

// openAIBaseURL is the OpenAI API root. Package-level var for test substitution.
var openAIBaseURL = "https://api.openai.com/v1"

// OpenAI calls the OpenAI chat completions and embeddings endpoints. Any
// server that speaks the same protocol works through BaseURL.
type OpenAI struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	BaseURL        string
	Client         *http.Client
}

type openAIChatRequest struct {
	Model          string              `json:"model"`
	Messages       []openAIMessage     `json:"messages"`
	Temperature    float32             `json:"temperature"`
	ResponseFormat *openAIResponseType `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseType struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

type openAIEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Complete implements Completer.
func (c *OpenAI) Complete(ctx context.Context, p Prompt) (string, error) {
	req := openAIChatRequest{
		Model:       c.Model,
		Temperature: p.Temperature,
	}
	if p.System != "" {
		req.Messages = append(req.Messages, openAIMessage{Role: "system", Content: p.System})
	}
	req.Messages = append(req.Messages, openAIMessage{Role: "user", Content: p.User})
	if p.JSON {
		req.ResponseFormat = &openAIResponseType{Type: "json_object"}
	}

	var resp openAIChatResponse
	if err := c.post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &Error{Provider: "openai", Kind: KindPermanent, Err: ErrEmptyResponse}
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed implements Embedder.
func (c *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	model := c.EmbeddingModel
	if model == "" {
		model = "text-embedding-3-large"
	}

	var resp openAIEmbeddingResponse
	if err := c.post(ctx, "/embeddings", openAIEmbeddingRequest{Model: model, Input: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &Error{Provider: "openai", Kind: KindPermanent, Err: ErrEmptyResponse}
	}
	return resp.Data[0].Embedding, nil
}

func (c *OpenAI) post(ctx context.Context, path string, body, out any) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	base := c.BaseURL
	if base == "" {
		base = openAIBaseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(base, "/")+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return transportError(ctx, "openai", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return statusError("openai", resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Provider: "openai", Kind: KindTransient, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}
