package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Provider names the chat completion API flavour.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderAzure  Provider = "azure"
)

// DefaultOpenAIURL is used when an OpenAI client has no BaseURL.
const DefaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// DefaultTimeout applies when neither HTTPClient nor Timeout is set.
const DefaultTimeout = 60 * time.Second

// Client calls an OpenAI-compatible or Azure OpenAI chat completion endpoint.
//
// For ProviderOpenAI, BaseURL is the full completions URL and the key is sent
// as a bearer token. For ProviderAzure, BaseURL is the resource endpoint, the
// request goes to the Deployment with ?api-version=APIVersion and the key is
// sent in the api-key header.
type Client struct {
	Provider   Provider
	BaseURL    string
	APIKey     string
	Model      string
	Deployment string
	APIVersion string

	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Chat sends one system and one user message and returns the first choice.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	endpoint, err := c.Endpoint()
	if err != nil {
		return "", err
	}
	messages := []chatMessage{{Role: "system", Content: system}, {Role: "user", Content: user}}
	payload, err := c.send(ctx, endpoint, messages)
	if err != nil {
		return "", err
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return payload.Choices[0].Message.Content, nil
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() (string, error) {
	switch c.Provider {
	case ProviderAzure:
		if c.BaseURL == "" || c.Deployment == "" || c.APIVersion == "" {
			return "", fmt.Errorf("llm: azure endpoint, deployment and api version required")
		}
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			strings.TrimRight(c.BaseURL, "/"), url.PathEscape(c.Deployment), url.QueryEscape(c.APIVersion)), nil
	case ProviderOpenAI, "":
		if c.Model == "" {
			return "", fmt.Errorf("llm: model required")
		}
		if c.BaseURL == "" {
			return DefaultOpenAIURL, nil
		}
		return c.BaseURL, nil
	default:
		return "", fmt.Errorf("llm: unknown provider %q", c.Provider)
	}
}

func (c *Client) send(ctx context.Context, endpoint string, messages []chatMessage) (*chatResponse, error) {
	body := chatRequest{Messages: messages, Temperature: c.Temperature}
	if c.Provider != ProviderAzure {
		body.Model = c.Model
	}
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		if c.Provider == ProviderAzure {
			req.Header.Set("api-key", c.APIKey)
		} else {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}
	var payload chatResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("llm: status %d: %s", resp.StatusCode, snippet(data))
		}
		return nil, fmt.Errorf("llm: decode response: %w", err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("llm error: %s", payload.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("llm: status %d: %s", resp.StatusCode, snippet(data))
	}
	return &payload, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
