package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestChatOpenAI(t *testing.T) {
	client := &Client{
		BaseURL: "https://api.test/v1/chat/completions",
		APIKey:  "sk-test",
		Model:   "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				if req.URL.String() != "https://api.test/v1/chat/completions" {
					t.Errorf("unexpected URL %s", req.URL)
				}
				if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
					t.Errorf("Authorization = %q", got)
				}
				var body chatRequest
				if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
					t.Fatalf("decode request: %v", err)
				}
				if body.Model != "gpt-test" || len(body.Messages) != 2 || body.Messages[0].Role != "system" {
					t.Errorf("unexpected request %+v", body)
				}
				return response(200, `{"choices":[{"message":{"role":"assistant","content":"Cancer Type: Glottic carcinoma"}}]}`)
			}),
		},
	}
	out, err := client.Chat(context.Background(), "system", "user prompt")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out != "Cancer Type: Glottic carcinoma" {
		t.Fatalf("unexpected chat output %s", out)
	}
}

func TestChatAzure(t *testing.T) {
	client := &Client{
		Provider:   ProviderAzure,
		BaseURL:    "https://onco.openai.azure.com/",
		APIKey:     "azure-key",
		Deployment: "gpt-4o",
		APIVersion: "2024-02-15-preview",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				want := "https://onco.openai.azure.com/openai/deployments/gpt-4o/chat/completions?api-version=2024-02-15-preview"
				if req.URL.String() != want {
					t.Errorf("URL = %s, want %s", req.URL, want)
				}
				if req.Header.Get("api-key") != "azure-key" || req.Header.Get("Authorization") != "" {
					t.Errorf("azure auth headers wrong: %v", req.Header)
				}
				return response(200, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
			}),
		},
	}
	out, err := client.Chat(context.Background(), "s", "u")
	if err != nil || out != "ok" {
		t.Fatalf("Chat = %q, %v", out, err)
	}
}

func TestChatAPIError(t *testing.T) {
	client := &Client{
		Model: "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return response(200, `{"error":{"message":"bad"}}`)
			}),
		},
	}
	if _, err := client.Chat(context.Background(), "s", "u"); err == nil || !strings.Contains(err.Error(), "bad") {
		t.Fatalf("expected API error, got %v", err)
	}
}

func TestChatHTTPStatus(t *testing.T) {
	client := &Client{
		Model: "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return response(502, "<html>bad gateway</html>")
			}),
		},
	}
	_, err := client.Chat(context.Background(), "s", "u")
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestChatEmptyChoices(t *testing.T) {
	client := &Client{
		Model: "gpt-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return response(200, `{"choices":[]}`)
			}),
		},
	}
	if _, err := client.Chat(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestEndpoint(t *testing.T) {
	if got, err := (&Client{Model: "m"}).Endpoint(); err != nil || got != DefaultOpenAIURL {
		t.Errorf("default endpoint = %q, %v", got, err)
	}
	if _, err := (&Client{}).Endpoint(); err == nil {
		t.Error("missing model should fail")
	}
	if _, err := (&Client{Provider: ProviderAzure, BaseURL: "https://x"}).Endpoint(); err == nil {
		t.Error("azure without deployment should fail")
	}
	if _, err := (&Client{Provider: "bedrock", Model: "m"}).Endpoint(); err == nil {
		t.Error("unknown provider should fail")
	}
}
