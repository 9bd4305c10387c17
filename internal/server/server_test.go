package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"starbroker/internal/app"
	"starbroker/internal/config"
	"starbroker/pkg/domain"
	"starbroker/pkg/store"
)

func testCatalog(t *testing.T) *store.MemoryStore {
	t.Helper()
	catalog := store.NewMemoryStore()
	if err := catalog.ReplaceStars([]domain.Star{
		{ID: 1, Name: "Sirius", PhotoURL: "https://example.com/sirius.jpg", Constellation: "Canis Major", Description: "The brightest star in the night sky.", DistanceLightYears: 8.6, Magnitude: -1.46},
		{ID: 2, Name: "Vega", PhotoURL: "https://example.com/vega.jpg", Constellation: "Lyra", Description: "A bright bluish star.", DistanceLightYears: 25, Magnitude: 0.03},
	}); err != nil {
		t.Fatalf("seed memory store: %v", err)
	}
	return catalog
}

func newTestServer(t *testing.T, modelBaseURL string) *httptest.Server {
	t.Helper()
	catalog := testCatalog(t)
	appCore, err := app.New(config.FileConfig{
		Provider:      config.ProviderOpenAI,
		ChatModel:     "gpt-4o-mini",
		Temperature:   0.7,
		SystemPrompt:  "You are the Starbroker assistant.",
		OpenAIBaseURL: modelBaseURL,
	}, catalog)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	srv, err := New(Config{App: appCore, Catalog: catalog})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func sseResponse(w http.ResponseWriter, chunks ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, chunk := range chunks {
		fmt.Fprintf(w, "data: %s\n\n", chunk)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func postChat(t *testing.T, baseURL, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(baseURL+"/api/chat", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("post /api/chat: %v", err)
	}
	return resp
}

func TestChatPlainReply(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseResponse(w,
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":"Sirius is the brightest star in the night sky."},"finish_reason":"stop"}]}`,
		)
	}))
	defer model.Close()
	ts := newTestServer(t, model.URL+"/v1")

	resp := postChat(t, ts.URL, `{"message":"tell me about Sirius"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Sirius") {
		t.Fatalf("body = %q, want mention of Sirius", body)
	}
	if nav := resp.Header.Get(NavigationHeader); nav != "" {
		t.Fatalf("navigation header = %q, want empty", nav)
	}
}

func TestChatNavigationHeader(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	var round atomic.Int32
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if round.Add(1) == 1 {
			sseResponse(w,
				`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"navigate","arguments":"{\"destination\":\"star\",\"starId\":2}"}}]},"finish_reason":"tool_calls"}]}`,
			)
			return
		}
		sseResponse(w,
			`{"id":"c2","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":"Taking you to Vega."},"finish_reason":"stop"}]}`,
		)
	}))
	defer model.Close()
	ts := newTestServer(t, model.URL+"/v1")

	resp := postChat(t, ts.URL, `{"message":"show me Vega"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var nav domain.NavigationResult
	if err := json.Unmarshal([]byte(resp.Header.Get(NavigationHeader)), &nav); err != nil {
		t.Fatalf("parse navigation header: %v", err)
	}
	if nav.URL != "/star/2" || nav.Action != "navigate" {
		t.Fatalf("navigation = %+v, want navigate to /star/2", nav)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Vega") {
		t.Fatalf("body = %q, want mention of Vega", body)
	}
	if got := round.Load(); got != 2 {
		t.Fatalf("model invoked %d times, want 2", got)
	}
}

func TestChatSearchToolHitsCatalog(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	var round atomic.Int32
	var toolResult string
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if round.Add(1) == 1 {
			sseResponse(w,
				`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"search","arguments":"{\"query\":\"sirius\"}"}}]},"finish_reason":"tool_calls"}]}`,
			)
			return
		}
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, m := range req.Messages {
			if m.Role == "tool" {
				toolResult = m.Content
			}
		}
		sseResponse(w,
			`{"id":"c2","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":"Found Sirius for you."},"finish_reason":"stop"}]}`,
		)
	}))
	defer model.Close()
	ts := newTestServer(t, model.URL+"/v1")

	resp := postChat(t, ts.URL, `{"message":"find sirius"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(toolResult, `"name":"Sirius"`) {
		t.Fatalf("tool result fed to model = %q, want Sirius row", toolResult)
	}
}

func TestChatRejectsBadRequests(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	ts := newTestServer(t, "")

	for name, body := range map[string]string{
		"invalid json":  `{"message":`,
		"empty message": `{"message":""}`,
	} {
		resp := postChat(t, ts.URL, body)
		var payload map[string]string
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", name, resp.StatusCode)
		}
		if payload["error"] == "" {
			t.Fatalf("%s: missing error body", name)
		}
	}
}

func TestChatMissingCredential(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	ts := newTestServer(t, "")

	resp := postChat(t, ts.URL, `{"message":"hello"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if !strings.Contains(payload["error"], "API key") {
		t.Fatalf("error = %q, want credential message", payload["error"])
	}
}

func TestChatHistoryForwarded(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	var sawHistory bool
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, m := range req.Messages {
			if m.Role == "assistant" && m.Content == "earlier answer" {
				sawHistory = true
			}
		}
		sseResponse(w,
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`,
		)
	}))
	defer model.Close()
	ts := newTestServer(t, model.URL+"/v1")

	resp := postChat(t, ts.URL, `{"message":"next","history":[{"role":"user","content":"earlier question"},{"role":"assistant","content":"earlier answer"}]}`)
	resp.Body.Close()
	if !sawHistory {
		t.Fatal("prior assistant turn was not forwarded to the model")
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var payload map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["status"] != "ok" {
		t.Fatalf("status field = %q, want ok", payload["status"])
	}
}
