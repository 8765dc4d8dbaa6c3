package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIProvider_DefaultModel(t *testing.T) {
	p := NewOpenAIProvider("test-key", "", "")
	if p.DefaultModel() != "gpt-4o-mini" {
		t.Errorf("expected default model gpt-4o-mini, got %s", p.DefaultModel())
	}

	p = NewOpenAIProvider("test-key", "", "gpt-4o")
	if p.DefaultModel() != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %s", p.DefaultModel())
	}
}

func TestOpenAIProvider_ParseSimpleResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		resp := wireResponse{
			Choices: []wireChoice{
				{
					Message:      wireMessage{Role: "assistant", Content: "Trace started."},
					FinishReason: "stop",
				},
			},
		}
		resp.Usage.TotalTokens = 15
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := NewOpenAIProvider("test-key", server.URL, "test-model")
	resp, err := p.Chat(context.Background(), &ChatRequest{
		Messages:    []Message{{Role: "user", Content: "Start a trace on site 100"}},
		MaxTokens:   100,
		Temperature: 0,
	})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if resp.Content != "Trace started." {
		t.Errorf("expected content 'Trace started.', got '%s'", resp.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("expected finish_reason 'stop', got '%s'", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("expected total_tokens 15, got %d", resp.Usage.TotalTokens)
	}
}

func TestOpenAIProvider_ForcedToolCall(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := wireResponse{
			Choices: []wireChoice{{
				Message: wireMessage{
					Role:      "assistant",
					ToolCalls: []wireToolCall{{ID: "call_1", Type: "function"}},
				},
				FinishReason: "stop",
			}},
		}
		resp.Choices[0].Message.ToolCalls[0].Function.Name = "route"
		resp.Choices[0].Message.ToolCalls[0].Function.Arguments = `{"next":"Tracer"}`
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := NewOpenAIProvider("test-key", server.URL, "test-model")
	resp, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi", Name: "Reviewer"}},
		Tools: []ToolDefinition{{
			Type:     "function",
			Function: FunctionDef{Name: "route", Parameters: map[string]any{"type": "object"}},
		}},
		ForceTool: "route",
	})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}

	choice, ok := body["tool_choice"].(map[string]any)
	if !ok {
		t.Fatalf("expected object tool_choice, got %v", body["tool_choice"])
	}
	if fn, _ := choice["function"].(map[string]any); fn["name"] != "route" {
		t.Errorf("expected forced route, got %v", choice)
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 1 || msgs[0].(map[string]any)["name"] != "Reviewer" {
		t.Errorf("expected named message, got %v", body["messages"])
	}
	if _, ok := body["max_tokens"]; ok {
		t.Error("max_tokens should be omitted when zero")
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	if tc := resp.ToolCalls[0]; tc.Name != "route" || tc.Arguments["next"] != "Tracer" {
		t.Errorf("unexpected tool call %+v", tc)
	}
}

func TestOpenAIProvider_AutoToolChoice(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("test-key", server.URL, "test-model")
	_, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
		Tools:    []ToolDefinition{{Type: "function", Function: FunctionDef{Name: "get_site_list"}}},
	})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if body["tool_choice"] != "auto" {
		t.Errorf("expected auto tool_choice, got %v", body["tool_choice"])
	}
}

func TestOpenAIProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "Invalid API key"}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("bad-key", server.URL, "test-model")
	_, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{{Role: "user", Content: "Hello"}},
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || !strings.Contains(apiErr.Body, "Invalid API key") {
		t.Errorf("unexpected api error %+v", apiErr)
	}
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("k", server.URL, "m")
	if _, err := p.Chat(context.Background(), &ChatRequest{}); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestOpenAIProvider_ToolResultRoundTrip(t *testing.T) {
	var body wireRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"done"},"finish_reason":"stop"}]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("k", server.URL, "m")
	_, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{
			{Role: "assistant", ToolCalls: []ToolCall{{ID: "c1", Name: "stop_trace", Arguments: map[string]any{"trace_id": 42}}}},
			{Role: "tool", Content: "stopped", ToolCallID: "c1"},
		},
	})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if body.Model != "m" || len(body.Messages) != 2 {
		t.Fatalf("unexpected request %+v", body)
	}
	call := body.Messages[0].ToolCalls
	if len(call) != 1 || call[0].Function.Arguments != `{"trace_id":42}` || call[0].Type != "function" {
		t.Errorf("unexpected tool call encoding %+v", call)
	}
	if body.Messages[1].ToolCallID != "c1" {
		t.Errorf("expected tool_call_id c1, got %q", body.Messages[1].ToolCallID)
	}
}
