package mcp

import (
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestArgString(t *testing.T) {
	raw := json.RawMessage(`{"domain":"github.com","top":5}`)

	if got := argString(raw, "domain", ""); got != "github.com" {
		t.Errorf("argString(domain) = %q, want github.com", got)
	}
	if got := argString(raw, "missing", "fallback"); got != "fallback" {
		t.Errorf("argString(missing) = %q, want fallback", got)
	}
	if got := argString(raw, "top", "fallback"); got != "fallback" {
		t.Errorf("argString(top) = %q, want fallback (wrong type)", got)
	}
	if got := argString(nil, "domain", "fallback"); got != "fallback" {
		t.Errorf("argString(nil) = %q, want fallback", got)
	}
}

func TestArgInt(t *testing.T) {
	raw := json.RawMessage(`{"top":10,"domain":"github.com"}`)

	if got := argInt(raw, "top", 0); got != 10 {
		t.Errorf("argInt(top) = %d, want 10", got)
	}
	if got := argInt(raw, "missing", 25); got != 25 {
		t.Errorf("argInt(missing) = %d, want 25", got)
	}
	if got := argInt(raw, "domain", 25); got != 25 {
		t.Errorf("argInt(domain) = %d, want 25 (wrong type)", got)
	}
}

func TestArgBool(t *testing.T) {
	raw := json.RawMessage(`{"blocked_only":true}`)

	if !argBool(raw, "blocked_only", false) {
		t.Error("argBool(blocked_only) should be true")
	}
	if argBool(raw, "missing", false) {
		t.Error("argBool(missing) should fall back to false")
	}
	if !argBool(json.RawMessage(`not json`), "blocked_only", true) {
		t.Error("argBool on bad json should fall back to default")
	}
}

func TestToolJSON(t *testing.T) {
	r := toolJSON(map[string]string{"status": "ALLOWED"})
	if r.IsError {
		t.Error("expected IsError=false")
	}
	if len(r.Content) != 1 {
		t.Fatalf("content len = %d, want 1", len(r.Content))
	}
	tc, ok := r.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] type = %T, want *mcp.TextContent", r.Content[0])
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(tc.Text), &decoded); err != nil {
		t.Fatalf("result text is not json: %v", err)
	}
	if decoded["status"] != "ALLOWED" {
		t.Errorf("status = %q, want ALLOWED", decoded["status"])
	}
}

func TestToolError(t *testing.T) {
	r := toolError("no policy file found")
	if !r.IsError {
		t.Error("expected IsError=true")
	}
}
