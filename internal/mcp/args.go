package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// The go-sdk hands tool arguments over as raw JSON; these helpers pull out
// typed values with defaults instead of erroring on absent keys.

func argString(raw json.RawMessage, key, defaultVal string) string {
	v, ok := parseArgs(raw)[key]
	if !ok {
		return defaultVal
	}
	s, ok := v.(string)
	if !ok {
		return defaultVal
	}
	return s
}

func argInt(raw json.RawMessage, key string, defaultVal int) int {
	v, ok := parseArgs(raw)[key]
	if !ok {
		return defaultVal
	}
	// JSON numbers decode as float64.
	f, ok := v.(float64)
	if !ok {
		return defaultVal
	}
	return int(f)
}

func argBool(raw json.RawMessage, key string, defaultVal bool) bool {
	v, ok := parseArgs(raw)[key]
	if !ok {
		return defaultVal
	}
	b, ok := v.(bool)
	if !ok {
		return defaultVal
	}
	return b
}

func parseArgs(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// toolJSON marshals v into a text tool result.
func toolJSON(v any) *mcp.CallToolResult {
	data, _ := json.MarshalIndent(v, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

// toolError builds an error tool result.
func toolError(msg string) *mcp.CallToolResult {
	var r mcp.CallToolResult
	r.SetError(fmt.Errorf("%s", msg))
	return &r
}
