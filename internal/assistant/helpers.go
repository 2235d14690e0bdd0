package assistant

import (
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"doable/internal/chat"
)

// stringArg returns the argument value and whether the caller supplied the
// key at all. A JSON null comes back as (nil, true) so downstream code can
// tell "explicitly cleared" from "not mentioned".
func stringArg(req mcp.CallToolRequest, key string) (*string, bool) {
	raw, ok := req.GetArguments()[key]
	if !ok {
		return nil, false
	}
	if raw == nil {
		return nil, true
	}
	if s, ok := raw.(string); ok {
		return &s, true
	}
	return nil, true
}

// stringSliceArg accepts either a JSON array of strings or one
// comma-separated string, since models produce both.
func stringSliceArg(req mcp.CallToolRequest, key string) []string {
	switch raw := req.GetArguments()[key].(type) {
	case []any:
		var out []string
		for _, v := range raw {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// toolOutcome converts a chat result or error into an MCP result. The
// typed chat errors are clarification prompts the model should relay to
// the user; anything else is a real failure.
func toolOutcome(res chat.Result, err error) (*mcp.CallToolResult, error) {
	if err == nil {
		return mcp.NewToolResultText(res.Message), nil
	}
	var ve *chat.ValidationError
	var re *chat.ResolutionError
	var me *chat.MultiMatchError
	var se *chat.StoreError
	if errors.As(err, &ve) || errors.As(err, &re) || errors.As(err, &me) || errors.As(err, &se) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}
