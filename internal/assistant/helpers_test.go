package assistant

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reqWith(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestStringArg(t *testing.T) {
	req := reqWith(map[string]any{
		"title":    "Fix bug",
		"assignee": nil,
		"count":    3,
	})

	v, present := stringArg(req, "title")
	require.True(t, present)
	require.NotNil(t, v)
	assert.Equal(t, "Fix bug", *v)

	// explicit null: present but nil
	v, present = stringArg(req, "assignee")
	assert.True(t, present)
	assert.Nil(t, v)

	// absent key
	v, present = stringArg(req, "missing")
	assert.False(t, present)
	assert.Nil(t, v)

	// non-string value: present but unusable
	v, present = stringArg(req, "count")
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestStringSliceArg(t *testing.T) {
	req := reqWith(map[string]any{
		"array": []any{"bug", "feature", 7},
		"csv":   "bug, feature , ",
	})

	assert.Equal(t, []string{"bug", "feature"}, stringSliceArg(req, "array"))
	assert.Equal(t, []string{"bug", "feature"}, stringSliceArg(req, "csv"))
	assert.Nil(t, stringSliceArg(req, "missing"))
}
