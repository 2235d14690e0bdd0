package assistant

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"doable/internal/chat"
)

// CreateProjectTool handles the create_project MCP tool.
type CreateProjectTool struct {
	Session
}

func (t CreateProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("create_project",
		mcp.WithDescription(
			"Create a project in the team. Requires a name and a short key. "+
				"Color and status default when omitted (status defaults to active).",
		),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Short unique project code, e.g. 'web'")),
		mcp.WithString("description", mcp.Description("Project description")),
		mcp.WithString("color", mcp.Description("Hex color, e.g. '#6366f1'")),
		mcp.WithString("status", mcp.Description("Project status"), mcp.Enum("planned", "active", "paused", "completed", "canceled")),
	)
}

func (t CreateProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var d chat.CreateProjectDraft
	d.Name, _ = stringArg(req, "name")
	d.Key, _ = stringArg(req, "key")
	d.Description, _ = stringArg(req, "description")
	d.Color, _ = stringArg(req, "color")
	d.Status, _ = stringArg(req, "status")
	return toolOutcome(t.Service.CreateProject(ctx, t.TeamID, t.ActorID, d))
}

// UpdateProjectTool handles the update_project MCP tool.
type UpdateProjectTool struct {
	Session
}

func (t UpdateProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("update_project",
		mcp.WithDescription("Update a project, located by id or by name. Only the fields provided are changed."),
		mcp.WithString("project_id", mcp.Description("Project id, when known")),
		mcp.WithString("name", mcp.Description("Name of the project to update, when the id is unknown")),
		mcp.WithString("new_name", mcp.Description("Replacement name")),
		mcp.WithString("key", mcp.Description("Replacement key")),
		mcp.WithString("description", mcp.Description("Replacement description")),
		mcp.WithString("color", mcp.Description("Replacement hex color")),
		mcp.WithString("status", mcp.Description("New status"), mcp.Enum("planned", "active", "paused", "completed", "canceled")),
	)
}

func (t UpdateProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var d chat.UpdateProjectDraft
	d.ProjectID, _ = stringArg(req, "project_id")
	d.Name, _ = stringArg(req, "name")
	d.NewName, _ = stringArg(req, "new_name")
	d.Key, _ = stringArg(req, "key")
	d.Description, _ = stringArg(req, "description")
	d.Color, _ = stringArg(req, "color")
	d.Status, _ = stringArg(req, "status")
	return toolOutcome(t.Service.UpdateProject(ctx, t.TeamID, t.ActorID, d))
}

// DeleteProjectTool handles the delete_project MCP tool.
type DeleteProjectTool struct {
	Session
}

func (t DeleteProjectTool) Definition() mcp.Tool {
	return mcp.NewTool("delete_project",
		mcp.WithDescription("Delete a project, located by id or by name. Fails while the project still has issues."),
		mcp.WithString("project_id", mcp.Description("Project id, when known")),
		mcp.WithString("name", mcp.Description("Name of the project to delete, when the id is unknown")),
	)
}

func (t DeleteProjectTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var d chat.DeleteProjectDraft
	d.ProjectID, _ = stringArg(req, "project_id")
	d.Name, _ = stringArg(req, "name")
	return toolOutcome(t.Service.DeleteProject(ctx, t.TeamID, t.ActorID, d))
}
