package assistant

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"doable/internal/chat"
)

// Session carries what every tool needs: the chat service plus the team
// and actor this assistant session is bound to.
type Session struct {
	Service chat.Service
	TeamID  string
	ActorID string
}

// CreateIssueTool handles the create_issue MCP tool.
type CreateIssueTool struct {
	Session
}

func (t CreateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("create_issue",
		mcp.WithDescription(
			"Create an issue in the team. Requires a title, workflow state, "+
				"an explicit priority, and a project. Workflow state, project, "+
				"assignee, and labels may be given by name; they are resolved "+
				"against the team's current context.",
		),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title")),
		mcp.WithString("description", mcp.Description("Longer issue description")),
		mcp.WithString("workflow_state", mcp.Required(), mcp.Description("Workflow state name or id, e.g. 'Todo'")),
		mcp.WithString("priority", mcp.Required(),
			mcp.Description("Issue priority; must be stated explicitly, never guessed"),
			mcp.Enum("none", "low", "medium", "high", "urgent"),
		),
		mcp.WithString("project", mcp.Required(), mcp.Description("Project name or id the issue belongs to")),
		mcp.WithString("assignee", mcp.Description("Member name or id; 'unassigned' leaves the issue unassigned")),
		mcp.WithString("labels", mcp.Description("Label names, comma separated")),
		mcp.WithString("due_date", mcp.Description("Due date, YYYY-MM-DD")),
	)
}

func (t CreateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d := chat.CreateIssueDraft{
		Labels: stringSliceArg(req, "labels"),
	}
	d.Title, _ = stringArg(req, "title")
	d.Description, _ = stringArg(req, "description")
	d.WorkflowState, _ = stringArg(req, "workflow_state")
	d.Priority, _ = stringArg(req, "priority")
	d.Project, _ = stringArg(req, "project")
	d.Assignee, _ = stringArg(req, "assignee")
	d.DueDate, _ = stringArg(req, "due_date")
	return toolOutcome(t.Service.CreateIssue(ctx, t.TeamID, t.ActorID, d))
}

// UpdateIssueTool handles the update_issue MCP tool.
type UpdateIssueTool struct {
	Session
}

func (t UpdateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("update_issue",
		mcp.WithDescription(
			"Update an existing issue, located by id or by title. Only the "+
				"fields provided are changed. Passing 'unassigned' (or null) as "+
				"assignee clears the assignee.",
		),
		mcp.WithString("issue_id", mcp.Description("Issue id, when known")),
		mcp.WithString("title", mcp.Description("Title of the issue to update, when the id is unknown")),
		mcp.WithString("new_title", mcp.Description("Replacement title")),
		mcp.WithString("description", mcp.Description("Replacement description")),
		mcp.WithString("workflow_state", mcp.Description("New workflow state, by name or id")),
		mcp.WithString("priority", mcp.Description("New priority"), mcp.Enum("none", "low", "medium", "high", "urgent")),
		mcp.WithString("project", mcp.Description("Move the issue to this project, by name or id")),
		mcp.WithString("assignee", mcp.Description("New assignee by name or id; 'unassigned' clears it")),
		mcp.WithString("add_labels", mcp.Description("Label names to add, comma separated")),
		mcp.WithString("remove_labels", mcp.Description("Label names to remove, comma separated")),
		mcp.WithString("due_date", mcp.Description("New due date, YYYY-MM-DD")),
	)
}

func (t UpdateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d := chat.UpdateIssueDraft{
		AddLabels:    stringSliceArg(req, "add_labels"),
		RemoveLabels: stringSliceArg(req, "remove_labels"),
	}
	d.IssueID, _ = stringArg(req, "issue_id")
	d.Title, _ = stringArg(req, "title")
	d.NewTitle, _ = stringArg(req, "new_title")
	d.Description, _ = stringArg(req, "description")
	d.WorkflowState, _ = stringArg(req, "workflow_state")
	d.Priority, _ = stringArg(req, "priority")
	d.Project, _ = stringArg(req, "project")
	d.Assignee, d.AssigneeSet = stringArg(req, "assignee")
	d.DueDate, _ = stringArg(req, "due_date")
	return toolOutcome(t.Service.UpdateIssue(ctx, t.TeamID, t.ActorID, d))
}

// DeleteIssueTool handles the delete_issue MCP tool.
type DeleteIssueTool struct {
	Session
}

func (t DeleteIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("delete_issue",
		mcp.WithDescription("Delete an issue, located by id or by title."),
		mcp.WithString("issue_id", mcp.Description("Issue id, when known")),
		mcp.WithString("title", mcp.Description("Title of the issue to delete, when the id is unknown")),
	)
}

func (t DeleteIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var d chat.DeleteIssueDraft
	d.IssueID, _ = stringArg(req, "issue_id")
	d.Title, _ = stringArg(req, "title")
	return toolOutcome(t.Service.DeleteIssue(ctx, t.TeamID, t.ActorID, d))
}
