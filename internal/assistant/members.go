package assistant

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"doable/internal/chat"
)

// InviteMemberTool handles the invite_member MCP tool.
type InviteMemberTool struct {
	Session
}

func (t InviteMemberTool) Definition() mcp.Tool {
	return mcp.NewTool("invite_member",
		mcp.WithDescription("Invite someone to the team by email. Role defaults to developer."),
		mcp.WithString("email", mcp.Required(), mcp.Description("Email address to invite")),
		mcp.WithString("role", mcp.Description("Role for the invitee"), mcp.Enum("admin", "developer", "viewer")),
	)
}

func (t InviteMemberTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var d chat.InviteMemberDraft
	d.Email, _ = stringArg(req, "email")
	d.Role, _ = stringArg(req, "role")
	return toolOutcome(t.Service.InviteMember(ctx, t.TeamID, t.ActorID, d))
}

// RemoveMemberTool handles the remove_member MCP tool.
type RemoveMemberTool struct {
	Session
}

func (t RemoveMemberTool) Definition() mcp.Tool {
	return mcp.NewTool("remove_member",
		mcp.WithDescription("Remove a team member, located by user id or by name."),
		mcp.WithString("user_id", mcp.Description("Member user id, when known")),
		mcp.WithString("user_name", mcp.Description("Member name, when the id is unknown")),
	)
}

func (t RemoveMemberTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var d chat.RemoveMemberDraft
	d.UserID, _ = stringArg(req, "user_id")
	d.UserName, _ = stringArg(req, "user_name")
	return toolOutcome(t.Service.RemoveMember(ctx, t.TeamID, t.ActorID, d))
}

// RevokeInvitationTool handles the revoke_invitation MCP tool.
type RevokeInvitationTool struct {
	Session
}

func (t RevokeInvitationTool) Definition() mcp.Tool {
	return mcp.NewTool("revoke_invitation",
		mcp.WithDescription("Revoke a pending invitation, located by invitation id or by the invited email."),
		mcp.WithString("invitation_id", mcp.Description("Invitation id, when known")),
		mcp.WithString("email", mcp.Description("Invited email, when the id is unknown")),
	)
}

func (t RevokeInvitationTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var d chat.RevokeInvitationDraft
	d.InvitationID, _ = stringArg(req, "invitation_id")
	d.Email, _ = stringArg(req, "email")
	return toolOutcome(t.Service.RevokeInvitation(ctx, t.TeamID, t.ActorID, d))
}
