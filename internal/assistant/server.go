// Package assistant exposes the team's mutations as MCP tools so an LLM
// client can drive them through natural-language tool calls. This file is
// the composition root: it wires the chat service into each tool and
// registers them; no business logic lives here.
package assistant

import (
	"github.com/mark3labs/mcp-go/server"

	"doable/internal/chat"
	"doable/internal/engine"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates the MCP server with every Doable tool registered, bound to
// one team and acting user.
func New(e engine.Engine, teamID, actorID string) *server.MCPServer {
	s := server.NewMCPServer(
		"doable",
		Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	sess := Session{Service: chat.Service{Engine: e}, TeamID: teamID, ActorID: actorID}

	createIssue := CreateIssueTool{sess}
	s.AddTool(createIssue.Definition(), createIssue.Handle)
	updateIssue := UpdateIssueTool{sess}
	s.AddTool(updateIssue.Definition(), updateIssue.Handle)
	deleteIssue := DeleteIssueTool{sess}
	s.AddTool(deleteIssue.Definition(), deleteIssue.Handle)

	createProject := CreateProjectTool{sess}
	s.AddTool(createProject.Definition(), createProject.Handle)
	updateProject := UpdateProjectTool{sess}
	s.AddTool(updateProject.Definition(), updateProject.Handle)
	deleteProject := DeleteProjectTool{sess}
	s.AddTool(deleteProject.Definition(), deleteProject.Handle)

	inviteMember := InviteMemberTool{sess}
	s.AddTool(inviteMember.Definition(), inviteMember.Handle)
	removeMember := RemoveMemberTool{sess}
	s.AddTool(removeMember.Definition(), removeMember.Handle)
	revokeInvitation := RevokeInvitationTool{sess}
	s.AddTool(revokeInvitation.Definition(), revokeInvitation.Handle)

	return s
}

// ServeStdio runs the server over stdio until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `Doable manages a team's projects, issues, workflow states,
labels, members, and invitations. Use the tools to perform mutations the
user asks for. Entity references may be names; they are resolved against
the team's current context. When a tool answers with a clarification
question, relay it to the user verbatim and ask again with the missing
information. Never guess a priority: ask the user for an explicit one.`
