package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"doable/internal/app"
	"doable/internal/assistant"
	"doable/internal/config"
	"doable/internal/db"
	"doable/internal/domain"
	"doable/internal/engine"
	"doable/internal/migrate"
	"doable/internal/refresh"
	"doable/internal/repo"
	"doable/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "doable",
	Short: "Doable CLI",
	Long: `Doable tracks a team's projects, issues, and people, and powers the
assistant that mutates them from chat.
Core concepts:
- Workspace: your .doable directory holding the database; doable.yml holds the team config.
- Team: the top-level container that owns projects, issues, workflow states, labels, and members.
- Projects: named groups of issues; each has a short key like "web".
- Issues: work items numbered per team (WEB-12); every issue has a workflow state and an explicit priority.
- Workflow states: the columns issues move through (Backlog, Todo, In Progress, Done, ...).
- Members and invitations: who is on the team, and pending email invites.
- Assistant: an MCP stdio server ('doable assistant') exposing the mutation tools to a model.
- Event log: diary of changes, view with 'doable log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initViper)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initViper() {
	viper.SetEnvPrefix("DOABLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("team", "", "team id (overrides config default)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("team", rootCmd.PersistentFlags().Lookup("team"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(issueCmd())
	rootCmd.AddCommand(stateCmd())
	rootCmd.AddCommand(labelCmd())
	rootCmd.AddCommand(memberCmd())
	rootCmd.AddCommand(inviteCmd())
	rootCmd.AddCommand(teamCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(assistantCmd())
	rootCmd.AddCommand(apikeyCmd())
}

func initCmd() *cobra.Command {
	var id, name, key string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a team in this workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name required")
			}
			if key == "" {
				return fmt.Errorf("--key required")
			}
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg := config.Default(id, name, key)
			e := engine.New(conn, cfg)
			actorID := viper.GetString("actor-id")
			t, err := e.InitTeam(cmd.Context(), id, name, key, actorID, actorID)
			if err != nil {
				return err
			}
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := os.WriteFile(cfgPath, []byte(config.GenerateDefault(t.ID, t.Name, t.Key)), 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", cfgPath)
			}
			return printJSONOrTable(t)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "team id (generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "team name")
	cmd.Flags().StringVar(&key, "key", "", "team key, e.g. ACME")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show team status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				teamID := e.Config.Team.ID
				t, err := e.Repo.GetTeam(ctx, teamID)
				if err != nil {
					return err
				}
				byState, err := e.Repo.CountIssuesByState(ctx, teamID)
				if err != nil {
					return err
				}
				byProject, err := e.Repo.CountIssuesByProject(ctx, teamID)
				if err != nil {
					return err
				}
				members, err := e.Repo.ListMembers(ctx, teamID)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{
					"team":              t,
					"members":           len(members),
					"issues_by_state":   byState,
					"issues_by_project": byProject,
				})
			})
		},
	}
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	prj.AddCommand(projectDeleteCmd())
	return prj
}

func projectListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListProjects(ctx, repo.ProjectFilters{
					TeamID: e.Config.Team.ID,
					Status: status,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Key", "Status"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Key, p.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func projectCreateCmd() *cobra.Command {
	var name, key, desc, color, status string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
					TeamID:      e.Config.Team.ID,
					Name:        name,
					Key:         key,
					Description: desc,
					Color:       color,
					Status:      status,
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&key, "key", "", "project key, e.g. web")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&color, "color", "", "hex color")
	cmd.Flags().StringVar(&status, "status", "", "status (planned, active, paused, completed, canceled)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Repo.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func projectUpdateCmd() *cobra.Command {
	var name, key, desc, color, status string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.ProjectUpdateOptions{
					ProjectID: args[0],
					ActorID:   viper.GetString("actor-id"),
				}
				if cmd.Flags().Changed("name") {
					opts.Name = &name
				}
				if cmd.Flags().Changed("key") {
					opts.Key = &key
				}
				if cmd.Flags().Changed("description") {
					opts.Description = &desc
				}
				if cmd.Flags().Changed("color") {
					opts.Color = &color
				}
				if cmd.Flags().Changed("status") {
					opts.Status = &status
				}
				p, err := e.UpdateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&key, "key", "", "project key")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&color, "color", "", "hex color")
	cmd.Flags().StringVar(&status, "status", "", "status (planned, active, paused, completed, canceled)")
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteProject(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func issueCmd() *cobra.Command {
	iss := &cobra.Command{Use: "issue", Short: "Manage issues"}
	iss.AddCommand(issueListCmd())
	iss.AddCommand(issueCreateCmd())
	iss.AddCommand(issueShowCmd())
	iss.AddCommand(issueUpdateCmd())
	iss.AddCommand(issueDeleteCmd())
	return iss
}

func issueListCmd() *cobra.Command {
	var f repo.IssueFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List issues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				f.TeamID = e.Config.Team.ID
				issues, err := e.Repo.ListIssues(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(issues)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Number", "Title", "Priority", "State", "Assignee"})
				for _, i := range issues {
					assignee := ""
					if i.AssigneeID != nil {
						assignee = *i.AssigneeID
					}
					tw.AppendRow(table.Row{fmt.Sprintf("%s-%d", e.Config.Team.Key, i.Number), i.Title, i.Priority, i.StateID, assignee})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project id filter")
	cmd.Flags().StringVar(&f.StateID, "state", "", "workflow state id filter")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "priority filter")
	cmd.Flags().StringVar(&f.AssigneeID, "assignee-id", "", "assignee filter")
	return cmd
}

func issueCreateCmd() *cobra.Command {
	var title, desc, project, state, priority, assignee, due string
	var labels []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create issue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				iss, err := e.CreateIssue(ctx, engine.IssueCreateOptions{
					TeamID:      e.Config.Team.ID,
					ProjectID:   project,
					Title:       title,
					Description: desc,
					StateID:     state,
					Priority:    priority,
					AssigneeID:  assignee,
					LabelIDs:    labels,
					DueDate:     due,
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(iss)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "issue title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&project, "project", "", "project id")
	cmd.Flags().StringVar(&state, "state", "", "workflow state id")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (none, low, medium, high, urgent)")
	cmd.Flags().StringVar(&assignee, "assignee-id", "", "assignee user id")
	cmd.Flags().StringArrayVar(&labels, "label", []string{}, "label id (repeatable)")
	cmd.Flags().StringVar(&due, "due", "", "due date YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("state")
	_ = cmd.MarkFlagRequired("priority")
	return cmd
}

func issueShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				iss, err := e.Repo.GetIssue(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(iss)
			})
		},
	}
	return cmd
}

func issueUpdateCmd() *cobra.Command {
	var title, desc, project, state, priority, assignee, due string
	var addLabels, removeLabels []string
	var clearAssignee bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.IssueUpdateOptions{
					IssueID:       args[0],
					ClearAssignee: clearAssignee,
					AddLabels:     addLabels,
					RemoveLabels:  removeLabels,
					ActorID:       viper.GetString("actor-id"),
				}
				if cmd.Flags().Changed("title") {
					opts.Title = &title
				}
				if cmd.Flags().Changed("description") {
					opts.Description = &desc
				}
				if cmd.Flags().Changed("project") {
					opts.ProjectID = &project
				}
				if cmd.Flags().Changed("state") {
					opts.StateID = &state
				}
				if cmd.Flags().Changed("priority") {
					opts.Priority = &priority
				}
				if cmd.Flags().Changed("assignee-id") {
					opts.AssigneeID = &assignee
				}
				if cmd.Flags().Changed("due") {
					opts.DueDate = &due
				}
				iss, err := e.UpdateIssue(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(iss)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "issue title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&project, "project", "", "project id")
	cmd.Flags().StringVar(&state, "state", "", "workflow state id")
	cmd.Flags().StringVar(&priority, "priority", "", "priority")
	cmd.Flags().StringVar(&assignee, "assignee-id", "", "assignee user id")
	cmd.Flags().BoolVar(&clearAssignee, "clear-assignee", false, "unassign the issue")
	cmd.Flags().StringArrayVar(&addLabels, "add-label", []string{}, "label id to add (repeatable)")
	cmd.Flags().StringArrayVar(&removeLabels, "remove-label", []string{}, "label id to remove (repeatable)")
	cmd.Flags().StringVar(&due, "due", "", "due date YYYY-MM-DD")
	return cmd
}

func issueDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteIssue(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func stateCmd() *cobra.Command {
	st := &cobra.Command{Use: "state", Short: "Manage workflow states"}
	st.AddCommand(stateListCmd())
	st.AddCommand(stateCreateCmd())
	st.AddCommand(stateDeleteCmd())
	return st
}

func stateListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflow states",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListWorkflowStates(ctx, e.Config.Team.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func stateCreateCmd() *cobra.Command {
	var name, stype, color string
	var position int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create workflow state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CreateWorkflowState(ctx, engine.WorkflowStateOptions{
					TeamID:   e.Config.Team.ID,
					Name:     name,
					Type:     stype,
					Color:    color,
					Position: position,
					ActorID:  viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "state name")
	cmd.Flags().StringVar(&stype, "type", "", "state type (unstarted, started, completed, canceled)")
	cmd.Flags().StringVar(&color, "color", "", "hex color")
	cmd.Flags().IntVar(&position, "position", 0, "sort position")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func stateDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a workflow state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteWorkflowState(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func labelCmd() *cobra.Command {
	lb := &cobra.Command{Use: "label", Short: "Manage labels"}
	lb.AddCommand(labelListCmd())
	lb.AddCommand(labelCreateCmd())
	lb.AddCommand(labelDeleteCmd())
	return lb
}

func labelListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List labels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListLabels(ctx, e.Config.Team.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func labelCreateCmd() *cobra.Command {
	var name, color string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create label",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				l, err := e.CreateLabel(ctx, e.Config.Team.ID, name, color, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "label name")
	cmd.Flags().StringVar(&color, "color", "", "hex color")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func labelDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteLabel(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func memberCmd() *cobra.Command {
	mb := &cobra.Command{Use: "member", Short: "Manage team members"}
	mb.AddCommand(memberListCmd())
	mb.AddCommand(memberAddCmd())
	mb.AddCommand(memberSetRoleCmd())
	mb.AddCommand(memberRemoveCmd())
	return mb
}

func memberListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List members",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListMembers(ctx, e.Config.Team.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"User ID", "Name", "Role", "Email"})
				for _, m := range items {
					tw.AppendRow(table.Row{m.UserID, m.UserName, m.Role, m.Email})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func memberAddCmd() *cobra.Command {
	var userID, userName, email, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.AddMember(ctx, engine.MemberAddOptions{
					TeamID:   e.Config.Team.ID,
					UserID:   userID,
					UserName: userName,
					Email:    email,
					Role:     role,
					ActorID:  viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "user id")
	cmd.Flags().StringVar(&userName, "user-name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", "", "role (admin, developer, viewer)")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func memberSetRoleCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "set-role <user-id>",
		Short: "Change a member's role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if role == "" {
				return fmt.Errorf("--role required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.UpdateMemberRole(ctx, e.Config.Team.ID, args[0], role, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role (admin, developer, viewer)")
	return cmd
}

func memberRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <user-id>",
		Short: "Remove a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.RemoveMember(ctx, e.Config.Team.ID, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func inviteCmd() *cobra.Command {
	inv := &cobra.Command{Use: "invite", Short: "Manage invitations"}
	inv.AddCommand(inviteCreateCmd())
	inv.AddCommand(inviteListCmd())
	inv.AddCommand(inviteRevokeCmd())
	inv.AddCommand(inviteAcceptCmd())
	return inv
}

func inviteCreateCmd() *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Invite a member by email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				inv, err := e.InviteMember(ctx, engine.InviteOptions{
					TeamID:  e.Config.Team.ID,
					Email:   email,
					Role:    role,
					ActorID: viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(inv)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&role, "role", "", "role (defaults from config)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func inviteListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invitations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListInvitations(ctx, e.Config.Team.ID, status)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter (pending, accepted, revoked, expired)")
	return cmd
}

func inviteRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke a pending invitation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.RevokeInvitation(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func inviteAcceptCmd() *cobra.Command {
	var userID, userName string
	cmd := &cobra.Command{
		Use:   "accept <id>",
		Short: "Accept an invitation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user-id required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.AcceptInvitation(ctx, args[0], userID, userName)
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "joining user id")
	cmd.Flags().StringVar(&userName, "user-name", "", "joining user display name")
	return cmd
}

func teamCmd() *cobra.Command {
	tm := &cobra.Command{Use: "team", Short: "Manage teams"}
	tm.AddCommand(teamListCmd())
	tm.AddCommand(teamUseCmd())
	return tm
}

func teamListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List teams in this workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				teams, err := r.ListTeams(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(teams)
			})
		},
	}
	return cmd
}

func teamUseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use <team-id>",
		Short: "Set the default team for this workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if _, err := r.GetTeam(ctx, args[0]); err != nil {
					return err
				}
				envPath := fmt.Sprintf("%s/.env", viper.GetString("workspace"))
				if err := setEnvValue(envPath, "DOABLE_TEAM", args[0]); err != nil {
					return err
				}
				fmt.Printf("Default team set to %s in %s\n", args[0], envPath)
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: issue changes, project changes, membership changes, and more.",
	}
	lg.AddCommand(logTailCmd())
	return lg
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEvents(ctx, n, e.Config.Team.ID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			_, cfg, err := app.ResolveTeamAndConfig(cmd.Context(), workspace, viper.GetString("team"), viper.GetString("actor-id"), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("DOABLE_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("DOABLE_JWT_SECRET is required for bearer auth")
			}
			hub := refresh.NewHub()
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg, Refresh: hub})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(e)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Doable API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

func assistantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assistant",
		Short: "Start the assistant MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			r := repo.Repo{DB: conn}
			teamID, cfg, err := app.ResolveTeamAndConfig(cmd.Context(), workspace, viper.GetString("team"), viper.GetString("actor-id"), r)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			s := assistant.New(e, teamID, viper.GetString("actor-id"))
			return assistant.ServeStdio(s)
		},
	}
	return cmd
}

func apikeyCmd() *cobra.Command {
	ak := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	ak.AddCommand(apikeyCreateCmd())
	ak.AddCommand(apikeyListCmd())
	ak.AddCommand(apikeyDeleteCmd())
	return ak
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				secret := "dbl_" + strings.ReplaceAll(uuid.NewString(), "-", "")
				key := domain.APIKey{
					ID:        uuid.NewString(),
					ActorID:   viper.GetString("actor-id"),
					Name:      name,
					KeyHash:   repo.HashAPIKey(secret),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				tx, err := r.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				if err := r.InsertAPIKey(ctx, tx, key); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}
				fmt.Printf("API key (store it now, it is not shown again): %s\n", secret)
				return printJSONOrTable(key)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key name")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	_, cfg, err := app.ResolveTeamAndConfig(ctx, workspace, viper.GetString("team"), viper.GetString("actor-id"), r)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	r := repo.Repo{DB: conn}
	return fn(ctx, r)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
