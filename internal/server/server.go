package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"doable/internal/chat"
	"doable/internal/domain"
	"doable/internal/engine"
	"doable/internal/refresh"
	"doable/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
	Refresh  *refresh.Hub
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"multiple_matches"`
	Message string         `json:"message" example:"Multiple items match \"web\""`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"value\":\"web\"}"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Doable API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the requested envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Doable API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerStatus(group, cfg.Engine)
	registerTeams(group, cfg.Engine)
	registerProjects(group, cfg.Engine)
	registerIssues(group, cfg.Engine)
	registerWorkflowStates(group, cfg.Engine)
	registerLabels(group, cfg.Engine)
	registerMembers(group, cfg.Engine)
	registerInvitations(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerChat(group, cfg.Engine, cfg.Refresh)
	registerRefreshStream(router, basePath, cfg.Refresh)
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve *chat.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusBadRequest, "needs_clarification", err.Error(), map[string]any{"command": ve.Command, "missing": ve.Missing})
	}
	var re *chat.ResolutionError
	if errors.As(err, &re) {
		return newAPIError(http.StatusUnprocessableEntity, "unresolved_reference", err.Error(), map[string]any{"field": re.Field, "value": re.Value})
	}
	var me *chat.MultiMatchError
	if errors.As(err, &me) {
		return newAPIError(http.StatusConflict, "multiple_matches", err.Error(), map[string]any{"value": me.Value, "matches": me.Matches})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "still has"),
		strings.Contains(lowered, "already pending"),
		strings.Contains(lowered, "not pending"),
		strings.Contains(lowered, "cannot move"):
		return newAPIError(http.StatusConflict, "conflict", msg, nil)
	case strings.Contains(lowered, "expired"):
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", msg, nil)
	case strings.Contains(lowered, "invalid"),
		strings.Contains(lowered, "missing"),
		strings.Contains(lowered, "required"),
		strings.Contains(lowered, "not in team"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Doable API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerStatus(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "team-status",
		Method:      http.MethodGet,
		Path:        "/teams/{team_id}/status",
		Summary:     "Team status",
	}, func(ctx context.Context, input *struct {
		TeamID string `path:"team_id"`
	}) (*struct {
		Body map[string]any `json:"body"`
	}, error) {
		teamID := teamFromPathOrHeader(ctx, input.TeamID, e)
		t, err := e.Repo.GetTeam(ctx, teamID)
		if err != nil {
			return nil, handleError(err)
		}
		byState, err := e.Repo.CountIssuesByState(ctx, t.ID)
		if err != nil {
			return nil, handleError(err)
		}
		byProject, err := e.Repo.CountIssuesByProject(ctx, t.ID)
		if err != nil {
			return nil, handleError(err)
		}
		members, err := e.Repo.ListMembers(ctx, t.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]any `json:"body"`
		}{Body: map[string]any{
			"team_id":           t.ID,
			"team_key":          t.Key,
			"members":           len(members),
			"issues_by_state":   byState,
			"issues_by_project": byProject,
		}}, nil
	})
}

func registerTeams(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-team",
		Method:        http.MethodPost,
		Path:          "/teams",
		Summary:       "Create team",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateTeamRequest `json:"body"`
	}) (*struct {
		Body TeamResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		if input.Body.Key == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "key is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		teamID := ""
		if input.Body.ID != nil {
			teamID = *input.Body.ID
		}
		actorName := input.Body.ActorName
		if actorName == "" {
			actorName = actorID
		}
		t, err := e.InitTeam(ctx, teamID, input.Body.Name, input.Body.Key, actorID, actorName)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TeamResponse `json:"body"`
		}{Body: teamResponse(t)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-teams",
		Method:      http.MethodGet,
		Path:        "/teams",
		Summary:     "List teams",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []TeamResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListTeams(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]TeamResponse, 0, len(items))
		for _, t := range items {
			out = append(out, teamResponse(t))
		}
		return &struct {
			Body []TeamResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-team",
		Method:      http.MethodGet,
		Path:        "/teams/{team_id}",
		Summary:     "Get team",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TeamID string `path:"team_id"`
	}) (*struct {
		Body TeamResponse `json:"body"`
	}, error) {
		t, err := e.Repo.GetTeam(ctx, teamFromPathOrHeader(ctx, input.TeamID, e))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body TeamResponse `json:"body"`
		}{Body: teamResponse(t)}, nil
	})
}

func registerProjects(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-project",
		Method:        http.MethodPost,
		Path:          "/teams/{team_id}/projects",
		Summary:       "Create project",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		TeamID string               `path:"team_id"`
		Body   CreateProjectRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		if input.Body.Key == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "key is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.ProjectCreateOptions{
			TeamID:      teamFromPathOrHeader(ctx, input.TeamID, e),
			Name:        input.Body.Name,
			Key:         input.Body.Key,
			Description: stringOrEmpty(input.Body.Description),
			Color:       stringOrEmpty(input.Body.Color),
			Status:      stringOrEmpty(input.Body.Status),
			ActorID:     actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		p, err := e.CreateProject(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/teams/{team_id}/projects",
		Summary:     "List projects",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		TeamID string `path:"team_id"`
		Status string `query:"status" enum:"planned,active,paused,completed,canceled"`
		Limit  int    `query:"limit" default:"50"`
		Cursor string `query:"cursor"`
	}) (*struct {
		Body paginatedProjects `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		cursorCreated, cursorID, err := parseCompositeCursor(input.Cursor)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
		}
		items, err := e.Repo.ListProjects(ctx, repo.ProjectFilters{
			TeamID:          teamFromPathOrHeader(ctx, input.TeamID, e),
			Status:          input.Status,
			Limit:           limit + 1,
			CursorCreatedAt: cursorCreated,
			CursorID:        cursorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedProjects{Items: []ProjectResponse{}}
		if len(items) > limit {
			resp.NextCursor = composeCursor(items[limit].CreatedAt, items[limit].ID)
			items = items[:limit]
		}
		resp.Items = mapProjects(items)
		return &struct {
			Body paginatedProjects `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/teams/{team_id}/projects/{project_id}",
		Summary:     "Get project",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TeamID    string `path:"team_id"`
		ProjectID string `path:"project_id"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		p, err := e.Repo.GetProject(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		if p.TeamID != teamFromPathOrHeader(ctx, input.TeamID, e) {
			return nil, newAPIError(http.StatusNotFound, "not_found", "not found", nil)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-project",
		Method:      http.MethodPatch,
		Path:        "/teams/{team_id}/projects/{project_id}",
		Summary:     "Update project",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		TeamID    string               `path:"team_id"`
		ProjectID string               `path:"project_id"`
		Body      UpdateProjectRequest `json:"body"`
	}) (*struct {
		Body ProjectResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UpdateProject(ctx, engine.ProjectUpdateOptions{
			ProjectID:   input.ProjectID,
			Name:        input.Body.Name,
			Key:         input.Body.Key,
			Description: input.Body.Description,
			Color:       input.Body.Color,
			Status:      input.Body.Status,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProjectResponse `json:"body"`
		}{Body: projectResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-project",
		Method:      http.MethodDelete,
		Path:        "/teams/{team_id}/projects/{project_id}",
		Summary:     "Delete project",
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		TeamID    string `path:"team_id"`
		ProjectID string `path:"project_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteProject(ctx, input.ProjectID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerIssues(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-issue",
		Method:        http.MethodPost,
		Path:          "/teams/{team_id}/issues",
		Summary:       "Create issue",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		TeamID string             `path:"team_id"`
		Body   CreateIssueRequest `json:"body"`
	}) (*struct {
		Body IssueResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		if input.Body.ProjectID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "project_id is required", nil)
		}
		if input.Body.StateID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "state_id is required", nil)
		}
		if input.Body.Priority == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "priority is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.IssueCreateOptions{
			TeamID:      teamFromPathOrHeader(ctx, input.TeamID, e),
			ProjectID:   input.Body.ProjectID,
			Title:       input.Body.Title,
			Description: stringOrEmpty(input.Body.Description),
			StateID:     input.Body.StateID,
			Priority:    input.Body.Priority,
			AssigneeID:  stringOrEmpty(input.Body.AssigneeID),
			LabelIDs:    input.Body.LabelIDs,
			DueDate:     stringOrEmpty(input.Body.DueDate),
			ActorID:     actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		iss, err := e.CreateIssue(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IssueResponse `json:"body"`
		}{Body: issueResponse(iss)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-issues",
		Method:      http.MethodGet,
		Path:        "/teams/{team_id}/issues",
		Summary:     "List issues",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		TeamID     string `path:"team_id"`
		ProjectID  string `query:"project_id"`
		StateID    string `query:"state_id"`
		Priority   string `query:"priority" enum:"none,low,medium,high,urgent"`
		AssigneeID string `query:"assignee_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedIssues `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		cursorCreated, cursorID, err := parseCompositeCursor(input.Cursor)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
		}
		items, err := e.Repo.ListIssues(ctx, repo.IssueFilters{
			TeamID:          teamFromPathOrHeader(ctx, input.TeamID, e),
			ProjectID:       input.ProjectID,
			StateID:         input.StateID,
			Priority:        input.Priority,
			AssigneeID:      input.AssigneeID,
			Limit:           limit + 1,
			CursorCreatedAt: cursorCreated,
			CursorID:        cursorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedIssues{Items: []IssueResponse{}}
		if len(items) > limit {
			resp.NextCursor = composeCursor(items[limit].CreatedAt, items[limit].ID)
			items = items[:limit]
		}
		resp.Items = mapIssues(items)
		return &struct {
			Body paginatedIssues `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-issue",
		Method:      http.MethodGet,
		Path:        "/teams/{team_id}/issues/{issue_id}",
		Summary:     "Get issue",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TeamID  string `path:"team_id"`
		IssueID string `path:"issue_id"`
	}) (*struct {
		Body IssueResponse `json:"body"`
	}, error) {
		iss, err := e.Repo.GetIssue(ctx, input.IssueID)
		if err != nil {
			return nil, handleError(err)
		}
		if iss.TeamID != teamFromPathOrHeader(ctx, input.TeamID, e) {
			return nil, newAPIError(http.StatusNotFound, "not_found", "not found", nil)
		}
		return &struct {
			Body IssueResponse `json:"body"`
		}{Body: issueResponse(iss)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-issue",
		Method:      http.MethodPatch,
		Path:        "/teams/{team_id}/issues/{issue_id}",
		Summary:     "Update issue",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TeamID  string             `path:"team_id"`
		IssueID string             `path:"issue_id"`
		Body    UpdateIssueRequest `json:"body"`
	}) (*struct {
		Body IssueResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		iss, err := e.UpdateIssue(ctx, engine.IssueUpdateOptions{
			IssueID:       input.IssueID,
			ProjectID:     input.Body.ProjectID,
			Title:         input.Body.Title,
			Description:   input.Body.Description,
			StateID:       input.Body.StateID,
			Priority:      input.Body.Priority,
			AssigneeID:    input.Body.AssigneeID,
			ClearAssignee: input.Body.ClearAssignee,
			DueDate:       input.Body.DueDate,
			AddLabels:     input.Body.AddLabels,
			RemoveLabels:  input.Body.RemoveLabels,
			ActorID:       actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IssueResponse `json:"body"`
		}{Body: issueResponse(iss)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-issue",
		Method:      http.MethodDelete,
		Path:        "/teams/{team_id}/issues/{issue_id}",
		Summary:     "Delete issue",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TeamID  string `path:"team_id"`
		IssueID string `path:"issue_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteIssue(ctx, input.IssueID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerWorkflowStates(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-workflow-states",
		Method:      http.MethodGet,
		Path:        "/teams/{team_id}/states",
		Summary:     "List workflow states",
	}, func(ctx context.Context, input *struct {
		TeamID string `path:"team_id"`
	}) (*struct {
		Body []WorkflowStateResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListWorkflowStates(ctx, teamFromPathOrHeader(ctx, input.TeamID, e))
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]WorkflowStateResponse, 0, len(items))
		for _, s := range items {
			out = append(out, stateResponse(s))
		}
		return &struct {
			Body []WorkflowStateResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-workflow-state",
		Method:        http.MethodPost,
		Path:          "/teams/{team_id}/states",
		Summary:       "Create workflow state",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TeamID string                     `path:"team_id"`
		Body   CreateWorkflowStateRequest `json:"body"`
	}) (*struct {
		Body WorkflowStateResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.WorkflowStateOptions{
			TeamID:   teamFromPathOrHeader(ctx, input.TeamID, e),
			Name:     input.Body.Name,
			Type:     input.Body.Type,
			Color:    stringOrEmpty(input.Body.Color),
			Position: input.Body.Position,
			ActorID:  actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		s, err := e.CreateWorkflowState(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkflowStateResponse `json:"body"`
		}{Body: stateResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-workflow-state",
		Method:      http.MethodDelete,
		Path:        "/teams/{team_id}/states/{state_id}",
		Summary:     "Delete workflow state",
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		TeamID  string `path:"team_id"`
		StateID string `path:"state_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteWorkflowState(ctx, input.StateID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerLabels(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-labels",
		Method:      http.MethodGet,
		Path:        "/teams/{team_id}/labels",
		Summary:     "List labels",
	}, func(ctx context.Context, input *struct {
		TeamID string `path:"team_id"`
	}) (*struct {
		Body []LabelResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListLabels(ctx, teamFromPathOrHeader(ctx, input.TeamID, e))
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]LabelResponse, 0, len(items))
		for _, l := range items {
			out = append(out, labelResponse(l))
		}
		return &struct {
			Body []LabelResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-label",
		Method:        http.MethodPost,
		Path:          "/teams/{team_id}/labels",
		Summary:       "Create label",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TeamID string             `path:"team_id"`
		Body   CreateLabelRequest `json:"body"`
	}) (*struct {
		Body LabelResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		l, err := e.CreateLabel(ctx, teamFromPathOrHeader(ctx, input.TeamID, e), input.Body.Name, stringOrEmpty(input.Body.Color), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LabelResponse `json:"body"`
		}{Body: labelResponse(l)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-label",
		Method:      http.MethodDelete,
		Path:        "/teams/{team_id}/labels/{label_id}",
		Summary:     "Delete label",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TeamID  string `path:"team_id"`
		LabelID string `path:"label_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteLabel(ctx, input.LabelID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerMembers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-members",
		Method:      http.MethodGet,
		Path:        "/teams/{team_id}/members",
		Summary:     "List members",
	}, func(ctx context.Context, input *struct {
		TeamID string `path:"team_id"`
	}) (*struct {
		Body []MemberResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListMembers(ctx, teamFromPathOrHeader(ctx, input.TeamID, e))
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]MemberResponse, 0, len(items))
		for _, m := range items {
			out = append(out, memberResponse(m))
		}
		return &struct {
			Body []MemberResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-member",
		Method:        http.MethodPost,
		Path:          "/teams/{team_id}/members",
		Summary:       "Add member",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TeamID string           `path:"team_id"`
		Body   AddMemberRequest `json:"body"`
	}) (*struct {
		Body MemberResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.AddMember(ctx, engine.MemberAddOptions{
			TeamID:   teamFromPathOrHeader(ctx, input.TeamID, e),
			UserID:   input.Body.UserID,
			UserName: input.Body.UserName,
			Email:    input.Body.Email,
			Role:     input.Body.Role,
			ActorID:  actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MemberResponse `json:"body"`
		}{Body: memberResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-member-role",
		Method:      http.MethodPatch,
		Path:        "/teams/{team_id}/members/{user_id}",
		Summary:     "Update member role",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		TeamID string                  `path:"team_id"`
		UserID string                  `path:"user_id"`
		Body   UpdateMemberRoleRequest `json:"body"`
	}) (*struct {
		Body MemberResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.UpdateMemberRole(ctx, teamFromPathOrHeader(ctx, input.TeamID, e), input.UserID, input.Body.Role, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MemberResponse `json:"body"`
		}{Body: memberResponse(m)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-member",
		Method:      http.MethodDelete,
		Path:        "/teams/{team_id}/members/{user_id}",
		Summary:     "Remove member",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TeamID string `path:"team_id"`
		UserID string `path:"user_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RemoveMember(ctx, teamFromPathOrHeader(ctx, input.TeamID, e), input.UserID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerInvitations(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-invitations",
		Method:      http.MethodGet,
		Path:        "/teams/{team_id}/invitations",
		Summary:     "List invitations",
	}, func(ctx context.Context, input *struct {
		TeamID string `path:"team_id"`
		Status string `query:"status" enum:"pending,accepted,revoked,expired"`
	}) (*struct {
		Body []InvitationResponse `json:"body"`
	}, error) {
		items, err := e.Repo.ListInvitations(ctx, teamFromPathOrHeader(ctx, input.TeamID, e), input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]InvitationResponse, 0, len(items))
		for _, inv := range items {
			out = append(out, invitationResponse(inv))
		}
		return &struct {
			Body []InvitationResponse `json:"body"`
		}{Body: out}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-invitation",
		Method:        http.MethodPost,
		Path:          "/teams/{team_id}/invitations",
		Summary:       "Invite member",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		TeamID string                  `path:"team_id"`
		Body   CreateInvitationRequest `json:"body"`
	}) (*struct {
		Body InvitationResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.Email == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "email is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		inv, err := e.InviteMember(ctx, engine.InviteOptions{
			TeamID:  teamFromPathOrHeader(ctx, input.TeamID, e),
			Email:   input.Body.Email,
			Role:    input.Body.Role,
			ActorID: actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body InvitationResponse `json:"body"`
		}{Body: invitationResponse(inv)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-invitation",
		Method:      http.MethodPost,
		Path:        "/teams/{team_id}/invitations/{invitation_id}/revoke",
		Summary:     "Revoke invitation",
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		TeamID       string `path:"team_id"`
		InvitationID string `path:"invitation_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RevokeInvitation(ctx, input.InvitationID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-invitation",
		Method:      http.MethodPost,
		Path:        "/teams/{team_id}/invitations/{invitation_id}/accept",
		Summary:     "Accept invitation",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		TeamID       string                  `path:"team_id"`
		InvitationID string                  `path:"invitation_id"`
		Body         AcceptInvitationRequest `json:"body"`
	}) (*struct {
		Body MemberResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.UserID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "user_id is required", nil)
		}
		m, err := e.AcceptInvitation(ctx, input.InvitationID, input.Body.UserID, input.Body.UserName)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body MemberResponse `json:"body"`
		}{Body: memberResponse(m)}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/teams/{team_id}/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		TeamID     string `path:"team_id"`
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"team,project,issue,state,label,member,invitation"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		teamID := teamFromPathOrHeader(ctx, input.TeamID, e)
		items, err := e.Repo.LatestEventsFrom(ctx, limit+1, cursorID, teamID, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			resp.NextCursor = fmt.Sprintf("%d", items[limit].ID)
			items = items[:limit]
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerChat(api huma.API, e engine.Engine, hub *refresh.Hub) {
	svc := chat.Service{Engine: e}
	huma.Register(api, huma.Operation{
		OperationID: "chat-tool-call",
		Method:      http.MethodPost,
		Path:        "/teams/{team_id}/chat",
		Summary:     "Run an assistant tool call",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		TeamID string          `path:"team_id"`
		Body   ChatToolRequest `json:"body"`
	}) (*struct {
		Body ChatResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.Tool == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "tool is required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		teamID := teamFromPathOrHeader(ctx, input.TeamID, e)
		res, err := dispatchChatTool(ctx, svc, teamID, actorID, input.Body.Tool, input.Body.Arguments)
		if err != nil {
			if msg, ok := clarification(err); ok {
				return &struct {
					Body ChatResponse `json:"body"`
				}{Body: ChatResponse{OK: false, Message: msg}}, nil
			}
			return nil, handleError(err)
		}
		if hub != nil {
			hub.Signal(refresh.CategoriesFor([]string{input.Body.Tool})...)
		}
		return &struct {
			Body ChatResponse `json:"body"`
		}{Body: ChatResponse{
			OK:       true,
			Message:  res.Message,
			EntityID: res.EntityID,
			Display:  res.Display,
		}}, nil
	})
}

// clarification reports whether err is recoverable by asking the user a
// question, and returns the question text when it is.
func clarification(err error) (string, bool) {
	var ve *chat.ValidationError
	var re *chat.ResolutionError
	var me *chat.MultiMatchError
	if errors.As(err, &ve) || errors.As(err, &re) || errors.As(err, &me) {
		return err.Error(), true
	}
	return "", false
}

func dispatchChatTool(ctx context.Context, svc chat.Service, teamID, actorID, tool string, args map[string]any) (chat.Result, error) {
	switch tool {
	case refresh.ToolCreateIssue:
		return svc.CreateIssue(ctx, teamID, actorID, chat.CreateIssueDraft{
			Title:         argString(args, "title"),
			Description:   argString(args, "description"),
			WorkflowState: argString(args, "workflow_state"),
			Priority:      argString(args, "priority"),
			Project:       argString(args, "project"),
			Assignee:      argString(args, "assignee"),
			Labels:        argStrings(args, "labels"),
			DueDate:       argString(args, "due_date"),
		})
	case refresh.ToolUpdateIssue:
		d := chat.UpdateIssueDraft{
			IssueID:       argString(args, "issue_id"),
			Title:         argString(args, "title"),
			NewTitle:      argString(args, "new_title"),
			Description:   argString(args, "description"),
			WorkflowState: argString(args, "workflow_state"),
			Priority:      argString(args, "priority"),
			Project:       argString(args, "project"),
			AddLabels:     argStrings(args, "add_labels"),
			RemoveLabels:  argStrings(args, "remove_labels"),
			DueDate:       argString(args, "due_date"),
		}
		if _, ok := args["assignee"]; ok {
			d.Assignee = argString(args, "assignee")
			d.AssigneeSet = true
		}
		return svc.UpdateIssue(ctx, teamID, actorID, d)
	case refresh.ToolDeleteIssue:
		return svc.DeleteIssue(ctx, teamID, actorID, chat.DeleteIssueDraft{
			IssueID: argString(args, "issue_id"),
			Title:   argString(args, "title"),
		})
	case refresh.ToolCreateProject:
		return svc.CreateProject(ctx, teamID, actorID, chat.CreateProjectDraft{
			Name:        argString(args, "name"),
			Key:         argString(args, "key"),
			Description: argString(args, "description"),
			Color:       argString(args, "color"),
			Status:      argString(args, "status"),
		})
	case refresh.ToolUpdateProject:
		return svc.UpdateProject(ctx, teamID, actorID, chat.UpdateProjectDraft{
			ProjectID:   argString(args, "project_id"),
			Name:        argString(args, "name"),
			NewName:     argString(args, "new_name"),
			Key:         argString(args, "key"),
			Description: argString(args, "description"),
			Color:       argString(args, "color"),
			Status:      argString(args, "status"),
		})
	case refresh.ToolDeleteProject:
		return svc.DeleteProject(ctx, teamID, actorID, chat.DeleteProjectDraft{
			ProjectID: argString(args, "project_id"),
			Name:      argString(args, "name"),
		})
	case refresh.ToolInviteMember:
		return svc.InviteMember(ctx, teamID, actorID, chat.InviteMemberDraft{
			Email: argString(args, "email"),
			Role:  argString(args, "role"),
		})
	case refresh.ToolRemoveMember:
		return svc.RemoveMember(ctx, teamID, actorID, chat.RemoveMemberDraft{
			UserID:   argString(args, "user_id"),
			UserName: argString(args, "user_name"),
		})
	case refresh.ToolRevokeInvitation:
		return svc.RevokeInvitation(ctx, teamID, actorID, chat.RevokeInvitationDraft{
			InvitationID: argString(args, "invitation_id"),
			Email:        argString(args, "email"),
		})
	default:
		return chat.Result{}, newAPIError(http.StatusBadRequest, "bad_request", fmt.Sprintf("unknown tool %q", tool), nil)
	}
}

// registerRefreshStream exposes the refresh hub over SSE so the web
// frontend can re-fetch the right data after assistant mutations.
func registerRefreshStream(r chi.Router, basePath string, hub *refresh.Hub) {
	if hub == nil {
		return
	}
	r.Get(path.Join(basePath, "refresh"), func(w http.ResponseWriter, req *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			respondStatusError(w, newAPIError(http.StatusInternalServerError, "internal_error", "streaming unsupported", nil))
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		signals := make(chan refresh.Category, 16)
		var unsubs []func()
		for _, cat := range refresh.AllCategories {
			cat := cat
			unsubs = append(unsubs, hub.Subscribe(cat, func() {
				select {
				case signals <- cat:
				default:
				}
			}))
		}
		defer func() {
			for _, u := range unsubs {
				u()
			}
		}()

		for {
			select {
			case <-req.Context().Done():
				return
			case cat := <-signals:
				fmt.Fprintf(w, "event: refresh\ndata: %s\n\n", cat)
				flusher.Flush()
			}
		}
	})
}

// Chat argument helpers. Tool arguments come from a model, so values may
// be absent, null, or the wrong JSON type.

func argString(args map[string]any, key string) *string {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case string:
		return &v
	default:
		s := fmt.Sprintf("%v", v)
		return &s
	}
}

func argStrings(args map[string]any, key string) []string {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}

func parseCompositeCursor(cursor string) (string, string, error) {
	if cursor == "" {
		return "", "", nil
	}
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid cursor")
	}
	return parts[0], parts[1], nil
}

func composeCursor(ts, id string) string {
	if ts == "" || id == "" {
		return ""
	}
	return ts + "|" + id
}

func mapProjects(items []domain.Project) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(items))
	for _, p := range items {
		out = append(out, projectResponse(p))
	}
	return out
}

func mapIssues(items []domain.Issue) []IssueResponse {
	out := make([]IssueResponse, 0, len(items))
	for _, i := range items {
		out = append(out, issueResponse(i))
	}
	return out
}

func stringOrEmpty(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func teamFromPathOrHeader(ctx context.Context, pathTeamID string, e engine.Engine) string {
	if pathTeamID != "" {
		return pathTeamID
	}
	if req, ok := ctx.Value(requestKey{}).(*http.Request); ok && req != nil {
		if v := strings.TrimSpace(req.Header.Get("X-Team-Id")); v != "" {
			return v
		}
	}
	if e.Config != nil {
		return e.Config.Team.ID
	}
	return ""
}
