package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"doable/internal/config"
	"doable/internal/db"
	"doable/internal/engine"
	"doable/internal/migrate"
	"doable/internal/refresh"
)

const testJWTSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	Hub    *refresh.Hub
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default("team-1", "Acme", "ACME")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	if _, err := e.InitTeam(context.Background(), "team-1", "Acme", "ACME", "tester", "Tester"); err != nil {
		t.Fatalf("init team: %v", err)
	}
	hub := refresh.NewHub()
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v0",
		Auth:     AuthConfig{JWTSecret: testJWTSecret, AllowLegacyActorHeader: true},
		Refresh:  hub,
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		Hub:    hub,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(testSrv.Close)
	return testSrv
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if _, ok := headers["Authorization"]; !ok {
		if _, ok := headers["X-Api-Key"]; !ok {
			req.Header.Set("X-Actor-Id", "tester")
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func (s *testServer) stateID(t *testing.T, name string) string {
	t.Helper()
	states, err := s.Engine.Repo.ListWorkflowStates(context.Background(), "team-1")
	if err != nil {
		t.Fatalf("list states: %v", err)
	}
	for _, st := range states {
		if st.Name == name {
			return st.ID
		}
	}
	t.Fatalf("state %s not found", name)
	return ""
}

func TestHealthNoAuth(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v0/health", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v0/teams", nil)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", resp.StatusCode, body)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code != "unauthorized" {
		t.Fatalf("expected unauthorized envelope, got %s", body)
	}
}

func TestBearerJWTAuth(t *testing.T) {
	srv := newTestServer(t)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "jwt-user",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	resp, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/teams", nil, map[string]string{
		"Authorization": "Bearer " + signed,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	// wrong key must be rejected
	bad := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"})
	badSigned, _ := bad.SignedString([]byte("other-secret"))
	resp, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/teams", nil, map[string]string{
		"Authorization": "Bearer " + badSigned,
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d", resp.StatusCode)
	}
}

func TestProjectAndIssueFlow(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/teams/team-1/projects", map[string]any{
		"name": "Website",
		"key":  "web",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create project: %d %s", resp.StatusCode, body)
	}
	var project ProjectResponse
	if err := json.Unmarshal(body, &project); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	if project.Key != "web" || project.Status == "" {
		t.Fatalf("unexpected project: %+v", project)
	}

	todo := srv.stateID(t, "Todo")
	resp, body = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/teams/team-1/issues", map[string]any{
		"project_id": project.ID,
		"title":      "Fix bug",
		"state_id":   todo,
		"priority":   "high",
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create issue: %d %s", resp.StatusCode, body)
	}
	var issue IssueResponse
	if err := json.Unmarshal(body, &issue); err != nil {
		t.Fatalf("decode issue: %v", err)
	}
	if issue.Number != 1 || issue.Priority != "high" {
		t.Fatalf("unexpected issue: %+v", issue)
	}

	// missing priority is a validation failure, not a default
	resp, body = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/teams/team-1/issues", map[string]any{
		"project_id": project.ID,
		"title":      "No priority",
		"state_id":   todo,
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing priority, got %d %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/teams/team-1/issues", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list issues: %d %s", resp.StatusCode, body)
	}
	var page paginatedIssues
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("decode issues: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(page.Items))
	}
}

func TestIssuePagination(t *testing.T) {
	srv := newTestServer(t)
	_, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/teams/team-1/projects", map[string]any{
		"name": "Website", "key": "web",
	}, nil)
	var project ProjectResponse
	if err := json.Unmarshal(body, &project); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	todo := srv.stateID(t, "Todo")
	for i := 0; i < 5; i++ {
		resp, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/teams/team-1/issues", map[string]any{
			"project_id": project.ID, "title": "work", "state_id": todo, "priority": "low",
		}, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create issue %d: %d %s", i, resp.StatusCode, body)
		}
	}
	resp, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/teams/team-1/issues?limit=3", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("page 1: %d %s", resp.StatusCode, body)
	}
	var page paginatedIssues
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Items) != 3 || page.NextCursor == "" {
		t.Fatalf("expected 3 items plus cursor, got %d %q", len(page.Items), page.NextCursor)
	}
	resp, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/teams/team-1/issues?limit=3&cursor="+url.QueryEscape(page.NextCursor), nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("page 2: %d %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("decode page 2: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor != "" {
		t.Fatalf("expected final 2 items, got %d %q", len(page.Items), page.NextCursor)
	}
}

func TestChatToolCall(t *testing.T) {
	srv := newTestServer(t)
	var issueSignals int
	srv.Hub.Subscribe(refresh.CategoryIssues, func() { issueSignals++ })

	doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/teams/team-1/projects", map[string]any{
		"name": "Website", "key": "web",
	}, nil)

	// missing priority comes back 200 with ok=false and a clarification
	resp, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/teams/team-1/chat", map[string]any{
		"tool": "create_issue",
		"arguments": map[string]any{
			"title":          "Fix bug",
			"workflow_state": "todo",
			"project":        "web",
		},
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat clarification: %d %s", resp.StatusCode, body)
	}
	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	if chatResp.OK || chatResp.Message == "" {
		t.Fatalf("expected clarification, got %+v", chatResp)
	}
	if issueSignals != 0 {
		t.Fatalf("clarification must not signal a refresh")
	}

	// complete call mutates and signals
	resp, body = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/teams/team-1/chat", map[string]any{
		"tool": "create_issue",
		"arguments": map[string]any{
			"title":          "Fix bug",
			"workflow_state": "todo",
			"priority":       "high",
			"project":        "web",
		},
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat create: %d %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &chatResp); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	if !chatResp.OK || chatResp.Display != "ACME-1" {
		t.Fatalf("expected created ACME-1, got %+v", chatResp)
	}
	if issueSignals != 1 {
		t.Fatalf("expected one refresh signal, got %d", issueSignals)
	}
}

func TestChatUnknownReference(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/teams/team-1/chat", map[string]any{
		"tool": "create_issue",
		"arguments": map[string]any{
			"title":          "Fix bug",
			"workflow_state": "todo",
			"priority":       "high",
			"project":        "no-such-project",
		},
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat: %d %s", resp.StatusCode, body)
	}
	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	if chatResp.OK {
		t.Fatalf("expected ok=false for unresolved project, got %+v", chatResp)
	}
}

func TestDeleteProjectConflict(t *testing.T) {
	srv := newTestServer(t)
	_, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/teams/team-1/projects", map[string]any{
		"name": "Website", "key": "web",
	}, nil)
	var project ProjectResponse
	if err := json.Unmarshal(body, &project); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	todo := srv.stateID(t, "Todo")
	doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/teams/team-1/issues", map[string]any{
		"project_id": project.ID, "title": "work", "state_id": todo, "priority": "low",
	}, nil)

	resp, body := doJSON(t, srv.Client(), http.MethodDelete, srv.URL+"/v0/teams/team-1/projects/"+project.ID, nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 while issues remain, got %d %s", resp.StatusCode, body)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code != "conflict" {
		t.Fatalf("expected conflict envelope, got %s", body)
	}
}

func TestEventsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/teams/team-1/projects", map[string]any{
		"name": "Website", "key": "web",
	}, nil)
	resp, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/teams/team-1/events", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("events: %d %s", resp.StatusCode, body)
	}
	var page struct {
		Items []EventResponse `json:"items"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(page.Items) == 0 {
		t.Fatalf("expected events, got none")
	}
}

func TestOpenAPIServed(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var spec struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Components struct {
			SecuritySchemes map[string]any `json:"securitySchemes"`
		} `json:"components"`
	}
	if err := json.Unmarshal(body, &spec); err != nil {
		t.Fatalf("decode spec: %v", err)
	}
	if spec.Info.Title != "Doable API" {
		t.Fatalf("unexpected title %q", spec.Info.Title)
	}
	if _, ok := spec.Components.SecuritySchemes["bearerAuth"]; !ok {
		t.Fatalf("expected bearerAuth scheme in spec")
	}
}
