package domain

type Team struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Key       string `json:"key"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type Project struct {
	ID          string `json:"id"`
	TeamID      string `json:"team_id"`
	Name        string `json:"name"`
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
	Status      string `json:"status" enum:"planned,active,paused,completed,canceled"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type WorkflowState struct {
	ID       string `json:"id"`
	TeamID   string `json:"team_id"`
	Name     string `json:"name"`
	Type     string `json:"type" enum:"unstarted,started,completed,canceled"`
	Color    string `json:"color,omitempty"`
	Position int    `json:"position"`
}

type Label struct {
	ID     string `json:"id"`
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
	Color  string `json:"color,omitempty"`
}

type Issue struct {
	ID          string   `json:"id"`
	TeamID      string   `json:"team_id"`
	ProjectID   string   `json:"project_id"`
	Number      int      `json:"number"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	StateID     string   `json:"state_id"`
	Priority    string   `json:"priority" enum:"none,low,medium,high,urgent"`
	AssigneeID  *string  `json:"assignee_id,omitempty"`
	LabelIDs    []string `json:"label_ids,omitempty"`
	DueDate     *string  `json:"due_date,omitempty" format:"date"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
	CompletedAt *string  `json:"completed_at,omitempty" format:"date-time"`
}

type Member struct {
	TeamID   string `json:"team_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role" enum:"admin,developer,viewer"`
	JoinedAt string `json:"joined_at" format:"date-time"`
}

type Invitation struct {
	ID        string `json:"id"`
	TeamID    string `json:"team_id"`
	Email     string `json:"email"`
	Role      string `json:"role" enum:"admin,developer,viewer"`
	Status    string `json:"status" enum:"pending,accepted,revoked,expired"`
	InvitedBy string `json:"invited_by"`
	CreatedAt string `json:"created_at" format:"date-time"`
	ExpiresAt string `json:"expires_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	TeamID     string `json:"team_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
