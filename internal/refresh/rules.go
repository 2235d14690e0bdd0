package refresh

import "strings"

// Tool names as the assistant surface exposes them, including bulk
// variants, since an inferred signal must cover single- and multi-entity
// operations alike.
const (
	ToolCreateIssue         = "create_issue"
	ToolCreateIssues        = "create_issues"
	ToolUpdateIssue         = "update_issue"
	ToolUpdateIssues        = "update_issues"
	ToolDeleteIssue         = "delete_issue"
	ToolDeleteIssues        = "delete_issues"
	ToolCreateProject       = "create_project"
	ToolUpdateProject       = "update_project"
	ToolDeleteProject       = "delete_project"
	ToolAddProjectMember    = "add_project_member"
	ToolRemoveProjectMember = "remove_project_member"
	ToolInviteMember        = "invite_member"
	ToolRemoveMember        = "remove_member"
	ToolRevokeInvitation    = "revoke_invitation"
)

// toolCategories maps every tool name to the view categories it dirties.
var toolCategories = map[string][]Category{
	ToolCreateIssue:         {CategoryIssues},
	ToolCreateIssues:        {CategoryIssues},
	ToolUpdateIssue:         {CategoryIssues},
	ToolUpdateIssues:        {CategoryIssues},
	ToolDeleteIssue:         {CategoryIssues},
	ToolDeleteIssues:        {CategoryIssues},
	ToolCreateProject:       {CategoryProjects},
	ToolUpdateProject:       {CategoryProjects},
	ToolDeleteProject:       {CategoryProjects},
	ToolAddProjectMember:    {CategoryProjects},
	ToolRemoveProjectMember: {CategoryProjects},
	ToolInviteMember:        {CategoryPeople},
	ToolRemoveMember:        {CategoryPeople},
	ToolRevokeInvitation:    {CategoryPeople},
}

const successGlyph = "✅"

// rule infers tool names from a subject keyword co-occurring with an
// action keyword in rendered message text. The pairs are deliberately
// coarse ("project" plus "removed" assumes a member removal); new pairs
// are a product decision, not something to derive here.
type rule struct {
	subject string
	actions []string
	tools   []string
}

var inferenceRules = []rule{
	{"issue", []string{"created", successGlyph}, []string{ToolCreateIssue, ToolCreateIssues}},
	{"issue", []string{"updated"}, []string{ToolUpdateIssue, ToolUpdateIssues}},
	{"issue", []string{"deleted", "removed"}, []string{ToolDeleteIssue, ToolDeleteIssues}},
	{"project", []string{"created", successGlyph}, []string{ToolCreateProject}},
	{"project", []string{"updated"}, []string{ToolUpdateProject}},
	{"project", []string{"deleted"}, []string{ToolDeleteProject}},
	{"project", []string{"removed"}, []string{ToolRemoveProjectMember}},
	{"member", []string{"invited", successGlyph}, []string{ToolInviteMember}},
	{"member", []string{"removed"}, []string{ToolRemoveMember}},
	{"invitation", []string{"created", "invited", successGlyph}, []string{ToolInviteMember}},
	{"invitation", []string{"revoked", "deleted"}, []string{ToolRevokeInvitation}},
}

// InferTools scans rendered message text, case-folded, and returns the
// tool names whose subject and action keywords co-occur in it.
func InferTools(text string) []string {
	folded := strings.ToLower(text)
	seen := make(map[string]bool)
	var out []string
	for _, r := range inferenceRules {
		if !strings.Contains(folded, r.subject) {
			continue
		}
		matched := false
		for _, a := range r.actions {
			if strings.Contains(folded, a) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, t := range r.tools {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// CategoriesFor maps tool names to the union of their categories,
// preserving AllCategories order.
func CategoriesFor(tools []string) []Category {
	want := make(map[Category]bool)
	for _, t := range tools {
		for _, c := range toolCategories[t] {
			want[c] = true
		}
	}
	var out []Category
	for _, c := range AllCategories {
		if want[c] {
			out = append(out, c)
		}
	}
	return out
}
