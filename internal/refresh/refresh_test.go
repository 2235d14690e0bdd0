package refresh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferToolsCoOccurrence(t *testing.T) {
	cases := []struct {
		text string
		want []string
	}{
		{"Issue WEB-12 created successfully", []string{ToolCreateIssue, ToolCreateIssues}},
		{"✅ issue done", []string{ToolCreateIssue, ToolCreateIssues}},
		{"The issue was updated", []string{ToolUpdateIssue, ToolUpdateIssues}},
		{"Project Website deleted", []string{ToolDeleteProject}},
		{"Removed Sarah from project Website", []string{ToolRemoveProjectMember}},
		{"Member invited to the team", []string{ToolInviteMember}},
		{"Invitation revoked", []string{ToolRevokeInvitation}},
		// subject without action, and vice versa, must not match
		{"Here is a list of issues", nil},
		{"Something was created", nil},
		{"", nil},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, InferTools(c.text), "text %q", c.text)
	}
}

func TestInferToolsDeduplicates(t *testing.T) {
	// "issue created ... issue updated" hits two rules; create tools must
	// not repeat.
	got := InferTools("issue created, then another issue updated")
	assert.Equal(t, []string{ToolCreateIssue, ToolCreateIssues, ToolUpdateIssue, ToolUpdateIssues}, got)
}

func TestCategoriesFor(t *testing.T) {
	assert.Equal(t, []Category{CategoryIssues}, CategoriesFor([]string{ToolCreateIssue, ToolDeleteIssues}))
	assert.Equal(t,
		[]Category{CategoryIssues, CategoryProjects, CategoryPeople},
		CategoriesFor([]string{ToolInviteMember, ToolCreateProject, ToolUpdateIssue}))
	assert.Empty(t, CategoriesFor([]string{"unknown_tool"}))
	assert.Empty(t, CategoriesFor(nil))
}

func TestHubSubscribeSignalUnsubscribe(t *testing.T) {
	h := NewHub()
	var issues, projects int
	unsub := h.Subscribe(CategoryIssues, func() { issues++ })
	h.Subscribe(CategoryProjects, func() { projects++ })

	h.Signal(CategoryIssues)
	assert.Equal(t, 1, issues)
	assert.Equal(t, 0, projects)

	// duplicates within one call collapse
	h.Signal(CategoryIssues, CategoryIssues, CategoryProjects)
	assert.Equal(t, 2, issues)
	assert.Equal(t, 1, projects)

	// no listeners is a no-op
	h.Signal(CategoryPeople)

	unsub()
	unsub()
	h.Signal(CategoryIssues)
	assert.Equal(t, 2, issues)
}

// observedHub records signaled categories and runs timers inline so tests
// stay deterministic.
func newTestObserver(hub *Hub) (*Observer, *[]time.Duration) {
	o := NewObserver(hub)
	var delays []time.Duration
	o.after = func(d time.Duration, fn func()) *time.Timer {
		delays = append(delays, d)
		fn()
		return nil
	}
	return o, &delays
}

func TestObserverLifecycle(t *testing.T) {
	o := NewObserver(NewHub())
	assert.Equal(t, StateIdle, o.State())
	o.UserSent()
	assert.Equal(t, StateAwaitingResponse, o.State())
	o.TurnComplete(nil)
	assert.Equal(t, StateReady, o.State())
}

func TestObserverTargetedSignal(t *testing.T) {
	hub := NewHub()
	var got []Category
	for _, c := range AllCategories {
		c := c
		hub.Subscribe(c, func() { got = append(got, c) })
	}
	o, delays := newTestObserver(hub)

	o.UserSent()
	o.TurnComplete([]Message{
		{ID: "m1", Role: "user", Text: "create an issue called Fix bug"},
		{ID: "m2", Role: "tool", ToolNames: []string{ToolCreateIssue}},
	})

	require.Equal(t, []time.Duration{defaultSignalDelay}, *delays)
	assert.Equal(t, []Category{CategoryIssues}, got)
}

func TestObserverFallbackSignalsEverything(t *testing.T) {
	hub := NewHub()
	var got []Category
	for _, c := range AllCategories {
		c := c
		hub.Subscribe(c, func() { got = append(got, c) })
	}
	o, delays := newTestObserver(hub)

	// no tool names and no matching keywords, but the turn ends with an
	// assistant message: the fallback refreshes all three categories
	o.TurnComplete([]Message{
		{ID: "m1", Role: "user", Text: "what changed?"},
		{ID: "m2", Role: "assistant", Text: "Done, all set."},
	})

	require.Equal(t, []time.Duration{defaultFallbackDelay}, *delays)
	assert.Equal(t, AllCategories, got)
}

func TestObserverFallbackFiresAlongsideTargetedSignal(t *testing.T) {
	hub := NewHub()
	var got []Category
	for _, c := range AllCategories {
		c := c
		hub.Subscribe(c, func() { got = append(got, c) })
	}
	o, delays := newTestObserver(hub)

	// assistant-authored final message that also carries tool activity:
	// the targeted signal and the full-refresh fallback both fire
	o.UserSent()
	o.TurnComplete([]Message{
		{ID: "m1", Role: "user", Text: "create an issue called Fix bug"},
		{ID: "m2", Role: "assistant", Text: "✅ Created issue WEB-1", ToolNames: []string{ToolCreateIssue}},
	})

	require.Equal(t, []time.Duration{defaultSignalDelay, defaultFallbackDelay}, *delays)
	assert.Equal(t, append([]Category{CategoryIssues}, AllCategories...), got)
}

func TestObserverProcessesEachMessageOnce(t *testing.T) {
	hub := NewHub()
	var issues int
	hub.Subscribe(CategoryIssues, func() { issues++ })
	o, _ := newTestObserver(hub)

	msgs := []Message{{ID: "m1", Role: "tool", ToolNames: []string{ToolCreateIssue}}}
	o.TurnComplete(msgs)
	o.TurnComplete(msgs)
	o.TurnComplete(msgs)
	assert.Equal(t, 1, issues)

	// unidentified messages are skipped, not processed blindly
	o.TurnComplete([]Message{{Role: "tool", ToolNames: []string{ToolCreateIssue}}})
	assert.Equal(t, 1, issues)
}

func TestObserverSurvivesPanicDuringTurn(t *testing.T) {
	o := NewObserver(NewHub())
	o.after = func(time.Duration, func()) *time.Timer { panic("boom") }

	o.UserSent()
	o.TurnComplete([]Message{
		{ID: "m1", Role: "assistant", ToolNames: []string{ToolCreateIssue}},
	})

	// the panic is absorbed and no lock is left held
	assert.Equal(t, StateReady, o.State())
	o.UserSent()
	assert.Equal(t, StateAwaitingResponse, o.State())
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(time.Minute)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("issues", []string{"WEB-1"})
	v, ok := c.Get("issues")
	require.True(t, ok)
	assert.Equal(t, []string{"WEB-1"}, v)

	now = now.Add(59 * time.Second)
	_, ok = c.Get("issues")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("issues")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheDeleteAndClear(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
	c.Clear()
	assert.Equal(t, 0, c.Len())
}
