package chat

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMembers = []Candidate{
	{ID: "u-1", Name: "Sarah Chen"},
	{ID: "u-2", Name: "Sara Connor"},
	{ID: "u-3", Name: "Mike Jones"},
}

func TestResolveExactID(t *testing.T) {
	out := Resolve(Ref{ID: "u-2", Name: "whatever"}, testMembers)
	require.Equal(t, OutcomeResolved, out.Kind)
	assert.Equal(t, "u-2", out.ID)
	assert.Equal(t, "Sara Connor", out.Name)
}

func TestResolveExactNameBeatsSubstring(t *testing.T) {
	// "sara" is a substring of both names but an exact match of neither;
	// "Sara Connor" matches exactly when cased and padded differently.
	out := Resolve(RefFrom("  sara connor "), testMembers)
	require.Equal(t, OutcomeResolved, out.Kind)
	assert.Equal(t, "u-2", out.ID)
}

func TestResolveSubstringBothDirections(t *testing.T) {
	// query contained in candidate name
	out := Resolve(RefFrom("mike"), testMembers)
	require.Equal(t, OutcomeResolved, out.Kind)
	assert.Equal(t, "u-3", out.ID)

	// candidate name contained in query
	out = Resolve(RefFrom("Mike Jones (engineering)"), testMembers)
	require.Equal(t, OutcomeResolved, out.Kind)
	assert.Equal(t, "u-3", out.ID)
}

func TestResolveAmbiguousSortedByName(t *testing.T) {
	out := Resolve(RefFrom("sara"), testMembers)
	require.Equal(t, OutcomeAmbiguous, out.Kind)
	require.Len(t, out.Candidates, 2)
	assert.Equal(t, "Sara Connor", out.Candidates[0].Name)
	assert.Equal(t, "Sarah Chen", out.Candidates[1].Name)
}

func TestResolveAmbiguousCapped(t *testing.T) {
	var many []Candidate
	for i := 0; i < 25; i++ {
		many = append(many, Candidate{ID: fmt.Sprintf("u-%02d", i), Name: fmt.Sprintf("dev %02d", i)})
	}
	out := Resolve(RefFrom("dev"), many)
	require.Equal(t, OutcomeAmbiguous, out.Kind)
	assert.Len(t, out.Candidates, maxCandidates)
}

func TestResolveNotFound(t *testing.T) {
	out := Resolve(RefFrom("zelda"), testMembers)
	assert.Equal(t, OutcomeNotFound, out.Kind)

	out = Resolve(RefFrom("   "), testMembers)
	assert.Equal(t, OutcomeNotFound, out.Kind)
}

func TestResolveAssigneeSentinels(t *testing.T) {
	for _, v := range []string{"unassigned", "NULL", "Undefined", "  ", ""} {
		v := v
		out := ResolveAssignee(&v, testMembers)
		assert.Equal(t, OutcomeUnassigned, out.Kind, "value %q", v)
	}
	out := ResolveAssignee(nil, testMembers)
	assert.Equal(t, OutcomeUnassigned, out.Kind)

	v := "mike"
	out = ResolveAssignee(&v, testMembers)
	require.Equal(t, OutcomeResolved, out.Kind)
	assert.Equal(t, "u-3", out.ID)
}
