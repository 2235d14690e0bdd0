package chat

import (
	"sort"
	"strings"
)

// Candidate is a display name plus identifier, used both as resolver input
// and in ambiguity clarification prompts.
type Candidate struct {
	ID   string
	Name string
}

// Ref is an entity reference from a tool call. The raw value may be an
// identifier or a human-readable name; resolution tries the identifier
// first and then name matching.
type Ref struct {
	ID   string
	Name string
}

// RefFrom builds a reference from one raw tool-call value.
func RefFrom(value string) Ref {
	return Ref{ID: value, Name: value}
}

// Outcome kinds.
const (
	OutcomeResolved   = "resolved"
	OutcomeAmbiguous  = "ambiguous"
	OutcomeNotFound   = "not_found"
	OutcomeUnassigned = "unassigned"
)

type Outcome struct {
	Kind       string
	ID         string
	Name       string
	Candidates []Candidate
}

// maxCandidates bounds ambiguity listings so clarification prompts stay short.
const maxCandidates = 10

// Resolve converts a reference into an identifier against a collection.
// An exact identifier match wins outright. Otherwise the trimmed,
// case-folded text is compared for exact name equality, then for substring
// containment in either direction. One match resolves; several are
// ambiguous; none is not-found. Pure function over its inputs.
func Resolve(ref Ref, items []Candidate) Outcome {
	if ref.ID != "" {
		for _, it := range items {
			if it.ID == ref.ID {
				return Outcome{Kind: OutcomeResolved, ID: it.ID, Name: it.Name}
			}
		}
	}
	text := strings.ToLower(strings.TrimSpace(ref.Name))
	if text == "" {
		return Outcome{Kind: OutcomeNotFound}
	}
	var exact []Candidate
	for _, it := range items {
		if strings.ToLower(it.Name) == text {
			exact = append(exact, it)
		}
	}
	if len(exact) == 1 {
		return Outcome{Kind: OutcomeResolved, ID: exact[0].ID, Name: exact[0].Name}
	}
	if len(exact) > 1 {
		return ambiguous(exact)
	}
	var partial []Candidate
	for _, it := range items {
		name := strings.ToLower(it.Name)
		if strings.Contains(name, text) || strings.Contains(text, name) {
			partial = append(partial, it)
		}
	}
	switch len(partial) {
	case 0:
		return Outcome{Kind: OutcomeNotFound}
	case 1:
		return Outcome{Kind: OutcomeResolved, ID: partial[0].ID, Name: partial[0].Name}
	}
	return ambiguous(partial)
}

func ambiguous(candidates []Candidate) Outcome {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return Outcome{Kind: OutcomeAmbiguous, Candidates: candidates}
}

// unassignedTokens are literal spellings the upstream model uses to mean
// "no assignee". They must clear the assignee, never resolve to not-found.
var unassignedTokens = map[string]bool{
	"unassigned": true,
	"null":       true,
	"undefined":  true,
}

// ResolveAssignee handles the assignee sentinel before running the normal
// match algorithm. A nil value or one of the sentinel spellings yields the
// explicit unassigned outcome.
func ResolveAssignee(value *string, members []Candidate) Outcome {
	if value == nil {
		return Outcome{Kind: OutcomeUnassigned}
	}
	v := strings.ToLower(strings.TrimSpace(*value))
	if v == "" || unassignedTokens[v] {
		return Outcome{Kind: OutcomeUnassigned}
	}
	return Resolve(RefFrom(*value), members)
}
