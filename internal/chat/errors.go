package chat

import "fmt"

// ValidationError reports missing required fields on a command draft.
// Message carries the clarification prompt relayed verbatim to the user.
type ValidationError struct {
	Command string
	Missing []string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ResolutionError reports a named reference that could not be resolved to
// exactly one entity. Candidates is empty for not-found, populated when
// the reference was ambiguous.
type ResolutionError struct {
	Field      string
	Value      string
	Candidates []Candidate
	Message    string
}

func (e *ResolutionError) Error() string { return e.Message }

// MultiMatchError reports a title/name lookup for update or delete that
// matched more than one entity.
type MultiMatchError struct {
	Value   string
	Matches []string
}

func (e *MultiMatchError) Error() string {
	return fmt.Sprintf("Multiple items match %q: %s. Please specify which one by its identifier.", e.Value, joinComma(e.Matches))
}

// StoreError wraps a downstream store failure. The command was valid; the
// mutation itself failed.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s failed: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
