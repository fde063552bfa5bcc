package domain

import "strings"

// Inputs are handed to the remote crew verbatim as {"inputs": ...}.
type Inputs map[string]any

// Endpoint identifies one deployed crew.
type Endpoint struct {
	BaseURL string
	Token   string // bearer credential, passed through untouched
}

// URL joins path onto the base URL, dropping any trailing slash from the base.
func (e Endpoint) URL(path string) string {
	return strings.TrimRight(e.BaseURL, "/") + path
}

// State is the canonical bucket a raw job status falls into.
type State int

const (
	StateUnknown State = iota
	StateRunning
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether polling stops at this state.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}

// Status is a normalized poll response.
type Status struct {
	State State
	Raw   string // lower-cased state string as reported by the remote
	// Result is set only when State is StateDone.
	Result *string
}

// ResultText returns the result, or "" when none was reported.
func (s Status) ResultText() string {
	if s.Result == nil {
		return ""
	}
	return *s.Result
}
