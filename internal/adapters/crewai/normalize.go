package crewai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"icebreaker/internal/core/domain"
)

// The status schema is not stable upstream. Documented states are "running",
// "completed" and "error"; the live API also reports "STARTED" and "SUCCESS".
var (
	doneStates    = stateSet{"completed", "success"}
	runningStates = stateSet{"running", "started", "pending"}
	errorStates   = stateSet{"error", "failed"}
)

// Candidate field names, most preferred first.
var (
	stateFields   = fieldChain{"state", "status"}
	resultFields  = fieldChain{"result", "final_output"}
	summaryFields = fieldChain{"output", "summary"}
)

const unknownState = "unknown"

type stateSet []string

func (s stateSet) has(v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// fieldChain is an ordered list of keys that may carry the same value.
type fieldChain []string

// lookup returns the value of the first key holding a non-empty value.
func (c fieldChain) lookup(payload map[string]any) (any, bool) {
	for _, key := range c {
		if v, ok := payload[key]; ok && present(v) {
			return v, true
		}
	}
	return nil, false
}

// Classify buckets a raw state string. Matching is case-insensitive.
func Classify(raw string) domain.State {
	switch s := strings.ToLower(raw); {
	case doneStates.has(s):
		return domain.StateDone
	case runningStates.has(s):
		return domain.StateRunning
	case errorStates.has(s):
		return domain.StateError
	default:
		return domain.StateUnknown
	}
}

// Normalize turns a raw status payload into a Status. It never fails: missing
// or odd fields degrade to the unknown state or an empty result.
func Normalize(payload map[string]any) domain.Status {
	raw := unknownState
	if v, ok := stateFields.lookup(payload); ok {
		raw = stringify(v)
	}
	raw = strings.ToLower(raw)

	status := domain.Status{State: Classify(raw), Raw: raw}
	if status.State != domain.StateDone {
		return status
	}

	result := extractResult(payload)
	status.Result = &result
	return status
}

func extractResult(payload map[string]any) string {
	v, ok := resultFields.lookup(payload)
	if !ok {
		return ""
	}
	nested, ok := v.(map[string]any)
	if !ok {
		return stringify(v)
	}
	if text, ok := summaryFields.lookup(nested); ok {
		return stringify(text)
	}
	return stringify(nested)
}

// present reports whether v counts as a supplied value: nil, empty strings,
// zero numbers, false and empty collections do not.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

// stringify renders a decoded JSON value as text. Objects and arrays become
// compact JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
