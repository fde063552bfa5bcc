package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are added to every record logged with the context.
type LogFields struct {
	RunID     string // workflow run id
	JobID     string // remote kickoff id
	Stage     string // "research" or "generate"
	Component string // e.g. "icebreaker.crewai.client"
}

// WithLogFields enriches ctx. Non-empty values in fields replace existing ones.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := mergeFields(GetLogFields(ctx), fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields returns the fields attached to ctx, or the zero value.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing
	if next.RunID != "" {
		result.RunID = next.RunID
	}
	if next.JobID != "" {
		result.JobID = next.JobID
	}
	if next.Stage != "" {
		result.Stage = next.Stage
	}
	if next.Component != "" {
		result.Component = next.Component
	}
	return result
}

// Truncate shortens s to maxLen bytes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
