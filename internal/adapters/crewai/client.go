package crewai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"icebreaker/internal/core/domain"
	"icebreaker/internal/platform/logger"
)

// DefaultRequestTimeout bounds each individual HTTP request.
const DefaultRequestTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is kept in errors.
const maxErrorBody = 512

// Client implements ports.CrewClient against the CrewAI Enterprise REST API.
type Client struct {
	endpoint domain.Endpoint
	client   *http.Client
	logger   *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithRequestTimeout sets the per-request timeout. It applies to a copy, so a
// client passed to WithHTTPClient keeps its own timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.client
			hc.Timeout = d
			c.client = &hc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client for one crew endpoint.
func NewClient(endpoint domain.Endpoint, opts ...Option) (*Client, error) {
	if endpoint.BaseURL == "" {
		return nil, domain.ErrMissingEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultRequestTimeout},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type kickoffRequest struct {
	Inputs domain.Inputs `json:"inputs"`
}

type kickoffResponse struct {
	KickoffID string `json:"kickoff_id"`
}

// Launch POSTs the inputs to /kickoff and returns the kickoff id.
func (c *Client) Launch(ctx context.Context, inputs domain.Inputs) (string, error) {
	sc := logger.StartSpan(ctx, "crew.launch", trace.WithSpanKind(trace.SpanKindClient))
	defer sc.End()
	ctx = sc.Context()

	if inputs == nil {
		inputs = domain.Inputs{}
	}
	body, err := json.Marshal(kickoffRequest{Inputs: inputs})
	if err != nil {
		err = fmt.Errorf("encode inputs: %w", err)
		sc.RecordError(err)
		return "", err
	}

	raw, err := c.do(ctx, "launch", http.MethodPost, c.endpoint.URL("/kickoff"), body)
	if err != nil {
		sc.RecordError(err)
		return "", err
	}

	var resp kickoffResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		perr := &domain.ProtocolError{Op: "launch", Field: "kickoff_id", Err: err}
		sc.RecordError(perr)
		return "", perr
	}
	if resp.KickoffID == "" {
		perr := &domain.ProtocolError{Op: "launch", Field: "kickoff_id"}
		sc.RecordError(perr)
		return "", perr
	}

	sc.Span().SetAttributes(attribute.String("crew.kickoff_id", resp.KickoffID))
	c.logger.InfoContext(ctx, "crew job launched", "kickoff_id", resp.KickoffID, "inputs", len(inputs))
	return resp.KickoffID, nil
}

// Poll GETs /status/{id} and normalizes the payload.
func (c *Client) Poll(ctx context.Context, jobID string) (domain.Status, error) {
	sc := logger.StartSpan(ctx, "crew.poll",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("crew.kickoff_id", jobID)),
	)
	defer sc.End()
	ctx = sc.Context()

	raw, err := c.do(ctx, "poll", http.MethodGet, c.endpoint.URL("/status/"+url.PathEscape(jobID)), nil)
	if err != nil {
		sc.RecordError(err)
		return domain.Status{}, err
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.logger.WarnContext(ctx, "crew status body is not a json object",
			"kickoff_id", jobID,
			"error", err,
			"body", logger.Truncate(string(raw), 200))
		payload = nil
	}

	status := Normalize(payload)
	sc.Span().SetAttributes(
		attribute.String("crew.state", status.State.String()),
		attribute.String("crew.raw_state", status.Raw),
	)
	c.logger.DebugContext(ctx, "crew status polled", "kickoff_id", jobID, "state", status.State, "raw_state", status.Raw)
	return status, nil
}

// do sends one request and returns the body of a 2xx response. Every failure
// is a *domain.TransportError, except context cancellation which is returned
// as is.
func (c *Client) do(ctx context.Context, op, method, target string, body []byte) ([]byte, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.endpoint.Token)
	req.Header.Set("X-Request-Id", reqID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "crew http send error",
			"op", op, "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WarnContext(ctx, "crew http body close error", "req_id", reqID, "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.DebugContext(ctx, "crew http response",
		"op", op,
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, &domain.TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       logger.Truncate(string(raw), maxErrorBody),
		}
	}
	return raw, nil
}
