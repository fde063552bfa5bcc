// Package fakecrew is a stand-in for a deployed crew: it accepts kickoffs and
// replays scripted status payloads. It backs the client tests and local runs
// without a real crew.
package fakecrew

import (
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Script produces the status payloads of one job, in poll order. The last
// payload repeats once the script is exhausted.
type Script func(inputs map[string]any) []map[string]any

// Kickoff records one accepted /kickoff call.
type Kickoff struct {
	ID            string
	Inputs        map[string]any
	Authorization string
}

type Config struct {
	// Token, when set, is required as "Bearer <Token>" on every request.
	Token string
	// Script defaults to DefaultScript.
	Script Script
	// ServiceName names the otelgin middleware; empty disables it.
	ServiceName string
}

type Server struct {
	cfg    Config
	engine *gin.Engine

	mu       sync.Mutex
	seq      int
	kickoffs []Kickoff
	jobs     map[string]*job
}

type job struct {
	statuses []map[string]any
	polls    int
}

func New(cfg Config) *Server {
	if cfg.Script == nil {
		cfg.Script = DefaultScript
	}
	s := &Server{
		cfg:    cfg,
		engine: gin.New(),
		jobs:   make(map[string]*job),
	}
	s.engine.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		s.engine.Use(otelgin.Middleware(cfg.ServiceName))
	}
	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := s.engine.Group("/", s.requireToken)
	authed.POST("/kickoff", s.kickoff)
	authed.GET("/status/:id", s.status)
	return s
}

// Handler exposes the server for http.Server or httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Kickoffs returns a copy of the accepted kickoffs.
func (s *Server) Kickoffs() []Kickoff {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Kickoff, len(s.kickoffs))
	copy(out, s.kickoffs)
	return out
}

// Polls returns how many status calls job id has received.
func (s *Server) Polls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		return j.polls
	}
	return 0
}

func (s *Server) requireToken(c *gin.Context) {
	if s.cfg.Token == "" {
		c.Next()
		return
	}
	if c.GetHeader("Authorization") != "Bearer "+s.cfg.Token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
		return
	}
	c.Next()
}

type kickoffBody struct {
	Inputs map[string]any `json:"inputs"`
}

func (s *Server) kickoff(c *gin.Context) {
	var body kickoffBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Inputs == nil {
		body.Inputs = map[string]any{}
	}

	s.mu.Lock()
	s.seq++
	id := fmt.Sprintf("kickoff-%04d", s.seq)
	s.jobs[id] = &job{statuses: s.cfg.Script(body.Inputs)}
	s.kickoffs = append(s.kickoffs, Kickoff{
		ID:            id,
		Inputs:        body.Inputs,
		Authorization: c.GetHeader("Authorization"),
	})
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"kickoff_id": id})
}

func (s *Server) status(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	j, ok := s.jobs[id]
	var payload map[string]any
	if ok {
		payload = j.next()
	}
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown kickoff id"})
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (j *job) next() map[string]any {
	j.polls++
	if len(j.statuses) == 0 {
		return map[string]any{}
	}
	i := j.polls - 1
	if i >= len(j.statuses) {
		i = len(j.statuses) - 1
	}
	return j.statuses[i]
}

// DefaultScript reports the job as started, then running, then succeeded
// with a short markdown report echoing the inputs.
func DefaultScript(inputs map[string]any) []map[string]any {
	var b strings.Builder
	b.WriteString("# Crew report\n\n")
	for _, k := range slices.Sorted(maps.Keys(inputs)) {
		fmt.Fprintf(&b, "- **%s**: %v\n", k, inputs[k])
	}
	return []map[string]any{
		{"state": "STARTED"},
		{"status": "running"},
		{"state": "SUCCESS", "result": map[string]any{"output": b.String(), "tasks": []any{}}},
	}
}

// Sequence returns a Script that replays the given payloads for every job.
func Sequence(payloads ...map[string]any) Script {
	return func(map[string]any) []map[string]any {
		return payloads
	}
}
