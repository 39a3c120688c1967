package feedback

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
	"github.com/zhouzirui/feedback-collector/backend/internal/service/push"
)

var ErrPromptRequired = errors.New("work summary is required")

const (
	DefaultTimeout       = 300 * time.Second
	DefaultMaxAge        = 24 * time.Hour
	DefaultSweepInterval = time.Hour
	DefaultUIPath        = "/feedback_ui.html"
)

// Channel is the push side the manager talks to.
type Channel interface {
	Pusher
	Register(sessionID string, conn push.Connection)
}

// Config tunes session lifetimes and the links handed back to agents.
type Config struct {
	BaseURL        string
	UIPath         string
	DefaultTimeout time.Duration
	MaxAge         time.Duration
	SweepInterval  time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8000"
	}
	if c.UIPath == "" {
		c.UIPath = DefaultUIPath
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

// Request describes one call of the collect-feedback tool.
type Request struct {
	WorkSummary     string
	Timeout         time.Duration
	SessionID       string
	RequireResponse bool
}

// Manager owns session creation, delivery of prompts, waiting and the
// periodic eviction of old sessions.
type Manager struct {
	store   *Store
	waiter  *Waiter
	channel Channel
	cfg     Config
	cron    *cron.Cron
}

// NewManager wires the lifecycle manager around an existing store and push channel.
func NewManager(store *Store, channel Channel, cfg Config) *Manager {
	return &Manager{
		store:   store,
		waiter:  NewWaiter(store),
		channel: channel,
		cfg:     cfg.withDefaults(),
		cron:    cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default())))),
	}
}

// Start schedules the background sweep.
func (m *Manager) Start() error {
	schedule := fmt.Sprintf("@every %s", m.cfg.SweepInterval)
	if _, err := m.cron.AddFunc(schedule, func() { m.Sweep() }); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	m.cron.Start()
	log.Printf("[feedback] session sweep every %s, max age %s", m.cfg.SweepInterval, m.cfg.MaxAge)
	return nil
}

// Stop halts the sweep and waits for a running pass to finish.
func (m *Manager) Stop() {
	<-m.cron.Stop().Done()
}

// Sweep evicts sessions older than the configured max age.
func (m *Manager) Sweep() int {
	removed := m.store.RemoveOlderThan(m.cfg.MaxAge)
	if removed > 0 {
		log.Printf("[feedback] swept %d sessions older than %s", removed, m.cfg.MaxAge)
	}
	return removed
}

// RequestFeedback creates a session, pushes the prompt to any connected client
// and, when a response is required, waits for it.
func (m *Manager) RequestFeedback(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.WorkSummary) == "" {
		return Result{}, ErrPromptRequired
	}

	session, err := m.store.Create(req.SessionID, req.WorkSummary)
	if err != nil {
		return Result{}, fmt.Errorf("create session: %w", err)
	}
	log.Printf("[feedback] session created id=%s require_response=%t", session.ID, req.RequireResponse)

	if m.channel.Send(session.ID, feedback.AgentMessage(session.Prompt)) {
		log.Printf("[feedback] prompt pushed to connected client session=%s", session.ID)
	}

	result := Result{
		SessionID:   session.ID,
		FeedbackURL: m.FeedbackURL(session.ID),
		Status:      feedback.StatusWaiting,
	}
	if !req.RequireResponse {
		return result, nil
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = m.cfg.DefaultTimeout
	}

	resp, err := m.waiter.AwaitCompletion(ctx, session.ID, timeout)
	switch {
	case err == nil:
		result.Status = feedback.StatusCompleted
		result.Response = &resp
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrSessionNotFound):
		log.Printf("[feedback] no reply within %s session=%s", timeout, session.ID)
		result.Status = feedback.StatusExpired
	default:
		return result, err
	}
	return result, nil
}

// Attach makes conn the session's live connection and replays what the client
// needs to render the session.
func (m *Manager) Attach(sessionID string, conn push.Connection) {
	m.channel.Register(sessionID, conn)

	session, ok := m.store.Get(sessionID)
	if !ok {
		return
	}
	m.channel.Send(sessionID, feedback.AgentMessage(session.Prompt))
	if session.Status == feedback.StatusCompleted {
		m.channel.Send(sessionID, feedback.SessionComplete())
	}
}

// Summary returns the pull-style view of a session.
func (m *Manager) Summary(sessionID string) (feedback.Summary, error) {
	session, ok := m.store.Get(sessionID)
	if !ok {
		return feedback.Summary{}, ErrSessionNotFound
	}
	return session.Summarize(), nil
}

// FeedbackURL is the link a human opens to answer the session.
func (m *Manager) FeedbackURL(sessionID string) string {
	base := strings.TrimRight(m.cfg.BaseURL, "/")
	path := "/" + strings.TrimLeft(m.cfg.UIPath, "/")
	return base + path + "?session=" + url.QueryEscape(sessionID)
}
