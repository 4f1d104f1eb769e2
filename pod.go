package opspod

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pod bundles the resources shared by all sessions of one agent deployment.
type Pod struct {
	llm         LLM
	Agent       *Agent
	Store       SessionStore
	turnTimeout time.Duration
	logger      *slog.Logger

	// turnLocks holds one *sync.Mutex per session id so that turns on the
	// same conversation run one at a time across Session handles.
	turnLocks sync.Map
}

type PodOption func(*Pod)

func WithPodTurnTimeout(d time.Duration) PodOption {
	return func(p *Pod) {
		p.turnTimeout = d
	}
}

func WithPodLogger(logger *slog.Logger) PodOption {
	return func(p *Pod) {
		p.logger = logger
	}
}

// NewPod constructs a new Pod with the given resources. A nil store falls back
// to an in-memory one.
func NewPod(llm LLM, agent *Agent, store SessionStore, opts ...PodOption) *Pod {
	if store == nil {
		store = NewMemoryStore()
	}
	p := &Pod{
		llm:    llm,
		Agent:  agent,
		Store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewSession opens the conversation identified by sessionID, or a new one when
// sessionID is empty. The caller must Close it.
func (p *Pod) NewSession(ctx context.Context, sessionID string) *Session {
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	return newSession(ctx, sessionID, p.turnLock(sessionID), p.Agent, p.Store, p.llm.Model(), p.turnTimeout, p.logger)
}

func (p *Pod) turnLock(sessionID string) *sync.Mutex {
	lock, _ := p.turnLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
