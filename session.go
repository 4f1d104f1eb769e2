// Package opspod provides the Session struct for per-conversation state,
// along with methods for handling user messages and producing agent outputs.
package opspod

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Session is the handle of one conversation. History lives in the store; the
// session itself only carries the id and the accumulated token usage.
type Session struct {
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	id string

	inUserChannel  chan string
	outUserChannel chan Response

	runner  Runner
	store   SessionStore
	model   string
	timeout time.Duration

	turnMu *sync.Mutex
	mu     sync.Mutex
	usage  Usage

	logger *slog.Logger
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	id, err := gonanoid.New()
	if err != nil {
		panic(err)
	}
	return id
}

func newSession(ctx context.Context, sessionID string, turnMu *sync.Mutex, runner Runner, store SessionStore, model string, timeout time.Duration, logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(WithSessionID(ctx, sessionID))
	s := &Session{
		ctx:    ctx,
		cancel: cancel,
		id:     sessionID,

		inUserChannel:  make(chan string),
		outUserChannel: make(chan Response),

		turnMu:  turnMu,
		runner:  runner,
		store:   store,
		model:   model,
		timeout: timeout,

		logger: logger.With("sessionID", sessionID),
	}
	go s.run()
	return s
}

func (s *Session) ID() string {
	return s.id
}

// History returns the stored messages of the session.
func (s *Session) History(ctx context.Context) ([]Message, error) {
	return s.store.Load(ctx, s.id)
}

// Turn runs one turn against the stored history and saves the output. On
// failure nothing is saved.
func (s *Session) Turn(ctx context.Context, input string) (*TurnResult, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	prior, err := s.store.Load(ctx, s.id)
	if err != nil {
		return nil, fmt.Errorf("loading session history: %w", err)
	}
	return s.turn(ctx, prior, input)
}

// TurnWith runs one turn on a caller supplied history, replacing whatever
// the store held for the session. Only the user facing transcript of prior
// is kept: tool results and assistant tool calls are dropped.
func (s *Session) TurnWith(ctx context.Context, prior []Message, input string) (*TurnResult, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	return s.turn(ctx, NewMessageList(prior...).Conversational().All(), input)
}

func (s *Session) turn(ctx context.Context, prior []Message, input string) (*TurnResult, error) {
	ctx = WithSessionID(ctx, s.id)
	result, err := Respond(ctx, s.runner, prior, input, WithTurnTimeout(s.timeout), WithTurnLogger(s.logger))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.usage.Add(result.Usage)
	s.mu.Unlock()

	if err := s.store.Save(ctx, s.id, result.Output); err != nil {
		return nil, fmt.Errorf("saving session history: %w", err)
	}
	return result, nil
}

// In queues a user message for the interactive loop.
func (s *Session) In(userMessage string) error {
	if s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	select {
	case s.inUserChannel <- userMessage:
		return nil
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

// Out retrieves the next response, blocking until one is available. Once the
// session is closed it keeps returning an end response.
func (s *Session) Out() Response {
	response, ok := <-s.outUserChannel
	if !ok {
		return Response{Type: ResponseTypeEnd}
	}
	return response
}

// Close ends the session lifecycle. Stored history is kept.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
	})
}

func (s *Session) emit(response Response) bool {
	select {
	case s.outUserChannel <- response:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// run serves the In/Out interface. Each input produces status responses for
// the tools being run, the reply (or a warning or an error) and an end marker.
func (s *Session) run() {
	s.logger.Info("Session started")
	defer close(s.outUserChannel)
	for {
		select {
		case <-s.ctx.Done():
			return
		case userMessage := <-s.inUserChannel:
			ctx := WithStatusReporter(s.ctx, func(status string) {
				s.emit(Response{Content: status, Type: ResponseTypeStatus})
			})
			result, err := s.Turn(ctx, userMessage)
			switch {
			case err != nil:
				s.logger.Error("Turn failed", "error", err)
				s.emit(Response{Content: err.Error(), Type: ResponseTypeError})
			case result.Warning != nil:
				s.emit(Response{Content: result.Warning.Error(), Type: ResponseTypeWarning})
			default:
				if reply, ok := result.Reply(); ok {
					s.emit(Response{Content: reply.Content, Type: ResponseTypePartialText})
				}
			}
			if !s.emit(Response{Type: ResponseTypeEnd}) {
				return
			}
		}
	}
}
