// Package opspod provides the Agent orchestrator, which uses an LLM and Skills to answer a conversation.
package opspod

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/boat-builder/opspod/prompts"
)

const DefaultMaxIterations = 10

var ignErr *IgnorableError
var retErr *RetryableError

// Runner is the model/tool loop invoked once per turn. It receives the full
// conversation and returns the complete resulting message list.
type Runner interface {
	Run(ctx context.Context, messages []Message) (*RunResult, error)
}

// RunResult is what a single Runner invocation produced.
type RunResult struct {
	Messages []Message
	// ToolResults holds the raw outputs of successful tool calls in call order.
	ToolResults []string
	Usage       Usage
}

// Agent orchestrates calls to the LLM, uses Skills/Tools, and determines how to respond.
type Agent struct {
	prompt        string
	skills        []Skill
	llm           LLM
	maxIterations int
	logger        *slog.Logger
}

type AgentOption func(*Agent)

func WithMaxIterations(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

func WithLogger(logger *slog.Logger) AgentOption {
	return func(a *Agent) {
		a.logger = logger
	}
}

func NewAgent(llm LLM, prompt string, skills []Skill, opts ...AgentOption) *Agent {
	a := &Agent{
		prompt:        prompt,
		skills:        skills,
		llm:           llm,
		maxIterations: DefaultMaxIterations,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Agent) Skills() []Skill {
	return a.skills
}

// findTool looks the tool up across all skills.
func (a *Agent) findTool(name string) (Tool, *Skill, error) {
	for i := range a.skills {
		if tool, err := a.skills[i].GetTool(name); err == nil {
			return tool, &a.skills[i], nil
		}
	}
	return nil, nil, fmt.Errorf("tool %s: %w", name, ErrToolNotFound)
}

// ToolSpecs returns every tool of every skill.
func (a *Agent) ToolSpecs() []ToolSpec {
	specs := []ToolSpec{}
	for i := range a.skills {
		specs = append(specs, a.skills[i].Specs()...)
	}
	return specs
}

func (a *Agent) SystemPrompt() (string, error) {
	data := prompts.AgentPromptData{MainAgentSystemPrompt: a.prompt}
	for _, skill := range a.skills {
		data.Skills = append(data.Skills, prompts.SkillPrompt{
			Name:         skill.Name,
			Description:  skill.Description,
			SystemPrompt: skill.SystemPrompt,
		})
	}
	return prompts.AgentPrompt(data)
}

// Run executes the model/tool loop until the model answers without tool calls.
// The input slice is never modified.
func (a *Agent) Run(ctx context.Context, messages []Message) (*RunResult, error) {
	systemPrompt, err := a.SystemPrompt()
	if err != nil {
		return nil, fmt.Errorf("building system prompt: %w", err)
	}
	history := NewMessageList(messages...)
	tools := a.ToolSpecs()
	result := &RunResult{}

	for i := 0; i < a.maxIterations; i++ {
		resp, err := a.llm.Chat(ctx, ChatRequest{
			SystemPrompt: systemPrompt,
			Messages:     history.All(),
			Tools:        tools,
		})
		if err != nil {
			a.logger.Error("Error calling LLM", "model", a.llm.Model(), "error", err)
			return nil, fmt.Errorf("calling %s: %w", a.llm.Model(), err)
		}
		result.Usage.Add(resp.Usage)
		resp.Message.Role = RoleAssistant
		history.Add(resp.Message)

		if len(resp.Message.ToolCalls) == 0 {
			result.Messages = history.All()
			return result, nil
		}
		if resp.Message.Content != "" {
			a.logger.Debug("Assistant message carries both content and tool calls", "content", resp.Message.Content)
		}

		outputs := a.runTools(ctx, resp.Message.ToolCalls)
		for _, out := range outputs {
			history.Add(out.message)
			if out.ok {
				result.ToolResults = append(result.ToolResults, out.message.Content)
			}
		}
	}

	a.logger.Error("Agent stopped before a final answer", "iterations", a.maxIterations)
	result.Messages = history.All()
	return result, ErrMaxIterations
}
