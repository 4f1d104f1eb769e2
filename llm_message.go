package opspod

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ParseRole accepts the role names used by the different chat dialects
// ("user", "ai", ...) and maps them onto the roles used in this package.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "human", "user":
		return RoleHuman, nil
	case "assistant", "ai":
		return RoleAssistant, nil
	case "tool":
		return RoleTool, nil
	default:
		return "", fmt.Errorf("unknown message role %q", s)
	}
}

// ToolCall is a request from the model to run one tool with JSON encoded arguments.
type ToolCall struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Arguments string `json:"arguments" yaml:"arguments"`
}

// Message is one entry of a conversation. Messages are treated as values; a
// history is never modified in place once handed to another component.
type Message struct {
	Role       Role       `json:"role" yaml:"role"`
	Content    string     `json:"content" yaml:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty" yaml:"tool_name,omitempty"`
}

func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func ToolMessage(content, toolCallID, toolName string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID, ToolName: toolName}
}

// IsConversational reports whether the message belongs to the user facing
// transcript, i.e. a human message or an assistant reply without tool calls.
func (m Message) IsConversational() bool {
	switch m.Role {
	case RoleHuman:
		return true
	case RoleAssistant:
		return len(m.ToolCalls) == 0
	default:
		return false
	}
}

func (m Message) clone() Message {
	if m.ToolCalls != nil {
		m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
	}
	return m
}

// MessageList holds an ordered collection of messages to preserve the history.
type MessageList struct {
	Messages []Message
}

func NewMessageList(msgs ...Message) *MessageList {
	ml := &MessageList{Messages: make([]Message, 0, len(msgs))}
	ml.Add(msgs...)
	return ml
}

func (ml *MessageList) Len() int {
	return len(ml.Messages)
}

// Add appends one or more new messages to the MessageList in a FIFO order.
func (ml *MessageList) Add(msgs ...Message) {
	for _, m := range msgs {
		ml.Messages = append(ml.Messages, m.clone())
	}
}

func (ml *MessageList) All() []Message {
	return ml.Messages
}

func (ml *MessageList) Last() (Message, bool) {
	if len(ml.Messages) == 0 {
		return Message{}, false
	}
	return ml.Messages[len(ml.Messages)-1], true
}

// LastHumanMessageString returns the content of the most recent human message
// or an empty string if there is none.
func (ml *MessageList) LastHumanMessageString() string {
	for i := len(ml.Messages) - 1; i >= 0; i-- {
		if ml.Messages[i].Role == RoleHuman {
			return ml.Messages[i].Content
		}
	}
	return ""
}

// Clone returns a deep copy so that appends on either side never alias.
func (ml *MessageList) Clone() *MessageList {
	return NewMessageList(ml.Messages...)
}

// Conversational returns a copy of the list keeping only the user facing
// transcript (no tool calls, no tool results).
func (ml *MessageList) Conversational() *MessageList {
	filtered := NewMessageList()
	for _, m := range ml.Messages {
		if m.IsConversational() {
			filtered.Add(m)
		}
	}
	return filtered
}

// CloneMessages copies a slice of messages.
func CloneMessages(msgs []Message) []Message {
	return NewMessageList(msgs...).All()
}
