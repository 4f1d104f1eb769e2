package prompts

// SkillPrompt is the prompt facing view of a skill.
type SkillPrompt struct {
	Name         string
	Description  string
	SystemPrompt string
}

// AgentPromptData contains data for the agent system prompt template.
type AgentPromptData struct {
	MainAgentSystemPrompt string
	Skills                []SkillPrompt
}

const AgentPromptTemplate = `
{{ trim .MainAgentSystemPrompt }}
{{ with formatSkills .Skills }}
The tools you can call are grouped as follows.

{{ . }}
{{ end }}`

// AgentPrompt builds the system prompt sent with every model call of a turn.
func AgentPrompt(data AgentPromptData) (string, error) {
	return generateFromTemplate(AgentPromptTemplate, data)
}
