// Package atlassian exposes the Jira and Confluence REST APIs as agent tools.
package atlassian

import (
	"encoding/json"

	"github.com/boat-builder/opspod"
	"github.com/boat-builder/opspod/config"
	"github.com/boat-builder/opspod/prompts"
	"github.com/boat-builder/opspod/restcall"
)

const (
	statusJira       = "Looking up Jira..."
	statusAgile      = "Looking up Jira boards and sprints..."
	statusConfluence = "Looking up Confluence..."

	confluencePrefix = "/wiki"
)

// Filters are the default project and space restrictions applied to searches.
type Filters struct {
	JiraProjects     string
	ConfluenceSpaces string
}

// NewClient builds the REST client for the configured Atlassian site.
func NewClient(cfg config.Atlassian, opts ...restcall.Option) *restcall.Client {
	base := []restcall.Option{restcall.WithReadOnly(cfg.ReadOnly), restcall.WithTimeout(cfg.Timeout())}
	if !cfg.VerifySSL {
		base = append(base, restcall.WithInsecureSkipVerify())
	}
	return restcall.NewClient(cfg.URL, cfg.Token, append(base, opts...)...)
}

func FiltersFrom(cfg config.Atlassian) Filters {
	return Filters{JiraProjects: cfg.JiraProjectsFilter, ConfluenceSpaces: cfg.ConfluenceSpacesFilter}
}

// Skills groups the Jira and Confluence tools.
func Skills(client *restcall.Client, filters Filters) []opspod.Skill {
	jira := NewJira(client, filters.JiraProjects)
	confluence := NewConfluence(client, filters.ConfluenceSpaces)
	return []opspod.Skill{
		{
			Name:          "jira",
			Description:   "Jira issues: search with JQL, read, create, link, transition and log work.",
			SystemPrompt:  "Use jira_get_transitions before jira_transition_issue to find a valid transition id.",
			StatusMessage: statusJira,
			Tools:         jira.IssueTools(),
		},
		{
			Name:          "jira-agile",
			Description:   "Jira agile boards, sprints and epics.",
			StatusMessage: statusAgile,
			Tools:         jira.AgileTools(),
		},
		{
			Name:          "confluence",
			Description:   "Confluence pages: search with CQL, read, create, update, delete, comment and label.",
			SystemPrompt:  "Page ids are numeric and can be parsed from page URLs such as /wiki/spaces/TEAM/pages/123456789/Title.",
			StatusMessage: statusConfluence,
			Tools:         confluence.Tools(),
		},
	}
}

// NewAgent wires the Atlassian tools and instructions into an agent.
func NewAgent(llm opspod.LLM, client *restcall.Client, filters Filters, opts ...opspod.AgentOption) *opspod.Agent {
	return opspod.NewAgent(llm, prompts.AtlassianInstruction, Skills(client, filters), opts...)
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return restcall.ErrorJSON(err.Error())
	}
	return string(b)
}

func requireString(args restcall.Args, name string) (string, error) {
	s, ok := args.String(name)
	if !ok || s == "" {
		return "", opspod.NewRetryableError("missing required argument %q", name)
	}
	return s, nil
}

func optionalInt(args restcall.Args, name string, fallback int) (int, error) {
	n, ok, err := args.Int(name)
	if err != nil {
		return 0, &opspod.RetryableError{Err: err}
	}
	if !ok {
		return fallback, nil
	}
	return n, nil
}

// maxLimit is the largest page size accepted by the search style tools.
const maxLimit = 50

// limitArg reads the optional "limit" argument and clamps it to 1..maxLimit.
func limitArg(args restcall.Args, fallback int) (int, error) {
	n, err := optionalInt(args, "limit", fallback)
	if err != nil {
		return 0, err
	}
	return min(max(n, 1), maxLimit), nil
}

func optionalBool(args restcall.Args, name string, fallback bool) (bool, error) {
	b, ok, err := args.Bool(name)
	if err != nil {
		return false, &opspod.RetryableError{Err: err}
	}
	if !ok {
		return fallback, nil
	}
	return b, nil
}

func schema(params ...restcall.Param) map[string]any {
	return restcall.ParamsSchema(params, "", false)
}
