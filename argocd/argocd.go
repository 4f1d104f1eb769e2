// Package argocd exposes the Argo CD REST API as agent tools.
package argocd

import (
	"github.com/boat-builder/opspod"
	"github.com/boat-builder/opspod/config"
	"github.com/boat-builder/opspod/prompts"
	"github.com/boat-builder/opspod/restcall"
)

// NewClient builds the REST client for the configured Argo CD API server.
func NewClient(cfg config.ArgoCD, opts ...restcall.Option) *restcall.Client {
	base := []restcall.Option{restcall.WithTimeout(cfg.Timeout())}
	if !cfg.VerifySSL {
		base = append(base, restcall.WithInsecureSkipVerify())
	}
	return restcall.NewClient(cfg.URL, cfg.Token, append(base, opts...)...)
}

// NewAgent wires the Argo CD tools and instructions into an agent.
func NewAgent(llm opspod.LLM, client *restcall.Client, opts ...opspod.AgentOption) *opspod.Agent {
	return opspod.NewAgent(llm, prompts.ArgoCDInstruction, Skills(client), opts...)
}

// Endpoints returns every endpoint exposed by the Argo CD agent.
func Endpoints() []restcall.Endpoint {
	all := []restcall.Endpoint{}
	all = append(all, ApplicationEndpoints...)
	all = append(all, InfrastructureEndpoints...)
	all = append(all, AccessEndpoints...)
	return all
}

// Skills groups the Argo CD tools.
func Skills(client *restcall.Client) []opspod.Skill {
	return []opspod.Skill{
		{
			Name:          "applications",
			Description:   "Applications, application sets and projects: list, inspect, create, sync, roll back and delete.",
			SystemPrompt:  "Ask for confirmation before deleting an application or rolling it back unless the user already asked for it explicitly.",
			StatusMessage: statusApplications,
			Tools:         restcall.Tools(client, restcall.DefaultStatus(ApplicationEndpoints, statusApplications)),
		},
		{
			Name:          "infrastructure",
			Description:   "Clusters, repositories, repository credentials, certificates, GPG keys, notifications, settings and version.",
			StatusMessage: statusInfrastructure,
			Tools:         restcall.Tools(client, restcall.DefaultStatus(InfrastructureEndpoints, statusInfrastructure)),
		},
		{
			Name:          "access",
			Description:   "Accounts and sessions of the Argo CD API server.",
			StatusMessage: statusAccess,
			Tools:         restcall.Tools(client, restcall.DefaultStatus(AccessEndpoints, statusAccess)),
		},
	}
}
