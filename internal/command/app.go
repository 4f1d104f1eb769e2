// Package command builds the opspod command line.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/boat-builder/opspod"
	"github.com/boat-builder/opspod/config"
	"github.com/boat-builder/opspod/internal/server"
)

const (
	AgentArgoCD    = "argocd"
	AgentAtlassian = "atlassian"
)

type Deps struct {
	LoadConfig func(path string) (*config.Config, error)
	// NewPod builds the pod of the named agent. The returned func releases
	// its resources.
	NewPod func(ctx context.Context, agent string, cfg *config.Config) (*opspod.Pod, func() error, error)
	Serve  func(ctx context.Context, addr string, handler http.Handler) error
	Out    io.Writer
}

func BuildApp(deps Deps) *cli.App {
	return &cli.App{
		Name:  "opspod",
		Usage: "LLM agents for Argo CD and Atlassian",
		// Messages may contain commas.
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to a TOML config file", EnvVars: []string{"OPSPOD_CONFIG"}},
		},
		Commands: []*cli.Command{
			agentCommand(deps, AgentArgoCD, "Argo CD agent"),
			agentCommand(deps, AgentAtlassian, "Jira and Confluence agent"),
		},
	}
}

func agentCommand(deps Deps, agent, usage string) *cli.Command {
	return &cli.Command{
		Name:  agent,
		Usage: usage,
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run one turn and print the conversation state as JSON",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "human", Usage: "add a human message"},
					&cli.StringSliceFlag{Name: "assistant", Usage: "add an assistant message"},
					&cli.StringFlag{Name: "session", Usage: "session id to load and store history under"},
					outputFlag(),
				},
				Action: func(c *cli.Context) error {
					return withPod(c, deps, agent, func(pod *opspod.Pod) error {
						return runTurn(c, deps, pod)
					})
				},
			},
			{
				Name:  "tools",
				Usage: "list the tools of the agent",
				Flags: []cli.Flag{outputFlag()},
				Action: func(c *cli.Context) error {
					return withPod(c, deps, agent, func(pod *opspod.Pod) error {
						return listTools(c, deps, pod)
					})
				},
			},
			{
				Name:  "serve",
				Usage: "serve the agent over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Value: ":8000", Usage: "listen address", EnvVars: []string{"OPSPOD_ADDR"}},
				},
				Action: func(c *cli.Context) error {
					return withPod(c, deps, agent, func(pod *opspod.Pod) error {
						if deps.Serve == nil {
							return errors.New("serve is not configured")
						}
						slog.Info("Serving agent", "agent", agent, "addr", c.String("addr"))
						return deps.Serve(c.Context, c.String("addr"), server.New(pod, slog.Default()).Handler())
					})
				},
			},
		},
	}
}

func withPod(c *cli.Context, deps Deps, agent string, fn func(*opspod.Pod) error) error {
	if deps.LoadConfig == nil || deps.NewPod == nil {
		return errors.New("command dependencies are not configured")
	}
	cfg, err := deps.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	pod, release, err := deps.NewPod(c.Context, agent, cfg)
	if err != nil {
		return err
	}
	if release != nil {
		defer func() {
			if err := release(); err != nil {
				slog.Warn("Failed to release agent resources", "agent", agent, "error", err)
			}
		}()
	}
	return fn(pod)
}

// TurnOutput is what `run` prints: the conversation state of the turn and the
// warning, if the turn finished without a reply.
type TurnOutput struct {
	opspod.ConversationState `yaml:",inline"`
	Warning                  string `json:"warning,omitempty" yaml:"warning,omitempty"`
}

// Interleave pairs human and assistant messages in order (h1, a1, h2, a2, ...)
// and appends whatever is left of the longer list.
func Interleave(human, assistant []string) []opspod.Message {
	out := make([]opspod.Message, 0, len(human)+len(assistant))
	for i := 0; i < len(human) || i < len(assistant); i++ {
		if i < len(human) {
			out = append(out, opspod.HumanMessage(human[i]))
		}
		if i < len(assistant) {
			out = append(out, opspod.AssistantMessage(assistant[i]))
		}
	}
	return out
}

func runTurn(c *cli.Context, deps Deps, pod *opspod.Pod) error {
	human := c.StringSlice("human")
	if len(human) == 0 {
		return errors.New("at least one --human message is required")
	}
	prior := Interleave(human, c.StringSlice("assistant"))
	slog.Debug("Input messages", "count", len(prior))

	session := pod.NewSession(c.Context, c.String("session"))
	defer session.Close()

	input := opspod.NewMessageList(prior...).LastHumanMessageString()
	result, err := session.TurnWith(c.Context, prior, input)
	if err != nil {
		return err
	}
	if result.Warning != nil {
		slog.Warn("Turn finished without a reply", "sessionID", session.ID(), "warning", result.Warning)
	}
	if cost, ok := session.Cost(); ok {
		slog.Info("Turn cost", "sessionID", session.ID(), "usd", cost.TotalCost, "inputTokens", cost.InputTokens, "outputTokens", cost.OutputTokens)
	}
	output := TurnOutput{ConversationState: result.ConversationState}
	if result.Warning != nil {
		output.Warning = result.Warning.Error()
	}
	return printOutput(c, deps, output)
}

func listTools(c *cli.Context, deps Deps, pod *opspod.Pod) error {
	type tool struct {
		Skill      string         `json:"skill" yaml:"skill"`
		Name       string         `json:"name" yaml:"name"`
		Parameters map[string]any `json:"parameters" yaml:"parameters"`
	}
	var tools []tool
	for _, skill := range pod.Agent.Skills() {
		for _, t := range skill.Tools {
			tools = append(tools, tool{Skill: skill.Name, Name: t.Name(), Parameters: t.Parameters()})
		}
	}
	return printOutput(c, deps, tools)
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "json", Usage: "output format: json or yaml"}
}

func printOutput(c *cli.Context, deps Deps, v any) error {
	out := deps.Out
	if out == nil {
		out = os.Stdout
	}
	var (
		b   []byte
		err error
	)
	switch format := c.String("output"); format {
	case "", "json":
		b, err = json.MarshalIndent(v, "", "  ")
	case "yaml":
		b, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(out, strings.TrimRight(string(b), "\n"))
	return err
}
