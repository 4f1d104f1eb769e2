package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boat-builder/opspod"
	"github.com/boat-builder/opspod/argocd"
	"github.com/boat-builder/opspod/atlassian"
	"github.com/boat-builder/opspod/config"
	"github.com/boat-builder/opspod/internal/command"
	"github.com/boat-builder/opspod/llm"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.BuildApp(command.Deps{
		LoadConfig: loadConfig,
		NewPod:     newPod,
		Serve:      serve,
		Out:        os.Stdout,
	})
	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("opspod failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	return cfg, nil
}

func newPod(ctx context.Context, agent string, cfg *config.Config) (*opspod.Pod, func() error, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, nil, err
	}
	model, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, nil, err
	}

	agentOpts := []opspod.AgentOption{opspod.WithLogger(slog.Default().With("agent", agent))}
	if cfg.Agent.MaxIterations > 0 {
		agentOpts = append(agentOpts, opspod.WithMaxIterations(cfg.Agent.MaxIterations))
	}

	var a *opspod.Agent
	switch agent {
	case command.AgentArgoCD:
		if err := cfg.RequireArgoCD(); err != nil {
			return nil, nil, err
		}
		a = argocd.NewAgent(model, argocd.NewClient(cfg.ArgoCD), agentOpts...)
	case command.AgentAtlassian:
		if err := cfg.RequireAtlassian(); err != nil {
			return nil, nil, err
		}
		a = atlassian.NewAgent(model, atlassian.NewClient(cfg.Atlassian), atlassian.FiltersFrom(cfg.Atlassian), agentOpts...)
	default:
		return nil, nil, fmt.Errorf("unknown agent %q", agent)
	}

	store, release, err := openStore(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("Agent ready", "agent", agent, "model", model.Model(), "store", cfg.Store.Kind)
	pod := opspod.NewPod(model, a, store,
		opspod.WithPodTurnTimeout(cfg.Agent.TurnTimeout()),
		opspod.WithPodLogger(slog.Default().With("agent", agent)))
	return pod, release, nil
}

func openStore(cfg config.Store) (opspod.SessionStore, func() error, error) {
	switch cfg.Kind {
	case "", config.StoreMemory:
		return opspod.NewMemoryStore(), nil, nil
	case config.StoreSQLite:
		path := cfg.DSN
		if path == "" {
			path = "opspod.db"
		}
		store, err := opspod.OpenSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StorePostgres:
		if cfg.DSN == "" {
			return nil, nil, &config.MissingError{Key: "SESSION_STORE_DSN"}
		}
		store, err := opspod.OpenPostgresStore(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Kind)
	}
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
