package main

import (
	"context"
	"fmt"

	"github.com/liminalbooks/liminal/internal/agent"
	"github.com/liminalbooks/liminal/internal/config"
	"github.com/liminalbooks/liminal/internal/db"
	"github.com/liminalbooks/liminal/internal/llm"
	"github.com/liminalbooks/liminal/internal/llm/geminiapi"
	"github.com/liminalbooks/liminal/internal/llm/openaiapi"
	"github.com/liminalbooks/liminal/internal/lock"
	"github.com/liminalbooks/liminal/internal/logging"
	"github.com/liminalbooks/liminal/internal/project"
)

// app bundles the stores every command works against.
type app struct {
	cfg      config.Config
	projects *project.Store
	store    *db.Store
	close    func()
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	storeDB, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		projects: project.NewStore(cfg.ProjectsDir()),
		store:    db.NewStore(storeDB),
		close:    func() { _ = storeDB.Close() },
	}, nil
}

func (a *app) llmClient(ctx context.Context) (llm.Client, error) {
	c := a.cfg.LLM
	switch c.Provider {
	case config.ProviderGemini:
		return geminiapi.NewClient(ctx, geminiapi.Config{
			Model:     c.ResolvedModel(),
			BaseURL:   c.BaseURL,
			APIKey:    c.APIKey,
			APIKeyEnv: c.APIKeyEnv,
			Timeout:   c.TimeoutDuration(),
		}, nil)
	case config.ProviderOpenAI, "":
		return openaiapi.NewClient(openaiapi.Config{
			Model:      c.ResolvedModel(),
			BaseURL:    c.BaseURL,
			APIKey:     c.APIKey,
			APIKeyEnv:  c.APIKeyEnv,
			Timeout:    c.TimeoutDuration(),
			MaxRetries: c.MaxRetries,
		}, nil)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", c.Provider)
	}
}

func (a *app) agentOptions(maxIterations int) agent.Options {
	return agent.Options{
		MaxIterations: maxIterations,
		Temperature:   a.cfg.LLM.Temperature,
		HistoryLimit:  a.cfg.Agent.HistoryLimit,
		Sink:          newConsoleSink(),
		Runs:          a.store,
	}
}

func (a *app) generator(ctx context.Context) (*agent.Generator, error) {
	client, err := a.llmClient(ctx)
	if err != nil {
		return nil, err
	}
	return agent.NewGenerator(a.projects, client, a.agentOptions(a.cfg.Agent.GenerateMaxIterations), logging.Component("agent")), nil
}

func (a *app) editor(ctx context.Context) (*agent.Editor, error) {
	client, err := a.llmClient(ctx)
	if err != nil {
		return nil, err
	}
	return agent.NewEditor(a.projects, a.store, client, a.agentOptions(a.cfg.Agent.EditMaxIterations), logging.Component("agent")), nil
}

// lockAgent takes the agent lock so only one process writes pages at a time.
func (a *app) lockAgent() (func(), error) {
	l, err := lock.Acquire(a.cfg.DataDir)
	if err != nil {
		return nil, err
	}
	return func() { _ = l.Release() }, nil
}
