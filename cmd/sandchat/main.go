// Command sandchat runs an interactive chat session with a model that can
// read, write, and execute inside a local sandbox directory.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/martinemde/sandchat/agent"
	"github.com/martinemde/sandchat/config"
	"github.com/martinemde/sandchat/convo"
	"github.com/martinemde/sandchat/llm"
	"github.com/martinemde/sandchat/logging"
	"github.com/martinemde/sandchat/sandbox"
	"github.com/martinemde/sandchat/toolbox"
	"github.com/martinemde/sandchat/tui"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	model := flag.String("model", "", "model id or alias, overrides config")
	workDir := flag.String("workdir", "", "sandbox working directory, overrides config")
	flag.Parse()

	if err := run(*configPath, *model, *workDir); err != nil {
		fmt.Fprintln(os.Stderr, "sandchat:", err)
		os.Exit(1)
	}
}

func run(configPath, modelOverride, workDirOverride string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if modelOverride != "" {
		cfg.Model.Default = modelOverride
	}
	if workDirOverride != "" {
		cfg.Sandbox.WorkingDir = workDirOverride
	}

	logger := logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	info := llm.GetModelInfo(cfg.Model.Default)
	if info == nil {
		return fmt.Errorf("unknown model %q", cfg.Model.Default)
	}

	workDir := cfg.Sandbox.WorkingDir
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "sandchat-*")
		if err != nil {
			return fmt.Errorf("create sandbox dir: %w", err)
		}
	}
	var sessionOpts []sandbox.LocalSessionOption
	if cfg.Sandbox.TTLMinutes > 0 {
		sessionOpts = append(sessionOpts, sandbox.WithTTL(time.Duration(cfg.Sandbox.TTLMinutes)*time.Minute))
	}
	sessionOpts = append(sessionOpts,
		sandbox.WithCommandTimeout(time.Duration(cfg.Sandbox.CommandTimeoutMs)*time.Millisecond))
	session, err := sandbox.NewLocalSession(workDir, sessionOpts...)
	if err != nil {
		return fmt.Errorf("create sandbox: %w", err)
	}
	defer session.Close()

	client, err := buildClient(cfg, info.Provider)
	if err != nil {
		return err
	}
	defer client.Close()

	registry := toolbox.NewRegistry()
	if err := toolbox.RegisterSandboxTools(registry, session); err != nil {
		return fmt.Errorf("register tools: %w", err)
	}

	state := convo.NewState(info.ID)
	orch := agent.New(state, registry, client, session, agent.Config{
		SystemPrompt: cfg.Agent.SystemPrompt,
		Provider:     cfg.Model.Provider,
	}, logging.NewComponentLogger(logger, "agent"))
	defer orch.Close()

	logger.Info("session started",
		"model", info.ID, "provider", info.Provider, "sandbox", session.WorkingDirectory())

	program := tea.NewProgram(tui.New(orch), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// buildClient registers one adapter for the configured provider, or probes
// the environment for every known provider when none is pinned.
func buildClient(cfg config.Config, inferredProvider string) (*llm.Client, error) {
	provider := cfg.Model.Provider
	if provider == "" {
		provider = inferredProvider
	}
	if provider == "" {
		return llm.NewClientFromEnv(), nil
	}

	opts := []llm.GollmAdapterOption{
		llm.WithModel(cfg.Model.Default),
	}
	if cfg.Model.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(cfg.Model.MaxTokens))
	}
	if cfg.Model.Temperature > 0 {
		opts = append(opts, llm.WithTemperature(cfg.Model.Temperature))
	}
	adapter, err := llm.NewGollmAdapter(provider, cfg.Model.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("configure %s: %w", provider, err)
	}
	return llm.NewClient(llm.WithProvider(provider, adapter)), nil
}
