package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bkyoung/llmwrap/internal/accounting"
	acctsqlite "github.com/bkyoung/llmwrap/internal/accounting/sqlite"
	"github.com/bkyoung/llmwrap/internal/config"
	"github.com/bkyoung/llmwrap/internal/gateway"
	"github.com/bkyoung/llmwrap/internal/logging"
	"github.com/bkyoung/llmwrap/internal/pipeline"
	"github.com/bkyoung/llmwrap/internal/protocol"
	"github.com/bkyoung/llmwrap/internal/secrets"
	"github.com/bkyoung/llmwrap/internal/version"
)

// flagValues collects CLI overrides. Precedence is flags over environment
// over config file over defaults; the config loader handles the rest.
type flagValues struct {
	cwd                 string
	model               string
	systemPromptFile    string
	baseURL             string
	maxPromptTokens     int
	maxResponseTokens   int
	disableAccounting   bool
	disableAuditLog     bool
	disableRateLimiting bool
	skipOutboundChecks  bool
	allowedModelsFile   string
	logFile             string
	logLevel            string
	serverName          string
	serverDescription   string
	showVersion         bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var flags flagValues

	root := &cobra.Command{
		Use:   "llmwrap",
		Short: "MCP stdio server that forwards prompts to a remote LLM API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), version.Version())
				return nil
			}
			return run(cmd.Context(), flags)
		},
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.Flags().StringVar(&flags.cwd, "cwd", "", "Change to this directory before starting")
	root.Flags().StringVar(&flags.model, "model", "", "Default model in provider/model form")
	root.Flags().StringVar(&flags.systemPromptFile, "system-prompt-file", "", "File whose content is sent as the system prompt")
	root.Flags().StringVar(&flags.baseURL, "llm-api-base-url", "", "Base URL of the LLM API")
	root.Flags().IntVar(&flags.maxPromptTokens, "limit-user-prompt-tokens", 0, "Maximum prompt length in tokens")
	root.Flags().IntVar(&flags.maxResponseTokens, "max-tokens", 0, "Maximum response length in tokens")
	root.Flags().BoolVar(&flags.disableAccounting, "disable-accounting", false, "Do not record usage")
	root.Flags().BoolVar(&flags.disableAuditLog, "disable-audit-log", false, "Do not record prompts and responses")
	root.Flags().BoolVar(&flags.disableRateLimiting, "disable-rate-limiting", false, "Disable local rate limiting")
	root.Flags().BoolVar(&flags.skipOutboundChecks, "skip-outbound-key-leaks", false, "Skip the outbound API key check on prompts")
	root.Flags().StringVar(&flags.allowedModelsFile, "allowed-models-file", "", "File listing models permitted as overrides")
	root.Flags().StringVar(&flags.logFile, "log-file", "", "Diagnostic log file (stderr when empty)")
	root.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.Flags().StringVar(&flags.serverName, "server-name", "", "Server name advertised on the protocol handshake")
	root.Flags().StringVar(&flags.serverDescription, "server-description", "", "Server description advertised on the protocol handshake")
	root.Flags().BoolVarP(&flags.showVersion, "version", "v", false, "Show version and exit")

	return root
}

func run(ctx context.Context, flags flagValues) error {
	if flags.cwd != "" {
		if err := os.Chdir(flags.cwd); err != nil {
			return fmt.Errorf("change directory to %s: %w", flags.cwd, err)
		}
	}

	// Optional: real deployments pass the key via the environment directly.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fileCfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "llmwrap",
		EnvPrefix:   "LLMWRAP",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	cfg := config.Merge(fileCfg, flagOverlay(flags))
	if flags.disableAccounting {
		cfg.Accounting.Enabled = false
	}
	if flags.disableAuditLog {
		cfg.Accounting.AuditEnabled = false
	}
	if flags.disableRateLimiting {
		cfg.Accounting.RateLimiting = false
	}
	if flags.skipOutboundChecks {
		cfg.Security.SkipOutboundChecks = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("open log sink: %w", err)
	}
	defer logger.Close()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "llmwrap speaks line-delimited JSON-RPC on stdin/stdout; it is meant to be launched by an MCP client, not used interactively.")
	}

	systemPrompt, err := config.LoadSystemPrompt(cfg.LLM.SystemPromptFile)
	if err != nil {
		logger.Warn("system prompt file unavailable, continuing without one", "err", err)
	}

	allowedModels, err := config.LoadAllowedModels(cfg.LLM.AllowedModelsFile)
	if err != nil {
		return err
	}
	if err := checkDefaultModelAllowed(cfg.LLM.Model, allowedModels); err != nil {
		return err
	}

	if cfg.Accounting.RateLimiting {
		logger.Info("rate limiting is not implemented; relying on upstream Retry-After enforcement")
	}

	scanner := secrets.NewScanner(cfg.LLM.APIKey, logger)

	backend := openAccountingBackend(cfg.Accounting, logger)
	acct := accounting.NewManager(backend, cfg.Accounting.Enabled, cfg.Accounting.AuditEnabled, logger)
	defer acct.Close()

	metrics := gateway.NewDefaultMetrics()
	deps := gateway.Deps{
		Scanner:    scanner,
		Accounting: acct,
		Logger:     logger,
		Pricing:    gateway.NewDefaultPricing(),
		Metrics:    metrics,
	}
	client := gateway.NewClient(gatewayConfig(cfg, systemPrompt), deps)

	tools := protocol.DefaultTools(cfg.Limits.MaxPromptTokens)
	pipe := pipeline.New(
		pipeline.Config{
			DefaultModel:       cfg.LLM.Model,
			MaxPromptTokens:    cfg.Limits.MaxPromptTokens,
			MaxResponseTokens:  cfg.Limits.MaxResponseTokens,
			SkipOutboundChecks: cfg.Security.SkipOutboundChecks,
			AllowedModels:      allowedModels,
		},
		tools,
		client,
		func(model string) pipeline.Gateway { return client.ForModel(model) },
		scanner,
		logger,
	)

	info := protocol.ServerInfo{
		Name:        cfg.Server.Name,
		Version:     version.Version(),
		Description: cfg.Server.Description,
	}
	srv := protocol.NewServer(os.Stdin, os.Stdout, info, tools, pipe, logger)

	logger.Info("starting server",
		"name", cfg.Server.Name,
		"version", version.Version(),
		"model", cfg.LLM.Model,
		"accounting", cfg.Accounting.Enabled,
		"audit", cfg.Accounting.AuditEnabled,
	)
	runErr := srv.Run(ctx)

	stats := metrics.GetStats()
	logger.Info("server stopped",
		"requests", stats.TotalRequests,
		"tokens_in", stats.TotalTokensIn,
		"tokens_out", stats.TotalTokensOut,
		"cost_usd", fmt.Sprintf("%.6f", stats.TotalCost),
		"errors", stats.ErrorCount,
	)
	return runErr
}

// flagOverlay maps set string and int flags onto a Config for merging.
// Boolean disables are applied separately since merge cannot distinguish
// an unset bool from false.
func flagOverlay(flags flagValues) config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Name:        flags.serverName,
			Description: flags.serverDescription,
		},
		LLM: config.LLMConfig{
			Model:             flags.model,
			BaseURL:           flags.baseURL,
			SystemPromptFile:  flags.systemPromptFile,
			AllowedModelsFile: flags.allowedModelsFile,
		},
		Limits: config.LimitsConfig{
			MaxPromptTokens:   flags.maxPromptTokens,
			MaxResponseTokens: flags.maxResponseTokens,
		},
		Logging: config.LoggingConfig{
			File:  flags.logFile,
			Level: flags.logLevel,
		},
	}
}

// gatewayConfig maps the effective configuration onto the gateway.
// Skipping outbound checks also skips inbound redaction: the toggle
// governs the gateway instance's secret handling as a whole.
func gatewayConfig(cfg config.Config, systemPrompt string) gateway.Config {
	return gateway.Config{
		APIKey:        cfg.LLM.APIKey,
		Model:         cfg.LLM.Model,
		BaseURL:       cfg.LLM.BaseURL,
		SystemPrompt:  systemPrompt,
		SkipRedaction: cfg.Security.SkipOutboundChecks,
	}
}

// checkDefaultModelAllowed rejects a configuration whose allow-list does
// not contain the default model: every unoverridden call would fail, so
// refusing to start is kinder than serving errors.
func checkDefaultModelAllowed(model string, allowed map[string]bool) error {
	if allowed != nil && !allowed[model] {
		return fmt.Errorf("default model %s is not listed in the allowed models file", model)
	}
	return nil
}

// openAccountingBackend opens the shared database when either accounting
// concern is on. Failure degrades to no-op tracking rather than refusing
// to serve.
func openAccountingBackend(cfg config.AccountingConfig, logger *logging.Logger) accounting.Backend {
	if !cfg.Enabled && !cfg.AuditEnabled {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		logger.Warn("failed to create accounting directory, accounting disabled", "err", err)
		return nil
	}
	store, err := acctsqlite.NewStore(cfg.Path)
	if err != nil {
		logger.Warn("failed to open accounting database, accounting disabled", "path", cfg.Path, "err", err)
		return nil
	}
	return store
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "llmwrap"))
	}
	return paths
}
