package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/feedback-collector/backend/internal/config"
	"github.com/zhouzirui/feedback-collector/backend/internal/handler"
	"github.com/zhouzirui/feedback-collector/backend/internal/mcpserver"
	feedbackService "github.com/zhouzirui/feedback-collector/backend/internal/service/feedback"
	"github.com/zhouzirui/feedback-collector/backend/internal/service/push"
)

// Version is set at build time.
var Version = mcpserver.ServerVersion

type flagOverrides struct {
	host      string
	port      int
	transport string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags flagOverrides

	rootCmd := &cobra.Command{
		Use:           "feedback-collector",
		Short:         "Collects human feedback for AI agents over MCP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				log.Printf("failed to load configuration: %v", err)
				return err
			}
			if err := run(cmd.Context(), cfg); err != nil {
				log.Printf("server error: %v", err)
				return err
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&flags.host, "host", "", "HTTP listen host (overrides FEEDBACK_HOST)")
	rootCmd.PersistentFlags().IntVar(&flags.port, "port", 0, "HTTP listen port (overrides FEEDBACK_WEB_PORT)")
	rootCmd.PersistentFlags().StringVar(&flags.transport, "transport", "", "MCP transport: stdio, http or none (overrides MCP_TRANSPORT)")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the environment configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid. Feedback UI at %s%s\n", cfg.Server.BaseURL(), cfg.Server.UIPath)
			return err
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", mcpserver.ServerName, Version)
			return err
		},
	}

	rootCmd.AddCommand(validateCmd, versionCmd)
	return rootCmd
}

// loadConfig 读取 .env 与环境变量，命令行参数优先
func loadConfig(cmd *cobra.Command, flags flagOverrides) (*config.Config, error) {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("host") {
		cfg.Server.Host = flags.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = flags.port
	}
	if cmd.Flags().Changed("transport") {
		cfg.MCP.Transport = flags.transport
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := feedbackService.NewStore()
	registry := push.NewRegistry()
	manager := feedbackService.NewManager(store, registry, feedbackService.Config{
		BaseURL:        cfg.Server.BaseURL(),
		UIPath:         cfg.Server.UIPath,
		DefaultTimeout: cfg.Feedback.DefaultTimeout(),
		MaxAge:         cfg.Feedback.SessionMaxAge(),
		SweepInterval:  cfg.Feedback.SweepInterval,
	})
	if err := manager.Start(); err != nil {
		return err
	}
	defer manager.Stop()

	inbound := feedbackService.NewRouter(store, registry)
	tools := mcpserver.New(manager)

	deps := handler.Dependencies{
		Store:     store,
		Manager:   manager,
		Inbound:   inbound,
		Registry:  registry,
		StaticDir: cfg.Server.StaticDir,
	}

	switch cfg.MCP.Transport {
	case config.TransportHTTP:
		deps.MCP = tools.HTTPHandler()
		log.Printf("MCP tool %q served over HTTP at /mcp", mcpserver.ToolName)
	case config.TransportStdio:
		go func() {
			// 客户端断开 stdio 后整个进程退出
			defer stop()
			if err := tools.RunStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[mcp] stdio transport stopped: %v", err)
			}
		}()
		log.Printf("MCP tool %q served over stdio", mcpserver.ToolName)
	default:
		log.Println("MCP transport disabled, serving the web channel only")
	}

	return startServer(ctx, cfg.Server, handler.NewRouter(deps))
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	addr := serverCfg.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("Feedback collector listening on %s (feedback UI at %s%s)", addr, serverCfg.BaseURL(), serverCfg.UIPath)
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
