package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/app"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/config"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/internal/logger"
	"github.com/tech-vaibhav/n8n-workflow-popularity-system/pkg/httpclient"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "popularity",
		Short:         "Collect and serve n8n workflow popularity signals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(refreshCmd())
	root.AddCommand(inspectCmd())

	return root
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: HTTP_ADDR)")
	return cmd
}

func refreshCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Trigger every save route of a running API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(baseURL)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL (default: REFRESH_BASE_URL)")
	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the stored workflow count and one sample",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect()
		},
	}
}

func setup() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func runServe(addr string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	if strings.TrimSpace(addr) != "" {
		cfg.HTTPAddr = addr
	}
	logger.InfoObj("popularity api starting", "config", map[string]any{
		"app":          cfg.AppName,
		"env":          cfg.Env,
		"http_addr":    cfg.HTTPAddr,
		"storage_type": cfg.StorageType,
		"youtube":      cfg.YouTubeAPIKey != "",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log, app.Options{})
	if err != nil {
		logger.ErrorObj("failed to initialize app", "error", err.Error())
		return err
	}

	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func runRefresh(baseURL string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	if strings.TrimSpace(baseURL) != "" {
		cfg.RefreshBaseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := httpclient.NewRestyClient(cfg.RefreshTimeout)
	app.Refresh(ctx, client, cfg.RefreshBaseURL, os.Stdout, log)
	return nil
}

func runInspect() error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	store, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return app.Inspect(context.Background(), store, os.Stdout)
}
