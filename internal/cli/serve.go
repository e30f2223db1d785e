package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rbarrantes/triage/internal/agent"
	"github.com/rbarrantes/triage/internal/config"
	"github.com/rbarrantes/triage/internal/gateway"
	"github.com/rbarrantes/triage/internal/jira"
	"github.com/rbarrantes/triage/internal/llm"
	"github.com/rbarrantes/triage/internal/report"
	"github.com/rbarrantes/triage/internal/tools"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		Long:  "Runs the HTTP + WebSocket gateway exposing prompt relay, report generation, and run history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			log = rootLogger(&cfg)

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			registry := llm.NewRegistryFromConfig(cfg.Ollama, log)
			opts := []gateway.ServerOption{gateway.WithRegistry(registry)}

			db, err := openStore(&cfg)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()
			opts = append(opts, gateway.WithStore(db))

			if err := config.RequireJira(&cfg); err != nil {
				log.Warn().Err(err).Msg("JIRA not configured — report endpoints will be unavailable")
			} else {
				jiraClient := jira.NewClient(cfg.Jira.URL, cfg.Jira.Username, cfg.Jira.APIToken, log)

				reportsDir := cfg.Reports.Dir
				if reportsDir == "" {
					reportsDir = paths.Reports
				}
				archive := report.NewArchive(reportsDir, log)

				toolReg := agent.NewToolRegistry()
				tools.RegisterJiraTools(toolReg, jiraClient, log)

				svc := report.NewService(report.ServiceOptions{
					Jira:     jiraClient,
					Archive:  archive,
					DB:       db,
					Registry: registry,
					Tools:    toolReg,
					Agents:   cfg.Agents,
					Reports:  cfg.Reports,
					Model:    cfg.Ollama.Model,
				}, log)
				opts = append(opts, gateway.WithReports(svc))
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := gateway.New(cfg, log, opts...)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}
