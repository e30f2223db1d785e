package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rbarrantes/triage/internal/config"
	"github.com/rbarrantes/triage/internal/jira"
	"github.com/rbarrantes/triage/internal/llm"
	"github.com/rbarrantes/triage/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show triage status and connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("%s\n\n", version.Info())

			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Reports: %s\n", paths.Reports)
			fmt.Println()

			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:  error loading: %v\n", err)
				return nil
			}

			fmt.Printf("Gateway: port=%d bind=%s auth=%s\n",
				cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.Auth.Mode)
			fmt.Printf("Model:   %s @ %s\n", cfg.Ollama.Model, cfg.Ollama.BaseURL)

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			registry := llm.NewRegistryFromConfig(cfg.Ollama, log)
			if client, err := registry.Resolve(cfg.Ollama.Model); err == nil {
				if err := client.Ping(ctx); err != nil {
					fmt.Printf("Ollama:  unreachable (%v)\n", err)
				} else {
					fmt.Println("Ollama:  ok")
				}
			}

			if err := config.RequireJira(&cfg); err != nil {
				fmt.Println("JIRA:    not configured")
				return nil
			}
			jc := jira.NewClient(cfg.Jira.URL, cfg.Jira.Username, cfg.Jira.APIToken, log)
			info, err := jc.ServerInfo(ctx)
			if err != nil {
				fmt.Printf("JIRA:    unreachable (%v)\n", err)
				return nil
			}
			fmt.Printf("JIRA:    %s (v%s)\n", info.ServerTitle, info.Version)
			return nil
		},
	}
}
