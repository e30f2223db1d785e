package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rbarrantes/triage/internal/config"
	"github.com/rbarrantes/triage/internal/jira"
	"github.com/spf13/cobra"
)

func newProjectsCmd() *cobra.Command {
	var recent bool

	cmd := &cobra.Command{
		Use:   "projects [search]",
		Short: "List JIRA projects",
		Long:  "Lists all JIRA projects, optionally filtered by a search term matching the key or name. With --recent, shows recently reported projects instead.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			log = rootLogger(&cfg)

			if recent {
				return listRecentProjects(&cfg)
			}

			if err := config.RequireJira(&cfg); err != nil {
				return err
			}
			client := jira.NewClient(cfg.Jira.URL, cfg.Jira.Username, cfg.Jira.APIToken, log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			projects, err := client.Projects(ctx)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				projects = jira.FilterProjects(projects, args[0])
			}

			if len(projects) == 0 {
				fmt.Println("No projects found.")
				return nil
			}
			for _, p := range projects {
				fmt.Printf("%-12s %s\n", p.Key, p.Name)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "\n%d project(s)\n", len(projects))
			return nil
		},
	}

	cmd.Flags().BoolVar(&recent, "recent", false, "show recently reported projects")

	return cmd
}

func listRecentProjects(cfg *config.Config) error {
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	recent, err := db.RecentProjects()
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		fmt.Println("No recent projects.")
		return nil
	}
	fmt.Println(strings.Join(recent, "\n"))
	return nil
}
