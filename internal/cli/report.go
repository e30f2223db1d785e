package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rbarrantes/triage/internal/agent"
	"github.com/rbarrantes/triage/internal/config"
	"github.com/rbarrantes/triage/internal/jira"
	"github.com/rbarrantes/triage/internal/llm"
	"github.com/rbarrantes/triage/internal/report"
	"github.com/rbarrantes/triage/internal/store"
	"github.com/rbarrantes/triage/internal/tools"
	"github.com/spf13/cobra"
)

func newReportCmd() *cobra.Command {
	var (
		project string
		limit   int
		noAI    bool
		list    bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate an unfinished-tickets report",
		Long:  "Fetches unfinished tickets from JIRA, builds a summary report, runs the AI analyst over it, and archives the result under the reports directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			log = rootLogger(&cfg)

			if list {
				return listRuns(&cfg, project)
			}

			if err := config.RequireJira(&cfg); err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			svc, db := buildReportService(&cfg)
			if db != nil {
				defer db.Close()
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary, err := svc.Generate(ctx, report.GenerateRequest{
				Project: strings.ToUpper(project),
				Limit:   limit,
				AI:      !noAI && cfg.Reports.ReportAI(),
			})
			if err != nil {
				return err
			}

			fmt.Println(summary.Body)
			if summary.ReportPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nReport saved to: %s\n", summary.ReportPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "project key to report on (default: all projects)")
	cmd.Flags().IntVar(&limit, "limit", 0, "max tickets to fetch (default from config)")
	cmd.Flags().BoolVar(&noAI, "no-ai", false, "skip the AI analysis section")
	cmd.Flags().BoolVar(&list, "list", false, "list past report runs instead of generating one")

	return cmd
}

// buildReportService wires the report pipeline from config. The returned DB
// is nil when the store could not be opened; run recording is skipped then.
func buildReportService(cfg *config.Config) (*report.Service, *store.DB) {
	jiraClient := jira.NewClient(cfg.Jira.URL, cfg.Jira.Username, cfg.Jira.APIToken, log)

	reportsDir := cfg.Reports.Dir
	if reportsDir == "" {
		reportsDir = paths.Reports
	}
	archive := report.NewArchive(reportsDir, log)

	db, err := openStore(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("run history unavailable")
		db = nil
	}

	registry := llm.NewRegistryFromConfig(cfg.Ollama, log)
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

	return svc, db
}

func openStore(cfg *config.Config) (*store.DB, error) {
	dbPath := cfg.Store.Path
	if dbPath == "" {
		dbPath = filepath.Join(paths.Data, "triage.db")
	}
	return store.Open(dbPath, log)
}

// listRuns prints run history, newest first.
func listRuns(cfg *config.Config, project string) error {
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.Runs(strings.ToUpper(project), 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No report runs recorded.")
		return nil
	}

	for _, r := range runs {
		proj := r.Project
		if proj == "" {
			proj = "ALL"
		}
		fmt.Printf("%s  %-10s %3d tickets  %-9s %s\n",
			r.CreatedAt.Format("2006-01-02 15:04"), proj, r.TicketCount, r.Status, r.ReportPath)
		if r.Error != "" {
			fmt.Printf("    error: %s\n", r.Error)
		}
	}
	return nil
}
