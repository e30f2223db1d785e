package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rbarrantes/triage/internal/agent"
	"github.com/rbarrantes/triage/internal/config"
	"github.com/rbarrantes/triage/internal/jira"
	"github.com/rbarrantes/triage/internal/llm"
	"github.com/rbarrantes/triage/internal/logging"
	"github.com/rbarrantes/triage/internal/store"
)

// analysisTicketLimit caps how many raw tickets are handed to the analyst.
const analysisTicketLimit = 20

// analystTools is the analyst agent's capability list. Only tools named
// here are presented to the LLM or executable during analysis.
var analystTools = []string{"jira_search", "jira_projects", "jira_create_issue"}

// Service runs the full report pipeline: fetch unfinished tickets, build
// the summary, optionally run the AI analysis crew, archive the report,
// and record the run.
type Service struct {
	jira     *jira.Client
	archive  *Archive
	db       *store.DB
	registry *llm.Registry
	tools    *agent.ToolRegistry
	agents   config.AgentsConfig
	reports  config.ReportsConfig
	model    string
	log      *logging.Logger
}

// ServiceOptions collects Service dependencies. Registry may be nil to
// disable AI analysis; DB may be nil to skip run recording.
type ServiceOptions struct {
	Jira     *jira.Client
	Archive  *Archive
	DB       *store.DB
	Registry *llm.Registry
	Tools    *agent.ToolRegistry
	Agents   config.AgentsConfig
	Reports  config.ReportsConfig
	Model    string
}

// NewService creates the report service.
func NewService(opts ServiceOptions, log *logging.Logger) *Service {
	return &Service{
		jira:     opts.Jira,
		archive:  opts.Archive,
		db:       opts.DB,
		registry: opts.Registry,
		tools:    opts.Tools,
		agents:   opts.Agents,
		reports:  opts.Reports,
		model:    opts.Model,
		log:      log.Sub("report"),
	}
}

// GenerateRequest parameterizes a report run.
type GenerateRequest struct {
	Project string `json:"project,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	AI      bool   `json:"ai"`
}

// RunSummary is the outcome of a report run.
type RunSummary struct {
	RunID       string `json:"runId,omitempty"`
	Project     string `json:"project,omitempty"`
	TicketCount int    `json:"ticketCount"`
	ReportPath  string `json:"reportPath,omitempty"`
	Body        string `json:"body"`
	AIAnalysis  string `json:"aiAnalysis,omitempty"`
}

// Generate runs the pipeline. An AI analysis failure fails the whole run;
// the run record still captures what happened.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*RunSummary, error) {
	start := time.Now()

	limit := req.Limit
	if limit <= 0 {
		limit = s.reports.TicketLimit
	}

	tickets, err := s.jira.Unfinished(ctx, req.Project, limit)
	if err != nil {
		s.recordRun(&store.Run{
			Project: req.Project,
			Status:  agent.StatusFailed,
			Error:   err.Error(),
		}, start)
		return nil, err
	}

	s.log.Info().
		Str("project", req.Project).
		Int("tickets", len(tickets)).
		Msg("fetched unfinished tickets")

	r := Build(req.Project, tickets)

	run := &store.Run{
		Project:     req.Project,
		TicketCount: len(tickets),
		Status:      agent.StatusCompleted,
	}

	if req.AI && len(tickets) > 0 && s.registry != nil {
		analysis, usage, err := s.analyze(ctx, r)
		if err != nil {
			run.Status = agent.StatusFailed
			run.Error = err.Error()
			run.Model = s.model
			s.recordRun(run, start)
			return nil, err
		}
		r.AppendAnalysis(analysis)
		run.Model = s.model
		run.InputTokens = usage.InputTokens
		run.OutputTokens = usage.OutputTokens
	}

	if len(tickets) > 0 {
		path, err := s.archive.Save(r)
		if err != nil {
			run.Status = agent.StatusFailed
			run.Error = err.Error()
			s.recordRun(run, start)
			return nil, err
		}
		run.ReportPath = path
	}

	s.recordRun(run, start)

	if s.db != nil && req.Project != "" {
		if err := s.db.TouchProject(req.Project, s.reports.RecentProjects); err != nil {
			s.log.Warn().Err(err).Msg("could not update project cache")
		}
	}

	return &RunSummary{
		RunID:       run.ID,
		Project:     req.Project,
		TicketCount: len(tickets),
		ReportPath:  run.ReportPath,
		Body:        r.Body,
		AIAnalysis:  r.AIAnalysis,
	}, nil
}

// analyze runs the analyst crew over the built report.
func (s *Service) analyze(ctx context.Context, r *Report) (string, agent.Usage, error) {
	crew, err := agent.NewCrew(agent.CrewConfig{
		Model:             s.model,
		MaxTokens:         s.agents.MaxTokens,
		Temperature:       s.agents.Temperature,
		MaxToolIterations: s.agents.MaxToolIterations,
	}, s.registry, s.tools, s.log)
	if err != nil {
		return "", agent.Usage{}, err
	}

	crew.AddTask(analysisTask(r))

	result, err := crew.Kickoff(ctx)
	if err != nil {
		return "", agent.Usage{}, err
	}
	return result.Output, result.Usage, nil
}

// analysisTask builds the analyst task for a report.
func analysisTask(r *Report) agent.Task {
	analyst := &agent.Spec{
		Role:      "JIRA Ticket Analyst",
		Goal:      "Analyze JIRA tickets and create clear, actionable reports",
		Backstory: "You are an experienced project manager who specializes in analyzing JIRA tickets and providing clear insights for development teams.",
		Tools:     analystTools,
	}

	sample := r.Tickets
	if len(sample) > analysisTicketLimit {
		sample = sample[:analysisTicketLimit]
	}
	raw, _ := json.Marshal(sample)

	description := fmt.Sprintf(`Analyze the following JIRA ticket data and provide insights:

%s

Raw ticket data: %s

Please provide:
1. Key insights about the ticket distribution
2. Potential bottlenecks or issues
3. Recommendations for the team
4. Priority suggestions based on the data

Keep the analysis concise and actionable.`, r.Body, raw)

	return agent.Task{
		Name:           "ticket-analysis",
		Description:    description,
		ExpectedOutput: "A concise analysis with insights and recommendations based on the JIRA ticket data",
		Agent:          analyst,
	}
}

func (s *Service) recordRun(run *store.Run, start time.Time) {
	if s.db == nil {
		return
	}
	run.Duration = time.Since(start)
	if err := s.db.SaveRun(run); err != nil {
		s.log.Warn().Err(err).Msg("could not record run")
	}
}
