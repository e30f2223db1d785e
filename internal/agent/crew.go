package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rbarrantes/triage/internal/llm"
	"github.com/rbarrantes/triage/internal/logging"
)

// defaultMaxToolIterations limits how many tool call rounds a task can
// perform when the config doesn't say otherwise.
const defaultMaxToolIterations = 5

// CrewConfig configures a crew run.
type CrewConfig struct {
	Model             string
	MaxTokens         int
	Temperature       *float64
	MaxToolIterations int
}

// Crew executes a fixed list of tasks in order, each handled by its
// assigned agent. Tasks share context: every task sees the outputs of
// the tasks that ran before it.
type Crew struct {
	cfg    CrewConfig
	client llm.Client
	tools  *ToolRegistry
	tasks  []Task
	log    *logging.Logger
}

// NewCrew creates a crew. The model is resolved through the registry once,
// up front, so a misconfigured provider fails before any task runs.
func NewCrew(cfg CrewConfig, registry *llm.Registry, tools *ToolRegistry, log *logging.Logger) (*Crew, error) {
	client, err := registry.Resolve(cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = defaultMaxToolIterations
	}
	if tools == nil {
		tools = NewToolRegistry()
	}
	return &Crew{
		cfg:    cfg,
		client: client,
		tools:  tools,
		log:    log.Sub("crew"),
	}, nil
}

// AddTask appends a task to the crew's plan.
func (c *Crew) AddTask(t Task) {
	c.tasks = append(c.tasks, t)
}

// Tasks returns the planned tasks in execution order.
func (c *Crew) Tasks() []Task {
	return c.tasks
}

// Kickoff runs all tasks sequentially. The first task failure aborts the
// run: remaining tasks do not execute and the error is an *ExecutionError
// naming the failed task. On success the Result's Output is the final
// task's output.
func (c *Crew) Kickoff(ctx context.Context) (*Result, error) {
	start := time.Now()

	result := &Result{Status: StatusCompleted}
	var prior []TaskOutput

	for _, task := range c.tasks {
		c.log.Info().
			Str("task", task.Name).
			Str("agent", task.Agent.Role).
			Msg("starting task")

		out, usage, err := c.runTask(ctx, task, prior)
		if err != nil {
			result.Status = StatusFailed
			result.TaskOutputs = prior
			result.Duration = time.Since(start)
			return result, &ExecutionError{Task: task.Name, Err: err}
		}

		taskOut := TaskOutput{
			Task:   task.Name,
			Agent:  task.Agent.Role,
			Output: out,
		}
		prior = append(prior, taskOut)
		result.Usage.InputTokens += usage.InputTokens
		result.Usage.OutputTokens += usage.OutputTokens
		result.Output = out

		c.log.Info().
			Str("task", task.Name).
			Int("outputLen", len(out)).
			Msg("task completed")
	}

	result.TaskOutputs = prior
	result.Duration = time.Since(start)
	return result, nil
}

// runTask executes a single task with a bounded tool loop.
func (c *Crew) runTask(ctx context.Context, task Task, prior []TaskOutput) (string, Usage, error) {
	if task.Agent == nil {
		return "", Usage{}, fmt.Errorf("task has no agent assigned")
	}

	system := BuildSystemPrompt(PromptConfig{
		Agent: *task.Agent,
		Tools: c.tools.Definitions(task.Agent.Tools),
	})

	messages := []llm.Message{
		{Role: llm.RoleUser, Content: buildTaskPrompt(task, prior)},
	}

	var usage Usage
	var finalResp *llm.CompletionResponse

	for i := 0; i < c.cfg.MaxToolIterations; i++ {
		req := llm.CompletionRequest{
			Model:       c.cfg.Model,
			System:      system,
			Messages:    messages,
			MaxTokens:   c.cfg.MaxTokens,
			Temperature: c.cfg.Temperature,
		}

		resp, err := c.client.Complete(ctx, req)
		if err != nil {
			return "", usage, fmt.Errorf("LLM completion: %w", err)
		}

		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens
		finalResp = resp

		calls := parseToolCalls(resp.Content)
		if len(calls) == 0 {
			break
		}

		c.log.Info().Int("toolCalls", len(calls)).Msg("executing tool calls")

		messages = append(messages, llm.Message{
			Role:    llm.RoleAssistant,
			Content: resp.Content,
		})

		results := c.executeToolCalls(ctx, calls, task.Agent.Tools)
		messages = append(messages, llm.Message{
			Role:    llm.RoleUser,
			Content: formatToolResults(results),
		})
		// Loop to let the LLM process tool results
	}

	if finalResp == nil {
		return "", usage, fmt.Errorf("no response from LLM")
	}

	return stripToolCalls(finalResp.Content), usage, nil
}

// toolCall is a parsed tool invocation from the LLM response.
type toolCall struct {
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input"`
}

// toolResult holds the output from executing a tool.
type toolResult struct {
	Tool   string
	Output string
	Err    error
}

// toolCallRe matches ```tool_call\n{...}\n``` blocks in LLM output.
var toolCallRe = regexp.MustCompile("(?s)```tool_call\\s*\n(\\{.*?\\})\n\\s*```")

// whitespaceLineRe matches lines containing only horizontal whitespace.
var whitespaceLineRe = regexp.MustCompile(`(?m)^[ \t]+$`)

// blankLineCollapseRe collapses 3+ consecutive newlines to a single blank line.
var blankLineCollapseRe = regexp.MustCompile(`\n{3,}`)

// parseToolCalls extracts tool_call blocks from LLM response text.
func parseToolCalls(text string) []toolCall {
	matches := toolCallRe.FindAllStringSubmatch(text, -1)
	var calls []toolCall
	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		var tc toolCall
		if err := json.Unmarshal([]byte(match[1]), &tc); err != nil {
			continue
		}
		if tc.Tool != "" {
			calls = append(calls, tc)
		}
	}
	return calls
}

// executeToolCalls runs each tool and returns results. Execution is limited
// to the agent's capability list, the same set advertised in the prompt;
// a call outside it is rejected even if the tool is registered.
func (c *Crew) executeToolCalls(ctx context.Context, calls []toolCall, allowed []string) []toolResult {
	permitted := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		permitted[name] = true
	}

	var results []toolResult
	for _, tc := range calls {
		if !permitted[tc.Tool] {
			results = append(results, toolResult{
				Tool: tc.Tool,
				Err:  fmt.Errorf("tool not available: %s", tc.Tool),
			})
			continue
		}
		tool, ok := c.tools.Get(tc.Tool)
		if !ok {
			results = append(results, toolResult{
				Tool: tc.Tool,
				Err:  fmt.Errorf("unknown tool: %s", tc.Tool),
			})
			continue
		}

		c.log.Debug().Str("tool", tc.Tool).Msg("executing tool")
		output, err := tool.Execute(ctx, string(tc.Input))
		results = append(results, toolResult{
			Tool:   tc.Tool,
			Output: output,
			Err:    err,
		})
	}
	return results
}

// formatToolResults renders tool execution results for the LLM.
func formatToolResults(results []toolResult) string {
	var b strings.Builder
	b.WriteString("Tool execution results:\n\n")
	for _, r := range results {
		fmt.Fprintf(&b, "### %s\n", r.Tool)
		if r.Err != nil {
			fmt.Fprintf(&b, "Error: %s\n", r.Err)
		} else {
			b.WriteString(r.Output)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// stripToolCalls removes tool_call code blocks from the response, leaving
// surrounding text.
func stripToolCalls(text string) string {
	cleaned := toolCallRe.ReplaceAllString(text, "\n\n")
	cleaned = whitespaceLineRe.ReplaceAllString(cleaned, "")
	cleaned = blankLineCollapseRe.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}
