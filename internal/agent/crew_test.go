package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rbarrantes/triage/internal/llm"
	"github.com/rbarrantes/triage/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLog() *logging.Logger {
	return logging.New(nil, "silent")
}

func testRegistry(mock llm.Client) *llm.Registry {
	reg := llm.NewRegistry(silentLog())
	reg.Register("mock", mock)
	reg.SetFallback("mock")
	return reg
}

func analystSpec() *Spec {
	return &Spec{
		Role:      "Backlog Analyst",
		Goal:      "Summarize unfinished work",
		Backstory: "You have reviewed thousands of issue trackers.",
	}
}

// --- Crew tests ---

func TestCrewKickoffSingleTask(t *testing.T) {
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			assert.Contains(t, req.System, "Backlog Analyst")
			require.NotEmpty(t, req.Messages)
			last := req.Messages[len(req.Messages)-1]
			assert.Equal(t, "user", last.Role)
			assert.Contains(t, last.Content, "Analyze the backlog")
			assert.Contains(t, last.Content, "A short summary")

			return &llm.CompletionResponse{
				Content: "Backlog looks healthy.",
				Model:   "mock-model",
				Usage:   llm.Usage{InputTokens: 20, OutputTokens: 10},
			}, nil
		},
	}

	crew, err := NewCrew(CrewConfig{Model: "mock"}, testRegistry(mock), nil, silentLog())
	require.NoError(t, err)
	crew.AddTask(Task{
		Name:           "analysis",
		Description:    "Analyze the backlog",
		ExpectedOutput: "A short summary",
		Agent:          analystSpec(),
	})

	result, err := crew.Kickoff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, "Backlog looks healthy.", result.Output)
	require.Len(t, result.TaskOutputs, 1)
	assert.Equal(t, "analysis", result.TaskOutputs[0].Task)
	assert.Equal(t, 20, result.Usage.InputTokens)
	assert.Equal(t, 10, result.Usage.OutputTokens)
}

func TestCrewTasksRunInOrderWithContext(t *testing.T) {
	var calls int
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			last := req.Messages[len(req.Messages)-1]
			switch calls {
			case 1:
				assert.NotContains(t, last.Content, "Context from previous tasks")
				return &llm.CompletionResponse{Content: "12 open tickets"}, nil
			case 2:
				// Second task sees the first task's output.
				assert.Contains(t, last.Content, "Context from previous tasks")
				assert.Contains(t, last.Content, "12 open tickets")
				return &llm.CompletionResponse{Content: "Prioritize the login bug"}, nil
			}
			return nil, fmt.Errorf("unexpected call %d", calls)
		},
	}

	crew, err := NewCrew(CrewConfig{Model: "mock"}, testRegistry(mock), nil, silentLog())
	require.NoError(t, err)
	crew.AddTask(Task{Name: "gather", Description: "Count open tickets", Agent: analystSpec()})
	crew.AddTask(Task{Name: "recommend", Description: "Recommend priorities", Agent: analystSpec()})

	result, err := crew.Kickoff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "Prioritize the login bug", result.Output)
	require.Len(t, result.TaskOutputs, 2)
	assert.Equal(t, "12 open tickets", result.TaskOutputs[0].Output)
}

func TestCrewFailureAbortsRemainingTasks(t *testing.T) {
	var calls int
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			if calls == 1 {
				return &llm.CompletionResponse{Content: "first output"}, nil
			}
			return nil, errors.New("model went away")
		},
	}

	crew, err := NewCrew(CrewConfig{Model: "mock"}, testRegistry(mock), nil, silentLog())
	require.NoError(t, err)
	crew.AddTask(Task{Name: "first", Description: "ok", Agent: analystSpec()})
	crew.AddTask(Task{Name: "second", Description: "fails", Agent: analystSpec()})
	crew.AddTask(Task{Name: "third", Description: "never runs", Agent: analystSpec()})

	result, err := crew.Kickoff(context.Background())
	require.Error(t, err)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "second", execErr.Task)
	assert.Contains(t, err.Error(), "second")

	// Third task never executed.
	assert.Equal(t, 2, calls)
	assert.Equal(t, StatusFailed, result.Status)
	require.Len(t, result.TaskOutputs, 1)
	assert.Equal(t, "first", result.TaskOutputs[0].Task)
}

func TestCrewTaskWithoutAgentFails(t *testing.T) {
	crew, err := NewCrew(CrewConfig{Model: "mock"}, testRegistry(&llm.MockClient{ProviderName: "mock"}), nil, silentLog())
	require.NoError(t, err)
	crew.AddTask(Task{Name: "orphan", Description: "no agent"})

	_, err = crew.Kickoff(context.Background())
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "orphan", execErr.Task)
}

// --- Tool loop tests ---

// echoTool is a simple test tool that echoes its input.
type echoTool struct {
	executed  bool
	lastInput string
}

func (e *echoTool) Name() string        { return "echo" }
func (e *echoTool) Description() string { return "Echoes the input back" }
func (e *echoTool) InputSchema() string {
	return `{"type":"object","properties":{"text":{"type":"string"}}}`
}
func (e *echoTool) Execute(ctx context.Context, input string) (string, error) {
	e.executed = true
	e.lastInput = input
	var in struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return "", err
	}
	return "ECHO: " + in.Text, nil
}

func TestCrewToolLoop(t *testing.T) {
	echo := &echoTool{}
	tools := NewToolRegistry()
	tools.Register(echo)

	var calls int
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			if calls == 1 {
				assert.Contains(t, req.System, "echo")
				return &llm.CompletionResponse{
					Content: "Let me check.\n```tool_call\n{\"tool\": \"echo\", \"input\": {\"text\": \"hi\"}}\n```",
				}, nil
			}
			// Second round: tool results were fed back.
			last := req.Messages[len(req.Messages)-1]
			assert.Contains(t, last.Content, "Tool execution results")
			assert.Contains(t, last.Content, "ECHO: hi")
			return &llm.CompletionResponse{Content: "The echo said hi."}, nil
		},
	}

	crew, err := NewCrew(CrewConfig{Model: "mock"}, testRegistry(mock), tools, silentLog())
	require.NoError(t, err)
	crew.AddTask(Task{
		Name:        "lookup",
		Description: "Use the echo tool",
		Agent:       &Spec{Role: "Helper", Tools: []string{"echo"}},
	})

	result, err := crew.Kickoff(context.Background())
	require.NoError(t, err)
	assert.True(t, echo.executed)
	assert.JSONEq(t, `{"text": "hi"}`, echo.lastInput)
	assert.Equal(t, "The echo said hi.", result.Output)
}

func TestCrewToolLoopBounded(t *testing.T) {
	echo := &echoTool{}
	tools := NewToolRegistry()
	tools.Register(echo)

	var calls int
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			// Always request another tool call.
			return &llm.CompletionResponse{
				Content: "```tool_call\n{\"tool\": \"echo\", \"input\": {\"text\": \"again\"}}\n```",
			}, nil
		},
	}

	crew, err := NewCrew(CrewConfig{Model: "mock", MaxToolIterations: 3}, testRegistry(mock), tools, silentLog())
	require.NoError(t, err)
	crew.AddTask(Task{
		Name:        "loop",
		Description: "Loop forever",
		Agent:       &Spec{Role: "Looper", Tools: []string{"echo"}},
	})

	_, err = crew.Kickoff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestCrewToolOutsideCapabilityListNotExecuted(t *testing.T) {
	echo := &echoTool{}
	tools := NewToolRegistry()
	tools.Register(echo)

	var calls int
	mock := &llm.MockClient{
		ProviderName: "mock",
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			calls++
			if calls == 1 {
				// The tool is registered but not in this agent's list.
				assert.NotContains(t, req.System, "Echoes the input back")
				return &llm.CompletionResponse{
					Content: "```tool_call\n{\"tool\": \"echo\", \"input\": {\"text\": \"hi\"}}\n```",
				}, nil
			}
			last := req.Messages[len(req.Messages)-1]
			assert.Contains(t, last.Content, "tool not available: echo")
			return &llm.CompletionResponse{Content: "Cannot do that."}, nil
		},
	}

	crew, err := NewCrew(CrewConfig{Model: "mock"}, testRegistry(mock), tools, silentLog())
	require.NoError(t, err)
	crew.AddTask(Task{
		Name:        "restricted",
		Description: "Try the echo tool anyway",
		Agent:       &Spec{Role: "Restricted"},
	})

	result, err := crew.Kickoff(context.Background())
	require.NoError(t, err)
	assert.False(t, echo.executed)
	assert.Equal(t, "Cannot do that.", result.Output)
	assert.Equal(t, 2, calls)
}

func TestCrewUnknownModel(t *testing.T) {
	reg := llm.NewRegistry(silentLog())
	_, err := NewCrew(CrewConfig{Model: "ghost"}, reg, nil, silentLog())
	require.Error(t, err)
}

// --- Helper tests ---

func TestParseToolCalls(t *testing.T) {
	text := "Thinking...\n```tool_call\n{\"tool\": \"jira_search\", \"input\": {\"jql\": \"project = OPS\"}}\n```\nDone."
	calls := parseToolCalls(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "jira_search", calls[0].Tool)
	assert.JSONEq(t, `{"jql": "project = OPS"}`, string(calls[0].Input))
}

func TestParseToolCallsNone(t *testing.T) {
	assert.Empty(t, parseToolCalls("Just a plain answer."))
	assert.Empty(t, parseToolCalls("```tool_call\nnot json\n```"))
}

func TestStripToolCalls(t *testing.T) {
	text := "Before.\n```tool_call\n{\"tool\": \"echo\", \"input\": {}}\n```\nAfter."
	cleaned := stripToolCalls(text)
	assert.Equal(t, "Before.\n\nAfter.", cleaned)
	assert.False(t, strings.Contains(cleaned, "tool_call"))
}

func TestToolRegistryDefinitions(t *testing.T) {
	tools := NewToolRegistry()
	tools.Register(&echoTool{})

	defs := tools.Definitions([]string{"echo", "missing"})
	require.Len(t, defs, 1)
	assert.Equal(t, "echo", defs[0].Name)

	assert.Empty(t, tools.Definitions(nil))
}

func TestExecutionErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &ExecutionError{Task: "analysis", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "analysis")
}
