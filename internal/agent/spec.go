// Package agent implements the crew execution model: static agent and task
// definitions executed sequentially against an inference provider, with an
// optional tool loop per task.
package agent

import "time"

// Spec defines an agent: a named role with a goal and a list of tool
// capabilities. Specs are static, defined at startup.
type Spec struct {
	Role      string   `json:"role"`
	Goal      string   `json:"goal"`
	Backstory string   `json:"backstory,omitempty"`
	Tools     []string `json:"tools,omitempty"` // names of tools the agent may invoke
}

// Task is a unit of work assigned to an agent, producing textual output.
type Task struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	ExpectedOutput string `json:"expectedOutput,omitempty"`
	Agent          *Spec  `json:"agent"`
}

// TaskOutput is the result of one completed task.
type TaskOutput struct {
	Task   string `json:"task"`
	Agent  string `json:"agent"`
	Output string `json:"output"`
}

// Run status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Result aggregates the outputs of a full crew run. Output is the final
// task's text; TaskOutputs preserves every task in execution order.
type Result struct {
	Output      string        `json:"output"`
	Status      string        `json:"status"`
	TaskOutputs []TaskOutput  `json:"taskOutputs,omitempty"`
	Usage       Usage         `json:"usage"`
	Duration    time.Duration `json:"duration"`
}

// Usage is the summed token consumption across all tasks in a run.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}
