package agent

import (
	"fmt"
	"strings"
	"time"
)

// PromptConfig controls system prompt generation for a task.
type PromptConfig struct {
	Agent       Spec
	Tools       []ToolDef
	ExtraPrompt string
}

// BuildSystemPrompt constructs the system prompt for the LLM from the
// agent's persona and its available tools.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	// Persona
	fmt.Fprintf(&b, "You are %s.\n", cfg.Agent.Role)
	if cfg.Agent.Goal != "" {
		fmt.Fprintf(&b, "Your goal: %s\n", cfg.Agent.Goal)
	}
	if cfg.Agent.Backstory != "" {
		fmt.Fprintf(&b, "\n%s\n", cfg.Agent.Backstory)
	}

	// Date context
	fmt.Fprintf(&b, "\nCurrent date: %s\n", time.Now().Format("2006-01-02"))

	b.WriteString("\nGuidelines:\n")
	b.WriteString("- When using tools, explain what you're doing.\n")
	b.WriteString("- Base conclusions on the data you retrieved, not assumptions.\n")

	// Tool definitions
	if len(cfg.Tools) > 0 {
		b.WriteString("\n## Available Tools\n\n")
		b.WriteString("You can call tools by outputting a fenced code block with the language tag `tool_call`:\n\n")
		b.WriteString("```tool_call\n{\"tool\": \"tool_name\", \"input\": {\"param\": \"value\"}}\n```\n\n")
		b.WriteString("After a tool is executed, the result will be provided. You may call multiple tools before giving your final response.\n\n")
		for _, t := range cfg.Tools {
			fmt.Fprintf(&b, "### %s\n%s\n", t.Name, t.Description)
			if t.InputSchema != "" {
				fmt.Fprintf(&b, "Input schema: %s\n", t.InputSchema)
			}
			b.WriteString("\n")
		}
	}

	if cfg.ExtraPrompt != "" {
		b.WriteString("\n")
		b.WriteString(cfg.ExtraPrompt)
		b.WriteString("\n")
	}

	return b.String()
}

// buildTaskPrompt renders a task description plus the outputs of prior
// tasks as the user message for the LLM.
func buildTaskPrompt(task Task, prior []TaskOutput) string {
	var b strings.Builder

	if len(prior) > 0 {
		b.WriteString("Context from previous tasks:\n\n")
		for _, p := range prior {
			fmt.Fprintf(&b, "### %s\n%s\n\n", p.Task, p.Output)
		}
	}

	b.WriteString(task.Description)
	if task.ExpectedOutput != "" {
		fmt.Fprintf(&b, "\n\nExpected output: %s", task.ExpectedOutput)
	}

	return b.String()
}
