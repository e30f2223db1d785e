package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rbarrantes/triage/internal/config"
	"github.com/rbarrantes/triage/internal/llm"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var (
		model     string
		system    string
		maxTokens int
		stream    bool
	)

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Send a prompt to the inference runtime and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")

			cfg, err := config.Load(paths.Config)
			if err != nil {
				cfg = config.Defaults()
			}
			log = rootLogger(&cfg)

			registry := llm.NewRegistryFromConfig(cfg.Ollama, log)
			if model == "" {
				model = cfg.Ollama.Model
			}
			client, err := registry.Resolve(model)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			req := llm.CompletionRequest{
				Model:       model,
				System:      system,
				Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
				MaxTokens:   maxTokens,
				Temperature: cfg.Ollama.Temperature,
			}

			if stream {
				events, err := client.Stream(ctx, req)
				if err != nil {
					return err
				}
				var final *llm.CompletionResponse
				for evt := range events {
					switch evt.Type {
					case "delta":
						fmt.Print(evt.Content)
					case "error":
						return fmt.Errorf("stream failed: %s", evt.Error)
					case "done":
						final = evt.Response
					}
				}
				fmt.Println()
				if final != nil && final.Model != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "\n[model=%s tokens=%d+%d]\n",
						final.Model, final.Usage.InputTokens, final.Usage.OutputTokens)
				}
				return nil
			}

			resp, err := client.Complete(ctx, req)
			if err != nil {
				return err
			}
			fmt.Println(resp.Content)
			if resp.Model != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "\n[model=%s tokens=%d+%d]\n",
					resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "model to use (default from config)")
	cmd.Flags().StringVar(&system, "system", "", "system prompt")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "max tokens to generate")
	cmd.Flags().BoolVar(&stream, "stream", false, "stream the response")

	return cmd
}
