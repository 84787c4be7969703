// Command abstractscreen runs first-pass screening of research-study
// abstracts against structured inclusion criteria via an LLM provider.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"abstractscreen/internal/app"
	"abstractscreen/internal/config"
	"abstractscreen/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		inputPath  string
		outputPath string
		auditPath  string
		provider   string
		model      string
	)

	cmd := &cobra.Command{
		Use:          "abstractscreen",
		Short:        "Screen research abstracts against inclusion criteria using an LLM",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadPath(configPath)
			if provider != "" {
				cfg.Provider.Name = provider
			}
			if model != "" {
				cfg.Provider.Model = model
			}
			if auditPath != "" {
				cfg.Audit.Path = auditPath
			}

			logger := logging.New(cfg.Logging.Level)

			application, err := app.New(cfg, logger)
			if err != nil {
				logger.Error("startup failed", "error", err)
				return err
			}

			// SIGINT/SIGTERM request cooperative cancellation: in-flight
			// items finish, the partial result is still written out.
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := application.Run(ctx, app.Options{InputPath: inputPath, OutputPath: outputPath}); err != nil {
				logger.Error("screening stopped", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "CSV file of abstracts to screen")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "CSV file for decisions (stdout when empty)")
	cmd.Flags().StringVar(&auditPath, "audit", "", "JSONL file for the audit trail")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (openai or anthropic)")
	cmd.Flags().StringVar(&model, "model", "", "model name override")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
