// hybridqa answers analytical questions over a mixed corpus: markdown
// policy documents plus a frozen SQLite sales snapshot. Questions are
// routed to retrieval, structured query, or both, and each batch item
// produces exactly one JSONL output line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hybridqa/internal/agent"
	"hybridqa/internal/batch"
	"hybridqa/internal/config"
	"hybridqa/internal/llm"
	"hybridqa/internal/retrieval"
	"hybridqa/internal/store"
	"hybridqa/internal/trace"
	"hybridqa/internal/types"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "hybridqa",
	Short: "hybridqa - hybrid document/SQL question answering",
	Long: `hybridqa resolves natural-language analytical questions over a mixed
corpus of policy documents and a relational sales snapshot.

Each question is routed to document retrieval, structured query, or
both; structured questions go through deterministic template-driven
SQL synthesis with a bounded execute/validate/repair loop, and every
item yields a typed answer with provenance citations.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// runCmd evaluates a batch of question items.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate a JSONL batch of questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		batchPath, _ := cmd.Flags().GetString("batch")
		outPath, _ := cmd.Flags().GetString("out")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		items, err := batch.ReadItemsFile(batchPath)
		if err != nil {
			return err
		}

		a, cleanup, err := buildAgent(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		answers := make([]types.Answer, 0, len(items))
		for _, item := range items {
			answers = append(answers, a.Resolve(cmd.Context(), item))
		}

		if err := batch.WriteAnswersFile(outPath, answers); err != nil {
			return err
		}
		logger.Info("batch complete",
			zap.Int("items", len(items)),
			zap.String("out", outPath))
		fmt.Printf("Done. Results written to %s\n", outPath)
		return nil
	},
}

// askCmd resolves a single question and prints the answer.
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Resolve a single question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formatHint, _ := cmd.Flags().GetString("format")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		a, cleanup, err := buildAgent(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		answer := a.Resolve(cmd.Context(), types.QuestionItem{
			ID:         "adhoc",
			Question:   args[0],
			FormatHint: formatHint,
		})

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	},
}

// buildAgent wires the collaborators from config. Predictor setup
// failures degrade to heuristic-only routing; missing corpus or store
// abort startup.
func buildAgent(ctx context.Context, cfg *config.Config) (*agent.Agent, func(), error) {
	retriever := retrieval.New(retrieval.DefaultConfig(cfg.DocsPath), logger.Named("retrieval"))
	if err := retriever.LoadCorpus(); err != nil {
		return nil, nil, err
	}

	if _, err := os.Stat(cfg.DatabasePath); err != nil {
		return nil, nil, fmt.Errorf("database not found at %s", cfg.DatabasePath)
	}
	accessor := store.New(cfg.DatabasePath, logger.Named("store"))

	predictor := buildPredictor(ctx, cfg)

	sink, err := trace.NewWriter(cfg.TracePath, logger.Named("trace"))
	if err != nil {
		return nil, nil, err
	}

	a, err := agent.New(predictor, retriever, accessor, agent.Options{
		MaxRepairs: cfg.MaxRepairs,
		TopK:       cfg.TopK,
		Trace:      sink,
		Logger:     logger.Named("agent"),
	})
	if err != nil {
		sink.Close()
		accessor.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = sink.Close()
		_ = accessor.Close()
	}
	return a, cleanup, nil
}

// buildPredictor returns nil when no provider is configured or the
// provider fails to initialize; the router then runs fallback-only.
func buildPredictor(ctx context.Context, cfg *config.Config) llm.Predictor {
	switch cfg.LLM.Provider {
	case "genai":
		p, err := llm.NewGenAIPredictor(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			logger.Warn("genai predictor unavailable, routing heuristically", zap.Error(err))
			return nil
		}
		return p
	case "openai":
		p, err := llm.NewOpenAIPredictor(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model)
		if err != nil {
			logger.Warn("openai predictor unavailable, routing heuristically", zap.Error(err))
			return nil
		}
		return p
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "hybridqa.yaml", "Path to config file")

	runCmd.Flags().String("batch", "", "Path to JSONL batch input (required)")
	runCmd.Flags().String("out", "outputs.jsonl", "Path to JSONL output")
	_ = runCmd.MarkFlagRequired("batch")

	askCmd.Flags().String("format", "string", "Format hint for the answer")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(askCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
