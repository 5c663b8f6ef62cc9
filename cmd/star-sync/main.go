package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kevinmichaelchen/star-sync/internal/config"
	"github.com/kevinmichaelchen/star-sync/internal/enrich"
	"github.com/kevinmichaelchen/star-sync/internal/github"
	"github.com/kevinmichaelchen/star-sync/internal/llm"
	"github.com/kevinmichaelchen/star-sync/internal/logging"
	"github.com/kevinmichaelchen/star-sync/internal/pipeline"
	"github.com/kevinmichaelchen/star-sync/internal/surrealdb"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "star-sync",
		Short:        "GitHub stars → AI-labeled notes in SiYuan, Obsidian, Logseq and SurrealDB",
		SilenceUsage: true,
	}

	root.AddCommand(syncCmd(), statusCmd(), schemaCmd(), serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and installs the process logger. The returned
// func closes the log file, if any.
func setup() (*config.Config, func()) {
	cfg := config.Load()
	_, closer := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	return cfg, func() { _ = closer.Close() }
}

func newRunner(cfg *config.Config) (*pipeline.Runner, error) {
	classifier, err := llm.NewClassifier(cfg)
	if err != nil {
		return nil, err
	}
	engine := enrich.NewEngine(classifier, enrich.DefaultBatchSize, enrich.DefaultBatchDelay)
	fetcher := github.NewClient(cfg.GitHubAPIURL, cfg.GitHubToken)
	return pipeline.NewRunner(cfg, fetcher, engine, pipeline.BuildTargets(cfg)), nil
}

func syncCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch starred repos, label them and publish to every target",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, done := setup()
			defer done()

			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			runner, err := newRunner(cfg)
			if err != nil {
				return err
			}

			out, err := runner.RunCycle(ctx, force || cfg.ForceSync)
			if err != nil {
				return err
			}
			if out.Skipped {
				fmt.Println("Already synced today (use --force to run again)")
				return nil
			}

			fmt.Printf("Synced %d repos (+%d / -%d, %d labeled by AI)\n",
				out.Repos, out.Stats.Added, out.Stats.Removed, out.Stats.AIUpdated)
			if len(out.Failed) > 0 {
				fmt.Printf("Targets failed: %v\n", out.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Run even if a sync already completed today")
	return cmd
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Initialize/update the SurrealDB schema used by the surrealdb target",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, done := setup()
			defer done()

			db, err := surrealdb.NewClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close(ctx) }()

			if err := db.InitSchema(ctx); err != nil {
				return err
			}
			fmt.Println("Schema initialized")
			return nil
		},
	}
}
