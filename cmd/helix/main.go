package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/helixdata/helix/internal/pipeline"
	"github.com/helixdata/helix/pkg/config"
	"github.com/helixdata/helix/pkg/connector/core"
	"github.com/helixdata/helix/pkg/connector/registry"
	"github.com/helixdata/helix/pkg/json"
	"github.com/helixdata/helix/pkg/logger"

	// Import connectors to register them
	_ "github.com/helixdata/helix/pkg/connector/destinations/jsonl"
	_ "github.com/helixdata/helix/pkg/connector/sources/jira"
)

var version = "0.1.0"

func main() {
	// Load .env if present; absence is fine
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "helix",
		Short: "Helix - incremental REST extraction engine",
		Long: `Helix extracts issue-tracker data over REST with incremental replication.
Streams are paginated, bookmarked per resource, and written to a configurable
destination.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Helix v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available connectors",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available Source Connectors:")
			for _, source := range registry.ListSources() {
				fmt.Printf("  - %s\n", source)
			}
			fmt.Println("\nAvailable Destination Connectors:")
			for _, dest := range registry.ListDestinations() {
				fmt.Printf("  - %s\n", dest)
			}
		},
	})

	var validateFile string
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a connector configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.BaseConfig
			if err := config.Load(validateFile, &cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Printf("%s: configuration is valid (%s/%s)\n", validateFile, cfg.Type, cfg.Name)
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&validateFile, "config", "c", "", "Path to configuration YAML file (required)")
	_ = validateCmd.MarkFlagRequired("config")
	root.AddCommand(validateCmd)

	var (
		sourceFile string
		destFile   string
		stateFile  string
		logLevel   string
		timeout    time.Duration
		batchSize  int
	)
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Run an extraction pipeline",
		Long: `Run an extraction pipeline from the configured source to the configured
destination. Replication state is read from and written back to the state
file, so successive runs resume where the previous one committed.

Example:
  helix sync --source jira.yaml --destination jsonl.yaml --state state.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(sourceFile, destFile, stateFile, logLevel, timeout, batchSize)
		},
	}
	syncCmd.Flags().StringVarP(&sourceFile, "source", "s", "", "Path to source configuration YAML file (required)")
	syncCmd.Flags().StringVarP(&destFile, "destination", "d", "", "Path to destination configuration YAML file (required)")
	syncCmd.Flags().StringVar(&stateFile, "state", "", "Path to replication state JSON file")
	syncCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	syncCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Pipeline timeout")
	syncCmd.Flags().IntVar(&batchSize, "batch-size", 500, "Records per destination batch")
	_ = syncCmd.MarkFlagRequired("source")
	_ = syncCmd.MarkFlagRequired("destination")
	root.AddCommand(syncCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runSync(sourceFile, destFile, stateFile, logLevel string, timeout time.Duration, batchSize int) error {
	if err := logger.Init(logger.Config{Level: logLevel, Encoding: "json"}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.Get().With(zap.String("component", "helix-cli"))

	var sourceCfg, destCfg config.BaseConfig
	if err := config.Load(sourceFile, &sourceCfg); err != nil {
		return fmt.Errorf("source configuration error: %w", err)
	}
	if err := config.Load(destFile, &destCfg); err != nil {
		return fmt.Errorf("destination configuration error: %w", err)
	}

	source, err := registry.CreateSource(sourceCfg.Type, &sourceCfg)
	if err != nil {
		return fmt.Errorf("failed to create source connector %q: %w", sourceCfg.Type, err)
	}
	destination, err := registry.CreateDestination(destCfg.Type, &destCfg)
	if err != nil {
		return fmt.Errorf("failed to create destination connector %q: %w", destCfg.Type, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := source.Initialize(ctx, &sourceCfg); err != nil {
		return fmt.Errorf("failed to initialize source: %w", err)
	}
	defer func() { _ = source.Close(context.Background()) }()

	if err := destination.Initialize(ctx, &destCfg); err != nil {
		return fmt.Errorf("failed to initialize destination: %w", err)
	}
	defer func() { _ = destination.Close(context.Background()) }()

	if stateFile != "" {
		state, err := loadState(stateFile)
		if err != nil {
			return fmt.Errorf("failed to load state: %w", err)
		}
		if state != nil {
			if err := source.SetState(state); err != nil {
				return fmt.Errorf("failed to seed state: %w", err)
			}
			log.Info("replication state loaded", zap.String("state_file", stateFile))
		}
	}

	p := pipeline.New(source, destination, &pipeline.Config{
		BatchSize:     batchSize,
		FlushInterval: 5 * time.Second,
	}, log)

	runErr := p.Run(ctx)

	// Persist whatever the source committed, even after a partial run:
	// completed streams keep their progress
	if stateFile != "" {
		if err := saveState(stateFile, source.GetState()); err != nil {
			log.Error("failed to persist state", zap.Error(err))
			if runErr == nil {
				runErr = err
			}
		} else {
			log.Info("replication state saved", zap.String("state_file", stateFile))
		}
	}

	_ = logger.Sync()
	return runErr
}

func loadState(path string) (core.State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var state core.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return state, nil
}

func saveState(path string, state core.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
