// Package main implements the fhir-loader CLI: bulk-load Synthea bundles
// into a FHIR store, emulate device telemetry, and associate devices with
// qualifying patients.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	fl "github.com/gofhir/loader"
	"github.com/gofhir/loader/blob"
	"github.com/gofhir/loader/client"
	"github.com/gofhir/loader/config"
	"github.com/gofhir/loader/emulator"
	"github.com/gofhir/loader/engine"
	"github.com/gofhir/loader/registry"
	"github.com/gofhir/loader/stream"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "fhir-loader",
		Short:         "Load Synthea FHIR bundles into a FHIR store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newLoadCmd())
	rootCmd.AddCommand(newEmulateCmd())
	rootCmd.AddCommand(newAssociateCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}

	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.IsDev() {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return log
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	// Flags win over the environment.
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.FHIRServiceURL, _ = flags.GetString("url")
	}
	if flags.Changed("source") {
		cfg.SourceDir, _ = flags.GetString("source")
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("max-entries") {
		cfg.MaxBundleEntries, _ = flags.GetInt("max-entries")
	}
	if flags.Changed("workers") {
		cfg.WorkerCount, _ = flags.GetInt("workers")
	}
	if flags.Changed("devices") {
		cfg.DeviceCount, _ = flags.GetInt("devices")
	}
	if flags.Changed("max-qualifying") {
		cfg.MaxQualifying, _ = flags.GetInt("max-qualifying")
	}
	if flags.Changed("dry-run") {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newFHIRClient(cfg *config.Config, log zerolog.Logger) *client.Client {
	opts := []client.ClientOption{
		client.WithLogger(log),
		client.WithClientEntryCeiling(cfg.MaxBundleEntries),
		client.WithRetryPolicy(client.RetryPolicy{
			MaxAttempts:    cfg.SubmitRetries,
			InitialBackoff: time.Duration(cfg.SubmitBackoffSecs) * time.Second,
			MaxBackoff:     time.Minute,
		}),
	}
	if cfg.AuthToken != "" {
		opts = append(opts, client.WithTokenSource(client.StaticTokenSource(cfg.AuthToken)))
	}
	return client.NewClient(cfg.FHIRServiceURL, opts...)
}

func loadRegistries(cfg *config.Config, log zerolog.Logger) (*registry.DeviceRegistry, *registry.ProviderDirectory, error) {
	devices := registry.DefaultDeviceRegistry(cfg.DeviceCount)
	if cfg.DeviceRegistryPath != "" {
		var err error
		devices, err = registry.LoadDeviceRegistry(cfg.DeviceRegistryPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading device registry: %w", err)
		}
		log.Info().Str("path", cfg.DeviceRegistryPath).
			Int("devices", len(devices.Devices(-1))).Msg("device registry loaded")
	}

	providers := registry.EmptyProviderDirectory()
	if cfg.ProviderBundlePath != "" {
		var err error
		providers, err = registry.LoadProviderDirectory(cfg.ProviderBundlePath, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("loading provider bundle: %w", err)
		}
		log.Info().Str("path", cfg.ProviderBundlePath).
			Int("organizations", len(providers.Organizations())).Msg("provider directory loaded")
	}
	return devices, providers, nil
}

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Resolve and load source bundles into the FHIR store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.RequireServiceURL(); err != nil {
				return err
			}
			log := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			devices, providers, err := loadRegistries(cfg, log)
			if err != nil {
				return err
			}

			store := blob.NewDirStore(cfg.SourceDir)

			// Access grants can lag behind identity assignment; wait for
			// the listing to come back before streaming.
			objects, err := blob.ListWithRetry(ctx, store,
				cfg.ListRetries, time.Duration(cfg.ListIntervalSecs)*time.Second, log)
			if err != nil {
				return fmt.Errorf("listing %s: %w", cfg.SourceDir, err)
			}
			log.Info().Str("source", cfg.SourceDir).Int("objects", len(objects)).
				Msg("source listing confirmed")

			source := stream.NewSource(store, cfg.BatchSize, log)
			p := engine.New(source, newFHIRClient(cfg, log),
				engine.WithLogger(log),
				engine.WithDeviceRegistry(devices),
				engine.WithProviderDirectory(providers),
				engine.WithOptions(cfg.Options()...),
			)

			report, err := p.Run(ctx)
			if err != nil {
				return err
			}

			printReport(report)
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d bundles failed", report.Failed, report.Processed)
			}
			return nil
		},
	}

	cmd.Flags().String("url", "", "FHIR service base URL")
	cmd.Flags().String("source", "", "Directory containing source bundles")
	cmd.Flags().Int("batch-size", 0, "Source objects downloaded per batch")
	cmd.Flags().Int("max-entries", 0, "Per-transaction entry ceiling")
	cmd.Flags().Int("workers", 0, "Parallel bundle workers")
	cmd.Flags().Int("devices", 0, "Devices to provision before loading")
	cmd.Flags().Int("max-qualifying", 0, "Qualifying patient capture cap")
	cmd.Flags().Bool("dry-run", false, "Prepare bundles without submitting")
	return cmd
}

func newEmulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emulate",
		Short: "Emit simulated pulse oximeter telemetry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			interval, _ := cmd.Flags().GetDuration("interval")
			if !cmd.Flags().Changed("interval") {
				interval = time.Duration(cfg.EmulatorIntervalSec) * time.Second
			}

			fleetOpts := []emulator.FleetOption{
				emulator.WithInterval(interval),
				emulator.WithFleetLogger(log),
			}
			if cfg.EmulatorMaxBatch > 0 {
				fleetOpts = append(fleetOpts, emulator.WithMaxBatchEvents(cfg.EmulatorMaxBatch))
			}

			fleet := emulator.NewFleet(cfg.DeviceCount, emulator.NewWriterProducer(os.Stdout), fleetOpts...)
			log.Info().Int("devices", cfg.DeviceCount).Dur("interval", interval).
				Msg("starting device emulator")

			if err := fleet.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			log.Info().Msg("emulator stopped")
			return nil
		},
	}

	cmd.Flags().Int("devices", 0, "Devices to emulate")
	cmd.Flags().Duration("interval", 30*time.Second, "Seconds between telemetry cycles")
	return cmd
}

func newAssociateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "associate",
		Short: "Link inventory devices to qualifying patients already in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.FHIRServiceURL == "" {
				return fmt.Errorf("FHIR_SERVICE_URL is required")
			}
			log := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			devices, _, err := loadRegistries(cfg, log)
			if err != nil {
				return err
			}

			created, err := engine.AssociateExisting(ctx, newFHIRClient(cfg, log),
				devices, cfg.MaxQualifying, log)
			if err != nil {
				return err
			}

			fmt.Printf("Created %d device associations\n", created)
			return nil
		},
	}

	cmd.Flags().String("url", "", "FHIR service base URL")
	cmd.Flags().Int("devices", 0, "Inventory size when no registry file is set")
	cmd.Flags().Int("max-qualifying", 0, "Association cap")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the fhir-loader version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("fhir-loader v%s\n", fl.Version)
		},
	}
}

func printReport(r *engine.RunReport) {
	fmt.Printf("\n== Run %s ==\n", r.RunID)
	fmt.Printf("Processed: %d, Uploaded: %d, Skipped: %d, Failed: %d\n",
		r.Processed, r.Uploaded, r.Skipped, r.Failed)
	fmt.Printf("Split into sub-bundles: %d, Unreadable source objects: %d\n",
		r.Split, r.SourceSkipped)

	if len(r.Qualifying) > 0 {
		fmt.Printf("\nQualifying patients (%d):\n", len(r.Qualifying))
		for i, qp := range r.Qualifying {
			tag := ""
			if qp.Pediatric {
				tag = " [pediatric]"
			}
			fmt.Printf("  %2d. %s (%s) %s%s\n", i+1, qp.Name, qp.BirthDate, qp.Condition, tag)
		}
	}

	if len(r.Counts) > 0 {
		fmt.Println("\nStore totals:")
		for _, rt := range engine.SummaryResourceTypes {
			if count, ok := r.Counts[rt]; ok {
				fmt.Printf("  %-15s %d\n", rt, count)
			}
		}
	}
}
