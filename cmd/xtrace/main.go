// xtrace — spool relay and operator tooling for the xtrace collector.
// The SDK is the normal ingestion path; this binary covers everything
// around it: checking collector reachability, shipping spooled batch
// files by hand, and running the spool relay as a service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/xtrace-dev/xtrace-go/internal/config"
	"github.com/xtrace-dev/xtrace-go/internal/relay"
	"github.com/xtrace-dev/xtrace-go/sdk/go/xtrace"
)

// version is set by ldflags at build time.
var version = "dev"

const emitDrainTimeout = 10 * time.Second

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()
}

func main() {
	var flagVerbose bool

	rootCmd := &cobra.Command{
		Use:   "xtrace",
		Short: "spool relay and tooling for the xtrace collector",
	}
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	var pingBaseURL string
	pingCmd := &cobra.Command{
		Use:   "ping",
		Short: "check that the collector is reachable",
		Long: `Issues a GET against the collector's /healthz endpoint and reports
the result. Any HTTP response counts as reachable; only transport
failures do not.

Examples:
  xtrace ping
  xtrace ping --base-url http://collector.local:8080
  XTRACE_BASE_URL=http://collector.local:8080 xtrace ping`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			base := pingBaseURL
			if base == "" {
				base = os.Getenv(config.EnvBaseURL)
			}
			if base == "" {
				base = config.DefaultBaseURL
			}

			url := strings.TrimRight(base, "/") + "/healthz"
			client := &http.Client{Timeout: 5 * time.Second}
			start := time.Now()
			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("collector unreachable at %s: %w", base, err)
			}
			defer resp.Body.Close()

			fmt.Printf("%s reachable (HTTP %d, %s)\n", base, resp.StatusCode, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	pingCmd.Flags().StringVar(&pingBaseURL, "base-url", "", "collector base URL (env: "+config.EnvBaseURL+")")

	var (
		emitBaseURL   string
		emitAPIKey    string
		emitProjectID string
	)
	emitCmd := &cobra.Command{
		Use:   "emit <file.json> [file.json ...]",
		Short: "ship batch files to the collector",
		Long: `Reads one or more JSON batch files, enqueues them through the SDK
pipeline, and drains the queue before exiting. Files are not moved or
deleted; use the relay for spool-directory semantics.

Examples:
  xtrace emit batch.json
  xtrace emit --project-id staging spool/*.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(flagVerbose)

			opts := []xtrace.Option{xtrace.WithLogger(log)}
			if emitBaseURL != "" {
				opts = append(opts, xtrace.WithBaseURL(emitBaseURL))
			}
			if emitAPIKey != "" {
				opts = append(opts, xtrace.WithAPIKey(emitAPIKey))
			}
			if emitProjectID != "" {
				opts = append(opts, xtrace.WithProjectID(emitProjectID))
			}

			client, err := xtrace.New(opts...)
			if err != nil {
				return err
			}
			defer client.Shutdown(emitDrainTimeout)

			var failed int
			for _, path := range args {
				b, err := xtrace.ReadBatchFile(path)
				if err != nil {
					log.Error().Err(err).Str("file", path).Msg("skipping unreadable batch file")
					failed++
					continue
				}
				client.Enqueue(b)
				log.Info().Str("file", path).Str("trace_id", b.TraceID()).Msg("enqueued")
			}

			client.Shutdown(emitDrainTimeout)
			stats := client.Stats()
			fmt.Printf("sent %d batches, %d failed, %d dropped\n", stats.SentBatches, stats.FailedBatches, stats.Dropped)

			if failed > 0 || stats.FailedBatches > 0 {
				return fmt.Errorf("%d files unreadable, %d batches undelivered", failed, stats.FailedBatches)
			}
			return nil
		},
	}
	emitCmd.Flags().StringVar(&emitBaseURL, "base-url", "", "collector base URL (env: "+config.EnvBaseURL+")")
	emitCmd.Flags().StringVar(&emitAPIKey, "api-key", "", "collector API key (env: "+config.EnvAPIKey+")")
	emitCmd.Flags().StringVar(&emitProjectID, "project-id", "", "default project for traces (env: "+config.EnvProjectID+")")

	var relayConfigPath string
	relayCmd := &cobra.Command{
		Use:   "relay",
		Short: "watch a spool directory and ship batch files",
		Long: `Runs the spool relay: batch files written to the spool directory are
validated, enqueued through the SDK pipeline, and archived. Stops on
SIGINT/SIGTERM after draining the queue.

Examples:
  xtrace relay --config /etc/xtrace/relay.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(flagVerbose)

			cfg, err := relay.Load(relayConfigPath)
			if err != nil {
				return err
			}

			r, err := relay.New(cfg, log)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.Info().Str("spool", cfg.SpoolDir).Bool("poll", cfg.Poll).Msg("relay starting")
			return r.Run(ctx)
		},
	}
	relayCmd.Flags().StringVar(&relayConfigPath, "config", "/etc/xtrace/relay.yaml", "relay configuration file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("xtrace %s\n", version)
		},
	}

	rootCmd.AddCommand(pingCmd, emitCmd, relayCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
