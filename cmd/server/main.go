package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yourorg/zkcompliance/api"
	"github.com/yourorg/zkcompliance/pkg/evidence"
	"github.com/yourorg/zkcompliance/pkg/prover"
	"github.com/yourorg/zkcompliance/pkg/store"
	"github.com/yourorg/zkcompliance/pkg/verifier"
)

func main() {
	var (
		port          string
		dbPath        string
		keysDir       string
		threshold     string
		maxConcurrent int
		autoSetup     bool
	)

	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the compliance proof HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			if port == "" {
				port = envOr("ZK_PORT", "3001")
			}
			if dbPath == "" {
				dbPath = envOr("ZK_DB_PATH", "proofs.sqlite3")
			}
			if keysDir == "" {
				keysDir = envOr("ZK_KEYS_DIR", "./keys")
			}
			if threshold == "" {
				threshold = envOr("ZK_THRESHOLD", "10000")
			}
			if !cmd.Flags().Changed("max-concurrent") {
				if n, err := strconv.Atoi(os.Getenv("ZK_MAX_CONCURRENT")); err == nil && n > 0 {
					maxConcurrent = n
				}
			}

			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
				With().Timestamp().Str("service", api.ServiceName).Logger()

			codec, err := evidence.NewCodec(threshold)
			if err != nil {
				return err
			}

			st, err := store.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open proof store %s: %w", dbPath, err)
			}
			defer st.Close()

			// Key artifacts are loaded once and shared read-only. Without
			// auto-setup and without key files the service still starts,
			// verifying in degraded mode and rejecting prove requests.
			var gen *prover.Generator
			var ver *verifier.Verifier
			start := time.Now()
			if autoSetup {
				art, err := prover.LoadOrSetup(keysDir)
				if err != nil {
					return err
				}
				gen = prover.NewGenerator(art, st, maxConcurrent)
				ver = verifier.New(art.VK, st)
				logger.Info().Dur("took", time.Since(start)).Str("keys", keysDir).Msg("circuit artifacts ready")
				a := api.New(codec, gen, ver, st, art.VK, logger)
				logger.Info().Str("port", port).Msg("listening")
				return a.Serve(port)
			}

			art, err := prover.Load(keysDir)
			if err != nil {
				logger.Warn().Err(err).Msg("key artifacts unavailable, running degraded")
				ver = verifier.New(nil, st)
				a := api.New(codec, nil, ver, st, nil, logger)
				logger.Info().Str("port", port).Msg("listening (degraded)")
				return a.Serve(port)
			}
			gen = prover.NewGenerator(art, st, maxConcurrent)
			ver = verifier.New(art.VK, st)
			logger.Info().Dur("took", time.Since(start)).Str("keys", keysDir).Msg("circuit artifacts loaded")
			a := api.New(codec, gen, ver, st, art.VK, logger)
			logger.Info().Str("port", port).Msg("listening")
			return a.Serve(port)
		},
	}

	rootCmd.Flags().StringVar(&port, "port", "", "HTTP port (default $ZK_PORT or 3001)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "SQLite path for the proof store (default $ZK_DB_PATH)")
	rootCmd.Flags().StringVar(&keysDir, "keys", "", "Directory holding proving/verification keys (default $ZK_KEYS_DIR)")
	rootCmd.Flags().StringVar(&threshold, "threshold", "", "Compliance amount threshold (default $ZK_THRESHOLD or 10000)")
	rootCmd.Flags().IntVar(&maxConcurrent, "max-concurrent", 2, "Maximum simultaneous proving runs (or $ZK_MAX_CONCURRENT)")
	rootCmd.Flags().BoolVar(&autoSetup, "auto-setup", true, "Run Groth16 setup when key files are missing")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
