package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yourorg/zkcompliance/pkg/evidence"
	"github.com/yourorg/zkcompliance/pkg/prover"
)

// proveRequest mirrors the HTTP prove payload so a recorded request body can
// be replayed from disk.
type proveRequest struct {
	TransactionData    *evidence.TransactionData    `json:"transactionData"`
	ComplianceEvidence *evidence.ComplianceEvidence `json:"complianceEvidence"`
	MerkleProof        *evidence.MerkleProof        `json:"merkleProof"`
}

func main() {
	var (
		requestPath string
		keysDir     string
		threshold   string
		outDir      string
	)

	rootCmd := &cobra.Command{
		Use:   "prover",
		Short: "Generate a Groth16 compliance proof from a JSON request file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if threshold == "" {
				_ = godotenv.Load()
				threshold = os.Getenv("ZK_THRESHOLD")
				if threshold == "" {
					threshold = "10000"
				}
			}

			raw, err := os.ReadFile(requestPath)
			if err != nil {
				return err
			}
			var req proveRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("parse request file: %w", err)
			}

			codec, err := evidence.NewCodec(threshold)
			if err != nil {
				return err
			}
			in, err := codec.Encode(req.TransactionData, req.ComplianceEvidence, req.MerkleProof)
			if err != nil {
				return err
			}

			start := time.Now()
			art, err := prover.LoadOrSetup(keysDir)
			if err != nil {
				return err
			}

			gen := prover.NewGenerator(art, nil, 1)
			meta := prover.Meta{
				EvidenceHash: evidence.DigestEvidence(req.ComplianceEvidence),
				Decision:     string(req.ComplianceEvidence.Decision),
			}
			if req.TransactionData != nil {
				meta.TransactionID = req.TransactionData.TxUUID
			}
			rec, err := gen.Generate(context.Background(), in, meta)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			recPath := filepath.Join(outDir, "compliance_proof.json")
			jsonBytes, _ := json.MarshalIndent(rec, "", "  ")
			if err := os.WriteFile(recPath, jsonBytes, 0o644); err != nil {
				return err
			}

			fmt.Printf("proof %s written to %s\n", rec.ProofID, recPath)
			fmt.Printf("public signals: %v\n", rec.PublicSignals)
			fmt.Printf("proof done in %s\n", time.Since(start))
			return nil
		},
	}

	rootCmd.Flags().StringVar(&requestPath, "request", "", "JSON file with transactionData, complianceEvidence, merkleProof")
	rootCmd.Flags().StringVar(&keysDir, "keys", "./keys", "Directory for proving/verification keys")
	rootCmd.Flags().StringVar(&threshold, "threshold", "", "Compliance amount threshold (or ZK_THRESHOLD env var)")
	rootCmd.Flags().StringVar(&outDir, "outdir", "./", "Output directory")
	_ = rootCmd.MarkFlagRequired("request")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
