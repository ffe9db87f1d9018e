package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/yourorg/zkcompliance/pkg/proof"
	"github.com/yourorg/zkcompliance/pkg/prover"
	"github.com/yourorg/zkcompliance/pkg/verifier"
)

func main() {
	var (
		proofPath    string
		keysDir      string
		expectedRoot string
		expectedHash string
	)

	rootCmd := &cobra.Command{
		Use:   "verifier",
		Short: "Verify a Groth16 compliance proof record from disk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(proofPath)
			if err != nil {
				return err
			}
			var rec proof.Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				return fmt.Errorf("parse proof record: %w", err)
			}

			vk, err := prover.LoadVerifyingKey(keysDir)
			if err != nil {
				return fmt.Errorf("load verification key from %s: %w", keysDir, err)
			}

			var exp *verifier.Expected
			if expectedRoot != "" || expectedHash != "" {
				exp = &verifier.Expected{
					MerkleRoot:     expectedRoot,
					ComplianceHash: expectedHash,
				}
			}

			res := verifier.New(vk, nil).VerifyCompliance(&rec, exp)
			fmt.Printf("proof:            %s\n", rec.ProofID)
			fmt.Printf("proof_valid:      %v\n", res.Checks.ProofValid)
			fmt.Printf("public_inputs:    %v\n", res.Checks.PublicInputsValid)
			fmt.Printf("merkle_root:      %v\n", res.Checks.MerkleRootValid)
			fmt.Printf("compliance_hash:  %v\n", res.Checks.ComplianceHashValid)
			fmt.Printf("circuit_version:  %v\n", res.Checks.CircuitVersionValid)
			if !res.Valid {
				return fmt.Errorf("proof invalid: %s", res.Error)
			}
			fmt.Println("proof valid")
			return nil
		},
	}

	rootCmd.Flags().StringVar(&proofPath, "proof", "", "JSON proof record file")
	rootCmd.Flags().StringVar(&keysDir, "keys", "./keys", "Directory holding the verification key")
	rootCmd.Flags().StringVar(&expectedRoot, "root", "", "Expected Merkle root public signal")
	rootCmd.Flags().StringVar(&expectedHash, "hash", "", "Expected compliance hash public signal")
	_ = rootCmd.MarkFlagRequired("proof")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
