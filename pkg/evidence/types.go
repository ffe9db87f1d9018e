package evidence

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/yourorg/zkcompliance/circuits"
)

// Decision is the outcome produced by the external compliance rule engine.
type Decision string

const (
	DecisionPass   Decision = "PASS"
	DecisionHold   Decision = "HOLD"
	DecisionReject Decision = "REJECT"
)

func (d Decision) Valid() bool {
	switch d {
	case DecisionPass, DecisionHold, DecisionReject:
		return true
	}
	return false
}

// RuleOutcome records a single rule evaluation from the rule engine.
type RuleOutcome struct {
	RuleType string `json:"rule_type"`
	Passed   bool   `json:"passed"`
}

// ComplianceEvidence is the rule engine's decision record. It is immutable
// once produced and only consumed here to derive hashes.
type ComplianceEvidence struct {
	Decision    Decision      `json:"decision"`
	RiskScore   int           `json:"risk_score"`
	Rules       []RuleOutcome `json:"rules_evaluated"`
	EvaluatedAt string        `json:"evaluated_at,omitempty"`
}

// TransactionData carries the transaction facts needed by the circuit.
// Amount is a decimal string; digits beyond six decimal places are truncated
// silently during encoding.
type TransactionData struct {
	TxUUID     string `json:"tx_uuid"`
	WalletFrom string `json:"wallet_from"`
	WalletTo   string `json:"wallet_to"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency,omitempty"`
	KYCProofID string `json:"kyc_proof_id,omitempty"`
}

// MerkleProof is the inclusion proof for the currently published evidence
// batch, supplied by the anchoring component. Field elements are decimal or
// 0x-prefixed hex strings.
type MerkleProof struct {
	RootHash     string   `json:"root_hash"`
	PathIndices  []int    `json:"path_indices"`
	PathElements []string `json:"path_elements"`
}

// CircuitInput is the fully encoded witness material: two public field
// elements and eight private values. Constructed fresh per proof request and
// never persisted in plaintext; only its digest (InputHash) is stored.
type CircuitInput struct {
	MerkleRoot     fr.Element
	ComplianceHash fr.Element

	TransactionAmount uint64
	SourceWalletHash  fr.Element
	DestWalletHash    fr.Element
	KYCStatus         uint8
	ThresholdAmount   uint64
	BlacklistProof    uint8

	MerklePath     [circuits.MerkleDepth]uint8
	MerkleSiblings [circuits.MerkleDepth]fr.Element
}

// Validate checks the value-range invariants the fixed-size struct cannot
// express. The ten-field shape and the path length are enforced by the types
// themselves; Encode is the only constructor that fills them from raw data.
func (in *CircuitInput) Validate() error {
	if in.KYCStatus > 1 {
		return fmt.Errorf("%w: kyc_status %d, want 0 or 1", ErrInvalidInput, in.KYCStatus)
	}
	if in.BlacklistProof > 1 {
		return fmt.Errorf("%w: blacklist_proof %d, want 0 or 1", ErrInvalidInput, in.BlacklistProof)
	}
	for i, bit := range in.MerklePath {
		if bit > 1 {
			return fmt.Errorf("%w: merkle_path[%d] = %d, want 0 or 1", ErrInvalidInput, i, bit)
		}
	}
	return nil
}

// Assignment converts the input into a gnark witness assignment.
func (in *CircuitInput) Assignment() *circuits.ComplianceCircuit {
	a := &circuits.ComplianceCircuit{
		MerkleRoot:        in.MerkleRoot.BigInt(new(big.Int)),
		ComplianceHash:    in.ComplianceHash.BigInt(new(big.Int)),
		TransactionAmount: in.TransactionAmount,
		SourceWalletHash:  in.SourceWalletHash.BigInt(new(big.Int)),
		DestWalletHash:    in.DestWalletHash.BigInt(new(big.Int)),
		KYCStatus:         in.KYCStatus,
		ThresholdAmount:   in.ThresholdAmount,
		BlacklistProof:    in.BlacklistProof,
	}
	for i := 0; i < circuits.MerkleDepth; i++ {
		a.MerklePath[i] = in.MerklePath[i]
		a.MerkleSiblings[i] = in.MerkleSiblings[i].BigInt(new(big.Int))
	}
	return a
}

// PublicSignals returns the two public signals as decimal strings, in circuit
// order: merkle root, compliance hash.
func (in *CircuitInput) PublicSignals() [2]string {
	return [2]string{in.MerkleRoot.String(), in.ComplianceHash.String()}
}
