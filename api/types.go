package api

import (
	"github.com/yourorg/zkcompliance/pkg/evidence"
	"github.com/yourorg/zkcompliance/pkg/proof"
)

type proveRequest struct {
	TransactionData    *evidence.TransactionData    `json:"transactionData"`
	ComplianceEvidence *evidence.ComplianceEvidence `json:"complianceEvidence"`
	MerkleProof        *evidence.MerkleProof        `json:"merkleProof"`
}

type proveResponse struct {
	ProofID            string       `json:"proof_id"`
	Proof              proof.Proof  `json:"proof"`
	PublicSignals      [2]string    `json:"public_signals"`
	Timestamp          string       `json:"timestamp"`
	TransactionID      string       `json:"transaction_id,omitempty"`
	ComplianceDecision string       `json:"compliance_decision,omitempty"`
}

// verifyRequest accepts either a stored proof id or an inline proof with its
// public signals. Expected values are optional comparisons.
type verifyRequest struct {
	ProofID                string       `json:"proofId,omitempty"`
	Proof                  *proof.Proof `json:"proof,omitempty"`
	PublicSignals          []string     `json:"publicSignals,omitempty"`
	ExpectedMerkleRoot     string       `json:"expectedMerkleRoot,omitempty"`
	ExpectedComplianceHash string       `json:"expectedComplianceHash,omitempty"`
}

type batchVerifyRequest struct {
	ProofIDs []string `json:"proofIds"`
}

type listResponse struct {
	Count  int             `json:"count"`
	Proofs []proof.Summary `json:"proofs"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	ProofID string `json:"proof_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status                string `json:"status"`
	Service               string `json:"service"`
	Version               string `json:"version"`
	Circuit               string `json:"circuit"`
	VerificationKeyLoaded bool   `json:"verification_key_loaded"`
	Timestamp             string `json:"timestamp"`
}

type infoResponse struct {
	Service string      `json:"service"`
	Version string      `json:"version"`
	Circuit circuitInfo `json:"circuit"`
}

type circuitInfo struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Protocol      string   `json:"protocol"`
	Curve         string   `json:"curve"`
	MerkleDepth   int      `json:"merkle_depth"`
	PublicSignals []string `json:"public_signals"`
}
