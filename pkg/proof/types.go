package proof

import "time"

const (
	Protocol = "groth16"
	CurveID  = "bn254"
)

// Proof is the wire form of a Groth16 proof: three group elements with
// coordinates as decimal strings. PiB coordinates are quadratic extension
// field pairs in [A0, A1] order.
type Proof struct {
	Protocol string       `json:"protocol"`
	Curve    string       `json:"curve"`
	PiA      [2]string    `json:"pi_a"`
	PiB      [2][2]string `json:"pi_b"`
	PiC      [2]string    `json:"pi_c"`
}

// Record is a persisted proof with its public signals and metadata. Metadata
// is attached at generation time and immutable thereafter.
type Record struct {
	ProofID       string    `json:"proofId"`
	Proof         Proof     `json:"proof"`
	PublicSignals [2]string `json:"publicSignals"` // [merkle_root, compliance_hash]
	InputHash     string    `json:"inputHash"`
	EvidenceHash  string    `json:"evidenceHash,omitempty"`
	Circuit       string    `json:"circuit"`
	Version       string    `json:"version"`
	TransactionID string    `json:"transactionId,omitempty"`
	Decision      string    `json:"complianceDecision,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Summary is the listing view of a record: metadata only, no proof bytes.
type Summary struct {
	ProofID       string    `json:"proofId"`
	Circuit       string    `json:"circuit"`
	Version       string    `json:"version"`
	InputHash     string    `json:"inputHash"`
	TransactionID string    `json:"transactionId,omitempty"`
	Decision      string    `json:"complianceDecision,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func (r *Record) Summary() Summary {
	return Summary{
		ProofID:       r.ProofID,
		Circuit:       r.Circuit,
		Version:       r.Version,
		InputHash:     r.InputHash,
		TransactionID: r.TransactionID,
		Decision:      r.Decision,
		Timestamp:     r.Timestamp,
	}
}
