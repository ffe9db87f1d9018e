// Package verifier checks Groth16 compliance proofs cryptographically and
// semantically. All failure modes resolve to a false result with a reason;
// only storage faults propagate as errors.
package verifier

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/frontend"

	"github.com/yourorg/zkcompliance/circuits"
	"github.com/yourorg/zkcompliance/pkg/evidence"
	"github.com/yourorg/zkcompliance/pkg/proof"
	"github.com/yourorg/zkcompliance/pkg/store"
)

// ErrKeyNotLoaded is the degraded-mode reason: without a verification key
// every proof is reported invalid rather than the service crashing.
var ErrKeyNotLoaded = errors.New("verification key not loaded")

// Checks is the per-check breakdown of a semantic verification.
type Checks struct {
	ProofValid          bool `json:"proof_valid"`
	PublicInputsValid   bool `json:"public_inputs_valid"`
	MerkleRootValid     bool `json:"merkle_root_valid"`
	ComplianceHashValid bool `json:"compliance_hash_valid"`
	CircuitVersionValid bool `json:"circuit_version_valid"`
}

// Result is the outcome of a semantic verification. Valid is the conjunction
// of all five checks.
type Result struct {
	ProofID string `json:"proofId,omitempty"`
	Valid   bool   `json:"valid"`
	Checks  Checks `json:"checks"`
	Error   string `json:"error,omitempty"`
}

// Expected carries the caller's expected public inputs. Empty fields opt out
// of the corresponding comparison: a verifier may legitimately not know the
// published root in advance.
type Expected struct {
	MerkleRoot     string `json:"expectedMerkleRoot,omitempty"`
	ComplianceHash string `json:"expectedComplianceHash,omitempty"`
}

// BatchItem is one entry of a batch verification result.
type BatchItem struct {
	ProofID string `json:"proofId"`
	Valid   bool   `json:"valid"`
	Error   string `json:"error,omitempty"`
}

// BatchResult aggregates a batch verification run.
type BatchResult struct {
	Results      []BatchItem `json:"results"`
	ValidCount   int         `json:"validCount"`
	InvalidCount int         `json:"invalidCount"`
}

// Verifier validates proofs against the load-once verification key. A nil
// key puts it in degraded always-invalid mode.
type Verifier struct {
	vk      groth16.VerifyingKey
	st      *store.Store
	circuit string
	version string
}

// New returns a Verifier for the configured circuit. vk and st may each be
// nil: without vk all checks fail closed, without st only inline
// verification is available.
func New(vk groth16.VerifyingKey, st *store.Store) *Verifier {
	return &Verifier{
		vk:      vk,
		st:      st,
		circuit: circuits.Name,
		version: circuits.Version,
	}
}

// KeyLoaded reports whether the verifier holds a verification key.
func (v *Verifier) KeyLoaded() bool { return v.vk != nil }

// Verify runs the cryptographic pairing check only. A malformed proof or
// signal, a failed pairing, or a missing key all return false; the error
// carries the reason and is nil only for a genuine pairing mismatch.
func (v *Verifier) Verify(p *proof.Proof, signals [2]string) (bool, error) {
	if v.vk == nil {
		return false, ErrKeyNotLoaded
	}
	if p == nil {
		return false, fmt.Errorf("%w: missing proof", proof.ErrMalformedProof)
	}

	gproof, err := p.ToGnark()
	if err != nil {
		return false, err
	}
	pubWitness, err := publicWitness(signals)
	if err != nil {
		return false, err
	}
	if err := groth16.Verify(gproof, v.vk, pubWitness); err != nil {
		return false, nil // pairing check failed: invalid, not an internal fault
	}
	return true, nil
}

// VerifyCompliance runs the full semantic verification of a stored record:
// the pairing check first (short-circuiting on failure), then public-signal
// shape, optional expected-value comparisons and circuit compatibility.
func (v *Verifier) VerifyCompliance(rec *proof.Record, exp *Expected) *Result {
	res := &Result{}
	if rec != nil {
		res.ProofID = rec.ProofID
	}
	if rec == nil {
		res.Error = "missing proof record"
		return res
	}

	ok, err := v.Verify(&rec.Proof, rec.PublicSignals)
	res.Checks.ProofValid = ok
	if !ok {
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Error = "pairing check failed"
		}
		return res
	}

	res.Checks.PublicInputsValid = rec.PublicSignals[0] != "" && rec.PublicSignals[1] != ""
	res.Checks.MerkleRootValid = exp == nil || exp.MerkleRoot == "" ||
		sameFieldElement(exp.MerkleRoot, rec.PublicSignals[0])
	res.Checks.ComplianceHashValid = exp == nil || exp.ComplianceHash == "" ||
		sameFieldElement(exp.ComplianceHash, rec.PublicSignals[1])
	res.Checks.CircuitVersionValid = rec.Circuit == v.circuit && rec.Version == v.version

	res.Valid = res.Checks.ProofValid &&
		res.Checks.PublicInputsValid &&
		res.Checks.MerkleRootValid &&
		res.Checks.ComplianceHashValid &&
		res.Checks.CircuitVersionValid
	if !res.Valid && res.Error == "" {
		res.Error = "semantic checks failed"
	}
	return res
}

// VerifyByID fetches the record and verifies it. An unknown id yields a
// structured invalid result, not an error.
func (v *Verifier) VerifyByID(proofID string, exp *Expected) (*Result, error) {
	if v.st == nil {
		return nil, errors.New("verifier has no proof store")
	}
	rec, err := v.st.Get(proofID)
	if errors.Is(err, store.ErrNotFound) {
		return &Result{ProofID: proofID, Valid: false, Error: "not found"}, nil
	}
	if err != nil {
		return nil, err
	}
	return v.VerifyCompliance(rec, exp), nil
}

// BatchVerify verifies every id independently: one proof's failure (or
// absence) never aborts the others.
func (v *Verifier) BatchVerify(proofIDs []string) (*BatchResult, error) {
	batch := &BatchResult{Results: make([]BatchItem, 0, len(proofIDs))}
	for _, id := range proofIDs {
		res, err := v.VerifyByID(id, nil)
		if err != nil {
			return nil, err
		}
		batch.Results = append(batch.Results, BatchItem{
			ProofID: id,
			Valid:   res.Valid,
			Error:   res.Error,
		})
		if res.Valid {
			batch.ValidCount++
		} else {
			batch.InvalidCount++
		}
	}
	return batch, nil
}

// publicWitness rebuilds the public-only witness from the two signals.
func publicWitness(signals [2]string) (witness.Witness, error) {
	root, err := signalToBig(signals[0])
	if err != nil {
		return nil, fmt.Errorf("%w: merkle_root: %v", proof.ErrMalformedProof, err)
	}
	hash, err := signalToBig(signals[1])
	if err != nil {
		return nil, fmt.Errorf("%w: compliance_hash: %v", proof.ErrMalformedProof, err)
	}

	assignment := &circuits.ComplianceCircuit{
		MerkleRoot:     root,
		ComplianceHash: hash,
	}
	return frontend.NewWitness(assignment, circuits.Curve().ScalarField(), frontend.PublicOnly())
}

func signalToBig(s string) (*big.Int, error) {
	el, err := evidence.ParseField(s)
	if err != nil {
		return nil, err
	}
	return el.BigInt(new(big.Int)), nil
}

func sameFieldElement(a, b string) bool {
	ea, err := evidence.ParseField(a)
	if err != nil {
		return false
	}
	eb, err := evidence.ParseField(b)
	if err != nil {
		return false
	}
	return ea.Equal(&eb)
}
