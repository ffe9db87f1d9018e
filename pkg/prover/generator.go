package prover

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"github.com/yourorg/zkcompliance/circuits"
	"github.com/yourorg/zkcompliance/pkg/evidence"
	"github.com/yourorg/zkcompliance/pkg/proof"
	"github.com/yourorg/zkcompliance/pkg/store"
)

// ErrProofGeneration marks an unsatisfiable witness: the supplied inputs
// cannot satisfy the circuit constraints (typically a Merkle path that does
// not reach the claimed root). No proof is ever produced for such inputs.
var ErrProofGeneration = errors.New("proof generation failed")

// Meta is the request-scoped metadata attached to a generated record.
type Meta struct {
	TransactionID string
	Decision      string
	EvidenceHash  string
}

// Generator produces Groth16 proofs against the shared artifacts. Proving is
// CPU-bound, so in-flight generations are bounded by a semaphore; waiting
// honors context cancellation.
type Generator struct {
	art *Artifacts
	st  *store.Store // nil: caller handles persistence (one-shot CLI)
	sem chan struct{}
}

// NewGenerator returns a Generator persisting into st (which may be nil).
// maxConcurrent bounds simultaneous proving runs; values below 1 mean 1.
func NewGenerator(art *Artifacts, st *store.Store, maxConcurrent int) *Generator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Generator{
		art: art,
		st:  st,
		sem: make(chan struct{}, maxConcurrent),
	}
}

// Generate computes a witness for the encoded input, runs the Groth16 prover
// and returns the persisted record. Two calls with identical logical input
// share an inputHash but get distinct proofIds: proofs are request-scoped
// artifacts, not content-addressed.
func (g *Generator) Generate(ctx context.Context, in *evidence.CircuitInput, meta Meta) (*proof.Record, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil input", evidence.ErrInvalidInput)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	select {
	case g.sem <- struct{}{}:
		defer func() { <-g.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	w, err := frontend.NewWitness(in.Assignment(), circuits.Curve().ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%w: build witness: %v", ErrProofGeneration, err)
	}
	gproof, err := groth16.Prove(g.art.CS, g.art.PK, w)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	wire, err := proof.FromGnark(gproof)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}

	id, err := newProofID()
	if err != nil {
		return nil, err
	}
	rec := &proof.Record{
		ProofID:       id,
		Proof:         *wire,
		PublicSignals: in.PublicSignals(),
		InputHash:     in.Hash(),
		EvidenceHash:  meta.EvidenceHash,
		Circuit:       circuits.Name,
		Version:       circuits.Version,
		TransactionID: meta.TransactionID,
		Decision:      meta.Decision,
		Timestamp:     time.Now().UTC(),
	}

	if g.st != nil {
		if err := g.st.Put(rec); err != nil {
			return nil, fmt.Errorf("persist proof %s: %w", rec.ProofID, err)
		}
	}
	return rec, nil
}

// newProofID returns a fresh random 128-bit identifier in hex.
func newProofID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generate proof id: %w", err)
	}
	return hex.EncodeToString(b[:]), nil
}
