package circuits

import (
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/poseidon2"
	"github.com/consensys/gnark/std/math/cmp"
	"github.com/consensys/gnark/std/rangecheck"
)

const (
	// Name and Version identify the circuit a proof was generated against.
	// Changing MerkleDepth produces a different circuit, so both must be
	// bumped together with it.
	Name    = "transaction_compliance"
	Version = "1.0.0"

	// MerkleDepth is the fixed depth of the evidence inclusion proof.
	// Supports up to 1<<MerkleDepth anchored leaves per published root.
	MerkleDepth = 10

	// AmountBits bounds transaction amounts and thresholds to unsigned
	// 64-bit fixed-point integers.
	AmountBits = 64
)

func Curve() ecc.ID { return ecc.BN254 }

// ComplianceCircuit proves that a transaction satisfies the compliance rules
// (amount under threshold, KYC present, not blacklisted) and that its leaf
// commitment is included under the public Merkle root, without revealing the
// amount or the wallet hashes.
//
// Public signals, in order: MerkleRoot, ComplianceHash.
type ComplianceCircuit struct {
	MerkleRoot     frontend.Variable `gnark:",public"`
	ComplianceHash frontend.Variable `gnark:",public"`

	TransactionAmount frontend.Variable
	SourceWalletHash  frontend.Variable
	DestWalletHash    frontend.Variable
	KYCStatus         frontend.Variable
	ThresholdAmount   frontend.Variable
	BlacklistProof    frontend.Variable

	MerklePath     [MerkleDepth]frontend.Variable
	MerkleSiblings [MerkleDepth]frontend.Variable
}

func eq(api frontend.API, a, b frontend.Variable) frontend.Variable {
	return api.IsZero(api.Sub(a, b))
}

// hash2 combines two field elements with a fresh Poseidon2 sponge. The hasher
// is stateful, so every node combination needs its own instance.
func hash2(api frontend.API, left, right frontend.Variable) (frontend.Variable, error) {
	h, err := poseidon2.New(api)
	if err != nil {
		return nil, err
	}
	h.Write(left, right)
	return h.Sum(), nil
}

func (c *ComplianceCircuit) Define(api frontend.API) error {
	rc := rangecheck.New(api)
	rc.Check(c.TransactionAmount, AmountBits)
	rc.Check(c.ThresholdAmount, AmountBits)

	// Rule gates. Each yields a bit rather than an assertion: a proof over a
	// failing rule set is still generable, the outcome is bound into the
	// public hash below.
	thresholdOK := cmp.IsLessOrEqual(api, c.TransactionAmount, c.ThresholdAmount)

	api.AssertIsBoolean(c.KYCStatus)
	kycOK := eq(api, c.KYCStatus, 1)

	api.AssertIsBoolean(c.BlacklistProof)
	blacklistOK := eq(api, c.BlacklistProof, 1)

	// Leaf commitment over the private transaction facts.
	leafHasher, err := poseidon2.New(api)
	if err != nil {
		return err
	}
	leafHasher.Write(c.TransactionAmount, c.SourceWalletHash, c.DestWalletHash, c.KYCStatus)
	leaf := leafHasher.Sum()

	// Fixed-depth Merkle chain. The left/right ordering at each level is an
	// arithmetic two-way swap driven by the direction bit (0 = current node
	// is the left child), keeping the constraint count static.
	cur := leaf
	for i := 0; i < MerkleDepth; i++ {
		bit := c.MerklePath[i]
		api.AssertIsBoolean(bit)
		left := api.Select(bit, c.MerkleSiblings[i], cur)
		right := api.Select(bit, cur, c.MerkleSiblings[i])
		if cur, err = hash2(api, left, right); err != nil {
			return err
		}
	}
	merkleOK := eq(api, cur, c.MerkleRoot)
	// A path that does not reach the claimed root must make the witness
	// unsatisfiable, not produce a proof over a false root.
	api.AssertIsEqual(merkleOK, 1)

	// Aggregate gate, fixed order: threshold, KYC, blacklist, inclusion.
	aggregate := api.And(thresholdOK, kycOK)
	aggregate = api.And(aggregate, blacklistOK)
	aggregate = api.And(aggregate, merkleOK)

	// Final binding: the leaf data and the aggregate outcome must come from
	// the same witness. Mixing a leaf from one transaction with an aggregate
	// from another cannot satisfy this equality.
	binding, err := hash2(api, leaf, aggregate)
	if err != nil {
		return err
	}
	api.AssertIsEqual(binding, c.ComplianceHash)

	return nil
}
