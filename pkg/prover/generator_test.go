package prover

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/zkcompliance/circuits"
	"github.com/yourorg/zkcompliance/pkg/evidence"
	"github.com/yourorg/zkcompliance/pkg/merkle"
	"github.com/yourorg/zkcompliance/pkg/store"
)

// Groth16 setup is expensive, so all tests in the package share one set of
// artifacts.
var (
	artOnce sync.Once
	artDir  string
	art     *Artifacts
	artErr  error
)

func testArtifacts(t *testing.T) *Artifacts {
	t.Helper()
	artOnce.Do(func() {
		artDir, artErr = os.MkdirTemp("", "zkcompliance-keys")
		if artErr != nil {
			return
		}
		art, artErr = LoadOrSetup(artDir)
	})
	require.NoError(t, artErr)
	return art
}

// testInput encodes a self-consistent circuit input: the Merkle proof anchors
// the exact leaf the codec derives from the transaction.
func testInput(t *testing.T, amount string) *evidence.CircuitInput {
	t.Helper()

	tx := &evidence.TransactionData{
		TxUUID:     "tx-gen",
		WalletFrom: "0x1111111111111111111111111111111111111111",
		WalletTo:   "0x2222222222222222222222222222222222222222",
		Amount:     amount,
		KYCProofID: "kyc_1",
	}
	ev := &evidence.ComplianceEvidence{Decision: evidence.DecisionPass, RiskScore: 5}

	scaled, err := evidence.ScaleAmount(amount)
	require.NoError(t, err)
	var amountEl, kycEl fr.Element
	amountEl.SetUint64(scaled)
	kycEl.SetOne()
	leaf := merkle.Hash(amountEl,
		evidence.HashWallet(tx.WalletFrom), evidence.HashWallet(tx.WalletTo), kycEl)

	tree, err := merkle.NewTree(circuits.MerkleDepth, []fr.Element{leaf})
	require.NoError(t, err)
	path, err := tree.Proof(0)
	require.NoError(t, err)

	root := tree.Root()
	mp := &evidence.MerkleProof{
		RootHash:     root.String(),
		PathIndices:  path.Indices,
		PathElements: make([]string, circuits.MerkleDepth),
	}
	for i := range path.Siblings {
		mp.PathElements[i] = path.Siblings[i].String()
	}

	codec, err := evidence.NewCodec("10000")
	require.NoError(t, err)
	in, err := codec.Encode(tx, ev, mp)
	require.NoError(t, err)
	return in
}

func TestGenerate(t *testing.T) {
	gen := NewGenerator(testArtifacts(t), nil, 1)

	in := testInput(t, "500")
	rec, err := gen.Generate(context.Background(), in, Meta{
		TransactionID: "tx-gen",
		Decision:      "PASS",
		EvidenceHash:  "abc123",
	})
	require.NoError(t, err)

	require.Len(t, rec.ProofID, 32) // 16 random bytes in hex
	require.Equal(t, in.PublicSignals(), rec.PublicSignals)
	require.Equal(t, in.Hash(), rec.InputHash)
	require.Equal(t, "abc123", rec.EvidenceHash)
	require.Equal(t, circuits.Name, rec.Circuit)
	require.Equal(t, circuits.Version, rec.Version)
	require.Equal(t, "tx-gen", rec.TransactionID)
	require.Equal(t, "PASS", rec.Decision)
	require.False(t, rec.Timestamp.IsZero())
}

// Identical logical input: same inputHash, but each proof gets its own id.
func TestGenerateDistinctProofIDs(t *testing.T) {
	gen := NewGenerator(testArtifacts(t), nil, 2)

	in := testInput(t, "500")
	r1, err := gen.Generate(context.Background(), in, Meta{})
	require.NoError(t, err)
	r2, err := gen.Generate(context.Background(), in, Meta{})
	require.NoError(t, err)

	require.Equal(t, r1.InputHash, r2.InputHash)
	require.NotEqual(t, r1.ProofID, r2.ProofID)
}

func TestGenerateUnsatisfiableWitness(t *testing.T) {
	gen := NewGenerator(testArtifacts(t), nil, 1)

	in := testInput(t, "500")
	// Break the inclusion proof: the claimed root no longer matches the path.
	in.MerkleRoot.SetUint64(424242)

	_, err := gen.Generate(context.Background(), in, Meta{})
	require.ErrorIs(t, err, ErrProofGeneration)
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	gen := NewGenerator(testArtifacts(t), nil, 1)

	_, err := gen.Generate(context.Background(), nil, Meta{})
	require.ErrorIs(t, err, evidence.ErrInvalidInput)

	in := testInput(t, "500")
	in.KYCStatus = 2
	_, err = gen.Generate(context.Background(), in, Meta{})
	require.ErrorIs(t, err, evidence.ErrInvalidInput)
}

func TestGeneratePersists(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "proofs.sqlite3"))
	require.NoError(t, err)
	defer st.Close()

	gen := NewGenerator(testArtifacts(t), st, 1)
	rec, err := gen.Generate(context.Background(), testInput(t, "500"), Meta{TransactionID: "tx-gen"})
	require.NoError(t, err)

	got, err := st.Get(rec.ProofID)
	require.NoError(t, err)
	require.Equal(t, rec.ProofID, got.ProofID)
	require.Equal(t, rec.Proof, got.Proof)
}

func TestLoadFromCachedKeys(t *testing.T) {
	testArtifacts(t) // ensures keys exist in artDir

	loaded, err := Load(artDir)
	require.NoError(t, err)
	require.NotNil(t, loaded.PK)
	require.NotNil(t, loaded.VK)

	vk, err := LoadVerifyingKey(artDir)
	require.NoError(t, err)
	require.NotNil(t, vk)
}

func TestLoadMissingKeys(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)

	_, err = LoadVerifyingKey(t.TempDir())
	require.Error(t, err)
}
