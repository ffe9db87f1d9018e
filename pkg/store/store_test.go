package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yourorg/zkcompliance/pkg/proof"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "proofs.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id, txID string) *proof.Record {
	return &proof.Record{
		ProofID: id,
		Proof: proof.Proof{
			Protocol: proof.Protocol,
			Curve:    proof.CurveID,
			PiA:      [2]string{"1", "2"},
			PiB:      [2][2]string{{"3", "4"}, {"5", "6"}},
			PiC:      [2]string{"7", "8"},
		},
		PublicSignals: [2]string{"11", "22"},
		InputHash:     "deadbeef",
		Circuit:       "transaction_compliance",
		Version:       "1.0.0",
		TransactionID: txID,
		Decision:      "PASS",
		Timestamp:     time.Now().UTC(),
	}
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)

	rec := record("p1", "tx-1")
	require.NoError(t, s.Put(rec))

	got, err := s.Get("p1")
	require.NoError(t, err)
	require.Equal(t, rec.ProofID, got.ProofID)
	require.Equal(t, rec.Proof, got.Proof)
	require.Equal(t, rec.PublicSignals, got.PublicSignals)
	require.Equal(t, rec.TransactionID, got.TransactionID)
	require.True(t, rec.Timestamp.Equal(got.Timestamp))
}

func TestGetUnknown(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPutDuplicateID(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(record("p1", "tx-1")))
	require.Error(t, s.Put(record("p1", "tx-2")))
}

func TestListInsertionOrder(t *testing.T) {
	s := openTestStore(t)

	empty, err := s.List()
	require.NoError(t, err)
	require.Empty(t, empty)

	ids := []string{"c3", "a1", "b2"}
	for _, id := range ids {
		require.NoError(t, s.Put(record(id, "tx-"+id)))
	}

	summaries, err := s.List()
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	for i, id := range ids {
		require.Equal(t, id, summaries[i].ProofID)
		require.Equal(t, "tx-"+id, summaries[i].TransactionID)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(record("p1", "tx-1")))
	require.NoError(t, s.Delete("p1"))

	_, err := s.Get("p1")
	require.ErrorIs(t, err, ErrNotFound)

	// second delete of the same id
	require.ErrorIs(t, s.Delete("p1"), ErrNotFound)
	require.ErrorIs(t, s.Delete("never-existed"), ErrNotFound)
}

func TestMigrateIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Migrate())
	require.NoError(t, s.Migrate())
}
