package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/zkcompliance/circuits"
	"github.com/yourorg/zkcompliance/pkg/evidence"
	"github.com/yourorg/zkcompliance/pkg/store"
	"github.com/yourorg/zkcompliance/pkg/verifier"
)

// degradedAPI builds the service without key artifacts: no generator, no
// verification key. Handler behavior in this mode is what these tests pin
// down; the full proving round trip lives in the integration tests.
func degradedAPI(t *testing.T) *API {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(filepath.Join(t.TempDir(), "proofs.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	codec, err := evidence.NewCodec("10000")
	require.NoError(t, err)

	return New(codec, nil, verifier.New(nil, st), st, nil, zerolog.Nop())
}

func doJSON(t *testing.T, a *API, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	var parsed map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func TestHealthDegraded(t *testing.T) {
	a := degradedAPI(t)

	w, body := doJSON(t, a, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "degraded", body["status"])
	require.Equal(t, ServiceName, body["service"])
	require.Equal(t, false, body["verification_key_loaded"])
}

func TestInfo(t *testing.T) {
	a := degradedAPI(t)

	w, body := doJSON(t, a, http.MethodGet, "/info", nil)
	require.Equal(t, http.StatusOK, w.Code)

	circuit := body["circuit"].(map[string]any)
	require.Equal(t, circuits.Name, circuit["name"])
	require.Equal(t, circuits.Version, circuit["version"])
	require.Equal(t, "groth16", circuit["protocol"])
	require.Equal(t, "bn254", circuit["curve"])
	require.Equal(t, float64(circuits.MerkleDepth), circuit["merkle_depth"])
}

func TestListEmpty(t *testing.T) {
	a := degradedAPI(t)

	w, body := doJSON(t, a, http.MethodGet, "/proofs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(0), body["count"])
	require.Empty(t, body["proofs"])
}

func TestGetUnknownProof(t *testing.T) {
	a := degradedAPI(t)

	w, _ := doJSON(t, a, http.MethodGet, "/proofs/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteUnknownProof(t *testing.T) {
	a := degradedAPI(t)

	w, _ := doJSON(t, a, http.MethodDelete, "/proofs/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestProveWithoutProvingKey(t *testing.T) {
	a := degradedAPI(t)

	body := map[string]any{
		"transactionData": map[string]any{
			"tx_uuid":     "tx-1",
			"wallet_from": "0x1111111111111111111111111111111111111111",
			"wallet_to":   "0x2222222222222222222222222222222222222222",
			"amount":      "500",
		},
		"complianceEvidence": map[string]any{"decision": "PASS", "risk_score": 1},
		"merkleProof":        map[string]any{"root_hash": "1"},
	}
	w, resp := doJSON(t, a, http.MethodPost, "/prove/compliance", body)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, resp["error"], "proving key not loaded")
}

func TestProveMalformedBody(t *testing.T) {
	a := degradedAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/prove/compliance", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyRequiresProofOrID(t *testing.T) {
	a := degradedAPI(t)

	w, _ := doJSON(t, a, http.MethodPost, "/verify", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

// Without a verification key every stored-proof verification is invalid, but
// the endpoint still answers 200 with the reason.
func TestVerifyUnknownIDDegraded(t *testing.T) {
	a := degradedAPI(t)

	w, body := doJSON(t, a, http.MethodPost, "/verify", map[string]any{"proofId": "nope"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, body["isValid"])
	require.Equal(t, "not found", body["error"])
}

func TestBatchVerifyEmpty(t *testing.T) {
	a := degradedAPI(t)

	w, _ := doJSON(t, a, http.MethodPost, "/verify/batch", map[string]any{"proofIds": []string{}})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContractKeyUnavailable(t *testing.T) {
	a := degradedAPI(t)

	w, resp := doJSON(t, a, http.MethodGet, "/verification-key/contract", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, resp["error"], "verification key not loaded")
}
