// Package api exposes the proof lifecycle over HTTP for the backend and UI
// layers: generate, verify (inline, by id, batch), list, fetch, delete, and
// the verification-key export consumed by the on-chain verifier contract.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yourorg/zkcompliance/circuits"
	"github.com/yourorg/zkcompliance/pkg/evidence"
	"github.com/yourorg/zkcompliance/pkg/proof"
	"github.com/yourorg/zkcompliance/pkg/prover"
	"github.com/yourorg/zkcompliance/pkg/store"
	"github.com/yourorg/zkcompliance/pkg/verifier"
)

const (
	ServiceName    = "zk-compliance-service"
	ServiceVersion = "1.0.0"
)

// API wires the components behind the HTTP surface. The generator may be nil
// (no proving key: prove requests fail with 500), the verification key may be
// nil (degraded verification, key export fails with 500).
type API struct {
	r     *gin.Engine
	codec *evidence.Codec
	gen   *prover.Generator
	ver   *verifier.Verifier
	st    *store.Store
	vk    groth16.VerifyingKey
	log   zerolog.Logger
}

// New builds the router. codec, ver and st must be non-nil.
func New(codec *evidence.Codec, gen *prover.Generator, ver *verifier.Verifier,
	st *store.Store, vk groth16.VerifyingKey, log zerolog.Logger) *API {

	a := &API{
		codec: codec,
		gen:   gen,
		ver:   ver,
		st:    st,
		vk:    vk,
		log:   log,
	}

	r := gin.Default()
	r.POST("/prove/compliance", a.postProveCompliance)
	r.POST("/verify", a.postVerify)
	r.POST("/verify/batch", a.postVerifyBatch)
	r.GET("/proofs", a.getProofs)
	r.GET("/proofs/:id", a.getProof)
	r.DELETE("/proofs/:id", a.deleteProof)
	r.GET("/verification-key/contract", a.getContractVerificationKey)
	r.GET("/health", a.getHealth)
	r.GET("/info", a.getInfo)
	a.r = r

	return a
}

// Router exposes the gin engine, mainly for httptest.
func (a *API) Router() *gin.Engine { return a.r }

// Serve serves the API at the given port.
func (a *API) Serve(port string) error {
	return a.r.Run(":" + port)
}

func (a *API) badRequest(c *gin.Context, err error) {
	a.log.Warn().Err(err).Str("path", c.FullPath()).Msg("bad request")
	c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func (a *API) postProveCompliance(c *gin.Context) {
	var req proveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	if a.gen == nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "proving key not loaded"})
		return
	}

	in, err := a.codec.Encode(req.TransactionData, req.ComplianceEvidence, req.MerkleProof)
	if err != nil {
		a.badRequest(c, err)
		return
	}

	meta := prover.Meta{
		EvidenceHash: evidence.DigestEvidence(req.ComplianceEvidence),
		Decision:     string(req.ComplianceEvidence.Decision),
	}
	if req.TransactionData != nil {
		meta.TransactionID = req.TransactionData.TxUUID
	}

	rec, err := a.gen.Generate(c.Request.Context(), in, meta)
	if err != nil {
		if errors.Is(err, evidence.ErrInvalidInput) {
			a.badRequest(c, err)
			return
		}
		a.log.Error().Err(err).Str("tx", meta.TransactionID).Msg("proof generation failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	a.log.Info().
		Str("proof_id", rec.ProofID).
		Str("tx", rec.TransactionID).
		Str("decision", rec.Decision).
		Msg("proof generated")

	c.JSON(http.StatusOK, proveResponse{
		ProofID:            rec.ProofID,
		Proof:              rec.Proof,
		PublicSignals:      rec.PublicSignals,
		Timestamp:          rec.Timestamp.Format(time.RFC3339),
		TransactionID:      rec.TransactionID,
		ComplianceDecision: rec.Decision,
	})
}

func (a *API) postVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}

	var exp *verifier.Expected
	if req.ExpectedMerkleRoot != "" || req.ExpectedComplianceHash != "" {
		exp = &verifier.Expected{
			MerkleRoot:     req.ExpectedMerkleRoot,
			ComplianceHash: req.ExpectedComplianceHash,
		}
	}

	switch {
	case req.ProofID != "":
		res, err := a.ver.VerifyByID(req.ProofID, exp)
		if err != nil {
			c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"isValid": res.Valid,
			"proofId": res.ProofID,
			"checks":  res.Checks,
			"error":   res.Error,
		})

	case req.Proof != nil && len(req.PublicSignals) == 2:
		ok, verr := a.ver.Verify(req.Proof, [2]string{req.PublicSignals[0], req.PublicSignals[1]})
		resp := gin.H{"isValid": ok}
		if verr != nil {
			resp["error"] = verr.Error()
		}
		c.JSON(http.StatusOK, resp)

	default:
		a.badRequest(c, errors.New("provide either proofId or proof with exactly two publicSignals"))
	}
}

func (a *API) postVerifyBatch(c *gin.Context) {
	var req batchVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.badRequest(c, err)
		return
	}
	if len(req.ProofIDs) == 0 {
		a.badRequest(c, errors.New("proofIds must not be empty"))
		return
	}

	batch, err := a.ver.BatchVerify(req.ProofIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (a *API) getProofs(c *gin.Context) {
	summaries, err := a.st.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if summaries == nil {
		summaries = []proof.Summary{}
	}
	c.JSON(http.StatusOK, listResponse{Count: len(summaries), Proofs: summaries})
}

func (a *API) getProof(c *gin.Context) {
	rec, err := a.st.Get(c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (a *API) deleteProof(c *gin.Context) {
	id := c.Param("id")
	err := a.st.Delete(id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	a.log.Info().Str("proof_id", id).Msg("proof deleted")
	c.JSON(http.StatusOK, deleteResponse{Success: true, ProofID: id})
}

func (a *API) getContractVerificationKey(c *gin.Context) {
	if a.vk == nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "verification key not loaded"})
		return
	}
	export, err := proof.ExportVerifyingKey(a.vk)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, export)
}

func (a *API) getHealth(c *gin.Context) {
	status := "ok"
	if !a.ver.KeyLoaded() {
		status = "degraded"
	}
	c.JSON(http.StatusOK, healthResponse{
		Status:                status,
		Service:               ServiceName,
		Version:               ServiceVersion,
		Circuit:               circuits.Name,
		VerificationKeyLoaded: a.ver.KeyLoaded(),
		Timestamp:             time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) getInfo(c *gin.Context) {
	c.JSON(http.StatusOK, infoResponse{
		Service: ServiceName,
		Version: ServiceVersion,
		Circuit: circuitInfo{
			Name:          circuits.Name,
			Version:       circuits.Version,
			Protocol:      proof.Protocol,
			Curve:         proof.CurveID,
			MerkleDepth:   circuits.MerkleDepth,
			PublicSignals: []string{"merkle_root", "compliance_hash"},
		},
	})
}
