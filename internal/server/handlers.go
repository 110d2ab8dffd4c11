package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roach88/zkclaim/internal/claim"
	"github.com/roach88/zkclaim/internal/poller"
	"github.com/roach88/zkclaim/internal/prover"
	"github.com/roach88/zkclaim/internal/relay"
	"github.com/roach88/zkclaim/internal/store"
)

type doctorRequest struct {
	ClaimID       string `json:"claim_id"`
	ProcedureCode string `json:"procedure_code" binding:"required"`
	DoctorID      string `json:"doctor_id" binding:"required"`
	Date          string `json:"date" binding:"required"`
}

func (r doctorRequest) inputs() claim.Inputs {
	return claim.Inputs{"procedure_code": r.ProcedureCode, "doctor_id": r.DoctorID, "date": r.Date}
}

type patientRequest struct {
	ClaimID         string `json:"claim_id"`
	PatientID       string `json:"patient_id" binding:"required"`
	ClaimAmount     string `json:"claim_amount" binding:"required"`
	PolicyLimit     string `json:"policy_limit" binding:"required"`
	DoctorProofHash string `json:"doctor_proof_hash" binding:"required"`
}

func (r patientRequest) inputs() claim.Inputs {
	return claim.Inputs{"patient_id": r.PatientID, "claim_amount": r.ClaimAmount, "policy_limit": r.PolicyLimit}
}

type submitClaimsRequest struct {
	ClaimID      string       `json:"claim_id"`
	DoctorInput  claim.Inputs `json:"doctorInput" binding:"required"`
	PatientInput claim.Inputs `json:"patientInput" binding:"required"`
}

type verifySavedRequest struct {
	ClaimID       string          `json:"claim_id"`
	ProofType     string          `json:"proofType" binding:"required,oneof=doctor patient"`
	ProofData     json.RawMessage `json:"proofData" binding:"required"`
	PublicSignals []string        `json:"publicSignals" binding:"required"`
}

func (s *Server) health(c *gin.Context) {
	if err := s.receipts.Ping(c.Request.Context()); err != nil {
		s.log.Warn("health check", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "UNAVAILABLE", "message": "store unreachable", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "ZKClaim API is running"})
}

func (s *Server) doctorProof(c *gin.Context) {
	var req doctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		missingFields(c, claim.DoctorFields, err)
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	res, err := s.claims.RunDoctorFlow(ctx, req.ClaimID, req.inputs())
	if err != nil {
		s.fail(c, "Failed to generate doctor proof", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "proof": res})
}

func (s *Server) patientProof(c *gin.Context) {
	var req patientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		missingFields(c, append(append([]string{}, claim.PatientFields...), "doctor_proof_hash"), err)
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	res, err := s.claims.RunPatientFlow(ctx, req.ClaimID, req.inputs(), req.DoctorProofHash)
	if err != nil {
		s.fail(c, "Failed to generate patient proof", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "proof": res})
}

func (s *Server) submitClaims(c *gin.Context) {
	var req submitClaimsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		missingFields(c, []string{"doctorInput", "patientInput"}, err)
		return
	}
	s.runClaim(c, claim.Claim{ID: req.ClaimID, Doctor: req.DoctorInput, Patient: req.PatientInput}, "Claim submission failed")
}

func (s *Server) demo(c *gin.Context) {
	s.runClaim(c, claim.DemoClaim(), "Demo execution failed")
}

func (s *Server) runClaim(c *gin.Context, cl claim.Claim, failure string) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	res, err := s.claims.Run(ctx, cl)
	if err != nil {
		s.fail(c, failure, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"claimId": res.ClaimID,
		"doctor":  res.Doctor,
		"patient": res.Patient,
		"message": "ZKClaim verified",
	})
}

func (s *Server) verifySavedProof(c *gin.Context) {
	var req verifySavedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		missingFields(c, []string{"proofType", "proofData", "publicSignals"}, err)
		return
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()

	art := &prover.ProofArtifact{Proof: req.ProofData, PublicSignals: req.PublicSignals}
	res, err := s.claims.VerifySaved(ctx, req.ClaimID, req.ProofType, art)
	if err != nil {
		s.fail(c, "Proof verification failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"verified":      true,
		"proofType":     req.ProofType,
		"jobId":         res.JobID,
		"status":        res.Status,
		"txHash":        res.TxHash,
		"blockHash":     res.BlockHash,
		"aggregationId": res.AggregationID,
		"proofHash":     res.ProofHash,
	})
}

func (s *Server) verifyProofsFromFiles(c *gin.Context) {
	ctx, cancel := s.requestContext(c)
	defer cancel()

	results := s.claims.VerifyFiles(ctx, c.Query("claim_id"), s.cfg.ProofsDir)
	verified := 0
	for _, r := range results {
		if r.Verified {
			verified++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"results":     results,
		"verified":    verified,
		"total":       len(results),
		"allVerified": claim.AllVerified(results),
	})
}

// readAggregationData serves the latest receipt of the aggregation role.
// With claim_id it serves every receipt of that claim, or one role's
// receipt when role is also given.
func (s *Server) readAggregationData(c *gin.Context) {
	ctx := c.Request.Context()
	id, role := c.Query("claim_id"), c.Query("role")

	if id != "" && role == "" {
		receipts, err := s.receipts.ReceiptsByClaim(ctx, id)
		if err != nil {
			s.readFailed(c, err)
			return
		}
		if len(receipts) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Aggregation data not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"claimId": id, "receipts": receipts})
		return
	}

	if role == "" {
		role = s.cfg.AggregationRole
	}
	var (
		rec store.AggregationReceipt
		err error
	)
	if id != "" {
		rec, err = s.receipts.ReadReceipt(ctx, id, role)
	} else {
		rec, err = s.receipts.LatestReceipt(ctx, role)
	}
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Aggregation data not found"})
		return
	}
	if err != nil {
		s.readFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) readFailed(c *gin.Context, err error) {
	s.log.Error("read aggregation data", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read aggregation data", "details": err.Error()})
}

func missingFields(c *gin.Context, required []string, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":    "Missing required fields",
		"required": required,
		"details":  err.Error(),
	})
}

// fail writes the error response for a failed claim operation.
func (s *Server) fail(c *gin.Context, message string, err error) {
	status := StatusFor(err)
	body := gin.H{
		"success": false,
		"error":   message,
		"details": err.Error(),
	}
	var pe *claim.PhaseError
	if errors.As(err, &pe) {
		body["role"] = pe.Role
		body["stage"] = pe.Stage
		if pe.ClaimID != "" {
			body["claimId"] = pe.ClaimID
		}
	}
	if status >= http.StatusInternalServerError {
		s.log.Error(message, zap.Error(err))
	} else {
		s.log.Warn(message, zap.Error(err))
	}
	c.JSON(status, body)
}

// StatusFor maps an orchestrator error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case claim.IsValidationError(err), claim.IsLinkageError(err):
		return http.StatusBadRequest
	case poller.IsCancelled(err):
		return http.StatusServiceUnavailable
	case poller.IsTimeout(err):
		return http.StatusRequestTimeout
	case relay.StatusCode(err) >= http.StatusInternalServerError:
		return http.StatusBadGateway
	case poller.IsFailure(err), claim.IsSubmissionError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
