// Package server exposes the claim orchestrator over HTTP with gin.
//
// Routes:
//
//	GET  /api/health
//	POST /api/doctor-proof
//	POST /api/patient-proof
//	POST /api/submit-claims
//	POST /api/demo
//	POST /api/verify-saved-proof
//	POST /api/verify-proofs-from-files
//	GET  /api/read-aggregation-data[?claim_id=[&role=]]
//	GET  /metrics
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/roach88/zkclaim/internal/claim"
	"github.com/roach88/zkclaim/internal/prover"
	"github.com/roach88/zkclaim/internal/store"
)

// ClaimRunner is the orchestrator surface the API drives.
type ClaimRunner interface {
	Run(ctx context.Context, c claim.Claim) (*claim.Result, error)
	RunDoctorFlow(ctx context.Context, claimID string, in claim.Inputs) (*claim.ProofResult, error)
	RunPatientFlow(ctx context.Context, claimID string, in claim.Inputs, doctorProofHash string) (*claim.ProofResult, error)
	VerifySaved(ctx context.Context, claimID, role string, art *prover.ProofArtifact) (*claim.ProofResult, error)
	VerifyFiles(ctx context.Context, claimID, proofsDir string) []claim.FileResult
}

// ReceiptReader serves stored aggregation receipts. Ping backs the
// health check.
type ReceiptReader interface {
	LatestReceipt(ctx context.Context, role string) (store.AggregationReceipt, error)
	ReadReceipt(ctx context.Context, claimID, role string) (store.AggregationReceipt, error)
	ReceiptsByClaim(ctx context.Context, claimID string) ([]store.AggregationReceipt, error)
	Ping(ctx context.Context) error
}

// Config holds the server's own settings.
type Config struct {
	Addr            string
	ProofsDir       string
	AggregationRole string

	// RequestTimeout bounds one claim request. Zero means no bound beyond
	// the client connection.
	RequestTimeout time.Duration
}

// Server is the HTTP API.
type Server struct {
	cfg      Config
	claims   ClaimRunner
	receipts ReceiptReader
	gatherer prometheus.Gatherer
	log      *zap.Logger
	engine   *gin.Engine
}

// New builds the gin engine and registers every route. gatherer may be
// nil, in which case /metrics serves the default registry.
func New(cfg Config, claims ClaimRunner, receipts ReceiptReader, gatherer prometheus.Gatherer, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if cfg.AggregationRole == "" {
		cfg.AggregationRole = claim.RolePatient
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))

	s := &Server{
		cfg:      cfg,
		claims:   claims,
		receipts: receipts,
		gatherer: gatherer,
		log:      log,
		engine:   engine,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.health)
	api.POST("/doctor-proof", s.doctorProof)
	api.POST("/patient-proof", s.patientProof)
	api.POST("/submit-claims", s.submitClaims)
	api.POST("/demo", s.demo)
	api.POST("/verify-saved-proof", s.verifySavedProof)
	api.POST("/verify-proofs-from-files", s.verifyProofsFromFiles)
	api.GET("/read-aggregation-data", s.readAggregationData)

	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on cfg.Addr until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("api shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// requestLogger logs each request through zap instead of gin's writer.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

// requestContext applies RequestTimeout to the request context.
func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	}
	return context.WithCancel(c.Request.Context())
}
