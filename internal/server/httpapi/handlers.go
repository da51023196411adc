// Package httpapi exposes the keygate HTTP handlers.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/costwise/keygate/internal/errs"
	"github.com/costwise/keygate/internal/model"
	"github.com/costwise/keygate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// Server wires services into HTTP handlers.
type Server struct {
	onboarding service.OnboardingService
	rotation   service.RotationService
	reveal     service.RevealTokenService
	billing    service.BillingSyncService
	log        *zap.Logger
}

// New constructs an HTTP server with injected services.
func New(onboarding service.OnboardingService, rotation service.RotationService, reveal service.RevealTokenService, billing service.BillingSyncService, log *zap.Logger) *Server {
	return &Server{onboarding: onboarding, rotation: rotation, reveal: reveal, billing: billing, log: log}
}

// Register attaches the authenticated API routes to a router group.
func (s *Server) Register(g *gin.RouterGroup) {
	g.POST("/orgs", s.handleOnboard)
	g.POST("/orgs/:slug/key/rotate", s.handleRotate)
	g.POST("/orgs/:slug/key/reveal", s.handleReveal)
	g.GET("/orgs/:slug/key/status", s.handleKeyStatus)
	g.POST("/orgs/:slug/billing/sync", s.handleBillingSync)
	g.GET("/sync-queue/stats", s.handleQueueStats)
}

type onboardBody struct {
	Slug        string `json:"org_slug"`
	CompanyName string `json:"company_name"`
	AdminEmail  string `json:"admin_email"`
	Plan        string `json:"plan"`
	Locale      string `json:"locale"`
}

func (s *Server) handleOnboard(c *gin.Context) {
	uid, ok := callerID(c)
	if !ok {
		abortJSON(c, http.StatusUnauthorized, "authentication required")
		return
	}
	var body onboardBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := s.onboarding.Onboard(c.Request.Context(), uid, model.OnboardParams{
		Slug:        body.Slug,
		CompanyName: body.CompanyName,
		AdminEmail:  body.AdminEmail,
		Plan:        body.Plan,
		Locale:      body.Locale,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"org_slug":          res.OrgSlug,
		"fingerprint":       res.Fingerprint,
		"reveal_token":      res.Reveal.Token,
		"reveal_expires_at": res.Reveal.ExpiresAt,
		"deferred":          res.Deferred,
	})
}

func (s *Server) handleRotate(c *gin.Context) {
	uid, slug, ok := s.orgScoped(c)
	if !ok {
		return
	}
	res, err := s.rotation.Rotate(c.Request.Context(), slug, uid)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"org_slug":          res.OrgSlug,
		"fingerprint":       res.Fingerprint,
		"reveal_token":      res.Reveal.Token,
		"reveal_expires_at": res.Reveal.ExpiresAt,
	})
}

type revealBody struct {
	Token string `json:"token"`
}

func (s *Server) handleReveal(c *gin.Context) {
	uid, _, ok := s.orgScoped(c)
	if !ok {
		return
	}
	var body revealBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}
	secret, err := s.reveal.Redeem(c.Request.Context(), body.Token, uid)
	if err != nil {
		s.writeError(c, err)
		return
	}
	// the only response that ever carries the raw key, and only once per token
	c.JSON(http.StatusOK, gin.H{"api_key": secret})
}

func (s *Server) handleKeyStatus(c *gin.Context) {
	_, slug, ok := s.orgScoped(c)
	if !ok {
		return
	}
	st, err := s.rotation.KeyStatus(c.Request.Context(), slug)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fingerprint": st.Fingerprint, "valid": st.Valid})
}

func (s *Server) handleBillingSync(c *gin.Context) {
	_, slug, ok := s.orgScoped(c)
	if !ok {
		return
	}
	var snap model.BillingSnapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		abortJSON(c, http.StatusBadRequest, "invalid request body")
		return
	}
	queued, err := s.billing.SyncNow(c.Request.Context(), slug, snap)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if queued {
		c.JSON(http.StatusAccepted, gin.H{"queued": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"queued": false})
}

func (s *Server) handleQueueStats(c *gin.Context) {
	st, err := s.billing.Stats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	out := gin.H{
		"pending":         st.Pending,
		"processing":      st.Processing,
		"failed":          st.Failed,
		"completed_today": st.CompletedToday,
	}
	if st.OldestPending != nil {
		out["oldest_pending"] = st.OldestPending
	}
	c.JSON(http.StatusOK, out)
}

// handleDrain triggers a bounded queue drain. Mounted on the internal group;
// the syncworker binary is the usual caller.
func (s *Server) handleDrain(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rep, err := s.billing.Drain(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"processed": rep.Processed,
		"succeeded": rep.Succeeded,
		"failed":    rep.Failed,
		"errors":    rep.Errors,
	})
}

// orgScoped resolves the caller and enforces that the org claim matches the
// path slug. Cross-tenant requests fail closed with a non-leaking message.
func (s *Server) orgScoped(c *gin.Context) (uuid.UUID, string, bool) {
	uid, ok := callerID(c)
	if !ok {
		abortJSON(c, http.StatusUnauthorized, "authentication required")
		return uuid.Nil, "", false
	}
	slug := c.Param("slug")
	if slug == "" {
		abortJSON(c, http.StatusBadRequest, "missing org slug")
		return uuid.Nil, "", false
	}
	if callerOrg(c) != slug {
		abortJSON(c, http.StatusForbidden, "forbidden")
		return uuid.Nil, "", false
	}
	return uid, slug, true
}

// writeError maps service errors onto safe client responses. Full detail is
// logged here and never forwarded.
func (s *Server) writeError(c *gin.Context, err error) {
	var status int
	var msg string
	switch {
	case errors.Is(err, errs.ErrInvalidInput):
		status, msg = http.StatusBadRequest, "invalid request"
	case errors.Is(err, errs.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, "authentication required"
	case errors.Is(err, errs.ErrForbidden), errors.Is(err, errs.ErrWrongUser):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, errs.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, errs.ErrTokenExpired):
		status, msg = http.StatusGone, "reveal link expired, rotate again to get a new one"
	case errors.Is(err, errs.ErrNoKey):
		status, msg = http.StatusConflict, "no api key on file, complete onboarding first"
	case errors.Is(err, errs.ErrLockBusy):
		status, msg = http.StatusConflict, "a key rotation is already in progress, try again shortly"
	case errors.Is(err, errs.ErrAlreadyExists):
		status, msg = http.StatusConflict, "already exists"
	case errors.Is(err, errs.ErrEngineAuth):
		status, msg = http.StatusConflict, "the current key was rejected upstream, re-enter a valid key before retrying"
	case errors.Is(err, errs.ErrEngineTimeout):
		status, msg = http.StatusGatewayTimeout, "the cost engine timed out, try again"
	case errors.Is(err, errs.ErrEngineNotReady):
		status, msg = http.StatusServiceUnavailable, "the cost engine is still starting up"
	case errors.Is(err, errs.ErrEngineUnavailable):
		status, msg = http.StatusBadGateway, "the cost engine is unavailable"
	default:
		status, msg = http.StatusInternalServerError, "internal"
	}
	if status >= 500 {
		s.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		s.log.Info("request rejected", zap.String("path", c.FullPath()), zap.Error(err))
	}
	abortJSON(c, status, msg)
}
