package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/costwise/keygate/internal/costengine"
	"github.com/costwise/keygate/internal/errs"
	"github.com/costwise/keygate/internal/metrics"
	"github.com/costwise/keygate/internal/model"
	"github.com/costwise/keygate/internal/repository"
	"github.com/costwise/keygate/internal/secrets"
	"github.com/gofrs/uuid/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

var slugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// OnboardingService provisions an organization on the cost engine and mirrors
// the result into the local directory.
type OnboardingService interface {
	// Onboard runs first-time or repeat onboarding. The result's Deferred flag
	// is set when the directory write failed and a compensation record was
	// left for repair; the call itself still succeeds.
	Onboard(ctx context.Context, userID uuid.UUID, p model.OnboardParams) (model.OnboardResult, error)
}

type OnboardingServiceImpl struct {
	engine       EngineClient
	secrets      repository.SecretRepository
	reveal       RevealTokenService
	directory    repository.DirectoryRepository
	compensation repository.CompensationRepository
	log          *zap.Logger

	// backoffBase is the first directory-retry delay; shortened in tests.
	backoffBase time.Duration
}

// NewOnboardingService constructs OnboardingService with required dependencies.
func NewOnboardingService(
	engine EngineClient,
	secretRepo repository.SecretRepository,
	reveal RevealTokenService,
	directory repository.DirectoryRepository,
	compensation repository.CompensationRepository,
	log *zap.Logger,
) *OnboardingServiceImpl {
	return &OnboardingServiceImpl{
		engine:       engine,
		secrets:      secretRepo,
		reveal:       reveal,
		directory:    directory,
		compensation: compensation,
		log:          log,
		backoffBase:  time.Second,
	}
}

// Onboard provisions the org on the engine and reconciles the local directory.
//
// Readiness is a precondition, not a retried step: onboarding against a
// half-bootstrapped engine is not meaningful. After the engine call commits,
// every local failure degrades to a recorded repair rather than an error —
// reporting failure for work the engine already accepted would invite a
// duplicate onboarding.
func (s *OnboardingServiceImpl) Onboard(ctx context.Context, userID uuid.UUID, p model.OnboardParams) (model.OnboardResult, error) {
	if err := validateOnboard(userID, p); err != nil {
		return model.OnboardResult{}, err
	}

	ready, err := s.engine.Ready(ctx)
	if err != nil {
		metrics.OnboardingsTotal.WithLabelValues("not_ready").Inc()
		return model.OnboardResult{}, fmt.Errorf("readiness probe: %w", err)
	}
	if !ready {
		metrics.OnboardingsTotal.WithLabelValues("not_ready").Inc()
		return model.OnboardResult{}, errs.ErrEngineNotReady
	}

	req := costengine.OnboardRequest{
		OrgSlug:     p.Slug,
		CompanyName: p.CompanyName,
		AdminEmail:  p.AdminEmail,
		Plan:        p.Plan,
		Locale:      p.Locale,
	}
	resp, err := s.engine.CreateOrganization(ctx, req)
	if errors.Is(err, errs.ErrAlreadyExists) {
		// Known race left by a prior partial failure: the org is active on the
		// engine but we never recorded its key. Retry once, regenerating, so
		// both sides converge on a single authoritative secret.
		s.log.Info("org already active on engine, regenerating key", zap.String("org", p.Slug))
		req.RegenerateIfExists = true
		resp, err = s.engine.CreateOrganization(ctx, req)
	}
	if err != nil {
		metrics.OnboardingsTotal.WithLabelValues("error").Inc()
		return model.OnboardResult{}, err
	}

	if err := s.secrets.Put(ctx, p.Slug, resp.APIKey); err != nil {
		return model.OnboardResult{}, fmt.Errorf("persist onboarded key: %w", err)
	}
	fp := secrets.Fingerprint(resp.APIKey)

	grant, err := s.reveal.Issue(ctx, p.Slug, userID)
	if err != nil {
		return model.OnboardResult{}, fmt.Errorf("issue reveal token: %w", err)
	}

	deferred := false
	if err := s.recordLocally(ctx, p, fp); err != nil {
		deferred = true
		s.writeCompensation(ctx, p.Slug, fp, err)
	}

	outcome := "ok"
	if deferred {
		outcome = "deferred"
	}
	metrics.OnboardingsTotal.WithLabelValues(outcome).Inc()
	s.log.Info("org onboarded",
		zap.String("org", p.Slug),
		zap.String("fingerprint", fp),
		zap.Bool("deferred", deferred),
	)
	return model.OnboardResult{OrgSlug: p.Slug, Fingerprint: fp, Reveal: grant, Deferred: deferred}, nil
}

// directory write attempts: 3 total, delays 1s then 2s
const directoryRetries = 2

// recordLocally mirrors the onboarded org into the directory with bounded
// exponential backoff.
func (s *OnboardingServiceImpl) recordLocally(ctx context.Context, p model.OnboardParams, fingerprint string) error {
	b := retry.WithMaxRetries(directoryRetries, retry.NewExponential(s.backoffBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := s.directory.UpsertOrganization(ctx, &model.OrgRecord{
			Slug:           p.Slug,
			CompanyName:    p.CompanyName,
			AdminEmail:     p.AdminEmail,
			Plan:           p.Plan,
			Locale:         p.Locale,
			KeyFingerprint: fingerprint,
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// writeCompensation leaves a durable repair record after exhausted retries.
// The record must survive request cancellation: the engine-side state it
// protects is already committed.
func (s *OnboardingServiceImpl) writeCompensation(ctx context.Context, orgSlug, fingerprint string, cause error) {
	rec := &model.CompensationRecord{
		OrgSlug:     orgSlug,
		Fingerprint: fingerprint,
		RetryCount:  directoryRetries + 1,
		LastError:   cause.Error(),
		Status:      "pending",
	}
	if err := s.compensation.Upsert(context.WithoutCancel(ctx), rec); err != nil {
		// worst case: the reconciliation job finds the drift by full scan
		s.log.Error("compensation record write failed",
			zap.String("org", orgSlug), zap.Error(err), zap.NamedError("cause", cause))
		return
	}
	metrics.CompensationRecordsTotal.Inc()
	s.log.Warn("directory write exhausted retries, compensation recorded",
		zap.String("org", orgSlug), zap.Error(cause))
}

func validateOnboard(userID uuid.UUID, p model.OnboardParams) error {
	switch {
	case userID == uuid.Nil:
		return fmt.Errorf("empty user: %w", errs.ErrInvalidInput)
	case !slugRe.MatchString(p.Slug):
		return fmt.Errorf("bad org slug: %w", errs.ErrInvalidInput)
	case !strings.Contains(p.AdminEmail, "@"):
		return fmt.Errorf("bad admin email: %w", errs.ErrInvalidInput)
	case p.CompanyName == "" || p.Plan == "":
		return fmt.Errorf("missing company/plan: %w", errs.ErrInvalidInput)
	}
	return nil
}
