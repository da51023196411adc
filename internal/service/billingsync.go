package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/costwise/keygate/internal/billing"
	"github.com/costwise/keygate/internal/costengine"
	"github.com/costwise/keygate/internal/errs"
	"github.com/costwise/keygate/internal/metrics"
	"github.com/costwise/keygate/internal/model"
	"github.com/costwise/keygate/internal/repository"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// syncTypeLimits is the only sync type currently queued.
const syncTypeLimits = "limits"

// BillingSyncService pushes subscription limits to the engine and owns the
// retry queue for pushes that failed. The request path only enqueues; the
// batch drain is the single place re-attempts happen.
type BillingSyncService interface {
	// SyncNow pushes the snapshot immediately. On push failure the snapshot is
	// queued for the drain and queued=true is returned; sync failure never
	// propagates to the caller's own operation.
	SyncNow(ctx context.Context, orgSlug string, snap model.BillingSnapshot) (queued bool, err error)
	// Drain re-attempts up to limit oldest pending entries, isolating each.
	Drain(ctx context.Context, limit int) (model.DrainReport, error)
	// Stats reports queue depth and age.
	Stats(ctx context.Context) (*model.QueueStats, error)
}

type BillingSyncImpl struct {
	queue  repository.QueueRepository
	engine EngineClient
	log    *zap.Logger
}

// NewBillingSyncService constructs BillingSyncService.
func NewBillingSyncService(queue repository.QueueRepository, engine EngineClient, log *zap.Logger) *BillingSyncImpl {
	return &BillingSyncImpl{queue: queue, engine: engine, log: log}
}

// SyncNow pushes limits, falling back to the queue on failure.
func (s *BillingSyncImpl) SyncNow(ctx context.Context, orgSlug string, snap model.BillingSnapshot) (bool, error) {
	if orgSlug == "" {
		return false, fmt.Errorf("empty org: %w", errs.ErrInvalidInput)
	}
	if err := s.push(ctx, orgSlug, snap); err != nil {
		s.enqueue(ctx, orgSlug, snap, err)
		return true, nil
	}
	return false, nil
}

// enqueue appends the failed push. The append itself is best-effort: a broken
// queue must not take the caller's operation down with it.
func (s *BillingSyncImpl) enqueue(ctx context.Context, orgSlug string, snap model.BillingSnapshot, cause error) {
	id, err := uuid.NewV4()
	if err != nil {
		s.log.Error("sync enqueue failed", zap.String("org", orgSlug), zap.Error(err))
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		s.log.Error("sync enqueue failed", zap.String("org", orgSlug), zap.Error(err))
		return
	}
	e := &model.SyncQueueEntry{
		ID:           id,
		OrgSlug:      orgSlug,
		SyncType:     syncTypeLimits,
		Payload:      payload,
		ErrorMessage: cause.Error(),
	}
	if err := s.queue.Enqueue(ctx, e); err != nil {
		s.log.Error("sync enqueue failed",
			zap.String("org", orgSlug), zap.Error(err), zap.NamedError("cause", cause))
		return
	}
	s.log.Warn("limits push failed, queued for retry",
		zap.String("org", orgSlug), zap.Stringer("entry", id), zap.Error(cause))
}

// Drain re-attempts pending entries. Failures are marked, never re-enqueued
// (the entry stays addressable as failed instead of looping), and one entry's
// panic or error does not stop the rest of the batch.
func (s *BillingSyncImpl) Drain(ctx context.Context, limit int) (model.DrainReport, error) {
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.queue.FetchPending(ctx, limit)
	if err != nil {
		return model.DrainReport{}, err
	}

	var rep model.DrainReport
	for i := range entries {
		e := &entries[i]
		rep.Processed++
		if perr := s.processEntry(ctx, e); perr != nil {
			rep.Failed++
			rep.Errors = append(rep.Errors, fmt.Sprintf("%s: %v", e.ID, perr))
			metrics.SyncDrainTotal.WithLabelValues("failed").Inc()
			if merr := s.queue.MarkFailed(ctx, e.ID, perr.Error()); merr != nil {
				s.log.Error("mark failed", zap.Stringer("entry", e.ID), zap.Error(merr))
			}
			continue
		}
		rep.Succeeded++
		metrics.SyncDrainTotal.WithLabelValues("completed").Inc()
		if merr := s.queue.MarkCompleted(ctx, e.ID); merr != nil {
			s.log.Error("mark completed", zap.Stringer("entry", e.ID), zap.Error(merr))
		}
	}
	s.log.Info("sync queue drained",
		zap.Int("processed", rep.Processed),
		zap.Int("succeeded", rep.Succeeded),
		zap.Int("failed", rep.Failed),
	)
	return rep, nil
}

// processEntry re-attempts a single entry, converting panics into errors so
// the batch keeps going.
func (s *BillingSyncImpl) processEntry(ctx context.Context, e *model.SyncQueueEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if e.SyncType != syncTypeLimits {
		return fmt.Errorf("unknown sync type %q", e.SyncType)
	}
	var snap model.BillingSnapshot
	if err := json.Unmarshal(e.Payload, &snap); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return s.push(ctx, e.OrgSlug, snap)
}

// push translates the local billing vocabulary and updates engine limits.
func (s *BillingSyncImpl) push(ctx context.Context, orgSlug string, snap model.BillingSnapshot) error {
	lim := costengine.Limits{
		Plan:         billing.MapPlan(snap.Plan),
		Status:       string(billing.MapStatus(snap.Status)),
		MonthlyQuota: snap.MonthlyQuota,
		Seats:        snap.Seats,
	}
	return s.engine.UpdateLimits(ctx, orgSlug, lim)
}

// Stats reports queue depth and age.
func (s *BillingSyncImpl) Stats(ctx context.Context) (*model.QueueStats, error) {
	return s.queue.Stats(ctx)
}
