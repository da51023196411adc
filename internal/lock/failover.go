package lock

import (
	"context"
	"errors"

	"github.com/costwise/keygate/internal/errs"
	"github.com/costwise/keygate/internal/metrics"
	"go.uber.org/zap"
)

// Failover prefers the durable locker and falls back to the in-process one
// only when the durable store itself is unreachable. Busy is not a failure:
// it propagates without consulting the fallback, otherwise two instances
// could both "win" their local maps.
type Failover struct {
	primary  Locker
	fallback Locker
	log      *zap.Logger
}

// NewFailover wires a durable locker with its degraded fallback.
func NewFailover(primary, fallback Locker, log *zap.Logger) *Failover {
	return &Failover{primary: primary, fallback: fallback, log: log}
}

// Acquire tries the durable locker first.
func (f *Failover) Acquire(ctx context.Context, orgSlug string) (Handle, error) {
	h, err := f.primary.Acquire(ctx, orgSlug)
	if err == nil || errors.Is(err, errs.ErrLockBusy) {
		return h, err
	}
	f.log.Warn("durable lock store unreachable, using in-process lock (single-instance guarantee only)",
		zap.String("org", orgSlug),
		zap.Error(err),
	)
	metrics.DegradedLockAcquisitions.Inc()
	return f.fallback.Acquire(ctx, orgSlug)
}

// Release routes to whichever locker granted the handle.
func (f *Failover) Release(ctx context.Context, h Handle) error {
	if h.InMemory {
		return f.fallback.Release(ctx, h)
	}
	return f.primary.Release(ctx, h)
}
