package repository

import (
	"context"

	"github.com/costwise/keygate/internal/model"
	"github.com/gofrs/uuid/v5"
)

// QueueRepository persists failed billing sync operations for later re-attempt.
type QueueRepository interface {
	// Enqueue appends a new pending entry.
	Enqueue(ctx context.Context, e *model.SyncQueueEntry) error

	// FetchPending claims up to limit oldest pending entries, moving them to
	// processing so concurrent drains do not pick them up twice.
	FetchPending(ctx context.Context, limit int) ([]model.SyncQueueEntry, error)

	// MarkCompleted finalizes an entry. Completed entries never regress.
	MarkCompleted(ctx context.Context, id uuid.UUID) error

	// MarkFailed records a failed re-attempt and increments retry_count.
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error

	// Stats reports queue depth and age for operational visibility.
	Stats(ctx context.Context) (*model.QueueStats, error)
}
