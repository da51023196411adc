package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/costwise/keygate/internal/errs"
	"github.com/costwise/keygate/internal/model"
	"github.com/gofrs/uuid/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func TestQueueRepo_Enqueue(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQueueRepo(db)

	id := uuid.Must(uuid.NewV4())
	payload := []byte(`{"plan":"starter","status":"active"}`)
	mock.ExpectExec(`INSERT INTO billing_sync_queue`).
		WithArgs(id, "acme", "org_42", "limits", payload, "push failed: timeout").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := r.Enqueue(context.Background(), &model.SyncQueueEntry{
		ID:           id,
		OrgSlug:      "acme",
		OrgID:        "org_42",
		SyncType:     "limits",
		Payload:      payload,
		ErrorMessage: "push failed: timeout",
	})
	require.NoError(t, err)
}

func TestQueueRepo_FetchPending(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQueueRepo(db)

	id1 := uuid.Must(uuid.NewV4())
	id2 := uuid.Must(uuid.NewV4())
	ts := time.Now().Add(-time.Hour)

	rows := pgxmock.NewRows([]string{"id", "org_slug", "org_id", "sync_type", "payload", "error_message", "retry_count", "created_at"}).
		AddRow(id1, "acme", "org_42", "limits", []byte(`{}`), "", 0, ts).
		AddRow(id2, "globex", "org_43", "limits", []byte(`{}`), "boom", 2, ts.Add(time.Minute))

	mock.ExpectQuery(`UPDATE billing_sync_queue SET status='processing'`).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := r.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, id1, got[0].ID)
	require.Equal(t, model.SyncProcessing, got[0].Status)
	require.Equal(t, 2, got[1].RetryCount)
}

func TestQueueRepo_FetchPending_Empty(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQueueRepo(db)

	mock.ExpectQuery(`UPDATE billing_sync_queue SET status='processing'`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "org_slug", "org_id", "sync_type", "payload", "error_message", "retry_count", "created_at"}))

	got, err := r.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestQueueRepo_MarkCompleted(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQueueRepo(db)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`UPDATE billing_sync_queue SET status='completed'`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, r.MarkCompleted(context.Background(), id))
}

func TestQueueRepo_MarkCompleted_AlreadyCompleted(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQueueRepo(db)

	// the status guard filters the row out, zero rows affected
	id := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`UPDATE billing_sync_queue SET status='completed'`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, r.MarkCompleted(context.Background(), id), errs.ErrNotFound)
}

func TestQueueRepo_MarkFailed(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQueueRepo(db)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`UPDATE billing_sync_queue SET status='failed'`).
		WithArgs(id, "engine unavailable").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, r.MarkFailed(context.Background(), id, "engine unavailable"))
}

func TestQueueRepo_MarkFailed_CompletedEntryUntouched(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQueueRepo(db)

	id := uuid.Must(uuid.NewV4())
	mock.ExpectExec(`UPDATE billing_sync_queue SET status='failed'`).
		WithArgs(id, "late failure").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.ErrorIs(t, r.MarkFailed(context.Background(), id, "late failure"), errs.ErrNotFound)
}

func TestQueueRepo_Stats(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQueueRepo(db)

	oldest := time.Now().Add(-2 * time.Hour)
	mock.ExpectQuery(`SELECT\s+COUNT\(\*\) FILTER`).
		WillReturnRows(pgxmock.NewRows([]string{"pending", "processing", "failed", "completed_today", "oldest_pending"}).
			AddRow(int64(5), int64(1), int64(2), int64(17), &oldest))

	st, err := r.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(5), st.Pending)
	require.Equal(t, int64(1), st.Processing)
	require.Equal(t, int64(2), st.Failed)
	require.Equal(t, int64(17), st.CompletedToday)
	require.NotNil(t, st.OldestPending)
	require.WithinDuration(t, oldest, *st.OldestPending, time.Second)
}

func TestQueueRepo_Stats_EmptyQueue(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewQueueRepo(db)

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\) FILTER`).
		WillReturnRows(pgxmock.NewRows([]string{"pending", "processing", "failed", "completed_today", "oldest_pending"}).
			AddRow(int64(0), int64(0), int64(0), int64(0), (*time.Time)(nil)))

	st, err := r.Stats(context.Background())
	require.NoError(t, err)
	require.Zero(t, st.Pending)
	require.Nil(t, st.OldestPending)
}
