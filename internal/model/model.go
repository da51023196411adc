// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// SecretRecord is the per-organization cost engine API key. At most one per org.
// The secret value never appears in any client-reachable response.
type SecretRecord struct {
	OrgSlug   string
	Secret    string
	UpdatedAt time.Time
}

// RevealToken grants one-time access to a stored secret. Write-once, read-once.
type RevealToken struct {
	Token     string // high-entropy, unique
	OrgSlug   string
	UserID    uuid.UUID
	ExpiresAt time.Time
}

// RevealGrant is what callers receive instead of the raw secret.
type RevealGrant struct {
	Token     string
	ExpiresAt time.Time
}

// SyncStatus is the lifecycle state of a billing sync queue entry.
type SyncStatus string

// Queue entry states. Completed entries never regress.
const (
	SyncPending    SyncStatus = "pending"
	SyncProcessing SyncStatus = "processing"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
)

// SyncQueueEntry is one failed "push limits to the engine" operation awaiting retry.
type SyncQueueEntry struct {
	ID           uuid.UUID
	OrgSlug      string
	OrgID        string // optional upstream identifier, may be empty
	SyncType     string
	Payload      []byte // JSON-encoded BillingSnapshot
	ErrorMessage string
	Status       SyncStatus
	RetryCount   int
	CreatedAt    time.Time
}

// QueueStats is an operational snapshot of the billing sync queue.
type QueueStats struct {
	Pending        int64
	Processing     int64
	Failed         int64
	CompletedToday int64
	OldestPending  *time.Time
}

// BillingSnapshot carries the local billing state pushed to the cost engine.
// Plan and Status use the local vocabulary; translation happens at push time.
type BillingSnapshot struct {
	Plan         string `json:"plan"`
	Status       string `json:"status"`
	MonthlyQuota int64  `json:"monthly_quota"`
	Seats        int    `json:"seats"`
}

// CompensationRecord marks an engine-side success whose local mirroring write
// exhausted its retries. It exists so the committed engine state is never lost;
// an out-of-band reconciliation job consumes and clears it.
type CompensationRecord struct {
	OrgSlug     string
	Fingerprint string
	RetryCount  int
	LastError   string
	Status      string
	CreatedAt   time.Time
}

// OrgRecord is the local system-of-record row mirroring an onboarded organization.
type OrgRecord struct {
	Slug           string
	CompanyName    string
	AdminEmail     string
	Plan           string
	Locale         string
	KeyFingerprint string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OnboardParams is the input to onboarding.
type OnboardParams struct {
	Slug        string
	CompanyName string
	AdminEmail  string
	Plan        string
	Locale      string
}

// OnboardResult reports a completed onboarding. Deferred is set when the local
// directory write failed and a compensation record was left for repair; the
// onboarding itself still succeeded.
type OnboardResult struct {
	OrgSlug     string
	Fingerprint string
	Reveal      RevealGrant
	Deferred    bool
}

// RotateResult reports a completed key rotation.
type RotateResult struct {
	OrgSlug     string
	Fingerprint string
	Reveal      RevealGrant
}

// KeyStatus reports whether the stored key is still accepted by the engine.
type KeyStatus struct {
	Fingerprint string
	Valid       bool
}

// DrainReport summarizes one batch drain of the sync queue.
type DrainReport struct {
	Processed int
	Succeeded int
	Failed    int
	Errors    []string
}
