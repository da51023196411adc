// Package billing translates local billing vocabulary into the cost engine's.
//
// Both mappings are total functions: any value outside the known set maps to
// the most conservative engine state rather than passing through unchecked.
package billing

import "strings"

// Status is the local subscription status vocabulary (as emitted by the
// billing provider's webhooks).
type Status string

// Known local statuses.
const (
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusIncomplete        Status = "incomplete"
	StatusPaused            Status = "paused"
	StatusUnpaid            Status = "unpaid"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusCanceled          Status = "canceled"
	StatusCancelled         Status = "cancelled"
)

// EngineStatus is the cost engine's account state vocabulary.
type EngineStatus string

// Engine account states.
const (
	EngineTrial     EngineStatus = "TRIAL"
	EngineActive    EngineStatus = "ACTIVE"
	EngineSuspended EngineStatus = "SUSPENDED"
	EngineExpired   EngineStatus = "EXPIRED"
	EngineCancelled EngineStatus = "CANCELLED"
)

// Plans the engine recognizes by name.
var knownPlans = map[string]struct{}{
	"starter":      {},
	"professional": {},
	"scale":        {},
	"enterprise":   {},
}

// MapStatus translates a local subscription status into an engine account
// state. Unrecognized values map to SUSPENDED: an unknown billing state must
// block usage, never allow it.
func MapStatus(s string) EngineStatus {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusTrialing:
		return EngineTrial
	case StatusActive:
		return EngineActive
	case StatusPastDue, StatusIncomplete, StatusPaused, StatusUnpaid:
		return EngineSuspended
	case StatusIncompleteExpired:
		return EngineExpired
	case StatusCanceled, StatusCancelled:
		return EngineCancelled
	}
	return EngineSuspended
}

// MapPlan translates a local plan name into the engine's upper-case plan
// identifier. Unrecognized plans pass through upper-cased so new plans do not
// require a deploy here.
func MapPlan(p string) string {
	name := strings.ToLower(strings.TrimSpace(p))
	if _, ok := knownPlans[name]; ok {
		return strings.ToUpper(name)
	}
	return strings.ToUpper(strings.TrimSpace(p))
}
