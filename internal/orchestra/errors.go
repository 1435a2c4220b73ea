// Package orchestra holds the small typed-error taxonomy shared across the
// Phase Orchestrator and Session Driver (spec.md §7), grounded on
// andymwolf-agentium/internal/controller's sentinel-error style
// (errSecretNotFound, errTokenRefreshFailed and similar in controller.go).
package orchestra

import "errors"

// ProviderError wraps an adapter-level failure absorbed by the Fallback
// Chain. It is not expected to surface past internal/fallback; kept here so
// callers above the chain can still recognize the kind if a log or
// checkpoint needs to report it.
type ProviderError struct {
	Kind string // RATE_LIMIT, CONTEXT_EXCEEDED, TIMEOUT, API_ERROR
	Err  error
}

func (e *ProviderError) Error() string { return e.Kind + ": " + e.Err.Error() }
func (e *ProviderError) Unwrap() error { return e.Err }

// Sentinel errors for the remaining taxonomy entries in spec.md §7.
// ExhaustedProviders, PlanMissing, and StateCorrupted are returned to the
// Session Driver; UserCancelled is returned together with the cancelled
// session, and the Driver folds it into a cancelled Outcome.
// AuditUnrecoverable and ValidationFailed are driven through state-machine
// transitions instead of being returned as errors, but are named here so
// every taxonomy entry has one identifiable Go value.
var (
	ErrExhaustedProviders = errors.New("orchestra: all providers exhausted for role")
	ErrPlanMissing        = errors.New("orchestra: architect reported success but left no plan file")
	ErrAuditUnrecoverable = errors.New("orchestra: repeated NEEDS_WORK verdicts at iteration cap")
	ErrValidationFailed   = errors.New("orchestra: validator rejected generated file")
	ErrStateCorrupted     = errors.New("orchestra: session file failed schema check")
	ErrUserCancelled      = errors.New("orchestra: session cancelled")
)
