package domain

import "time"

// Result is the payload produced by a completed setup operation, either
// returned by the operation itself or synthesized by conflict recovery.
// It is immutable once returned; ownership transfers to the caller.
type Result struct {
	ResourceID string         `json:"resource_id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`

	// RecoveryType and RecoveredAt are set only when the result was
	// synthesized by adopting a pre-existing resource.
	RecoveryType string     `json:"recovery_type,omitempty"`
	RecoveredAt  *time.Time `json:"recovered_at,omitempty"`
}

// Recovered reports whether the result was synthesized by conflict recovery
// rather than produced by a fresh create.
func (r *Result) Recovered() bool {
	return r != nil && r.RecoveryType != ""
}
