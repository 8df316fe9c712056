package conflict

import (
	"context"
	"log/slog"
	"time"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
	"github.com/minhvu-dev/provisioner/internal/provisioning/metrics"
)

// Fetcher performs a read-only fetch of an existing resource.
type Fetcher interface {
	FetchResource(ctx context.Context, endpoint string) (map[string]any, error)
}

// strategy describes how one conflict type is recovered.
type strategy struct {
	recoveryType string
	// scopeField must agree between the original input and the fetched
	// resource; empty means no scope check for this type.
	scopeField string
}

// strategies is the closed recovery table. Conflict types without an entry
// are never auto-resolved.
var strategies = map[domain.ConflictType]strategy{
	domain.ConflictEmailExists:        {recoveryType: "user_recovered", scopeField: "organization_id"},
	domain.ConflictDomainExists:       {recoveryType: "domain_recovered", scopeField: "organization_id"},
	domain.ConflictSubdomainExists:    {recoveryType: "subdomain_recovered", scopeField: "organization_id"},
	domain.ConflictOrganizationExists: {recoveryType: "organization_recovered"},
}

// Resolver recovers from classified conflicts by adopting the existing
// resource. Resolution failures are swallowed and logged: a nil return tells
// the orchestrator to continue its normal retry path, keeping the original
// conflict visible instead of a resolver-internal error.
type Resolver struct {
	fetcher Fetcher
	log     *slog.Logger
	now     func() time.Time
}

// NewResolver creates a new conflict resolver.
func NewResolver(fetcher Fetcher, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{fetcher: fetcher, log: log, now: time.Now}
}

// Resolve fetches the existing resource and synthesizes a result equivalent
// to a successful create. Returns nil when the conflict cannot be resolved.
func (r *Resolver) Resolve(ctx context.Context, desc domain.ConflictDescriptor, input map[string]any) *domain.Result {
	if !desc.CanAutoResolve() {
		return nil
	}
	strat, ok := strategies[desc.Type]
	if !ok {
		return nil
	}

	resource, err := r.fetcher.FetchResource(ctx, desc.RetrievalEndpoint)
	if err != nil {
		r.log.Warn("conflict recovery fetch failed",
			"type", desc.Type, "resource_id", desc.ExistingResourceID, "error", err)
		return nil
	}

	if !scopeMatches(strat.scopeField, input, resource) {
		// The existing resource belongs to a different scope; reusing it
		// would silently attach the caller to an unrelated resource.
		r.log.Warn("conflict recovery scope mismatch",
			"type", desc.Type, "resource_id", desc.ExistingResourceID)
		return nil
	}

	resourceID := desc.ExistingResourceID
	if id, ok := resource["id"].(string); ok && id != "" {
		resourceID = id
	}

	now := r.now()
	metrics.ConflictsRecovered.WithLabelValues(string(desc.Type)).Inc()
	r.log.Info("conflict resolved by adopting existing resource",
		"type", desc.Type, "resource_id", resourceID, "recovery_type", strat.recoveryType)

	return &domain.Result{
		ResourceID:   resourceID,
		Data:         resource,
		RecoveryType: strat.recoveryType,
		RecoveredAt:  &now,
	}
}

func scopeMatches(field string, input, resource map[string]any) bool {
	if field == "" {
		return true
	}
	want, ok1 := input[field].(string)
	got, ok2 := resource[field].(string)
	if !ok1 || !ok2 || want == "" || got == "" {
		// Missing scope on either side is not evidence of a mismatch.
		return true
	}
	return want == got
}
