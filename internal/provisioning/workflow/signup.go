package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
	"github.com/minhvu-dev/provisioner/internal/provisioning/retry"
)

// PlatformAPI is the subset of the platform client the signup workflow uses.
type PlatformAPI interface {
	CreateOrganization(ctx context.Context, payload map[string]any) (*domain.Result, error)
	CreateDomain(ctx context.Context, payload map[string]any) (*domain.Result, error)
	CreateUser(ctx context.Context, payload map[string]any) (*domain.Result, error)
}

// SignupRequest describes a new tenant signup.
type SignupRequest struct {
	SignupID         string // stable per signup; seeds the idempotency keys
	OrganizationName string
	Subdomain        string
	Domain           string
	AdminEmail       string
	AdminName        string
}

// SignupResult holds the provisioned (or adopted) resources.
type SignupResult struct {
	Organization *domain.Result `json:"organization"`
	Domain       *domain.Result `json:"domain"`
	User         *domain.Result `json:"user"`
}

// Signup provisions an organization, its primary domain, and its first admin
// user as three idempotent steps. Each step carries its own idempotency key
// derived from the signup ID, so a retried signup resumes where it stopped
// instead of duplicating resources.
type Signup struct {
	exec *retry.Executor
	api  PlatformAPI
	log  *slog.Logger
}

// NewSignup creates a signup workflow.
func NewSignup(exec *retry.Executor, api PlatformAPI, log *slog.Logger) *Signup {
	if log == nil {
		log = slog.Default()
	}
	return &Signup{exec: exec, api: api, log: log}
}

// Run executes the signup steps in dependency order. Later steps receive the
// organization ID produced (or recovered) by the first.
func (s *Signup) Run(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	if req.SignupID == "" {
		return nil, fmt.Errorf("signup ID is required")
	}

	org, err := s.exec.Execute(ctx, s.createOrganization, stepKey(req.SignupID, "organization"), retry.Input{
		"name":      req.OrganizationName,
		"subdomain": req.Subdomain,
	})
	if err != nil {
		return nil, fmt.Errorf("provision organization: %w", err)
	}
	s.log.Info("organization ready", "signup_id", req.SignupID,
		"organization_id", org.ResourceID, "recovered", org.Recovered())

	dom, err := s.exec.Execute(ctx, s.createDomain, stepKey(req.SignupID, "domain"), retry.Input{
		"name":            req.Domain,
		"organization_id": org.ResourceID,
	})
	if err != nil {
		return nil, fmt.Errorf("provision domain: %w", err)
	}

	user, err := s.exec.Execute(ctx, s.createUser, stepKey(req.SignupID, "user"), retry.Input{
		"email":           req.AdminEmail,
		"name":            req.AdminName,
		"organization_id": org.ResourceID,
		"role":            "admin",
	})
	if err != nil {
		return nil, fmt.Errorf("provision user: %w", err)
	}

	return &SignupResult{Organization: org, Domain: dom, User: user}, nil
}

func (s *Signup) createOrganization(ctx context.Context, input retry.Input, rc *retry.RunContext) (*domain.Result, error) {
	return s.api.CreateOrganization(ctx, payload(input, rc))
}

func (s *Signup) createDomain(ctx context.Context, input retry.Input, rc *retry.RunContext) (*domain.Result, error) {
	return s.api.CreateDomain(ctx, payload(input, rc))
}

func (s *Signup) createUser(ctx context.Context, input retry.Input, rc *retry.RunContext) (*domain.Result, error) {
	return s.api.CreateUser(ctx, payload(input, rc))
}

// payload forwards the input with the idempotency key attached, so the
// platform can apply its own server-side deduplication as well.
func payload(input retry.Input, rc *retry.RunContext) map[string]any {
	out := make(map[string]any, len(input)+1)
	for k, v := range input {
		out[k] = v
	}
	out["idempotency_key"] = rc.IdempotencyKey
	return out
}

func stepKey(signupID, step string) string {
	return fmt.Sprintf("signup:%s:%s", signupID, step)
}
