package conflict

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
)

func TestClassify_TaggedConflict(t *testing.T) {
	c := NewClassifier()

	err := &domain.SetupError{
		Op:          "create_user",
		Recoverable: true,
		Conflict: &domain.ConflictCause{
			Type:               domain.ConflictEmailExists,
			ExistingResourceID: "usr_7",
			RetrievalEndpoint:  "/v1/users/usr_7",
		},
	}

	desc := c.Classify(err)
	if desc.Type != domain.ConflictEmailExists {
		t.Errorf("Type = %q, expected email_exists", desc.Type)
	}
	if !desc.CanAutoResolve() {
		t.Error("expected descriptor to be auto-resolvable")
	}
}

func TestClassify_WrappedError(t *testing.T) {
	c := NewClassifier()

	inner := &domain.SetupError{
		Recoverable: true,
		Conflict: &domain.ConflictCause{
			Type:               domain.ConflictDomainExists,
			ExistingResourceID: "dom_1",
			RetrievalEndpoint:  "/v1/domains/dom_1",
		},
	}
	wrapped := fmt.Errorf("provision domain: %w", inner)

	desc := c.Classify(wrapped)
	if desc.Type != domain.ConflictDomainExists {
		t.Errorf("Type = %q, expected domain_exists through wrapping", desc.Type)
	}
}

func TestClassify_NonDomainError(t *testing.T) {
	c := NewClassifier()
	desc := c.Classify(errors.New("connection reset"))
	if desc.Type != domain.ConflictNone {
		t.Errorf("Type = %q, expected none", desc.Type)
	}
	if desc.CanAutoResolve() {
		t.Error("non-domain error must not auto-resolve")
	}
}

func TestCanAutoResolve_MissingMetadata(t *testing.T) {
	cases := []struct {
		name string
		desc domain.ConflictDescriptor
	}{
		{"no resource id", domain.ConflictDescriptor{Type: domain.ConflictEmailExists, RetrievalEndpoint: "/v1/users/usr_1"}},
		{"no endpoint", domain.ConflictDescriptor{Type: domain.ConflictEmailExists, ExistingResourceID: "usr_1"}},
		{"unrecoverable type", domain.ConflictDescriptor{Type: domain.ConflictOther, ExistingResourceID: "x", RetrievalEndpoint: "/v1/x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.desc.CanAutoResolve() {
				t.Error("expected not auto-resolvable")
			}
		})
	}
}
