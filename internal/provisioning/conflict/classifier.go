package conflict

import (
	"errors"

	"github.com/minhvu-dev/provisioner/internal/core/domain"
	"github.com/minhvu-dev/provisioner/internal/provisioning/metrics"
)

// Classifier inspects a failure and determines whether it is a known
// resource conflict. Classification keys off the conflict tag the failing
// operation attached to its error; message text is never inspected.
type Classifier struct{}

// NewClassifier creates a new conflict classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify returns the conflict descriptor for the error. Errors outside the
// domain contract, or without a conflict cause, yield a ConflictNone
// descriptor that can never auto-resolve.
func (c *Classifier) Classify(err error) domain.ConflictDescriptor {
	var serr *domain.SetupError
	if !errors.As(err, &serr) || serr.Conflict == nil {
		return domain.ConflictDescriptor{Type: domain.ConflictNone}
	}

	cause := serr.Conflict
	metrics.ConflictsDetected.WithLabelValues(string(cause.Type)).Inc()

	return domain.ConflictDescriptor{
		Type:               cause.Type,
		ExistingResourceID: cause.ExistingResourceID,
		RetrievalEndpoint:  cause.RetrievalEndpoint,
	}
}
