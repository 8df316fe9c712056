package domain

// ConflictType enumerates the resource conflicts the platform reports.
// The set is closed: classification keys off this tag, never off message text.
type ConflictType string

const (
	ConflictNone               ConflictType = ""
	ConflictEmailExists        ConflictType = "email_exists"
	ConflictDomainExists       ConflictType = "domain_exists"
	ConflictSubdomainExists    ConflictType = "subdomain_exists"
	ConflictOrganizationExists ConflictType = "organization_exists"
	ConflictOther              ConflictType = "other"
)

// recoverableConflicts is the closed set of conflict types that can be
// resolved by adopting the existing resource.
var recoverableConflicts = map[ConflictType]bool{
	ConflictEmailExists:        true,
	ConflictDomainExists:       true,
	ConflictSubdomainExists:    true,
	ConflictOrganizationExists: true,
}

// Recoverable reports whether the conflict type is in the auto-resolvable set.
func (t ConflictType) Recoverable() bool {
	return recoverableConflicts[t]
}

// ConflictCause carries the conflict metadata a failing operation attaches to
// its error: what already exists, and where to fetch it.
type ConflictCause struct {
	Type               ConflictType `json:"type"`
	ExistingResourceID string       `json:"existing_resource_id,omitempty"`
	RetrievalEndpoint  string       `json:"retrieval_endpoint,omitempty"`
}

// ConflictDescriptor is the classifier's verdict on a failure.
type ConflictDescriptor struct {
	Type               ConflictType
	ExistingResourceID string
	RetrievalEndpoint  string
}

// CanAutoResolve holds iff the type is recoverable and the descriptor carries
// both the existing-resource ID and a retrieval endpoint.
func (d ConflictDescriptor) CanAutoResolve() bool {
	return d.Type.Recoverable() && d.ExistingResourceID != "" && d.RetrievalEndpoint != ""
}
