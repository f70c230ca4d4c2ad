package documents

import (
	"strings"
	"time"

	"collateral-backend/internal/approval"
)

// Type classifies a collateral document.
type Type string

const (
	TypeDeed            Type = "deed"
	TypeLienCertificate Type = "lien_certificate"
	TypeAppraisal       Type = "appraisal"
	TypePhoto           Type = "photo"
)

// ParseType normalizes raw input into a Type.
func ParseType(raw string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case TypeDeed, TypeLienCertificate, TypeAppraisal, TypePhoto:
		return t, true
	default:
		return "", false
	}
}

// Document is a file attached to a property and reviewed on its own.
// URL is nil once the backing object is gone.
type Document struct {
	ID         string
	PropertyID *string
	Type       Type
	URL        *string
	Status     approval.Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
