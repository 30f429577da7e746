// Package eligibility decides whether a roster member may take a class or
// honor. Evaluation is a pure function over an attendee snapshot and the
// catalog item's requirement rows; it performs no I/O so both the enrollment
// transaction and the advisory UI views share the same logic.
package eligibility

import (
	"fmt"

	"cmms/internal/roster"
)

// RequirementKind discriminates the rule a requirement row encodes.
type RequirementKind string

const (
	KindMinAge         RequirementKind = "MIN_AGE"
	KindMaxAge         RequirementKind = "MAX_AGE"
	KindMemberRole     RequirementKind = "MEMBER_ROLE"
	KindCompletedHonor RequirementKind = "COMPLETED_HONOR"
	KindMasterGuide    RequirementKind = "MASTER_GUIDE"
)

// Requirement is a single eligibility rule attached to a catalog item. Only
// the fields relevant to its Kind are set; the rest stay nil.
type Requirement struct {
	Kind                RequirementKind
	MinAge              *int
	MaxAge              *int
	RequiredMemberRole  *roster.MemberRole
	RequiredHonorCode   *string
	RequiredMasterGuide *bool
}

// BadgeLabel renders the requirement as the short human-readable label used
// both for catalog badges and for blocker messages.
func (r Requirement) BadgeLabel() string {
	switch r.Kind {
	case KindMinAge:
		if r.MinAge != nil {
			return fmt.Sprintf("Requires Age %d+", *r.MinAge)
		}
		return "Minimum age required"
	case KindMaxAge:
		if r.MaxAge != nil {
			return fmt.Sprintf("Max Age %d", *r.MaxAge)
		}
		return "Maximum age restriction"
	case KindMemberRole:
		if r.RequiredMemberRole != nil {
			return fmt.Sprintf("Requires %s Role", r.RequiredMemberRole.DisplayLabel())
		}
		return "Specific member role required"
	case KindCompletedHonor:
		if r.RequiredHonorCode != nil {
			return fmt.Sprintf("Requires Honor %s", *r.RequiredHonorCode)
		}
		return "Completed honor required"
	case KindMasterGuide:
		if r.RequiredMasterGuide != nil && *r.RequiredMasterGuide {
			return "Requires Master Guide"
		}
		return "Master Guide restriction"
	default:
		return "Requirement applies"
	}
}
