package eligibility

import (
	"strings"

	"cmms/internal/roster"
)

// Attendee is the snapshot of a roster member that eligibility rules read.
// AgeAtStart is nil when the club never recorded an age; an unknown age can
// never prove a minimum-age requirement.
type Attendee struct {
	AgeAtStart          *int
	MemberRole          roster.MemberRole
	MasterGuide         bool
	CompletedHonorCodes []string
}

// Evaluation is the outcome of checking one attendee against one catalog
// item's requirements. Blockers holds one label per failing requirement so
// callers can display every blocking reason at once.
type Evaluation struct {
	Eligible bool
	Blockers []string
}

// NormalizeHonorCode canonicalizes an honor code for comparison. Sign-off and
// requirement rows come from different data-entry paths, so matching must be
// case- and whitespace-insensitive.
func NormalizeHonorCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Evaluate checks every requirement in order and collects a blocker label for
// each failure. It never short-circuits: a caller showing "why can't this
// member enroll" needs the complete list. Requirements combine with AND
// semantics; an unrecognized kind always fails rather than silently passing.
func Evaluate(attendee Attendee, requirements []Requirement) Evaluation {
	completed := make(map[string]struct{}, len(attendee.CompletedHonorCodes))
	for _, code := range attendee.CompletedHonorCodes {
		completed[NormalizeHonorCode(code)] = struct{}{}
	}

	var blockers []string
	for _, req := range requirements {
		switch req.Kind {
		case KindMinAge:
			if req.MinAge != nil && (attendee.AgeAtStart == nil || *attendee.AgeAtStart < *req.MinAge) {
				blockers = append(blockers, req.BadgeLabel())
			}
		case KindMaxAge:
			if req.MaxAge != nil && attendee.AgeAtStart != nil && *attendee.AgeAtStart > *req.MaxAge {
				blockers = append(blockers, req.BadgeLabel())
			}
		case KindMemberRole:
			if req.RequiredMemberRole != nil && attendee.MemberRole != *req.RequiredMemberRole {
				blockers = append(blockers, req.BadgeLabel())
			}
		case KindCompletedHonor:
			if req.RequiredHonorCode != nil {
				if _, ok := completed[NormalizeHonorCode(*req.RequiredHonorCode)]; !ok {
					blockers = append(blockers, req.BadgeLabel())
				}
			}
		case KindMasterGuide:
			if req.RequiredMasterGuide != nil && *req.RequiredMasterGuide && !attendee.MasterGuide {
				blockers = append(blockers, req.BadgeLabel())
			}
		default:
			blockers = append(blockers, "Requirement applies")
		}
	}

	return Evaluation{
		Eligible: len(blockers) == 0,
		Blockers: blockers,
	}
}
