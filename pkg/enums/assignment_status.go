package enums

import "strings"

// AssignmentStatus tracks whether an occupied pallet has been allocated downstream.
// Values other than the two below are set by allocation tooling and pass through untouched.
type AssignmentStatus string

const (
	AssignmentStatusUnassigned    AssignmentStatus = "Unassigned"
	AssignmentStatusNotApplicable AssignmentStatus = "N/A"
)

// ParseAssignmentStatus canonicalises the two known labels and keeps anything else verbatim.
func ParseAssignmentStatus(value string) AssignmentStatus {
	trimmed := strings.TrimSpace(value)
	switch {
	case strings.EqualFold(trimmed, string(AssignmentStatusUnassigned)):
		return AssignmentStatusUnassigned
	case strings.EqualFold(trimmed, string(AssignmentStatusNotApplicable)):
		return AssignmentStatusNotApplicable
	}
	return AssignmentStatus(trimmed)
}
