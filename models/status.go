package models

import "fmt"

// Status is the review state of a submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusGenerated Status = "generated"
)

// adminTransitions lists the moves an admin may make by hand. Generated is
// reached only through document generation.
var adminTransitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected},
	StatusApproved:  {StatusRejected, StatusPending},
	StatusRejected:  {StatusApproved, StatusPending},
	StatusGenerated: {StatusApproved, StatusRejected},
}

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected, StatusGenerated:
		return st, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// CanTransition reports whether an admin may move a submission from s to next.
// Re-applying the current status is always allowed.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	for _, allowed := range adminTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Generatable reports whether a document may be built from a submission in this state.
func (s Status) Generatable() bool {
	return s == StatusApproved || s == StatusGenerated
}
