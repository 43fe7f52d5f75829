package model

type AssignStatus int

const (
	// StatusNotFound: the message id does not exist in the store.
	StatusNotFound AssignStatus = iota
	// StatusNoCandidates: no department cleared the similarity threshold.
	StatusNoCandidates
	// StatusGeneralChat: the agent answered without invoking the
	// assignment tool.
	StatusGeneralChat
	// StatusAssigned: at least one assignment row was written.
	StatusAssigned
)

func (s AssignStatus) String() string {
	switch s {
	case StatusNotFound:
		return "not_found"
	case StatusNoCandidates:
		return "no_candidates"
	case StatusGeneralChat:
		return "general_chat"
	case StatusAssigned:
		return "assigned"
	}
	return "unknown"
}

// Code maps the status onto the webhook result convention: 1 for a
// completed assignment, 0 for every early exit.
func (s AssignStatus) Code() int {
	if s == StatusAssigned {
		return 1
	}
	return 0
}

type AssignResult struct {
	Status  AssignStatus `json:"status"`
	DeptIDs []string     `json:"dept_ids,omitempty"`
	Reply   string       `json:"reply,omitempty"`
}
