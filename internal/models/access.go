package models

// Capabilities is the set of actions a requester may take on one ticket.
// All role checks against a ticket go through ComputeCapabilities so the
// rules live in exactly one place.
type Capabilities struct {
	CanRead          bool
	CanWriteBasic    bool // subject, description, category, tags, due date
	CanWriteWorkflow bool // status, priority, assignee
	CanDelete        bool
}

func ComputeCapabilities(requester AuthUser, t *Ticket) Capabilities {
	isOwner := t.CreatedBy == requester.ID
	isAssigned := t.IsAssignedTo(requester.ID)
	isStaff := requester.Role.IsStaff()

	canRead := isOwner || isAssigned || isStaff

	return Capabilities{
		CanRead: canRead,
		// Any reader may rewrite the basic fields. Deliberately as broad as
		// the read rule; see DESIGN.md.
		CanWriteBasic:    canRead,
		CanWriteWorkflow: isStaff || isAssigned,
		CanDelete:        requester.Role == RoleAdmin,
	}
}

// CanPostInternal reports whether the requester may mark a comment internal.
func CanPostInternal(requester AuthUser) bool {
	return requester.Role.IsStaff()
}
