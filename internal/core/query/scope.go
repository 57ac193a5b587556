package query

type ScopeKind int

const (
	// ScopeNone is the zero value and matches nothing.
	ScopeNone ScopeKind = iota
	ScopeOwn
	ScopeDepartment
	ScopeAll
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeOwn:
		return "own"
	case ScopeDepartment:
		return "department"
	case ScopeAll:
		return "all"
	default:
		return "none"
	}
}

// Scope is the set of advances a caller may see, expressed over the
// requester: their id, or their department and role.
type Scope struct {
	Kind          ScopeKind
	UserID        int64
	Department    string
	RequesterRole string
}

func Own(userID int64) Scope {
	return Scope{Kind: ScopeOwn, UserID: userID}
}

func Department(department, requesterRole string) Scope {
	return Scope{Kind: ScopeDepartment, Department: department, RequesterRole: requesterRole}
}

func All() Scope {
	return Scope{Kind: ScopeAll}
}
