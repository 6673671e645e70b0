package push

import (
	"fmt"
	"strings"
)

type ScopeKind int

const (
	ScopeCID ScopeKind = iota
	ScopeHostGroup
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeCID:
		return "cid"
	case ScopeHostGroup:
		return "hostgroup"
	default:
		return "unknown"
	}
}

// Scope selects which endpoints a run targets: the whole tenant or one host
// group.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// ParseScope validates the scope flag pair before any API call is made.
func ParseScope(kind, id string) (Scope, error) {
	if id == "" {
		return Scope{}, fmt.Errorf("scope_id is required")
	}

	switch strings.ToLower(kind) {
	case "cid":
		return Scope{Kind: ScopeCID, ID: id}, nil
	case "hostgroup":
		return Scope{Kind: ScopeHostGroup, ID: id}, nil
	default:
		return Scope{}, fmt.Errorf("the scope needs to be 'cid' or 'hostgroup', got %q", kind)
	}
}

// MatchesCCID reports whether the scope's CID matches the authenticated
// tenant. The CCID from the sensor-installer endpoint carries a "-XX"
// checksum suffix that the comparison ignores.
func (s Scope) MatchesCCID(ccid string) bool {
	cid := ccid
	if i := strings.LastIndex(ccid, "-"); i > 0 {
		cid = ccid[:i]
	}
	return strings.EqualFold(s.ID, cid)
}
