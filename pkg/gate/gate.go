package gate

import "github.com/leadhustle/platform/pkg/billing"

// RouteClass is the set of routes an account may reach.
type RouteClass int

const (
	// RoutePublic allows marketing pages and sign-in only.
	RoutePublic RouteClass = iota
	// RouteTrialGate allows the subscribe/upsell flow in addition to public
	// pages, but not the dashboard.
	RouteTrialGate
	// RouteProtected allows the full dashboard.
	RouteProtected
)

func (c RouteClass) String() string {
	switch c {
	case RoutePublic:
		return "public"
	case RouteTrialGate:
		return "trial_gate"
	case RouteProtected:
		return "protected"
	default:
		return "unknown"
	}
}

// Decide returns the route class for a session. Pure function, no I/O.
//
// A nil snapshot means "not yet resolved", which is distinct from "resolved
// to no subscription": an authenticated session with an in-flight resolution
// is provisionally allowed through rather than blocked, favoring
// availability; the next resolution corrects it.
func Decide(authenticated bool, snap *billing.Snapshot) RouteClass {
	if !authenticated {
		return RoutePublic
	}
	if snap == nil {
		return RouteProtected
	}
	if !snap.Active {
		return RouteTrialGate
	}
	return RouteProtected
}
