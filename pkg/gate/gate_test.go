package gate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leadhustle/platform/pkg/billing"
	"github.com/leadhustle/platform/pkg/gate"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	snapshot := func(status billing.Status) *billing.Snapshot {
		return &billing.Snapshot{Active: status.GrantsAccess(), Status: status}
	}

	tests := []struct {
		name          string
		authenticated bool
		snap          *billing.Snapshot
		want          gate.RouteClass
	}{
		{"unauthenticated without snapshot", false, nil, gate.RoutePublic},
		{"unauthenticated with active snapshot", false, snapshot(billing.StatusActive), gate.RoutePublic},
		{"authenticated unresolved is provisionally allowed", true, nil, gate.RouteProtected},
		{"authenticated no subscription", true, snapshot(billing.StatusNoSubscription), gate.RouteTrialGate},
		{"authenticated canceled", true, snapshot(billing.StatusCanceled), gate.RouteTrialGate},
		{"authenticated past_due", true, snapshot(billing.StatusPastDue), gate.RouteTrialGate},
		{"authenticated unpaid", true, snapshot(billing.StatusUnpaid), gate.RouteTrialGate},
		{"authenticated incomplete", true, snapshot(billing.StatusIncomplete), gate.RouteTrialGate},
		{"authenticated trialing", true, snapshot(billing.StatusTrialing), gate.RouteProtected},
		{"authenticated active", true, snapshot(billing.StatusActive), gate.RouteProtected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, gate.Decide(tt.authenticated, tt.snap))
		})
	}
}

func TestRouteClass_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "public", gate.RoutePublic.String())
	assert.Equal(t, "trial_gate", gate.RouteTrialGate.String())
	assert.Equal(t, "protected", gate.RouteProtected.String())
}
