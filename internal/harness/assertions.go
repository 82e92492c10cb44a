package harness

import (
	"context"
	"fmt"

	"github.com/chainlog/chainlog/internal/ledger"
	"github.com/chainlog/chainlog/internal/store"
)

// EvaluateAssertions checks each assertion against the final ledger and
// returns one message per failed assertion. An empty slice means all
// assertions passed.
func EvaluateAssertions(ctx context.Context, st *store.Store, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if msg := evaluateAssertion(ctx, st, i, a); msg != "" {
			failures = append(failures, msg)
		}
	}
	return failures
}

func evaluateAssertion(ctx context.Context, st *store.Store, index int, a Assertion) string {
	switch a.Type {
	case AssertReplayOrder:
		return assertNames(ctx, st, index, ledger.Filter{}, a.Names)
	case AssertStreamEvents:
		return assertNames(ctx, st, index, ledger.Filter{Entity: a.Entity, EntityKey: a.Key}, a.Names)
	case AssertStreamCount:
		events, err := st.Replay(ctx, ledger.Filter{Entity: a.Entity, EntityKey: a.Key})
		if err != nil {
			return fmt.Sprintf("assertions[%d]: replay failed: %v", index, err)
		}
		if len(events) != a.Count {
			return fmt.Sprintf("assertions[%d]: stream %s/%s has %d event(s), want %d",
				index, a.Entity, a.Key, len(events), a.Count)
		}
	case AssertTailIs:
		tail, ok, err := st.LatestEventID(ctx, a.Entity, a.Key)
		if err != nil {
			return fmt.Sprintf("assertions[%d]: tail lookup failed: %v", index, err)
		}
		if !ok {
			return fmt.Sprintf("assertions[%d]: stream %s/%s is empty, want tail %s",
				index, a.Entity, a.Key, a.EventID)
		}
		if tail != a.EventID {
			return fmt.Sprintf("assertions[%d]: stream %s/%s tail is %s, want %s",
				index, a.Entity, a.Key, tail, a.EventID)
		}
	case AssertEventCount:
		events, err := st.Replay(ctx, ledger.Filter{})
		if err != nil {
			return fmt.Sprintf("assertions[%d]: replay failed: %v", index, err)
		}
		if len(events) != a.Count {
			return fmt.Sprintf("assertions[%d]: ledger has %d event(s), want %d",
				index, len(events), a.Count)
		}
	default:
		// validateScenario rejects unknown types before execution.
		return fmt.Sprintf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return ""
}

// assertNames replays with the given filter and compares the event name
// sequence against want.
func assertNames(ctx context.Context, st *store.Store, index int, f ledger.Filter, want []string) string {
	events, err := st.Replay(ctx, f)
	if err != nil {
		return fmt.Sprintf("assertions[%d]: replay failed: %v", index, err)
	}
	if len(events) != len(want) {
		return fmt.Sprintf("assertions[%d]: got %d event(s), want %d", index, len(events), len(want))
	}
	for i, ev := range events {
		if ev.EventName != want[i] {
			return fmt.Sprintf("assertions[%d]: position %d is %q, want %q", index, i, ev.EventName, want[i])
		}
	}
	return ""
}
