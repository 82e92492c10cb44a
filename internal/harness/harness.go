package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chainlog/chainlog/internal/ledger"
	"github.com/chainlog/chainlog/internal/store"
)

// scenarioEpoch is the fixed clock value for all scenario events.
var scenarioEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// fixedIDs returns the deterministic id sequence e1..eN.
func fixedIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("e%d", i+1)
	}
	return ids
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. Event ids
// come from a fixed generator and the clock is pinned, so two runs of the
// same scenario produce identical traces.
//
// Execution flow:
// 1. Create fresh in-memory database with fixed ids and clock
// 2. Attempt each step's append, comparing the outcome to its expect clause
// 3. Evaluate assertions against the final ledger
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:",
		store.WithIDGenerator(ledger.NewFixedGenerator(fixedIDs(len(scenario.Steps))...)),
		store.WithNowFunc(func() time.Time { return scenarioEpoch }),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := executeStep(ctx, st, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	for _, errMsg := range EvaluateAssertions(ctx, st, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeStep attempts one append and records its outcome in the trace.
// An unexpected outcome marks the result failed but does not stop the
// scenario; later steps often depend only on the successful appends.
func executeStep(ctx context.Context, st *store.Store, index int, step Step, result *Result) error {
	payload, err := stepPayload(step.Append.Payload)
	if err != nil {
		return fmt.Errorf("bad payload: %w", err)
	}

	trace := TraceEvent{
		Step:      index + 1,
		Entity:    step.Append.Entity,
		EntityKey: step.Append.Key,
		EventName: step.Append.Name,
	}

	ev, err := st.Append(ctx, ledger.Candidate{
		Entity:     step.Append.Entity,
		EntityKey:  step.Append.Key,
		EventName:  step.Append.Name,
		Payload:    payload,
		AppendKey:  step.Append.AppendKey,
		PreviousID: step.Append.Previous,
	})

	var conflict *ledger.ConflictError
	switch {
	case err == nil:
		trace.Outcome = "appended"
		trace.EventID = ev.EventID
		trace.GlobalSeq = ev.GlobalSeq
	case errors.As(err, &conflict):
		trace.Outcome = string(conflict.Code)
	default:
		return err
	}
	result.Trace = append(result.Trace, trace)

	expected := "appended"
	if step.Expect != nil && step.Expect.Conflict != "" {
		expected = step.Expect.Conflict
	}
	if trace.Outcome != expected {
		result.AddError(fmt.Sprintf("step %d: expected %s, got %s", index+1, expected, trace.Outcome))
	}

	return nil
}

// stepPayload converts a decoded YAML value to its JSON encoding.
func stepPayload(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte{}, nil
	}
	return json.Marshal(v)
}
