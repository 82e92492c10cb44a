package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// Scenarios exercise the append protocol through a sequence of steps and
// assert on the resulting ledger.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden file
	// name when the scenario is run through RunGolden.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps contains the appends to attempt, in order. The Nth successful
	// append gets the fixed id "eN" (1-based), so later steps can
	// reference earlier events as previous. Rejected appends consume no
	// id.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final ledger.
	// Supported types: replay_order, stream_events, stream_count, tail_is, event_count
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one append attempt with its expected outcome.
type Step struct {
	// Append describes the candidate event.
	Append AppendStep `yaml:"append"`

	// Expect specifies the expected outcome. If nil, the append must
	// succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// AppendStep describes a candidate event.
type AppendStep struct {
	// Entity is the stream type name.
	Entity string `yaml:"entity"`

	// Key is the stream instance key.
	Key string `yaml:"key"`

	// Name is the event name.
	Name string `yaml:"name"`

	// AppendKey is the idempotency token.
	AppendKey string `yaml:"append_key"`

	// Payload accepts any YAML value and is stored as its JSON encoding.
	Payload interface{} `yaml:"payload,omitempty"`

	// Previous references the expected stream tail by fixed id ("e1",
	// "e2", ...). Empty means the step claims to start the stream.
	Previous string `yaml:"previous,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Conflict is the expected conflict code (e.g. "STALE_PREVIOUS").
	// Empty means the append must succeed.
	Conflict string `yaml:"conflict,omitempty"`
}

// Assertion validates the final ledger.
type Assertion struct {
	// Type specifies the assertion type:
	// - "replay_order": full replay yields exactly these event names in order
	// - "stream_events": one stream's replay yields exactly these event names in order
	// - "stream_count": one stream holds exactly N events
	// - "tail_is": one stream's latest event has this fixed id
	// - "event_count": the whole ledger holds exactly N events
	Type string `yaml:"type"`

	// Entity and Key select a stream (stream_events, stream_count, tail_is).
	Entity string `yaml:"entity,omitempty"`
	Key    string `yaml:"key,omitempty"`

	// Names is the expected event name sequence (replay_order, stream_events).
	Names []string `yaml:"names,omitempty"`

	// Count is the expected number of events (stream_count, event_count).
	Count int `yaml:"count,omitempty"`

	// EventID is the expected tail id (tail_is).
	EventID string `yaml:"event_id,omitempty"`
}

// Assertion type constants.
const (
	AssertReplayOrder  = "replay_order"
	AssertStreamEvents = "stream_events"
	AssertStreamCount  = "stream_count"
	AssertTailIs       = "tail_is"
	AssertEventCount   = "event_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		a := step.Append
		if a.Entity == "" {
			return fmt.Errorf("steps[%d]: append.entity is required", i)
		}
		if a.Key == "" {
			return fmt.Errorf("steps[%d]: append.key is required", i)
		}
		if a.Name == "" {
			return fmt.Errorf("steps[%d]: append.name is required", i)
		}
		if a.AppendKey == "" {
			return fmt.Errorf("steps[%d]: append.append_key is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertReplayOrder:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for replay_order", index)
		}
	case AssertStreamEvents:
		if a.Entity == "" || a.Key == "" {
			return fmt.Errorf("assertions[%d]: entity and key are required for stream_events", index)
		}
	case AssertStreamCount:
		if a.Entity == "" || a.Key == "" {
			return fmt.Errorf("assertions[%d]: entity and key are required for stream_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for stream_count", index)
		}
	case AssertTailIs:
		if a.Entity == "" || a.Key == "" {
			return fmt.Errorf("assertions[%d]: entity and key are required for tail_is", index)
		}
		if a.EventID == "" {
			return fmt.Errorf("assertions[%d]: event_id is required for tail_is", index)
		}
	case AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
