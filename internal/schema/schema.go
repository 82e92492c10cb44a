// Package schema provides optional CUE validation of event payloads.
//
// A schema file maps event names to CUE constraints:
//
//	"order-placed": {
//	    sku:      string
//	    quantity: int & >0
//	}
//	"order-cancelled": {
//	    reason?: string
//	}
//
// The ledger itself treats payloads as opaque bytes; validation is a write
// side courtesy applied by callers (the CLI append and seed commands) before
// an append is attempted. Event names with no entry in the schema file pass
// unchecked.
package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Validator checks event payloads against per-event-name CUE constraints.
//
// A nil *Validator validates nothing and accepts everything, so callers can
// thread an optional validator without nil checks at every call site.
type Validator struct {
	root cue.Value
	cctx *cue.Context
}

// Load reads and compiles a schema file.
func Load(path string) (*Validator, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return Compile(src, path)
}

// Compile builds a Validator from CUE source. The filename is used in
// positions reported by validation errors.
func Compile(src []byte, filename string) (*Validator, error) {
	cctx := cuecontext.New()
	root := cctx.CompileBytes(src, cue.Filename(filename))
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{root: root, cctx: cctx}, nil
}

// HasSchema reports whether a constraint exists for the event name.
func (v *Validator) HasSchema(eventName string) bool {
	if v == nil {
		return false
	}
	return v.root.LookupPath(cue.MakePath(cue.Str(eventName))).Exists()
}

// Validate checks payload against the constraint for eventName.
//
// Returns nil when the validator is nil, when no constraint exists for the
// event name, or when the payload satisfies the constraint. An empty payload
// is validated as an empty object.
func (v *Validator) Validate(eventName string, payload []byte) error {
	if v == nil {
		return nil
	}

	constraint := v.root.LookupPath(cue.MakePath(cue.Str(eventName)))
	if !constraint.Exists() {
		return nil
	}

	if len(payload) == 0 {
		payload = []byte("{}")
	}

	// JSON is valid CUE, so the payload compiles directly.
	val := v.cctx.CompileBytes(payload, cue.Filename("payload"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("payload for %q is not structured data: %w", eventName, err)
	}

	unified := constraint.Unify(val)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return fmt.Errorf("payload for %q does not satisfy schema: %w", eventName, err)
	}
	return nil
}
