package ledger

import "golang.org/x/text/unicode/norm"

// NormalizeIdentity returns s in Unicode NFC form.
//
// Stream identity fields (entity, entity_key, event_name, append_key) are
// NFC-normalized before every write and every lookup so that byte-different
// but canonically equal strings address the same stream. Without this, two
// writers could accidentally create two streams for what a human reads as
// one key.
func NormalizeIdentity(s string) string {
	return norm.NFC.String(s)
}

// NormalizeCandidate returns a copy of c with all identity fields in NFC
// form. The payload is passed through untouched; it is opaque to the ledger.
func NormalizeCandidate(c Candidate) Candidate {
	c.Entity = NormalizeIdentity(c.Entity)
	c.EntityKey = NormalizeIdentity(c.EntityKey)
	c.EventName = NormalizeIdentity(c.EventName)
	c.AppendKey = NormalizeIdentity(c.AppendKey)
	return c
}

// NormalizeFilter returns a copy of f with identity fields in NFC form.
func NormalizeFilter(f Filter) Filter {
	f.Entity = NormalizeIdentity(f.Entity)
	f.EntityKey = NormalizeIdentity(f.EntityKey)
	if len(f.EventNames) > 0 {
		names := make([]string, len(f.EventNames))
		for i, n := range f.EventNames {
			names[i] = NormalizeIdentity(n)
		}
		f.EventNames = names
	}
	return f
}
