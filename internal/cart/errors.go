package cart

import "fmt"

// InvalidItemError indicates a structurally malformed add request: missing
// product id, negative unit price, or a non-positive quantity. The engine
// rejects these before any mutation; nothing is persisted.
//
// Lookup misses (an unknown line-item key passed to UpdateQuantity or
// RemoveItem) are NOT errors. They are silent no-ops so that UI double-clicks
// and stale references to an already-removed item stay harmless. This
// asymmetry is deliberate; do not "fix" it into uniform error raising.
type InvalidItemError struct {
	Field  string
	Reason string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid cart item: %s %s", e.Field, e.Reason)
}
