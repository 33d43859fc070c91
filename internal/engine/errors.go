package engine

import (
	"fmt"
	"strings"
)

// SlotUnavailableError is returned by CreateHold when some requested cells
// are not free.  Blocked names the specific cells so the client can prompt
// re-selection; claims are never retried server-side since the conflicting
// cells may stay unavailable.
type SlotUnavailableError struct {
	Blocked []string
}

func (e *SlotUnavailableError) Error() string {
	return fmt.Sprintf("slot unavailable: %s", strings.Join(e.Blocked, ", "))
}
