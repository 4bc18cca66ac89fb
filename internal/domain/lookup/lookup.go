// Package lookup defines the failure contract shared by all external entity
// lookups.
package lookup

import "fmt"

// UnavailableError reports that a dependent customer or product could not be
// resolved. Code and Message mirror the upstream error payload when the
// entity service responded with one; transport failures carry a generic
// code 500 message. The core never retries; retry policy belongs to the
// lookup implementation.
type UnavailableError struct {
	Entity  string
	ID      string
	Code    int
	Message string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s %s unavailable: %s", e.Entity, e.ID, e.Message)
}
