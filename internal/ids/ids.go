package ids

import "github.com/segmentio/ksuid"

// New returns a sortable opaque identifier for session, challenge
// and audit rows. User ids are database-assigned and numeric.
func New() string {
	return ksuid.New().String()
}
