package verification

import (
	"fmt"

	"github.com/roach88/threadstate/internal/identity"
)

// Event records one verification state change for a thread participant.
// Events are never modified; they disappear only with their thread.
type Event struct {
	UniqueID            string           `json:"unique_id"`
	UniqueThreadID      string           `json:"unique_thread_id"`
	SortID              uint64           `json:"sort_id"`
	Timestamp           uint64           `json:"timestamp"`
	ReceivedAtTimestamp uint64           `json:"received_at_timestamp"`
	RecipientAddress    identity.Address `json:"recipient_address"`
	State               State            `json:"verification_state"`
	IsLocalChange       bool             `json:"is_local_change"`
}

// Describe returns the conversation preview text for the event, naming the
// participant as displayName.
func (e Event) Describe(displayName string) string {
	if e.IsLocalChange {
		switch e.State {
		case StateVerified:
			return fmt.Sprintf("You marked %s as verified", displayName)
		default:
			return fmt.Sprintf("You marked %s as not verified", displayName)
		}
	}
	switch e.State {
	case StateVerified:
		return fmt.Sprintf("%s marked as verified from another device", displayName)
	default:
		return fmt.Sprintf("%s marked as not verified from another device", displayName)
	}
}
