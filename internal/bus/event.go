package bus

import "time"

// Event is a domain event published on the bus. Kind uses dotted
// namespaces: "inbox.message_posted", "task.created", "cache.refreshed",
// "daemon.state_changed".
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
