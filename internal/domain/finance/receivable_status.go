package finance

// ReceivableStatus represents the status of an account receivable.
// Unlike PayableStatus, which is derived from an owned payment list, this
// status tracks a scalar running total and therefore carries its own legal
// transition table.
type ReceivableStatus string

const (
	ReceivableStatusOpen       ReceivableStatus = "OPEN"       // Nothing received yet
	ReceivableStatusProcessing ReceivableStatus = "PROCESSING" // Collection batch in flight (manual latch)
	ReceivableStatusPartial    ReceivableStatus = "PARTIAL"    // Partially received
	ReceivableStatusReceived   ReceivableStatus = "RECEIVED"   // Fully received; terminal
	ReceivableStatusCancelled  ReceivableStatus = "CANCELLED"  // Cancelled; terminal
	ReceivableStatusOverdue    ReceivableStatus = "OVERDUE"    // Past due, still collectible
)

// receivableTransitions encodes the legal status transition graph
var receivableTransitions = map[ReceivableStatus][]ReceivableStatus{
	ReceivableStatusOpen: {
		ReceivableStatusProcessing,
		ReceivableStatusPartial,
		ReceivableStatusReceived,
		ReceivableStatusCancelled,
		ReceivableStatusOverdue,
	},
	ReceivableStatusProcessing: {
		ReceivableStatusOpen,
		ReceivableStatusPartial,
		ReceivableStatusReceived,
		ReceivableStatusCancelled,
	},
	ReceivableStatusPartial: {
		ReceivableStatusProcessing,
		ReceivableStatusReceived,
		ReceivableStatusOverdue,
	},
	ReceivableStatusOverdue: {
		ReceivableStatusOpen, // reschedule reverts an untouched overdue title
		ReceivableStatusPartial,
		ReceivableStatusReceived,
		ReceivableStatusCancelled,
	},
	ReceivableStatusReceived:  {},
	ReceivableStatusCancelled: {},
}

// IsValid checks if the status is a valid ReceivableStatus
func (s ReceivableStatus) IsValid() bool {
	_, ok := receivableTransitions[s]
	return ok
}

// String returns the string representation of ReceivableStatus
func (s ReceivableStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further mutation is legal from this status
func (s ReceivableStatus) IsTerminal() bool {
	return s == ReceivableStatusReceived || s == ReceivableStatusCancelled
}

// CanTransitionTo returns true if moving to the target status is legal
func (s ReceivableStatus) CanTransitionTo(target ReceivableStatus) bool {
	for _, allowed := range receivableTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CanReceivePayment returns true if a receipt can be recorded in this status
func (s ReceivableStatus) CanReceivePayment() bool {
	return s == ReceivableStatusOpen || s == ReceivableStatusPartial || s == ReceivableStatusOverdue
}

// CanEnterProcessing returns true if the processing latch can be set from this status
func (s ReceivableStatus) CanEnterProcessing() bool {
	return s == ReceivableStatusOpen || s == ReceivableStatusPartial
}
