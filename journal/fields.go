package journal

import "fmt"

type (
	Field string

	Instance struct {
		data map[Field]string
	}
)

const (
	Timestamp      Field = "timestamp"      // Transition timestamp
	CallID         Field = "callId"         // SIP Call-ID of the owning call
	DialogID       Field = "dialogId"       // Local dialog identifier
	ServiceID      Field = "serviceId"      // Service this engine runs as
	SubscriptionID Field = "subscriptionId" // Derived subscription identity
	Event          Field = "event"          // Event package token
	Class          Field = "class"          // subscribe or refer
	Transition     Field = "transition"     // previous>next lifecycle states
	Reason         Field = "reason"         // Termination reason, if any
	Expires        Field = "expires"        // Remaining seconds, -1 when none
)

func getAllFields() []Field {
	return []Field{
		Timestamp,
		CallID,
		DialogID,
		ServiceID,
		SubscriptionID,
		Event,
		Class,
		Transition,
		Reason,
		Expires,
	}
}

func (f Field) String() string {
	return string(f)
}

func CastStringSlice[T fmt.Stringer](input []T) []string {
	output := make([]string, len(input))
	for i, v := range input {
		output[i] = v.String()
	}
	return output
}

func New() *Instance {
	return &Instance{
		data: make(map[Field]string, len(stringfields)),
	}
}

func (inst *Instance) Set(field Field, value string) {
	inst.data[field] = value
}

// Flush hands the record to the writer. Records are dropped rather than
// blocking the call actor when the journal is disabled or backlogged.
func (inst *Instance) Flush() {
	if pipe == nil {
		return
	}
	select {
	case pipe <- inst.data:
	default:
	}
}
