package sip

import (
	. "ESGo/global"
)

// SubscriptionState is the classification of one Subscription-State
// header value. Malformed input yields State == SubsStateInvalid - the
// parser never returns an error, since NOTIFY processing must continue
// inside the owning call whatever the peer sent.
type SubscriptionState struct {
	State      SubsState
	Expires    int // NoValue when absent
	Reason     SubsStateReason
	RetryAfter int // NoValue when absent
}

func InvalidSubscriptionState() SubscriptionState {
	return SubscriptionState{State: SubsStateInvalid, Expires: NoValue, RetryAfter: NoValue}
}

// ParseSubscriptionState classifies the tokenized Subscription-State
// header values of a NOTIFY. Exactly one header value is expected -
// any other count is malformed.
func ParseSubscriptionState(values []string) SubscriptionState {
	if len(values) != 1 {
		return InvalidSubscriptionState()
	}

	nvc := CleanAndSplitHeader(ASCIIToLower(values[0]))
	if nvc == nil {
		return InvalidSubscriptionState()
	}

	result := SubscriptionState{Expires: NoValue, RetryAfter: NoValue}

	switch nvc["!headerValue"] {
	case "active":
		result.State = SubsStateActive
	case "pending":
		result.State = SubsStatePending
	case "terminated":
		result.State = SubsStateTerminated
	default:
		return InvalidSubscriptionState()
	}

	if result.State == SubsStateActive || result.State == SubsStatePending {
		expires, ok := parseDelaySeconds(nvc, "expires")
		if !ok {
			return InvalidSubscriptionState()
		}
		result.Expires = expires
		return result
	}

	// terminated: unrecognized reason tokens downgrade to no-reason,
	// retry-after is returned as parsed regardless of the reason
	if reason, ok := nvc["reason"]; ok {
		result.Reason = SubsStateReasonFromToken(reason)
	}
	retryAfter, ok := parseDelaySeconds(nvc, "retry-after")
	if !ok {
		return InvalidSubscriptionState()
	}
	result.RetryAfter = retryAfter
	return result
}

// parseDelaySeconds validates a non-negative-integer-or-absent parameter.
// Absence and the literal -1 both mean "no value"; any other negative or
// non-integer content is malformed.
func parseDelaySeconds(nvc map[string]string, par string) (int, bool) {
	hv, ok := nvc[par]
	if !ok {
		return NoValue, true
	}
	secs, ok := Str2IntCheck[int](hv)
	if !ok {
		return NoValue, false
	}
	if secs == NoValue {
		return NoValue, true
	}
	if secs < 0 {
		return NoValue, false
	}
	return secs, true
}
