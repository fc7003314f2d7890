package sip

import (
	"context"
	"fmt"
	"time"

	. "ESGo/global"

	"github.com/looplab/fsm"
)

// Subscription lifecycle machine states. The fsm event names map onto the
// Subscription-State values a NOTIFY may carry.
const (
	lcIdle       = "idle"
	lcActive     = "active"
	lcPending    = "pending"
	lcTerminated = "terminated"
)

// Subscription is one event subscription inside a dialog - either created
// explicitly by SUBSCRIBE or implicitly by REFER. All field access runs
// inside the owning call actor, hence no locking here.
type Subscription struct {
	ID          string // derived identity, stable across both dialog sides
	Class       SubsClass
	Event       string // event package token, lowercase
	EventParams map[string]string
	RawEvent    string // canonical single-line rendering of the Event header

	Reason   SubsStateReason
	Answered bool // set once the first classifiable NOTIFY arrives

	ExpiresAt time.Time // zero when no deadline is armed

	lifecycle   *fsm.FSM
	expiryTimer *time.Timer
}

func NewSubscription(id string, class SubsClass, event string, params map[string]string) *Subscription {
	sub := &Subscription{
		ID:          id,
		Class:       class,
		Event:       event,
		EventParams: params,
		RawEvent:    RawEventHeader(event, params),
	}
	sub.lifecycle = fsm.NewFSM(
		lcIdle,
		fsm.Events{
			{Name: "activate", Src: []string{lcIdle, lcPending, lcActive}, Dst: lcActive},
			{Name: "pend", Src: []string{lcIdle, lcPending}, Dst: lcPending},
			{Name: "terminate", Src: []string{lcIdle, lcActive, lcPending}, Dst: lcTerminated},
		}, nil,
	)
	Prometrics.Subscriptions.Inc()
	return sub
}

func (sub *Subscription) String() string {
	return fmt.Sprintf("ID: %s, Event: %s, Class: %s, Status: %s", sub.ID, sub.RawEvent, sub.Class.String(), sub.Status())
}

func (sub *Subscription) Status() string {
	return sub.lifecycle.Current()
}

func (sub *Subscription) IsTerminated() bool {
	return sub.lifecycle.Current() == lcTerminated
}

// Remaining reports the seconds left until expiry, NoValue when no
// deadline is armed.
func (sub *Subscription) Remaining() int {
	if sub.ExpiresAt.IsZero() {
		return NoValue
	}
	left := int(time.Until(sub.ExpiresAt).Seconds())
	if left < 0 {
		return 0
	}
	return left
}

// ================================================================================

// DeriveSubscriptionID computes the subscription identity carried by a SIP
// message. REFER requests and responses key on the CSeq number - RFC 3515
// implicit subscriptions report back with Event: refer;id=<cseq>, so both
// derivations land on the same identity. Everything else keys on the Event
// package token plus its id parameter.
func DeriveSubscriptionID(sipmsg *SipMessage) string {
	if sipmsg.GetMethod() == REFER {
		return HashKey("refer", Uint32ToStr(sipmsg.CSeqNum))
	}
	token, params, ok := sipmsg.GetEventHeader()
	if !ok {
		return HashKey("undefined", "undefined")
	}
	id := params["id"]
	if id == "" {
		id = "undefined"
	}
	return HashKey(token, id)
}

// ================================================================================

// ApplyState drives the lifecycle from a classified Subscription-State.
// Invalid input is rejected upstream - this only ever sees the three
// concrete states. Returns false when the transition is not allowed
// (e.g. pending after active), in which case nothing changes.
func (sub *Subscription) ApplyState(ss SubscriptionState) bool {
	var event string
	switch ss.State {
	case SubsStateActive:
		event = "activate"
	case SubsStatePending:
		event = "pend"
	case SubsStateTerminated:
		event = "terminate"
	default:
		return false
	}
	if err := sub.lifecycle.Event(context.Background(), event); err != nil {
		LogWarning(LTSubscription, fmt.Sprintf("Subscription [%s] rejected transition [%s] from [%s]", sub.ID, event, sub.Status()))
		return false
	}
	sub.Answered = true
	sub.Reason = ss.Reason
	if ss.State == SubsStateTerminated {
		sub.Disarm()
		Prometrics.Subscriptions.Dec()
	} else if ss.Expires != NoValue {
		sub.ExpiresAt = time.Now().Add(time.Duration(ss.Expires) * time.Second)
	}
	return true
}

// Refresh arms or re-arms the expiry deadline, as on SUBSCRIBE refreshes.
func (sub *Subscription) Refresh(expires int) {
	if expires == NoValue {
		return
	}
	sub.ExpiresAt = time.Now().Add(time.Duration(expires) * time.Second)
}

// Terminate forces the terminal state regardless of the current one, as
// when the owning dialog goes away.
func (sub *Subscription) Terminate(reason SubsStateReason) {
	if sub.IsTerminated() {
		return
	}
	sub.lifecycle.SetState(lcTerminated)
	sub.Reason = reason
	sub.Disarm()
	Prometrics.Subscriptions.Dec()
}

// ArmExpiryTimer schedules onExpire at the current deadline, replacing any
// previously armed timer. The callback runs on its own goroutine and must
// re-enter the owning call through Invoke.
func (sub *Subscription) ArmExpiryTimer(onExpire func()) {
	if sub.expiryTimer != nil {
		sub.expiryTimer.Stop()
		sub.expiryTimer = nil
	}
	if sub.ExpiresAt.IsZero() {
		return
	}
	sub.expiryTimer = time.AfterFunc(time.Until(sub.ExpiresAt), onExpire)
}

func (sub *Subscription) Disarm() {
	if sub.expiryTimer != nil {
		sub.expiryTimer.Stop()
		sub.expiryTimer = nil
	}
	sub.ExpiresAt = time.Time{}
}
