package sip

import (
	"fmt"

	. "ESGo/global"
	"ESGo/guid"
	"ESGo/sip/state"
)

// Dialog is one side of a SIP dialog. The ID is locally assigned and
// asymmetric - each side of the same dialog carries its own. RemoteID
// holds the peer side's ID once the legs have been linked inside the
// owning call.
type Dialog struct {
	ID        string
	ServiceID string
	CallID    string

	LocalTag  string
	RemoteTag string
	RemoteID  string

	State state.DialogState

	SDPSessionID      int64
	SDPSessionVersion int64
	hasSDPOrigin      bool

	Subscriptions []*Subscription
}

func NewDialog(serviceID, callID, localTag, remoteTag string) *Dialog {
	return &Dialog{
		ID:        guid.NewDialogID(),
		ServiceID: serviceID,
		CallID:    callID,
		LocalTag:  localTag,
		RemoteTag: remoteTag,
		State:     state.Early,
	}
}

func (dialog *Dialog) String() string {
	return fmt.Sprintf("ID: %s, Call-ID: %s, State: %s, Subscriptions: %d", dialog.ID, dialog.CallID, dialog.State.String(), len(dialog.Subscriptions))
}

// ================================================================================

// FindSubscription returns the first subscription matching the given
// identity, nil when none does.
func (dialog *Dialog) FindSubscription(id string) *Subscription {
	return Find(dialog.Subscriptions, func(sub *Subscription) bool { return sub.ID == id })
}

func (dialog *Dialog) FindSubscriptionByMsg(sipmsg *SipMessage) *Subscription {
	return dialog.FindSubscription(DeriveSubscriptionID(sipmsg))
}

func (dialog *Dialog) AddSubscription(sub *Subscription) {
	dialog.Subscriptions = append(dialog.Subscriptions, sub)
}

// TerminateAll force-terminates every live subscription, as on BYE.
func (dialog *Dialog) TerminateAll(reason SubsStateReason) {
	for _, sub := range dialog.Subscriptions {
		sub.Terminate(reason)
	}
	dialog.State = state.Terminated
}

// RecordSDPOrigin captures the o= session id/version of the last seen SDP.
func (dialog *Dialog) RecordSDPOrigin(sipmsg *SipMessage) {
	if !sipmsg.ContainsSDP() {
		return
	}
	sdpses, err := sipmsg.Body.ParseSDPPart()
	if err != nil || sdpses == nil {
		LogWarning(LTSIPStack, "Unparsable SDP body part - origin not recorded")
		return
	}
	dialog.SDPSessionID = sdpses.Origin.SessionID
	dialog.SDPSessionVersion = sdpses.Origin.SessionVersion
	dialog.hasSDPOrigin = true
}

// ================================================================================

// GetField resolves dialog-level meta fields. Unknown names yield
// ErrInvalidField - this is the bottom of the meta fallthrough chain.
func (dialog *Dialog) GetField(fld string) (string, error) {
	switch fld {
	case "dialog_id":
		return dialog.ID, nil
	case "service_id":
		return dialog.ServiceID, nil
	case "call_id":
		return dialog.CallID, nil
	case "local_tag":
		return dialog.LocalTag, nil
	case "remote_tag":
		return dialog.RemoteTag, nil
	case "remote_id":
		return dialog.RemoteID, nil
	case "state":
		return dialog.State.String(), nil
	case "sdp_session_id":
		if !dialog.hasSDPOrigin {
			return "", nil
		}
		return fmt.Sprintf("%d", dialog.SDPSessionID), nil
	case "sdp_session_version":
		if !dialog.hasSDPOrigin {
			return "", nil
		}
		return fmt.Sprintf("%d", dialog.SDPSessionVersion), nil
	}
	return "", ErrInvalidField
}
