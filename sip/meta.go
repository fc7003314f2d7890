package sip

import (
	"errors"

	. "ESGo/global"
)

var ErrInvalidField = errors.New("invalid meta field")

// GetField resolves one meta field against a subscription, falling through
// to the owning dialog for anything not known at subscription level.
func GetField(fld string, sub *Subscription, dialog *Dialog) (string, error) {
	switch fld {
	case "handle":
		return dialog.SubscriptionHandle(sub)
	case "id":
		return sub.ID, nil
	case "status":
		return sub.Status(), nil
	case "event":
		return sub.Event, nil
	case "raw_event":
		return sub.RawEvent, nil
	case "class":
		return sub.Class.String(), nil
	case "answered":
		if sub.Answered {
			return "true", nil
		}
		return "false", nil
	case "expires":
		return Int2Str(sub.Remaining()), nil
	}
	return dialog.GetField(fld)
}

// GetFields resolves a batch of meta fields, preserving request order -
// duplicates included. The first unknown field aborts the whole batch.
func GetFields(flds []string, sub *Subscription, dialog *Dialog) ([]string, error) {
	values := make([]string, 0, len(flds))
	for _, fld := range flds {
		v, err := GetField(fld, sub, dialog)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// QuerySubscriptionFields resolves a handle to its live subscription inside
// the owning call actor and evaluates the field batch there. This is the
// query path remote services use.
func QuerySubscriptionFields(handle string, flds []string) ([]string, error) {
	sh, err := DecodeSubscriptionHandle(handle)
	if err != nil {
		return nil, err
	}
	var values []string
	var ierr error
	err = WithCall(sh.CallID, func(call *SipCall) {
		dialog := call.FindDialog(sh.DialogID)
		if dialog == nil {
			ierr = ErrCallNotFound
			return
		}
		sub := dialog.FindSubscription(sh.SubscriptionID)
		if sub == nil {
			ierr = ErrInvalidSubscription
			return
		}
		values, ierr = GetFields(flds, sub, dialog)
	})
	if err != nil {
		return nil, err
	}
	if ierr != nil {
		return nil, ierr
	}
	return values, nil
}
