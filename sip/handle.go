package sip

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

var (
	ErrInvalidHandle       = errors.New("invalid handle")
	ErrInvalidSubscription = errors.New("invalid subscription")
)

const (
	subscriptionHandlePrefix = "U_"
	dialogHandlePrefix       = "D_"
)

// handleEncMode is the deterministic CBOR encoder for handles - the same
// tuple must always yield the same handle string.
var (
	handleEncMode cbor.EncMode
	handleDecMode cbor.DecMode
)

func init() {
	var err error
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	handleEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create handle CBOR encoder mode: %v", err))
	}
	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	handleDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create handle CBOR decoder mode: %v", err))
	}
}

// ================================================================================

// SubscriptionHandle is the opaque, self-describing address of one
// subscription on one dialog side. Handles are plain values - holding one
// keeps nothing alive.
type SubscriptionHandle struct {
	_ struct{} `cbor:",toarray"`

	ServiceID      string
	SubscriptionID string
	DialogID       string
	CallID         string
}

// DialogHandle addresses one dialog side without naming a subscription.
type DialogHandle struct {
	_ struct{} `cbor:",toarray"`

	ServiceID string
	DialogID  string
	CallID    string
}

func EncodeSubscriptionHandle(hndl SubscriptionHandle) string {
	return encodeHandle(subscriptionHandlePrefix, hndl)
}

func EncodeDialogHandle(hndl DialogHandle) string {
	return encodeHandle(dialogHandlePrefix, hndl)
}

// encodeHandle never fails for the fixed string-tuple payloads above.
func encodeHandle(prefix string, payload any) string {
	bb, err := handleEncMode.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("handle encoding failed: %v", err))
	}
	return prefix + base64.RawURLEncoding.EncodeToString(bb)
}

// DecodeSubscriptionHandle reverses EncodeSubscriptionHandle. Every way the
// input can be malformed collapses into ErrInvalidHandle.
func DecodeSubscriptionHandle(handle string) (SubscriptionHandle, error) {
	var hndl SubscriptionHandle
	if err := decodeHandle(subscriptionHandlePrefix, handle, &hndl); err != nil {
		return SubscriptionHandle{}, err
	}
	if hndl.ServiceID == "" || hndl.SubscriptionID == "" || hndl.DialogID == "" || hndl.CallID == "" {
		return SubscriptionHandle{}, ErrInvalidHandle
	}
	return hndl, nil
}

func DecodeDialogHandle(handle string) (DialogHandle, error) {
	var hndl DialogHandle
	if err := decodeHandle(dialogHandlePrefix, handle, &hndl); err != nil {
		return DialogHandle{}, err
	}
	if hndl.ServiceID == "" || hndl.DialogID == "" || hndl.CallID == "" {
		return DialogHandle{}, ErrInvalidHandle
	}
	return hndl, nil
}

func decodeHandle(prefix, handle string, payload any) error {
	if !strings.HasPrefix(handle, prefix) {
		return ErrInvalidHandle
	}
	bb, err := base64.RawURLEncoding.DecodeString(handle[len(prefix):])
	if err != nil {
		return ErrInvalidHandle
	}
	if err := handleDecMode.Unmarshal(bb, payload); err != nil {
		return ErrInvalidHandle
	}
	return nil
}

// ================================================================================

// SubscriptionHandle encodes the handle of a subscription living on this
// dialog side. A nil subscription or one belonging elsewhere yields
// ErrInvalidSubscription.
func (dialog *Dialog) SubscriptionHandle(sub *Subscription) (string, error) {
	if sub == nil || dialog.FindSubscription(sub.ID) != sub {
		return "", ErrInvalidSubscription
	}
	return EncodeSubscriptionHandle(SubscriptionHandle{
		ServiceID:      dialog.ServiceID,
		SubscriptionID: sub.ID,
		DialogID:       dialog.ID,
		CallID:         dialog.CallID,
	}), nil
}

// SubscriptionHandleByMsg derives the subscription identity from the
// message and encodes the matching subscription's handle.
func (dialog *Dialog) SubscriptionHandleByMsg(sipmsg *SipMessage) (string, error) {
	return dialog.SubscriptionHandle(dialog.FindSubscriptionByMsg(sipmsg))
}

// DialogHandle encodes the dialog-side handle.
func (dialog *Dialog) DialogHandle() string {
	return EncodeDialogHandle(DialogHandle{
		ServiceID: dialog.ServiceID,
		DialogID:  dialog.ID,
		CallID:    dialog.CallID,
	})
}
