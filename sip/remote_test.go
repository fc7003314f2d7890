package sip_test

import (
	"testing"

	. "ESGo/global"
	"ESGo/sip"

	"github.com/stretchr/testify/require"
)

// two linked dialog sides inside one call, a subscription on the first
func newLinkedCall(t *testing.T, callID string) (*sip.SipCall, *sip.Dialog, *sip.Dialog, *sip.Subscription) {
	t.Helper()
	call := sip.NewSipCall(&sip.SipMessage{CallID: callID})
	sip.Calls.Store(callID, call)

	dlgA := sip.NewDialog("svc-east-1", callID, "localA", "remoteA")
	dlgB := sip.NewDialog("svc-east-1", callID, "localB", "remoteB")
	sub := sip.NewSubscription(HashKey("presence", "42"), SubsClassSubscribe, "presence", map[string]string{"id": "42"})

	require.NoError(t, call.Invoke(func() {
		call.AddDialog(dlgA)
		call.AddDialog(dlgB)
		call.LinkDialogs(dlgA, dlgB)
		dlgA.AddSubscription(sub)
	}))
	return call, dlgA, dlgB, sub
}

func TestDialogRemoteHandle(t *testing.T) {
	t.Parallel()

	_, dlgA, dlgB, _ := newLinkedCall(t, "remote-dlg@10.0.0.20")

	remote, err := sip.DialogRemoteHandle(dlgA.DialogHandle())
	require.NoError(t, err)
	require.Equal(t, dlgB.DialogHandle(), remote)

	// and back again
	back, err := sip.DialogRemoteHandle(remote)
	require.NoError(t, err)
	require.Equal(t, dlgA.DialogHandle(), back)
}

func TestRemoteSubscriptionHandle(t *testing.T) {
	t.Parallel()

	call, dlgA, dlgB, sub := newLinkedCall(t, "remote-sub@10.0.0.20")

	var handle string
	require.NoError(t, call.Invoke(func() {
		handle, _ = dlgA.SubscriptionHandle(sub)
	}))
	require.NotEmpty(t, handle)

	remote, err := sip.RemoteSubscriptionHandle(handle)
	require.NoError(t, err)

	decoded, err := sip.DecodeSubscriptionHandle(remote)
	require.NoError(t, err)
	require.Equal(t, sub.ID, decoded.SubscriptionID, "subscription identity is shared by both sides")
	require.Equal(t, dlgB.ID, decoded.DialogID)
	require.Equal(t, dlgA.CallID, decoded.CallID)
	require.Equal(t, dlgA.ServiceID, decoded.ServiceID)

	// the rewrite is an involution
	back, err := sip.RemoteSubscriptionHandle(remote)
	require.NoError(t, err)
	require.Equal(t, handle, back)
}

func TestRemoteHandleUnlinkedDialog(t *testing.T) {
	t.Parallel()

	callID := "remote-unlinked@10.0.0.20"
	call := sip.NewSipCall(&sip.SipMessage{CallID: callID})
	sip.Calls.Store(callID, call)

	lone := sip.NewDialog("svc-east-1", callID, "localL", "remoteL")
	require.NoError(t, call.Invoke(func() { call.AddDialog(lone) }))

	_, err := sip.DialogRemoteHandle(lone.DialogHandle())
	require.ErrorIs(t, err, sip.ErrCallNotFound)
}

func TestRemoteHandleErrors(t *testing.T) {
	t.Parallel()

	_, err := sip.DialogRemoteHandle("not-a-handle")
	require.ErrorIs(t, err, sip.ErrInvalidHandle)

	_, err = sip.RemoteSubscriptionHandle("not-a-handle")
	require.ErrorIs(t, err, sip.ErrInvalidHandle)

	gone := sip.EncodeDialogHandle(sip.DialogHandle{
		ServiceID: "svc-east-1",
		DialogID:  "dlg-unknown",
		CallID:    "nobody-home@10.0.0.20",
	})
	_, err = sip.DialogRemoteHandle(gone)
	require.ErrorIs(t, err, sip.ErrCallNotFound)
}
