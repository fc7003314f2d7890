package sip_test

import (
	"testing"

	. "ESGo/global"
	"ESGo/sip"

	"github.com/stretchr/testify/require"
)

func newFixtureDialog(callID string) (*sip.Dialog, *sip.Subscription) {
	dialog := sip.NewDialog("svc-east-1", callID, "local1", "remote1")
	sub := sip.NewSubscription(HashKey("presence", "42"), SubsClassSubscribe, "presence", map[string]string{"id": "42"})
	dialog.AddSubscription(sub)
	return dialog, sub
}

func TestGetFieldSubscriptionLevel(t *testing.T) {
	t.Parallel()

	dialog, sub := newFixtureDialog("meta-sub@10.0.0.20")

	tests := []struct {
		fld      string
		expected string
	}{
		{"id", sub.ID},
		{"status", "idle"},
		{"event", "presence"},
		{"raw_event", "presence;id=42"},
		{"class", "subscribe"},
		{"answered", "false"},
		{"expires", "-1"},
	}
	for _, tc := range tests {
		v, err := sip.GetField(tc.fld, sub, dialog)
		require.NoError(t, err, tc.fld)
		require.Equal(t, tc.expected, v, tc.fld)
	}

	handle, err := sip.GetField("handle", sub, dialog)
	require.NoError(t, err)
	decoded, err := sip.DecodeSubscriptionHandle(handle)
	require.NoError(t, err)
	require.Equal(t, sub.ID, decoded.SubscriptionID)

	sub.ApplyState(sip.SubscriptionState{State: SubsStateActive, Expires: 90, RetryAfter: NoValue})
	v, err := sip.GetField("answered", sub, dialog)
	require.NoError(t, err)
	require.Equal(t, "true", v)
	v, err = sip.GetField("status", sub, dialog)
	require.NoError(t, err)
	require.Equal(t, "active", v)
	v, err = sip.GetField("expires", sub, dialog)
	require.NoError(t, err)
	require.NotEqual(t, "-1", v)
}

func TestGetFieldDialogFallthrough(t *testing.T) {
	t.Parallel()

	dialog, sub := newFixtureDialog("meta-dlg@10.0.0.20")

	tests := []struct {
		fld      string
		expected string
	}{
		{"dialog_id", dialog.ID},
		{"service_id", "svc-east-1"},
		{"call_id", "meta-dlg@10.0.0.20"},
		{"local_tag", "local1"},
		{"remote_tag", "remote1"},
		{"remote_id", ""},
		{"state", "early"},
		{"sdp_session_id", ""},
		{"sdp_session_version", ""},
	}
	for _, tc := range tests {
		v, err := sip.GetField(tc.fld, sub, dialog)
		require.NoError(t, err, tc.fld)
		require.Equal(t, tc.expected, v, tc.fld)
	}

	_, err := sip.GetField("no_such_field", sub, dialog)
	require.ErrorIs(t, err, sip.ErrInvalidField)
}

func TestGetFieldsPreservesOrder(t *testing.T) {
	t.Parallel()

	dialog, sub := newFixtureDialog("meta-batch@10.0.0.20")

	values, err := sip.GetFields([]string{"event", "event", "call_id", "status"}, sub, dialog)
	require.NoError(t, err)
	require.Equal(t, []string{"presence", "presence", "meta-batch@10.0.0.20", "idle"}, values)
}

func TestGetFieldsAbortsOnUnknownField(t *testing.T) {
	t.Parallel()

	dialog, sub := newFixtureDialog("meta-abort@10.0.0.20")

	values, err := sip.GetFields([]string{"event", "no_such_field", "call_id"}, sub, dialog)
	require.ErrorIs(t, err, sip.ErrInvalidField)
	require.Nil(t, values, "a failed batch yields no partial values")
}

func TestQuerySubscriptionFields(t *testing.T) {
	t.Parallel()

	callID := "meta-query@10.0.0.20"
	call := sip.NewSipCall(&sip.SipMessage{CallID: callID})
	sip.Calls.Store(callID, call)

	dialog, sub := newFixtureDialog(callID)
	var handle string
	require.NoError(t, call.Invoke(func() {
		call.AddDialog(dialog)
		handle, _ = dialog.SubscriptionHandle(sub)
	}))
	require.NotEmpty(t, handle)

	values, err := sip.QuerySubscriptionFields(handle, []string{"event", "dialog_id", "status"})
	require.NoError(t, err)
	require.Equal(t, []string{"presence", dialog.ID, "idle"}, values)

	_, err = sip.QuerySubscriptionFields(handle, []string{"event", "no_such_field"})
	require.ErrorIs(t, err, sip.ErrInvalidField)

	_, err = sip.QuerySubscriptionFields("garbage", []string{"event"})
	require.ErrorIs(t, err, sip.ErrInvalidHandle)

	unknownCall := sip.EncodeSubscriptionHandle(sip.SubscriptionHandle{
		ServiceID:      "svc-east-1",
		SubscriptionID: sub.ID,
		DialogID:       dialog.ID,
		CallID:         "nobody-home@10.0.0.20",
	})
	_, err = sip.QuerySubscriptionFields(unknownCall, []string{"event"})
	require.ErrorIs(t, err, sip.ErrCallNotFound)

	unknownSub := sip.EncodeSubscriptionHandle(sip.SubscriptionHandle{
		ServiceID:      "svc-east-1",
		SubscriptionID: HashKey("dialog", "undefined"),
		DialogID:       dialog.ID,
		CallID:         callID,
	})
	_, err = sip.QuerySubscriptionFields(unknownSub, []string{"event"})
	require.ErrorIs(t, err, sip.ErrInvalidSubscription)
}
