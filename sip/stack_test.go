package sip

import (
	"fmt"
	"os"
	"testing"

	. "ESGo/global"
	"ESGo/prometheus"
	"ESGo/sip/status"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	Prometrics = prometheus.NewMetrics(EngineNameVersion)
	Calls = NewConcurrentMapMutex[*SipCall](100)
	ServiceID = "svc-test"
	os.Exit(m.Run())
}

func TestProcessPDURequest(t *testing.T) {
	t.Parallel()

	pdu := []byte("SUBSCRIBE sip:alice@10.0.0.10 SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP 10.0.0.20:5060;branch=z9hG4bK776asdhds\r\n" +
		"From: <sip:bob@10.0.0.20>;tag=456248\r\n" +
		"To: <sip:alice@10.0.0.10>\r\n" +
		"Call-ID: 843817637684230@10.0.0.20\r\n" +
		"CSeq: 1826 SUBSCRIBE\r\n" +
		"Event: presence;id=42\r\n" +
		"Expires: 600\r\n" +
		"Content-Length: 0\r\n\r\n")

	sipmsg, rest, err := processPDU(pdu)
	require.NoError(t, err)
	require.NotNil(t, sipmsg)
	require.Empty(t, rest)

	require.Equal(t, REQUEST, sipmsg.MsgType)
	require.Equal(t, SUBSCRIBE, sipmsg.StartLine.Method)
	require.Equal(t, "843817637684230@10.0.0.20", sipmsg.CallID)
	require.Equal(t, "456248", sipmsg.FromTag)
	require.Empty(t, sipmsg.ToTag)
	require.Equal(t, "z9hG4bK776asdhds", sipmsg.ViaBranch)
	require.Equal(t, uint32(1826), sipmsg.CSeqNum)
	require.Equal(t, 600, sipmsg.GetExpires(DefExpires))

	token, params, ok := sipmsg.GetEventHeader()
	require.True(t, ok)
	require.Equal(t, "presence", token)
	require.Equal(t, "42", params["id"])
}

func TestProcessPDUResponse(t *testing.T) {
	t.Parallel()

	pdu := []byte("SIP/2.0 200 OK\r\n" +
		"Via: SIP/2.0/UDP 10.0.0.20:5060;branch=z9hG4bK99\r\n" +
		"From: <sip:bob@10.0.0.20>;tag=456248\r\n" +
		"To: <sip:alice@10.0.0.10>;tag=as83kd9bs\r\n" +
		"Call-ID: resp-test@10.0.0.20\r\n" +
		"CSeq: 2 SUBSCRIBE\r\n\r\n")

	sipmsg, _, err := processPDU(pdu)
	require.NoError(t, err)
	require.Equal(t, RESPONSE, sipmsg.MsgType)
	require.Equal(t, 200, sipmsg.GetStatusCode())
	require.Equal(t, SUBSCRIBE, sipmsg.GetMethod())
	require.Equal(t, "as83kd9bs", sipmsg.ToTag)
}

func TestProcessPDUWithBody(t *testing.T) {
	t.Parallel()

	body := "SIP/2.0 200 OK\r\n"
	pdu := []byte("NOTIFY sip:alice@10.0.0.10 SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP 10.0.0.20:5060;branch=z9hG4bK88\r\n" +
		"From: <sip:bob@10.0.0.20>;tag=456248\r\n" +
		"To: <sip:alice@10.0.0.10>;tag=local9\r\n" +
		"Call-ID: body-test@10.0.0.20\r\n" +
		"CSeq: 3 NOTIFY\r\n" +
		"Event: refer;id=93809824\r\n" +
		"Subscription-State: active;expires=60\r\n" +
		"Content-Type: message/sipfrag\r\n" +
		fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body)) +
		body)

	sipmsg, _, err := processPDU(pdu)
	require.NoError(t, err)
	part, ok := sipmsg.GetBodyPart(SIPFragment)
	require.True(t, ok)
	require.Equal(t, body, string(part.Bytes))
}

func TestProcessPDUMissingEvent(t *testing.T) {
	t.Parallel()

	// SUBSCRIBE without Event header is rejected outright
	pdu := []byte("SUBSCRIBE sip:alice@10.0.0.10 SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP 10.0.0.20:5060;branch=z9hG4bK77\r\n" +
		"From: <sip:bob@10.0.0.20>;tag=1\r\n" +
		"To: <sip:alice@10.0.0.10>\r\n" +
		"Call-ID: noevent@10.0.0.20\r\n" +
		"CSeq: 1 SUBSCRIBE\r\n\r\n")

	_, _, err := processPDU(pdu)
	require.Error(t, err)
}

// ================================================================================

func dispatch(t *testing.T, raw string) {
	t.Helper()
	sipmsg, _, err := processPDU([]byte(raw))
	require.NoError(t, err)
	require.NotNil(t, sipmsg)
	call, nct := callGetter(sipmsg)
	sipStack(sipmsg, call, nct)
}

func TestEngineSubscribeNotifyLifecycle(t *testing.T) {
	t.Parallel()

	callID := "lifecycle@10.0.0.20"

	dispatch(t, "SUBSCRIBE sip:alice@10.0.0.10 SIP/2.0\r\n"+
		"Via: SIP/2.0/UDP 10.0.0.20:5060;branch=z9hG4bKsub1\r\n"+
		"From: <sip:bob@10.0.0.20>;tag=remote1\r\n"+
		"To: <sip:alice@10.0.0.10>\r\n"+
		"Call-ID: "+callID+"\r\n"+
		"CSeq: 1 SUBSCRIBE\r\n"+
		"Event: presence;id=42\r\n"+
		"Expires: 600\r\n\r\n")

	call, ok := Calls.Load(callID)
	require.True(t, ok)

	var localTag, subID, subStatus, subEvent string
	var answered bool
	var dialogCount, subCount, sentStatus int
	require.NoError(t, call.Invoke(func() {
		dialogCount = len(call.Dialogs)
		for _, dialog := range call.Dialogs {
			localTag = dialog.LocalTag
			subCount = len(dialog.Subscriptions)
			for _, sub := range dialog.Subscriptions {
				subID = sub.ID
				subStatus = sub.Status()
				subEvent = sub.Event
				answered = sub.Answered
			}
		}
		if len(call.Transactions) > 0 && call.Transactions[0].SentMessage != nil {
			sentStatus = call.Transactions[0].SentMessage.GetStatusCode()
		}
	}))
	require.Equal(t, 1, dialogCount)
	require.Equal(t, 1, subCount)
	require.Equal(t, "idle", subStatus)
	require.False(t, answered)
	require.Equal(t, "presence", subEvent)
	require.Equal(t, status.OK, sentStatus)
	require.NotEmpty(t, localTag)

	dispatch(t, "NOTIFY sip:alice@10.0.0.10 SIP/2.0\r\n"+
		"Via: SIP/2.0/UDP 10.0.0.20:5060;branch=z9hG4bKnot1\r\n"+
		"From: <sip:bob@10.0.0.20>;tag=remote1\r\n"+
		"To: <sip:alice@10.0.0.10>;tag="+localTag+"\r\n"+
		"Call-ID: "+callID+"\r\n"+
		"CSeq: 2 NOTIFY\r\n"+
		"Event: presence;id=42\r\n"+
		"Subscription-State: active;expires=60\r\n\r\n")

	subStatus, answered = "", false
	require.NoError(t, call.Invoke(func() {
		if dialog := call.FindDialogByTags("remote1", localTag); dialog != nil {
			if sub := dialog.FindSubscription(subID); sub != nil {
				subStatus = sub.Status()
				answered = sub.Answered
			}
		}
	}))
	require.Equal(t, "active", subStatus)
	require.True(t, answered)

	dispatch(t, "NOTIFY sip:alice@10.0.0.10 SIP/2.0\r\n"+
		"Via: SIP/2.0/UDP 10.0.0.20:5060;branch=z9hG4bKnot2\r\n"+
		"From: <sip:bob@10.0.0.20>;tag=remote1\r\n"+
		"To: <sip:alice@10.0.0.10>;tag="+localTag+"\r\n"+
		"Call-ID: "+callID+"\r\n"+
		"CSeq: 3 NOTIFY\r\n"+
		"Event: presence;id=42\r\n"+
		"Subscription-State: terminated;reason=giveup\r\n\r\n")

	// the last live subscription terminated - call reaped
	_, ok = Calls.Load(callID)
	require.False(t, ok)
}

func TestEngineReferImplicitSubscription(t *testing.T) {
	t.Parallel()

	callID := "refer@10.0.0.20"

	dispatch(t, "REFER sip:alice@10.0.0.10 SIP/2.0\r\n"+
		"Via: SIP/2.0/UDP 10.0.0.20:5060;branch=z9hG4bKref1\r\n"+
		"From: <sip:bob@10.0.0.20>;tag=remote2\r\n"+
		"To: <sip:alice@10.0.0.10>\r\n"+
		"Call-ID: "+callID+"\r\n"+
		"CSeq: 93809824 REFER\r\n"+
		"Refer-To: <sip:carol@10.0.0.30>\r\n\r\n")

	call, ok := Calls.Load(callID)
	require.True(t, ok)

	var localTag, rawEvent string
	var class SubsClass
	var found bool
	var sentStatus int
	expectedID := HashKey("refer", "93809824")
	require.NoError(t, call.Invoke(func() {
		for _, dialog := range call.Dialogs {
			localTag = dialog.LocalTag
			if sub := dialog.FindSubscription(expectedID); sub != nil {
				found = true
				class = sub.Class
				rawEvent = sub.RawEvent
			}
		}
		if len(call.Transactions) > 0 && call.Transactions[0].SentMessage != nil {
			sentStatus = call.Transactions[0].SentMessage.GetStatusCode()
		}
	}))
	require.True(t, found)
	require.Equal(t, SubsClassRefer, class)
	require.Equal(t, "refer;id=93809824", rawEvent)
	require.Equal(t, status.Accepted, sentStatus)

	// progress NOTIFY keys on the same identity through Event: refer;id=<cseq>
	dispatch(t, "NOTIFY sip:alice@10.0.0.10 SIP/2.0\r\n"+
		"Via: SIP/2.0/UDP 10.0.0.20:5060;branch=z9hG4bKref2\r\n"+
		"From: <sip:bob@10.0.0.20>;tag=remote2\r\n"+
		"To: <sip:alice@10.0.0.10>;tag="+localTag+"\r\n"+
		"Call-ID: "+callID+"\r\n"+
		"CSeq: 2 NOTIFY\r\n"+
		"Event: refer;id=93809824\r\n"+
		"Subscription-State: active\r\n"+
		"Content-Type: message/sipfrag\r\n"+
		"Content-Length: 20\r\n\r\n"+
		"SIP/2.0 100 Trying\r\n")

	var subStatus string
	require.NoError(t, call.Invoke(func() {
		if dialog := call.FindDialogByTags("remote2", localTag); dialog != nil {
			if sub := dialog.FindSubscription(expectedID); sub != nil {
				subStatus = sub.Status()
			}
		}
	}))
	require.Equal(t, "active", subStatus)

	// BYE tears down the dialog and whatever is still subscribed
	dispatch(t, "BYE sip:alice@10.0.0.10 SIP/2.0\r\n"+
		"Via: SIP/2.0/UDP 10.0.0.20:5060;branch=z9hG4bKref3\r\n"+
		"From: <sip:bob@10.0.0.20>;tag=remote2\r\n"+
		"To: <sip:alice@10.0.0.10>;tag="+localTag+"\r\n"+
		"Call-ID: "+callID+"\r\n"+
		"CSeq: 3 BYE\r\n\r\n")

	_, ok = Calls.Load(callID)
	require.False(t, ok)
}

func TestEngineMalformedNotifyStateRejected(t *testing.T) {
	t.Parallel()

	callID := "badnotify@10.0.0.20"

	dispatch(t, "SUBSCRIBE sip:alice@10.0.0.10 SIP/2.0\r\n"+
		"Via: SIP/2.0/UDP 10.0.0.20:5060;branch=z9hG4bKbad1\r\n"+
		"From: <sip:bob@10.0.0.20>;tag=remote3\r\n"+
		"To: <sip:alice@10.0.0.10>\r\n"+
		"Call-ID: "+callID+"\r\n"+
		"CSeq: 1 SUBSCRIBE\r\n"+
		"Event: dialog\r\n\r\n")

	call, ok := Calls.Load(callID)
	require.True(t, ok)

	var localTag string
	require.NoError(t, call.Invoke(func() {
		for _, dialog := range call.Dialogs {
			localTag = dialog.LocalTag
		}
	}))

	dispatch(t, "NOTIFY sip:alice@10.0.0.10 SIP/2.0\r\n"+
		"Via: SIP/2.0/UDP 10.0.0.20:5060;branch=z9hG4bKbad2\r\n"+
		"From: <sip:bob@10.0.0.20>;tag=remote3\r\n"+
		"To: <sip:alice@10.0.0.10>;tag="+localTag+"\r\n"+
		"Call-ID: "+callID+"\r\n"+
		"CSeq: 2 NOTIFY\r\n"+
		"Event: dialog\r\n"+
		"Subscription-State: active;expires=-5\r\n\r\n")

	// malformed Subscription-State got 400, the subscription stayed put
	var subStatus string
	var answered bool
	var sentStatus int
	require.NoError(t, call.Invoke(func() {
		if dialog := call.FindDialogByTags("remote3", localTag); dialog != nil {
			if sub := dialog.FindSubscriptionByMsg(&SipMessage{
				MsgType:   REQUEST,
				StartLine: &StartLine{Method: NOTIFY},
				Headers:   eventHeaders("dialog"),
			}); sub != nil {
				subStatus = sub.Status()
				answered = sub.Answered
			}
		}
		last := call.Transactions[len(call.Transactions)-1]
		if last.SentMessage != nil {
			sentStatus = last.SentMessage.GetStatusCode()
		}
	}))
	require.Equal(t, "idle", subStatus)
	require.False(t, answered)
	require.Equal(t, status.BadRequest, sentStatus)
}

func TestEngineRetransmissionReplaysResponse(t *testing.T) {
	t.Parallel()

	callID := "retrans@10.0.0.20"
	subscribe := "SUBSCRIBE sip:alice@10.0.0.10 SIP/2.0\r\n" +
		"Via: SIP/2.0/UDP 10.0.0.20:5060;branch=z9hG4bKrtx1\r\n" +
		"From: <sip:bob@10.0.0.20>;tag=remote4\r\n" +
		"To: <sip:alice@10.0.0.10>\r\n" +
		"Call-ID: " + callID + "\r\n" +
		"CSeq: 1 SUBSCRIBE\r\n" +
		"Event: presence\r\n\r\n"

	dispatch(t, subscribe)
	dispatch(t, subscribe) // retransmission

	call, ok := Calls.Load(callID)
	require.True(t, ok)
	var transCount, dialogCount, subCount int
	require.NoError(t, call.Invoke(func() {
		transCount = len(call.Transactions)
		dialogCount = len(call.Dialogs)
		for _, dialog := range call.Dialogs {
			subCount += len(dialog.Subscriptions)
		}
	}))
	require.Equal(t, 1, transCount)
	require.Equal(t, 1, dialogCount)
	require.Equal(t, 1, subCount)
}

func eventHeaders(event string) *SipHeaders {
	hdrs := NewSHsPointer(false)
	hdrs.AddHeader(Event, event)
	return hdrs
}
