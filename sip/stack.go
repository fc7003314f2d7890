package sip

import (
	"errors"
	"fmt"
	"strings"
	"time"

	. "ESGo/global"
	"ESGo/guid"
	"ESGo/journal"
	"ESGo/sip/mode"
	"ESGo/sip/state"
	"ESGo/sip/status"
)

// ServiceID names the service this engine runs as - it is baked into every
// handle and journal record. Set once at startup.
var ServiceID string

func processPDU(payload []byte) (*SipMessage, []byte, error) {
	defer LogCallStack()

	var msgType MessageType
	var startLine StartLine

	sipmsg := new(SipMessage)
	msgmap := NewSHsPointer(false)

	_dblCrLfIdx := GetNextIndex(payload, "\r\n\r\n")
	if _dblCrLfIdx == -1 {
		// empty sip message
		return nil, nil, nil
	}

	msglines := strings.Split(string(payload[:_dblCrLfIdx]), "\r\n")

	// start line parsing
	if matches := RMatch(msglines[0], RequestStartLinePattern); len(matches) > 0 {
		msgType = REQUEST
		startLine.StatusCode = 0
		startLine.Method = MethodFromName(ASCIIToUpper(matches[1]))
		if startLine.Method == UNKNOWN {
			return sipmsg, nil, errors.New("invalid method for Request message")
		}
		startLine.RUri = matches[2]
	} else {
		matches := RMatch(msglines[0], ResponseStartLinePattern)
		if len(matches) == 0 {
			sipmsg.MsgType = INVALID
			return sipmsg, nil, errors.New("invalid message")
		}
		msgType = RESPONSE
		code := Str2Int[int](matches[1])
		if code < 100 || code > 699 {
			return nil, nil, errors.New("invalid code for Response message")
		}
		startLine.StatusCode = code
		startLine.ReasonPhrase = matches[2]
	}
	sipmsg.MsgType = msgType
	sipmsg.StartLine = &startLine

	// headers parsing
	isViaTried := false // to signal the processing of the first encountered Via header

	for i := 1; i < len(msglines) && msglines[i] != ""; i++ {
		matches := DicFieldRegExp[FullHeader].FindStringSubmatch(msglines[i])
		if matches == nil {
			continue
		}
		headerLC := ASCIIToLower(matches[1])
		value := matches[2]
		switch headerLC {
		case From.LowerCaseString():
			tag := DicFieldRegExp[Tag].FindStringSubmatch(value)
			if tag != nil {
				sipmsg.FromTag = tag[1]
			}
			sipmsg.FromHeader = value
		case To.LowerCaseString():
			tag := DicFieldRegExp[Tag].FindStringSubmatch(value)
			if tag != nil && tag[1] != "" {
				sipmsg.ToTag = tag[1]
			}
			sipmsg.ToHeader = value
		case Call_ID.LowerCaseString():
			sipmsg.CallID = value
		case CSeq.LowerCaseString():
			cseq := DicFieldRegExp[CSeqHeader].FindStringSubmatch(value)
			if cseq == nil {
				LogError(LTSIPStack, "Invalid CSeq header")
				return nil, nil, errors.New("invalid CSeq header")
			}
			sipmsg.CSeqNum = Str2Uint[uint32](cseq[1])
			sipmsg.CSeqMethod = MethodFromName(ASCIIToUpper(cseq[2]))
			if startLine.StatusCode == 0 {
				r1 := startLine.Method.String()
				r2 := ASCIIToUpper(cseq[2])
				if r1 != r2 {
					LogError(LTSIPStack, fmt.Sprintf("Invalid Request Method: %s vs CSeq Method: %s", r1, r2))
					return nil, nil, errors.New("invalid CSeq header")
				}
			}
		case Via.LowerCaseString():
			if !isViaTried {
				isViaTried = true
				via := DicFieldRegExp[ViaBranchPattern].FindStringSubmatch(value)
				if via == nil {
					break
				}
				skt := DicFieldRegExp[ViaIPv4Socket].FindStringSubmatch(value)
				if len(skt) > 0 {
					sipmsg.ViaUdpAddr, _ = BuildUdpAddr(skt[2]+":"+skt[3], SipPort)
				}
				sipmsg.ViaBranch = via[1]
				if !strings.HasPrefix(via[1], MagicCookie) {
					LogWarning(LTSIPStack, fmt.Sprintf("Received message [%s] having non-RFC3261 Via branch [%s]", sipmsg.String(), via[1]))
				}
			}
		}
		msgmap.Add(headerLC, value)
	}

	if ko, hdr := msgmap.AnyMandatoryHeadersMissing(sipmsg.GetMethod()); ko {
		LogError(LTBadSIPMessage, fmt.Sprintf("Missing mandatory header [%s]", hdr))
		return nil, nil, errors.New("missing mandatory header")
	}

	if msgmap.HeaderCount("CSeq") > 1 {
		LogError(LTBadSIPMessage, "Duplicate CSeq header")
		return nil, nil, errors.New("duplicate CSeq header")
	}

	if msgmap.HeaderCount("Content-Length") > 1 {
		LogError(LTBadSIPMessage, "Duplicate Content-Length header")
		return nil, nil, errors.New("duplicate Content-Length header")
	}

	_bodyStartIdx := _dblCrLfIdx + 4 // CrLf x 2

	// automatic deducing of content-length
	cntntLength := len(payload) - _bodyStartIdx
	sipmsg.ContentLength = cntntLength

	if ok, values := msgmap.ValuesHeader(Content_Length); ok {
		cntntLength = Str2Int[int](values[0])
	} else {
		if ok, _ := msgmap.ValuesHeader(Content_Type); ok {
			msgmap.AddHeader(Content_Length, Int2Str(cntntLength))
		} else {
			msgmap.AddHeader(Content_Length, "0")
		}
	}
	sipmsg.Headers = msgmap

	// body parsing
	if cntntLength == 0 {
		payload = payload[_bodyStartIdx:]
		return sipmsg, payload, nil
	}

	if len(payload) < _bodyStartIdx+cntntLength {
		LogError(LTBadSIPMessage, "bad content-length or fragmented pdu")
		return nil, nil, errors.New("bad content-length or fragmented pdu")
	}

	MB := NewBody()

	ok, v := msgmap.ValuesHeader(Content_Type)
	if !ok {
		LogWarning(LTSIPStack, "Content-Type header is missing while Content-Length is non-zero - Message skipped")
		return nil, nil, errors.New("bad message - invalid body")
	}
	cntntTypeSections := CleanAndSplitHeader(v[0])
	if cntntTypeSections == nil {
		return nil, nil, errors.New("bad message - invalid body")
	}

	cntntType := ASCIIToLower(cntntTypeSections["!headerValue"])
	bt := GetBodyType(cntntType)
	if bt == Unknown {
		LogError(LTBadSIPMessage, "Unknown Content-Type value")
	} else {
		MB.PartsContents[bt] = ContentPart{Bytes: payload[_bodyStartIdx : _bodyStartIdx+cntntLength]}
	}
	payload = payload[_bodyStartIdx+cntntLength:]

	sipmsg.Body = MB

	return sipmsg, payload, nil
}

// ================================================================================

func callGetter(sipmsg *SipMessage) (*SipCall, NewCallType) {
	defer LogCallStack()

	callID := sipmsg.CallID
	if call, ok := Calls.Load(callID); ok {
		return call, ValidRequest
	}

	if sipmsg.IsResponse() {
		return nil, Response
	}

	call := NewSipCall(sipmsg)
	Calls.Store(callID, call)
	if sipmsg.ToTag != "" {
		return call, CallLegTransactionNotExist
	}
	switch sipmsg.GetMethod() {
	case SUBSCRIBE:
		call.Mymode = mode.Subscription
		return call, ValidRequest
	case REFER:
		call.Mymode = mode.Referral
		return call, ValidRequest
	case OPTIONS:
		call.Mymode = mode.KeepAlive
		return call, ValidRequest
	case NOTIFY:
		return call, CallLegTransactionNotExist
	case ACK:
		return call, UnExpectedMessage
	default:
		return call, InvalidRequest
	}
}

func sipStack(sipmsg *SipMessage, call *SipCall, newCallType NewCallType) {
	defer LogCallStack()

	if call == nil || newCallType == Response {
		return
	}
	if err := call.Invoke(func() { call.processMessage(sipmsg, newCallType) }); err != nil {
		LogWarning(LTSIPStack, fmt.Sprintf("Received message [%s] in disposed Call-ID [%s] - discarded", sipmsg.String(), sipmsg.CallID))
	}
}

// ================================================================================
// Engine dispatch - everything below runs inside the call actor.

func (call *SipCall) processMessage(sipmsg *SipMessage, newCallType NewCallType) {
	if call.IsDisposed {
		return
	}

	if sipmsg.IsResponse() {
		// this engine never originates requests - stray responses are dropped
		return
	}

	trans := call.addIncomingRequest(sipmsg)
	if trans == nil {
		return
	}

	//nolint:exhaustive
	switch newCallType {
	case UnExpectedMessage:
		call.DropMe()
		return
	case InvalidRequest:
		call.SendCreatedResponse(trans, status.MethodNotAllowed, ZeroBody())
		call.DropMe()
		return
	case CallLegTransactionNotExist:
		call.SendCreatedResponse(trans, status.CallTransactionDoesNotExist, ZeroBody())
		call.DropMe()
		return
	}

	//nolint:exhaustive
	switch sipmsg.GetMethod() {
	case SUBSCRIBE:
		call.handleSubscribe(trans, sipmsg)
	case REFER:
		call.handleRefer(trans, sipmsg)
	case NOTIFY:
		call.handleNotify(trans, sipmsg)
	case BYE:
		call.handleBye(trans, sipmsg)
	case OPTIONS:
		call.SendCreatedResponse(trans, status.OK, ZeroBody())
		if sipmsg.IsOutOfDialogue() && call.Mymode == mode.KeepAlive {
			call.DropMe()
		}
	default:
		call.SendCreatedResponse(trans, status.MethodNotAllowed, ZeroBody())
		if sipmsg.IsOutOfDialogue() {
			call.DropMe()
		}
	}
}

// findOrCreateDialog resolves the addressed dialog side, creating one for
// dialog-establishing out-of-dialog requests.
func (call *SipCall) findOrCreateDialog(sipmsg *SipMessage) *Dialog {
	if dialog := call.FindDialogByMsg(sipmsg); dialog != nil {
		return dialog
	}
	if !sipmsg.IsOutOfDialogue() {
		return nil
	}
	dialog := NewDialog(ServiceID, call.CallID, guid.NewTag(), sipmsg.FromTag)
	call.AddDialog(dialog)
	return dialog
}

func (call *SipCall) handleSubscribe(trans *Transaction, sipmsg *SipMessage) {
	token, params, ok := sipmsg.GetEventHeader()
	if !ok {
		call.SendCreatedResponseDetailed(trans, NewResponsePackWarning(status.BadEvent, "Missing or empty Event header"), ZeroBody())
		return
	}

	dialog := call.findOrCreateDialog(sipmsg)
	if dialog == nil {
		call.SendCreatedResponse(trans, status.CallTransactionDoesNotExist, ZeroBody())
		return
	}

	subID := DeriveSubscriptionID(sipmsg)
	sub := dialog.FindSubscription(subID)
	if sub == nil {
		sub = NewSubscription(subID, SubsClassSubscribe, token, params)
		dialog.AddSubscription(sub)
	}
	prev := sub.Status()

	expires := sipmsg.GetExpires(DefExpires)
	if expires == 0 {
		sub.Terminate(SubsReasonNone)
	} else {
		sub.Refresh(expires)
		sub.ArmExpiryTimer(call.expiryHandler(dialog, sub))
	}

	dialog.State = state.Confirmed
	dialog.RecordSDPOrigin(sipmsg)

	rp := ResponsePack{StatusCode: status.OK, ToTag: dialog.LocalTag, CustomHeaders: NewSipHeaders()}
	rp.CustomHeaders.AddHeader(Expires, Int2Str(expires))
	call.SendCreatedResponseDetailed(trans, rp, ZeroBody())

	journalTransition(dialog, sub, prev)
	call.reapIfIdle()
}

func (call *SipCall) handleRefer(trans *Transaction, sipmsg *SipMessage) {
	if sipmsg.Headers.ValueHeader(Refer_To) == "" {
		call.SendCreatedResponseDetailed(trans, NewResponsePackWarning(status.BadRequest, "Missing Refer-To header"), ZeroBody())
		return
	}

	dialog := call.findOrCreateDialog(sipmsg)
	if dialog == nil {
		call.SendCreatedResponse(trans, status.CallTransactionDoesNotExist, ZeroBody())
		return
	}
	dialog.State = state.Confirmed

	rp := ResponsePack{StatusCode: status.Accepted, ToTag: dialog.LocalTag, CustomHeaders: NewSipHeaders()}

	// RFC 4488 - the referrer may suppress the implicit subscription
	if ASCIIToLower(sipmsg.Headers.ValueHeader(Refer_Sub)) == "false" {
		rp.CustomHeaders.AddHeader(Refer_Sub, "false")
		call.SendCreatedResponseDetailed(trans, rp, ZeroBody())
		return
	}

	cseq := Uint32ToStr(sipmsg.CSeqNum)
	subID := DeriveSubscriptionID(sipmsg)
	sub := dialog.FindSubscription(subID)
	if sub == nil {
		sub = NewSubscription(subID, SubsClassRefer, "refer", map[string]string{"id": cseq})
		dialog.AddSubscription(sub)
	}
	prev := sub.Status()
	sub.Refresh(DefExpires)
	sub.ArmExpiryTimer(call.expiryHandler(dialog, sub))

	rp.CustomHeaders.AddHeader(Expires, Int2Str(DefExpires))
	call.SendCreatedResponseDetailed(trans, rp, ZeroBody())

	journalTransition(dialog, sub, prev)
}

func (call *SipCall) handleNotify(trans *Transaction, sipmsg *SipMessage) {
	dialog := call.FindDialogByMsg(sipmsg)
	if dialog == nil {
		call.SendCreatedResponse(trans, status.CallTransactionDoesNotExist, ZeroBody())
		return
	}

	_, values := sipmsg.Headers.ValuesHeader(Subscription_State)
	ss := ParseSubscriptionState(values)
	if ss.State == SubsStateInvalid {
		call.SendCreatedResponseDetailed(trans, NewResponsePackWarning(status.BadRequest, "Malformed Subscription-State header"), ZeroBody())
		return
	}

	sub := dialog.FindSubscriptionByMsg(sipmsg)
	if sub == nil {
		call.SendCreatedResponse(trans, status.CallTransactionDoesNotExist, ZeroBody())
		return
	}

	prev := sub.Status()
	if sub.ApplyState(ss) {
		if !sub.IsTerminated() {
			sub.ArmExpiryTimer(call.expiryHandler(dialog, sub))
		}
		journalTransition(dialog, sub, prev)
	}
	Prometrics.Notifies.Inc()
	dialog.RecordSDPOrigin(sipmsg)

	call.SendCreatedResponse(trans, status.OK, ZeroBody())
	call.reapIfIdle()
}

func (call *SipCall) handleBye(trans *Transaction, sipmsg *SipMessage) {
	dialog := call.FindDialogByMsg(sipmsg)
	if dialog == nil {
		call.SendCreatedResponse(trans, status.CallTransactionDoesNotExist, ZeroBody())
		return
	}

	for _, sub := range dialog.Subscriptions {
		if sub.IsTerminated() {
			continue
		}
		prev := sub.Status()
		sub.Terminate(SubsReasonNone)
		journalTransition(dialog, sub, prev)
	}
	dialog.State = state.Terminated

	call.SendCreatedResponse(trans, status.OK, ZeroBody())
	call.DropMe()
}

// ================================================================================

// expiryHandler re-enters the call actor when a subscription deadline
// fires. The call may be gone by then - that is fine.
func (call *SipCall) expiryHandler(dialog *Dialog, sub *Subscription) func() {
	return func() {
		//nolint:errcheck
		call.Invoke(func() {
			if sub.IsTerminated() {
				return
			}
			prev := sub.Status()
			sub.Terminate(SubsReasonNone)
			journalTransition(dialog, sub, prev)
			call.reapIfIdle()
		})
	}
}

// reapIfIdle disposes the call once nothing live is left in it.
func (call *SipCall) reapIfIdle() {
	for _, dialog := range call.Dialogs {
		for _, sub := range dialog.Subscriptions {
			if !sub.IsTerminated() {
				return
			}
		}
	}
	call.DropMe()
}

func journalTransition(dialog *Dialog, sub *Subscription, prev string) {
	rec := journal.New()
	rec.Set(journal.Timestamp, time.Now().UTC().Format(time.RFC3339))
	rec.Set(journal.CallID, dialog.CallID)
	rec.Set(journal.DialogID, dialog.ID)
	rec.Set(journal.ServiceID, dialog.ServiceID)
	rec.Set(journal.SubscriptionID, sub.ID)
	rec.Set(journal.Event, sub.Event)
	rec.Set(journal.Class, sub.Class.String())
	rec.Set(journal.Transition, prev+">"+sub.Status())
	rec.Set(journal.Reason, sub.Reason.String())
	rec.Set(journal.Expires, Int2Str(sub.Remaining()))
	rec.Flush()
}
