package sip

import (
	"bytes"
	"cmp"
	"fmt"
	"net"
	"slices"
	"strings"

	. "ESGo/global"
)

type SipMessage struct {
	MsgType   MessageType
	StartLine *StartLine
	Headers   *SipHeaders
	Body      *MessageBody
	Bytes     []byte // used to store the generated bytes for sending msgs

	// all fields below are only set in incoming messages
	FromHeader string
	ToHeader   string

	CallID    string
	FromTag   string
	ToTag     string
	ViaBranch string

	ViaUdpAddr *net.UDPAddr

	CSeqNum    uint32
	CSeqMethod Method

	ContentLength int // only set for incoming messages
}

func NewResponseMessage(sc int, rp string) *SipMessage {
	if sc < 100 || sc > 699 {
		LogWarning(LTSIPStack, fmt.Sprintf("[%d] - Bad status code in NewResponseMessage - replaced by 400", sc))
		sc = 400
	}
	sipmsg := &SipMessage{
		MsgType: RESPONSE,
		StartLine: &StartLine{
			StatusCode:   sc,
			ReasonPhrase: cmp.Or(rp, DicResponse[sc], DicResponse[(sc/100)*100]),
		},
	}
	return sipmsg
}

// ==========================================================================

func (sipmsg *SipMessage) String() string {
	if sipmsg.MsgType == REQUEST {
		return sipmsg.StartLine.Method.String()
	}
	return Int2Str(sipmsg.StartLine.StatusCode)
}

func (sipmsg *SipMessage) IsResponse() bool {
	return sipmsg.MsgType == RESPONSE
}

func (sipmsg *SipMessage) IsRequest() bool {
	return sipmsg.MsgType == REQUEST
}

func (sipmsg *SipMessage) GetMethod() Method {
	if sipmsg.IsRequest() {
		return sipmsg.StartLine.Method
	}
	return sipmsg.CSeqMethod
}

func (sipmsg *SipMessage) GetStatusCode() int {
	return sipmsg.StartLine.StatusCode
}

func (sipmsg *SipMessage) IsOutOfDialogue() bool {
	return sipmsg.ToTag == ""
}

// ==========================================================================

// GetEventHeader returns the event package token and its parameters.
func (sipmsg *SipMessage) GetEventHeader() (string, map[string]string, bool) {
	ok, values := sipmsg.Headers.ValuesHeader(Event)
	if !ok || len(values) == 0 {
		return "", nil, false
	}
	nvc := CleanAndSplitHeader(values[0])
	token := ASCIIToLower(nvc["!headerValue"])
	delete(nvc, "!headerValue")
	return token, nvc, token != ""
}

// GetExpires returns the Expires header value or the given default.
func (sipmsg *SipMessage) GetExpires(deflt int) int {
	hv := sipmsg.Headers.ValueHeader(Expires)
	if hv == "" {
		return deflt
	}
	expires, ok := Str2IntCheck[int](hv)
	if !ok || expires < 0 {
		return deflt
	}
	return expires
}

func (sipmsg *SipMessage) WithNoBody() bool {
	return sipmsg.Body == nil || len(sipmsg.Body.PartsContents) == 0
}

func (sipmsg *SipMessage) ContainsSDP() bool {
	return !sipmsg.WithNoBody() && sipmsg.Body.ContainsSDP()
}

func (sipmsg *SipMessage) GetBodyPart(bt BodyType) (ContentPart, bool) {
	if sipmsg.WithNoBody() {
		var cp ContentPart
		return cp, false
	}
	cntnt, ok := sipmsg.Body.PartsContents[bt]
	return cntnt, ok
}

// ==========================================================================

var orderedHeaders = []string{"via", "record-route", "from", "to", "call-id", "cseq"}

// PrepareMessageBytes serializes the message for sending, caching the
// generated bytes for retransmissions.
func (sipmsg *SipMessage) PrepareMessageBytes() {
	var bb bytes.Buffer

	bb.WriteString(sipmsg.StartLine.GetStartLine(sipmsg.MsgType))

	var bodybytes []byte
	if sipmsg.WithNoBody() {
		sipmsg.Headers.SetHeader(Content_Length, "0")
		sipmsg.Headers.DeleteHeader(Content_Type)
	} else {
		k, ct := firstPart(sipmsg.Body.PartsContents)
		sipmsg.Headers.SetHeader(Content_Type, DicBodyContentType[k])
		bodybytes = ct.Bytes
		sipmsg.Headers.SetHeader(Content_Length, Int2Str(len(bodybytes)))
	}

	written := make(map[string]bool, len(orderedHeaders))
	writeHeader := func(h string) {
		_, values := sipmsg.Headers.Values(h)
		for _, hv := range values {
			if hv != "" {
				bb.WriteString(fmt.Sprintf("%s: %s\r\n", HeaderCase(h), hv))
			}
		}
		written[h] = true
	}

	for _, h := range orderedHeaders {
		writeHeader(h)
	}
	rest := sipmsg.Headers.GetHeaderNames()
	slices.Sort(rest)
	for _, h := range rest {
		if !written[h] {
			writeHeader(h)
		}
	}

	bb.WriteString("\r\n")
	bb.Write(bodybytes)

	sipmsg.Bytes = bb.Bytes()
}

func firstPart(parts map[BodyType]ContentPart) (BodyType, ContentPart) {
	for k, v := range parts {
		return k, v
	}
	return None, ContentPart{}
}

// ==========================================================================

// BuildResponse creates a response to this request, copying the dialog
// identification headers the way the transaction layer expects them.
func (sipmsg *SipMessage) BuildResponse(rp ResponsePack, body *MessageBody) *SipMessage {
	rsps := NewResponseMessage(rp.StatusCode, rp.ReasonPhrase)
	hdrs := NewSHsPointer(true)

	for _, h := range []HeaderEnum{Via, Record_Route, From, Call_ID, CSeq} {
		if ok, values := sipmsg.Headers.ValuesHeader(h); ok {
			for _, v := range values {
				hdrs.AddHeader(h, v)
			}
		}
	}

	toheader := sipmsg.ToHeader
	if sipmsg.ToTag == "" && rp.ToTag != "" {
		toheader = fmt.Sprintf("%s;tag=%s", toheader, rp.ToTag)
	}
	hdrs.AddHeader(To, toheader)

	for _, h := range rp.CustomHeaders.GetHeaderNames() {
		_, values := rp.CustomHeaders.Values(h)
		for _, v := range values {
			hdrs.Add(h, v)
		}
	}

	rsps.Headers = hdrs
	rsps.Body = body
	rsps.CallID = sipmsg.CallID
	rsps.CSeqNum = sipmsg.CSeqNum
	rsps.CSeqMethod = sipmsg.CSeqMethod
	rsps.ViaBranch = sipmsg.ViaBranch
	return rsps
}

// canonical single-line rendering of the event token with its parameters
func RawEventHeader(token string, params map[string]string) string {
	if len(params) == 0 {
		return token
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	var sb strings.Builder
	sb.WriteString(token)
	for _, k := range keys {
		if params[k] == "" {
			sb.WriteString(fmt.Sprintf(";%s", k))
		} else {
			sb.WriteString(fmt.Sprintf(";%s=%s", k, params[k]))
		}
	}
	return sb.String()
}
