package sip

import (
	. "ESGo/global"

	"github.com/Moatassem/sdp"
)

type MessageBody struct {
	PartsContents map[BodyType]ContentPart // used to store incoming/outgoing body parts
	SdpSession    *sdp.Session             // used to store SDP session for the SDP body part
}

type ContentPart struct {
	Headers SipHeaders
	Bytes   []byte
}

func NewBody() *MessageBody {
	return &MessageBody{PartsContents: make(map[BodyType]ContentPart)}
}

func ZeroBody() *MessageBody {
	return nil
}

// ===============================================================

func (msgbody *MessageBody) ContainsSDP() bool {
	_, ok := msgbody.PartsContents[SDP]
	return ok
}

// ParseSDPPart parses the SDP body part, if any, caching the parsed session.
// Dialogs record the origin session id/version for their meta fields.
func (msgbody *MessageBody) ParseSDPPart() (*sdp.Session, error) {
	if msgbody.SdpSession != nil {
		return msgbody.SdpSession, nil
	}
	part, ok := msgbody.PartsContents[SDP]
	if !ok {
		return nil, nil
	}
	sdpses, err := sdp.Parse(part.Bytes)
	if err != nil {
		return nil, err
	}
	msgbody.SdpSession = sdpses
	return sdpses, nil
}
