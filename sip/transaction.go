package sip

import (
	"fmt"
	"net"
	"time"

	. "ESGo/global"
	"ESGo/guid"
)

// Transaction tracks one incoming request so retransmissions can be
// recognized and answered with the stored response instead of reprocessing.
// Non-INVITE server transactions need no timers - responses are replayed
// only when the request shows up again.
type Transaction struct {
	Key       string
	TransTime time.Time

	Method    Method
	CSeq      uint32
	ViaBranch string
	Direction Direction

	ViaUdpAddr *net.UDPAddr

	RequestMessage *SipMessage
	SentMessage    *SipMessage

	IsFinalized bool
}

func NewSIPTransaction_RT(sipmsg *SipMessage) *Transaction {
	return &Transaction{
		Key:            guid.NewKey(),
		TransTime:      time.Now(),
		Method:         sipmsg.StartLine.Method,
		CSeq:           sipmsg.CSeqNum,
		ViaBranch:      sipmsg.ViaBranch,
		Direction:      INBOUND,
		ViaUdpAddr:     sipmsg.ViaUdpAddr,
		RequestMessage: sipmsg,
	}
}

// ================================================================================
// Call-side transaction bookkeeping - all inside the actor

func (call *SipCall) getTransaction(sipmsg *SipMessage) *Transaction {
	return Find(call.Transactions, func(trans *Transaction) bool {
		return trans.ViaBranch == sipmsg.ViaBranch && trans.CSeq == sipmsg.CSeqNum && trans.Method == sipmsg.GetMethod()
	})
}

// addIncomingRequest registers a new server transaction, or replays the
// stored response and returns nil when the request is a retransmission.
func (call *SipCall) addIncomingRequest(sipmsg *SipMessage) *Transaction {
	if trans := call.getTransaction(sipmsg); trans != nil {
		if trans.SentMessage != nil {
			call.sendmessage(trans.SentMessage, trans.ViaUdpAddr)
		}
		LogWarning(LTSIPStack, fmt.Sprintf("Retransmitted [%s] in Call-ID [%s] - response replayed", sipmsg.String(), call.CallID))
		return nil
	}
	trans := NewSIPTransaction_RT(sipmsg)
	call.Transactions = append(call.Transactions, trans)
	return trans
}

// ================================================================================

func (call *SipCall) SendCreatedResponse(trans *Transaction, stsCode int, body *MessageBody) {
	call.SendCreatedResponseDetailed(trans, ResponsePack{StatusCode: stsCode}, body)
}

func (call *SipCall) SendCreatedResponseDetailed(trans *Transaction, rp ResponsePack, body *MessageBody) {
	rsps := trans.RequestMessage.BuildResponse(rp, body)
	rsps.PrepareMessageBytes()

	trans.SentMessage = rsps
	trans.IsFinalized = rp.StatusCode >= 200

	if trans.ViaUdpAddr != nil {
		call.sendmessage(rsps, trans.ViaUdpAddr)
	} else {
		call.sendmessage(rsps, call.RemoteUDP())
	}
}
