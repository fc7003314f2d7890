package sip

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	. "ESGo/global"
	"ESGo/sip/mode"
)

// ErrCallNotFound is the uniform outcome for missing and disposed calls -
// callers cannot tell the two apart.
var ErrCallNotFound = errors.New("call not found")

var Calls ConcurrentMapMutex[*SipCall]

type job struct {
	fn  func()
	res chan error
}

// SipCall owns everything belonging to one Call-ID: its dialogs, their
// subscriptions and the transaction list. A single goroutine consumes the
// job channel, so call state needs no locking - all reads and mutations
// are funneled through Invoke or arrive as jobs from the packet workers.
type SipCall struct {
	CallID    string
	Mymode    mode.SessionMode
	Direction Direction
	StartTime time.Time

	Dialogs map[string]*Dialog

	Transactions []*Transaction

	IsDisposed bool // actor-internal, only touched inside the loop

	jobs chan job
	quit chan struct{}

	rmtmutex    sync.Mutex
	remoteUDP   *net.UDPAddr
	udpListener *net.UDPConn
}

func NewSipCall(sipmsg *SipMessage) *SipCall {
	call := &SipCall{
		CallID:    sipmsg.CallID,
		Mymode:    mode.None,
		Direction: INBOUND,
		StartTime: time.Now(),
		Dialogs:   make(map[string]*Dialog),
		jobs:      make(chan job), // unbuffered - Invoke rendezvous with the loop
		quit:      make(chan struct{}),
	}
	go call.loop()
	return call
}

func (call *SipCall) String() string {
	return fmt.Sprintf("Call-ID: %s, Mode: %s, Direction: %s, Dialogs: %d", call.CallID, call.Mymode, call.Direction.String(), len(call.Dialogs))
}

// ================================================================================
// Actor plumbing

func (call *SipCall) loop() {
	defer LogCallStack()
	for {
		select {
		case jb := <-call.jobs:
			jb.fn()
			jb.res <- nil
		case <-call.quit:
			return
		}
	}
}

// Invoke runs fn on the call's goroutine and waits for it to finish.
// Must not be called from inside a job - the loop is single-threaded.
func (call *SipCall) Invoke(fn func()) error {
	jb := job{fn: fn, res: make(chan error, 1)}
	select {
	case <-call.quit:
		return ErrCallNotFound
	case call.jobs <- jb:
		return <-jb.res
	}
}

// WithCall resolves the call by Call-ID and runs fn inside its actor.
func WithCall(callID string, fn func(call *SipCall)) error {
	call, ok := Calls.Load(callID)
	if !ok {
		return ErrCallNotFound
	}
	return call.Invoke(func() { fn(call) })
}

// DropMe disposes the call: terminates whatever is still alive, removes it
// from the registry and stops the loop. Only callable from inside a job or
// before the call is published.
func (call *SipCall) DropMe() {
	if call.IsDisposed {
		return
	}
	call.IsDisposed = true
	for _, dialog := range call.Dialogs {
		dialog.TerminateAll(SubsReasonNone)
	}
	Calls.Delete(call.CallID)
	close(call.quit)
}

// ================================================================================
// Dialog bookkeeping - all inside the actor

func (call *SipCall) AddDialog(dialog *Dialog) {
	call.Dialogs[dialog.ID] = dialog
}

func (call *SipCall) FindDialog(id string) *Dialog {
	return call.Dialogs[id]
}

// FindDialogByTags matches the dialog side that an incoming request
// addresses: its From tag is our remote tag, its To tag our local one.
func (call *SipCall) FindDialogByTags(remoteTag, localTag string) *Dialog {
	for _, dialog := range call.Dialogs {
		if dialog.RemoteTag == remoteTag && dialog.LocalTag == localTag {
			return dialog
		}
	}
	return nil
}

func (call *SipCall) FindDialogByMsg(sipmsg *SipMessage) *Dialog {
	if sipmsg.IsRequest() {
		return call.FindDialogByTags(sipmsg.FromTag, sipmsg.ToTag)
	}
	return call.FindDialogByTags(sipmsg.ToTag, sipmsg.FromTag)
}

// LinkDialogs records each side's ID on the other, enabling remote-handle
// correlation across the two legs.
func (call *SipCall) LinkDialogs(dlg1, dlg2 *Dialog) {
	dlg1.RemoteID = dlg2.ID
	dlg2.RemoteID = dlg1.ID
}

// ================================================================================
// Socket plumbing - set by the packet workers, hence the lock

func (call *SipCall) SetRemoteUDPnListener(rmt *net.UDPAddr, conn *net.UDPConn) {
	call.rmtmutex.Lock()
	defer call.rmtmutex.Unlock()
	call.remoteUDP = rmt
	call.udpListener = conn
}

func (call *SipCall) RemoteUDP() *net.UDPAddr {
	call.rmtmutex.Lock()
	defer call.rmtmutex.Unlock()
	return call.remoteUDP
}

func (call *SipCall) UDPListener() *net.UDPConn {
	call.rmtmutex.Lock()
	defer call.rmtmutex.Unlock()
	return call.udpListener
}

func (call *SipCall) sendmessage(sipmsg *SipMessage, rmt *net.UDPAddr) {
	conn := call.UDPListener()
	if conn == nil || rmt == nil {
		return
	}
	if _, err := conn.WriteToUDP(sipmsg.Bytes, rmt); err != nil {
		LogError(LTSystem, "Failed to send message: "+err.Error())
	}
}
