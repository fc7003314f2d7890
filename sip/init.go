package sip

import (
	"fmt"
	"net"
	"os"
	"runtime"

	. "ESGo/global"
)

type (
	DscpValue = int
)

const (
	// Choose DSCP values (shift left by 2 bits for TOS field)
	DscpCS3  DscpValue = 24 << 2 // SIP
	DscpCS5  DscpValue = 40 << 2 // SIP
	DscpAF31 DscpValue = 26 << 2 // SIP
	DscpAF41 DscpValue = 34 << 2 // SIP
)

var (
	SipUdpPort int
	ServerIPv4 net.IP
)

func StartServer(ipv4 string, sup int, serviceID string) *net.UDPConn {
	fmt.Print("Initializing System...")

	Calls = NewConcurrentMapMutex[*SipCall](QueueSize)
	ServiceID = serviceID
	SipUdpPort = sup

	InitializeEngine()

	fmt.Println("Done")

	if ipv4 == "" {
		serverIPs, err := GetLocalIPs()
		if err != nil || len(serverIPs) == 0 {
			fmt.Println(NewError(3, "no self IPv4 address detected"))
			os.Exit(3)
		}
		ServerIPv4 = serverIPs[0]
	} else {
		ServerIPv4 = net.ParseIP(ipv4)
	}

	fmt.Print("Attempting to listen on SIP...")
	serverUDPListener, err := StartListening(ServerIPv4, SipUdpPort, DscpAF41)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	startWorkers(serverUDPListener)
	udpLoopWorkers(serverUDPListener)
	fmt.Println("Success: UDP", serverUDPListener.LocalAddr().String())

	return serverUDPListener
}

// =================================================================================================
// Worker Pattern

var (
	WorkerCount = runtime.NumCPU()
	QueueSize   = 2500
	packetQueue = make(chan Packet, QueueSize)
)

type Packet struct {
	sourceAddr *net.UDPAddr
	buffer     *[]byte
	bytesCount int
}

func startWorkers(conn *net.UDPConn) {
	// Start worker pool
	WtGrp.Add(WorkerCount)
	for range WorkerCount {
		go worker(conn, packetQueue)
	}
}

func udpLoopWorkers(conn *net.UDPConn) {
	WtGrp.Add(1)
	go func() {
		defer WtGrp.Done()
		for {
			buf, _ := BufferPool.Get().(*[]byte)
			n, addr, err := conn.ReadFromUDP(*buf)
			if err != nil {
				fmt.Println(err)
				continue
			}
			packetQueue <- Packet{sourceAddr: addr, buffer: buf, bytesCount: n}
		}
	}()
}

func worker(conn *net.UDPConn, queue <-chan Packet) {
	defer WtGrp.Done()
	for packet := range queue {
		processPacket(packet, conn)
	}
}

func processPacket(packet Packet, conn *net.UDPConn) {
	pdu := (*packet.buffer)[:packet.bytesCount]
	for len(pdu) > 0 {
		msg, pdutmp, err := processPDU(pdu)
		if err != nil || msg == nil {
			break
		}
		pdu = pdutmp
		call, newCallType := callGetter(msg)
		if call != nil {
			call.SetRemoteUDPnListener(packet.sourceAddr, conn)
		}
		sipStack(msg, call, newCallType)
	}
	BufferPool.Put(packet.buffer)
}
