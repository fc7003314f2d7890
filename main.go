package main

import (
	"ESGo/global"
	"ESGo/journal"
	"ESGo/prometheus"
	"ESGo/sip"
	"ESGo/webserver"
	"fmt"
	"os"
)

// environment variables
//
//nolint:revive
const (
	Own_IP_IPv4     string = "server_ipv4"
	Own_SIP_UdpPort string = "sip_udp_port"
	Own_Http_Port   string = "http_port"
	Own_ServiceID   string = "service_id"
	Journal_Path    string = "journal_path"
	AutoServerIPv4  string = "auto_server_ipv4"
)

func main() {
	greeting()

	global.Prometrics = prometheus.NewMetrics(global.EngineNameVersion)

	ipv4, sipuport, serviceID, journalpath := checkArgs()
	journal.Initialize(journalpath)

	conn := sip.StartServer(ipv4, sipuport, serviceID)
	defer conn.Close() // close SIP server connection

	webserver.StartWS()
	global.WtGrp.Wait()
}

func greeting() {
	global.LogInfo(global.LTSystem, fmt.Sprintf("Welcome to %s - SIP Event Subscription Engine 2025", global.EngineNameVersion))
}

func checkArgs() (string, int, string, string) {
	ipv4, ok := os.LookupEnv(Own_IP_IPv4)
	if !ok {
		if _, ok = os.LookupEnv(AutoServerIPv4); !ok {
			global.LogWarning(global.LTConfiguration, "No self IPv4 address provided and 'auto_server_ipv4' not specified")
			os.Exit(1)
		}
	}

	sup := os.Getenv(Own_SIP_UdpPort)
	//nolint:mnd
	sipuport, _ := global.Str2IntDefaultMinMax(sup, 5060, 5000, 6000)

	hp := os.Getenv(Own_Http_Port)
	//nolint:mnd
	global.HttpTcpPort, _ = global.Str2IntDefaultMinMax(hp, 8080, 80, 9080)

	serviceID, ok := os.LookupEnv(Own_ServiceID)
	if !ok || serviceID == "" {
		serviceID = global.EngineName
		global.LogWarning(global.LTConfiguration, fmt.Sprintf("No service id provided - using default [%s]", serviceID))
	}

	journalpath := os.Getenv(Journal_Path)

	return ipv4, sipuport, serviceID, journalpath
}
