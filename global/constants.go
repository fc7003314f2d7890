package global

import (
	"regexp"
	"sync"

	"ESGo/prometheus"
)

const (
	EngineName        string = "ESGo"
	EngineVersion     string = "1.0"
	EngineNameVersion string = EngineName + "/" + EngineVersion

	SipVersion  string = "SIP/2.0"
	MagicCookie string = "z9hG4bK"

	SipPort int = 5060
	MaxPort int = 65535

	PduBufferSize int = 8192

	DefExpires int = 3600

	// absence sentinel for expires / retry-after values
	NoValue int = -1
)

var (
	WtGrp       sync.WaitGroup
	Prometrics  *prometheus.Metrics
	HttpTcpPort int

	BufferPool *sync.Pool

	MandatoryHeaders = []string{"Via", "From", "To", "Call-ID", "CSeq"}

	DicFieldRegExp = map[FieldPattern]*regexp.Regexp{
		RequestStartLinePattern:  regexp.MustCompile(`^([A-Za-z]+)\s+(\S+)\s+SIP/2\.0$`),
		ResponseStartLinePattern: regexp.MustCompile(`^SIP/2\.0\s+(\d{3})\s*(.*)$`),
		FullHeader:               regexp.MustCompile(`^([\w\-.]+)\s*:\s*(.*)$`),
		Tag:                      regexp.MustCompile(`;tag=([^;,\s]+)`),
		CSeqHeader:               regexp.MustCompile(`^(\d+)\s+([A-Za-z]+)$`),
		ViaBranchPattern:         regexp.MustCompile(`;branch=([^;,\s]+)`),
		ViaIPv4Socket:            regexp.MustCompile(`SIP/2\.0/(\w+)\s+((?:\d{1,3}\.){3}\d{1,3})(?::(\d+))?`),
	}
)
