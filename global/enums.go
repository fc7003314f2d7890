package global

import "slices"

// ==============================================================
type Method int

const (
	UNKNOWN Method = iota
	INVITE
	ReINVITE
	REFER
	ACK
	CANCEL
	BYE
	OPTIONS
	NOTIFY
	UPDATE
	PRACK
	INFO
	REGISTER
	SUBSCRIBE
	MESSAGE
	PUBLISH
)

var methods = [...]string{"UNKNOWN", "INVITE", "ReINVITE", "REFER", "ACK", "CANCEL", "BYE", "OPTIONS", "NOTIFY", "UPDATE", "PRACK", "INFO", "REGISTER", "SUBSCRIBE", "MESSAGE", "PUBLISH"}

func (m Method) String() string {
	return methods[m]
}

func MethodFromName(nm string) Method {
	idx := slices.IndexFunc(methods[:], func(m string) bool { return m == nm })
	if idx == -1 {
		return UNKNOWN
	}
	return Method(idx)
}

// ==============================================================
type MessageType int

const (
	REQUEST MessageType = iota
	RESPONSE
	INVALID
)

var messageTypes = [...]string{"Request", "Response", "Invalid"}

func (mt MessageType) String() string {
	return messageTypes[mt]
}

// ==============================================================
type Direction int

const (
	INBOUND Direction = iota
	OUTBOUND
)

var directions = [...]string{"Inbound", "Outbound"}

func (d Direction) String() string {
	return directions[d]
}

// ==============================================================
type BodyType int

const (
	None BodyType = iota
	SDP
	SIPFragment
	PlainText
	AppJson
	AnyXML
	Unknown
)

var DicBodyContentType = map[BodyType]string{
	None:        "",
	SDP:         "application/sdp",
	SIPFragment: "message/sipfrag",
	PlainText:   "text/plain",
	AppJson:     "application/json",
}

// ==============================================================
type NewCallType int

const (
	Unset NewCallType = iota
	ValidRequest
	InvalidRequest
	Response
	UnExpectedMessage
	CallLegTransactionNotExist
)

// ==============================================================
// Subscription lifecycle tags. The parser result carries SubsStateInvalid
// for malformed Subscription-State headers instead of an error.

type SubsState int

const (
	SubsStateInvalid SubsState = iota
	SubsStateActive
	SubsStatePending
	SubsStateTerminated
)

var subsStates = [...]string{"invalid", "active", "pending", "terminated"}

func (ss SubsState) String() string {
	return subsStates[ss]
}

// ==============================================================
type SubsStateReason int

const (
	SubsReasonNone SubsStateReason = iota
	SubsReasonProbation
	SubsReasonGiveup
)

var subsStateReasons = [...]string{"", "probation", "giveup"}

func (sr SubsStateReason) String() string {
	return subsStateReasons[sr]
}

// unknown tokens downgrade to SubsReasonNone - peers may send vendor reasons
func SubsStateReasonFromToken(tkn string) SubsStateReason {
	switch ASCIIToLower(tkn) {
	case "probation":
		return SubsReasonProbation
	case "giveup":
		return SubsReasonGiveup
	default:
		return SubsReasonNone
	}
}

// ==============================================================
type SubsClass int

const (
	SubsClassSubscribe SubsClass = iota
	SubsClassRefer
)

var subsClasses = [...]string{"subscribe", "refer"}

func (sc SubsClass) String() string {
	return subsClasses[sc]
}

// ==============================================================
type LogLevel int

const (
	LLInformation LogLevel = iota
	LLWarning
	LLError
)

var logLevels = [...]string{"INFO", "WARNING", "ERROR"}

func (ll LogLevel) String() string {
	return logLevels[ll]
}

// ==============================================================
type LogTitle int

const (
	LTSystem LogTitle = iota
	LTConfiguration
	LTSIPStack
	LTBadSIPMessage
	LTSubscription
	LTJournal
	LTWebserver
)

var logTitles = [...]string{"System", "Configuration", "SIPStack", "BadSIPMessage", "Subscription", "Journal", "Webserver"}

func (lt LogTitle) String() string {
	return logTitles[lt]
}

// ==============================================================
type FieldPattern int

const (
	RequestStartLinePattern FieldPattern = iota
	ResponseStartLinePattern
	FullHeader
	Tag
	CSeqHeader
	ViaBranchPattern
	ViaIPv4Socket
)

// ==============================================================
type HeaderEnum int

// revive:disable:var-naming
const (
	Allow HeaderEnum = iota
	Allow_Events
	Call_ID
	Contact
	Content_Length
	Content_Type
	CSeq
	Event
	Expires
	From
	Max_Forwards
	Min_Expires
	Reason
	Record_Route
	Refer_Sub
	Refer_To
	Referred_By
	Retry_After
	Route
	Server
	Subscription_State
	Supported
	To
	User_Agent
	Via
	Warning
)

// revive:enable:var-naming

var HeaderEnumToString = map[HeaderEnum]string{
	Allow:              "Allow",
	Allow_Events:       "Allow-Events",
	Call_ID:            "Call-ID",
	Contact:            "Contact",
	Content_Length:     "Content-Length",
	Content_Type:       "Content-Type",
	CSeq:               "CSeq",
	Event:              "Event",
	Expires:            "Expires",
	From:               "From",
	Max_Forwards:       "Max-Forwards",
	Min_Expires:        "Min-Expires",
	Reason:             "Reason",
	Record_Route:       "Record-Route",
	Refer_Sub:          "Refer-Sub",
	Refer_To:           "Refer-To",
	Referred_By:        "Referred-By",
	Retry_After:        "Retry-After",
	Route:              "Route",
	Server:             "Server",
	Subscription_State: "Subscription-State",
	Supported:          "Supported",
	To:                 "To",
	User_Agent:         "User-Agent",
	Via:                "Via",
	Warning:            "Warning",
}

func (he HeaderEnum) LowerCaseString() string {
	return ASCIIToLower(HeaderEnumToString[he])
}

func (he HeaderEnum) String() string {
	return HeaderEnumToString[he]
}

// ==============================================================

var DicResponse = map[int]string{
	// 1xx-Provisional Responses
	100: "Trying",
	180: "Ringing",
	183: "Session Progress",
	// 2xx-Successful Responses
	200: "OK",
	202: "Accepted",
	// 4xx-Client Failure Responses
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	415: "Unsupported Media Type",
	481: "Call Leg/Transaction Does Not Exist",
	487: "Request Terminated",
	488: "Not Acceptable Here",
	489: "Bad Event",
	// 5xx-Server Failure Responses
	500: "Server Internal Error",
	503: "Service Unavailable",
	// 6xx-Global Failure Responses
	603: "Decline",
}
