package sip

import (
	"fmt"

	. "ESGo/global"
)

// -------------------------------------------

type StartLine struct {
	Method Method

	StatusCode   int
	ReasonPhrase string

	RUri string
}

func (ssl *StartLine) GetStartLine(mt MessageType) string {
	if mt == REQUEST {
		return fmt.Sprintf("%s %s %s\r\n", ssl.Method.String(), ssl.RUri, SipVersion)
	}
	return fmt.Sprintf("%s %d %s\r\n", SipVersion, ssl.StatusCode, ssl.ReasonPhrase)
}

// ==========================================

type ResponsePack struct {
	StatusCode    int
	ReasonPhrase  string
	ToTag         string
	CustomHeaders SipHeaders
}

func NewResponsePackWarning(sc int, warning string) ResponsePack {
	hdrs := NewSipHeaders()
	if warning != "" {
		hdrs.AddHeader(Warning, fmt.Sprintf("399 %s \"%s\"", EngineName, warning))
	}
	return ResponsePack{StatusCode: sc, CustomHeaders: hdrs}
}
