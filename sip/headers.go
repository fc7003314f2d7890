package sip

import (
	. "ESGo/global"
)

type SipHeaders struct {
	_map map[string][]string
}

func NewSipHeaders() SipHeaders {
	return SipHeaders{_map: make(map[string][]string)}
}

// Used mainly in outbound messages or when pointer is needed i.e. mutable
func NewSHsPointer(setDefaults bool) *SipHeaders {
	headers := NewSipHeaders()
	if setDefaults {
		headers.AddHeader(User_Agent, EngineNameVersion)
		headers.AddHeader(Server, EngineNameVersion)
	}
	return &headers
}

// ==========================================

// returns headers as lowercase
func (headers *SipHeaders) GetHeaderNames() []string {
	lst := make([]string, 0, len(headers._map))
	for h := range headers._map {
		lst = append(lst, h)
	}
	return lst
}

// headerName is case insensitive
func (headers *SipHeaders) HeaderExists(headerName string) bool {
	headerName = ASCIIToLower(headerName)
	_, ok := headers._map[headerName]
	return ok
}

func (headers *SipHeaders) HeaderCount(headerName string) int {
	headerName = ASCIIToLower(headerName)
	v, ok := headers._map[headerName]
	if ok {
		return len(v)
	}
	return 0
}

func (headers *SipHeaders) AddHeader(header HeaderEnum, headerValue string) {
	headers.Add(header.String(), headerValue)
}

func (headers *SipHeaders) Add(headerName string, headerValue string) {
	headerName = ASCIIToLower(headerName)
	v := headers._map[headerName]
	headers._map[headerName] = append(v, headerValue)
}

func (headers *SipHeaders) SetHeader(header HeaderEnum, headerValue string) {
	headers.Set(header.String(), headerValue)
}

func (headers *SipHeaders) Set(headerName string, headerValue string) {
	headerName = ASCIIToLower(headerName)
	headers._map[headerName] = []string{headerValue}
}

func (headers *SipHeaders) HeaderValues(header HeaderEnum) []string {
	_, values := headers.Values(header.String())
	return values
}

func (headers *SipHeaders) ValuesHeader(header HeaderEnum) (bool, []string) {
	return headers.Values(header.String())
}

func (headers *SipHeaders) Values(headerName string) (bool, []string) {
	headerName = ASCIIToLower(headerName)
	v, ok := headers._map[headerName]
	if ok {
		return true, v
	}
	return false, nil
}

func (headers *SipHeaders) ValueHeader(header HeaderEnum) string {
	return headers.Value(header.String())
}

func (headers *SipHeaders) Value(headerName string) string {
	if ok, v := headers.Values(headerName); ok {
		return v[0]
	}
	return ""
}

func (headers *SipHeaders) DeleteHeader(header HeaderEnum) bool {
	return headers.Delete(header.String())
}

func (headers *SipHeaders) Delete(headerName string) bool {
	headerName = ASCIIToLower(headerName)
	_, ok := headers._map[headerName]
	if ok {
		delete(headers._map, headerName)
	}
	return ok
}

func (headers *SipHeaders) AnyMandatoryHeadersMissing(m Method) (bool, string) {
	for _, mh := range MandatoryHeaders {
		if !headers.HeaderExists(mh) {
			return true, mh
		}
	}
	if m == SUBSCRIBE || m == NOTIFY {
		mh := Event.String()
		if !headers.HeaderExists(mh) {
			return true, mh
		}
	}
	return false, ""
}
