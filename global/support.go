package global

import (
	"bytes"
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net"
	"runtime"
	"strings"

	"golang.org/x/net/ipv4"
)

// ============================================================

func LogCallStack() {
	r := recover()
	if r == nil {
		return
	}
	log.Printf("Panic Recovered! Error:\n%v", r)
	buf := make([]byte, 1024)
	n := runtime.Stack(buf, false)
	log.Printf("Stack trace:\n%s\n", buf[:n])
}

func LogInfo(lt LogTitle, msg string) {
	LogHandler(LLInformation, lt, msg)
}

func LogWarning(lt LogTitle, msg string) {
	LogHandler(LLWarning, lt, msg)
}

func LogError(lt LogTitle, msg string) {
	LogHandler(LLError, lt, msg)
}

func LogHandler(ll LogLevel, lt LogTitle, msg string) {
	log.Printf("\t%s\t%s\t%s\n", ll.String(), lt.String(), msg)
}

// ============================================================

func GetLocalIPs() ([]net.IP, error) {
	var IPs []net.IP
	var ip net.IP
	ifaces, _ := net.Interfaces()
outer:
	for _, i := range ifaces {
		if i.Flags&net.FlagUp == 0 || i.Flags&net.FlagRunning == 0 {
			continue
		}
		addrs, _ := i.Addrs()
		for _, addr := range addrs {
			if v, ok := addr.(*net.IPNet); ok {
				ip = v.IP
				if ip.To4() != nil && ip.IsPrivate() {
					IPs = append(IPs, ip)
					continue outer
				}
			}
		}
	}
	if len(IPs) == 0 {
		return nil, errors.New("no valid IPv4 found")
	}
	return IPs, nil
}

func StartListening(ip net.IP, prt int, dscp int) (*net.UDPConn, error) {
	if ip == nil {
		return nil, errors.New("nil IP address")
	}
	var socket net.UDPAddr
	socket.IP = ip
	socket.Port = prt
	conn, err := net.ListenUDP("udp", &socket)
	if err != nil {
		return nil, err
	}

	if err = ipv4.NewConn(conn).SetTOS(dscp); err != nil {
		log.Printf("Failed to set IPv4 TOS: %v (may need CAP_NET_ADMIN)", err)
	}

	return conn, nil
}

func BuildUdpAddr(ipsocket string, defaultport int) (*net.UDPAddr, bool) {
	part1, part2, ok := strings.Cut(ipsocket, ":")
	var prt int
	if ok {
		prt = Str2Int[int](part2)
		if prt <= 0 || prt > MaxPort {
			return nil, false
		}
	}
	prt = cmp.Or(prt, defaultport)

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", part1, prt))
	if err != nil {
		log.Printf("Error resolving UDP address [%s]: %v", ipsocket, err)
		return nil, false
	}

	return addr, true
}

// ============================================================

func ASCIIToLower(s string) string {
	b := []byte(s)
	for i := range b {
		if 'A' <= b[i] && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func ASCIIToUpper(s string) string {
	b := []byte(s)
	for i := range b {
		if 'a' <= b[i] && b[i] <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}

// returns header names with proper case i.e. "call-id" => "Call-Id"
func HeaderCase(h string) string {
	b := []byte(ASCIIToLower(h))
	up := true
	for i := range b {
		if up && 'a' <= b[i] && b[i] <= 'z' {
			b[i] -= 'a' - 'A'
		}
		up = b[i] == '-'
	}
	return string(b)
}

func GetNextIndex(payload []byte, s string) int {
	return bytes.Index(payload, []byte(s))
}

// ============================================================

func ParseParameters(parsline string) map[string]string {
	parsline = strings.Trim(parsline, ";")
	parsline = strings.Trim(parsline, ",")
	parsMap := make(map[string]string)
	if parsline == "" {
		return parsMap
	}
	for tpl := range strings.SplitSeq(parsline, ";") {
		tmp := strings.SplitN(strings.TrimSpace(tpl), "=", 2)
		switch len(tmp) {
		case 1:
			if _, ok := parsMap[tmp[0]]; !ok {
				parsMap[tmp[0]] = ""
			} else {
				LogError(LTSIPStack, fmt.Sprintf("duplicate parameter: [%s] - in line: [%s]", tmp[0], parsline))
			}
		case 2:
			if _, ok := parsMap[tmp[0]]; !ok {
				parsMap[tmp[0]] = strings.Trim(tmp[1], `"`)
			} else {
				LogError(LTSIPStack, fmt.Sprintf("duplicate parameter: [%s] - in line: [%s]", tmp[0], parsline))
			}
		default:
			LogError(LTSIPStack, fmt.Sprintf("badly formatted parameter line: [%s] - skipped", parsline))
		}
	}
	return parsMap
}


// splits "token;p1=v1;p2=v2" into the leading token (key "!headerValue") and its parameters
func CleanAndSplitHeader(headerValue string) map[string]string {
	if headerValue == "" {
		return nil
	}
	token, parsline, _ := strings.Cut(headerValue, ";")
	nvc := ParseParameters(parsline)
	nvc["!headerValue"] = strings.TrimSpace(token)
	return nvc
}

func GetBodyType(contentType string) BodyType {
	contentType = ASCIIToLower(contentType)
	for k, v := range DicBodyContentType {
		if k != None && v == contentType {
			return k
		}
	}
	if strings.Contains(contentType, "xml") {
		return AnyXML
	}
	return Unknown
}

// ==========================================================================================

// Convert string to int with default value with included minimum or maximum
func Str2IntDefaultMinMax[T int | int8 | int16 | int32 | int64](s string, d, minlmt, maxlmt T) (T, bool) {
	out, ok := Str2IntCheck[T](s)
	if ok {
		if out < minlmt || out > maxlmt {
			return d, false
		}
		return out, true
	}
	return d, false
}

func Str2IntCheck[T int | int8 | int16 | int32 | int64](s string) (T, bool) {
	var out T
	if len(s) == 0 {
		return out, false
	}
	idx := 0
	isN := s[idx] == '-'
	if isN {
		idx++
		if len(s) == 1 {
			return out, false
		}
	} else if s[idx] == '+' {
		idx++
	}
	for i := idx; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return out, false
		}
		out = out*10 + T(s[i]-'0')
	}
	if isN {
		out = -out
	}
	return out, true
}

func Str2Int[T int | int8 | int16 | int32 | int64](s string) T {
	out, _ := Str2IntCheck[T](s)
	return out
}

func Str2Uint[T uint | uint8 | uint16 | uint32 | uint64](s string) T {
	var out T
	if len(s) == 0 {
		return out
	}
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return 0
		}
		out = out*10 + T(s[i]-'0')
	}
	return out
}

func Int2Str(i int) string {
	return fmt.Sprintf("%d", i)
}

func Uint32ToStr(u uint32) string {
	return fmt.Sprintf("%d", u)
}

// ==========================================================================================

func Find[T any](items []*T, predicate func(*T) bool) *T {
	for _, item := range items {
		if predicate(item) {
			return item
		}
	}
	return nil
}

func Map[T1, T2 any](data []T1, mapper func(T1) T2) []T2 {
	o := make([]T2, len(data))
	for i, datum := range data {
		o[i] = mapper(datum)
	}
	return o
}

// ===================================================================

func BytesToHexString(data []byte) string {
	return hex.EncodeToString(data)
}

// HashKey computes a stable content-addressed key over its parts.
// Parts are length-prefixed so no two distinct part lists share an
// encoding. Keys derived through it never leave the process unencoded,
// so the exact algorithm is not a wire-compatibility concern.
func HashKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s", len(p), p)
	}
	return BytesToHexString(h.Sum(nil))
}

// ===================================================================

func RMatch(s string, rgxfp FieldPattern) []string {
	if s == "" {
		return nil
	}
	return DicFieldRegExp[rgxfp].FindStringSubmatch(s)
}
